package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rtcorbin/ecsrun/internal/changelog"
	"github.com/rtcorbin/ecsrun/internal/registry"
	"github.com/rtcorbin/ecsrun/query"
)

const (
	compPosition registry.ComponentTypeID = iota
	compVelocity
)

type recordingBehavior struct {
	initCalls    int
	executeCalls int
	lastResult   []registry.EntityID
	q            *query.Query
}

func (b *recordingBehavior) Initialize(ctx *Context) error {
	b.initCalls++
	return nil
}

func (b *recordingBehavior) Execute(ctx *Context) {
	b.executeCalls++
	b.lastResult = nil
	b.q.Result().Each(func(id registry.EntityID) {
		b.lastResult = append(b.lastResult, id)
	})
}

func newTestContainer(t *testing.T) (*Container, *registry.Registry, *changelog.Log, *changelog.Log, *recordingBehavior) {
	t.Helper()
	shapeLog := changelog.New()
	writeLog := changelog.New()
	reg := registry.New(shapeLog)
	reg.RegisterComponentType(nil)
	reg.RegisterComponentType(nil)

	b := &recordingBehavior{}
	builder := query.NewBuilder().Require(compPosition)
	q, readMask, writeMask := builder.Build()
	b.q = q

	c := NewContainer(0, "movement", b, reg, shapeLog, writeLog, zap.NewNop())
	c.AddQuery(q, readMask, writeMask)
	c.Finalize()
	return c, reg, shapeLog, writeLog, b
}

func TestContainerInitializeTransitionsToRunning(t *testing.T) {
	c, _, _, _, b := newTestContainer(t)
	require.Equal(t, Stopped, c.State())
	require.NoError(t, c.Initialize())
	require.Equal(t, Running, c.State())
	require.Equal(t, 1, b.initCalls)
}

func TestContainerPicksUpEntitiesCreatedBeforeInitialize(t *testing.T) {
	c, reg, _, _, b := newTestContainer(t)
	e1 := reg.CreateEntity(compPosition)
	require.NoError(t, c.Initialize())
	c.Run(time.Now(), time.Second)
	require.ElementsMatch(t, []registry.EntityID{e1}, b.lastResult)
}

func TestContainerTracksShapeChangesAcrossFrames(t *testing.T) {
	c, reg, _, _, b := newTestContainer(t)
	require.NoError(t, c.Initialize())

	e1 := reg.CreateEntity()
	c.Run(time.Now(), time.Second)
	require.Empty(t, b.lastResult)

	require.NoError(t, reg.AddComponent(e1, compPosition))
	c.Run(time.Now(), time.Second)
	require.ElementsMatch(t, []registry.EntityID{e1}, b.lastResult)

	reg.DestroyEntity(e1)
	c.Run(time.Now(), time.Second)
	require.Empty(t, b.lastResult)
}

func TestContainerNoOpFrameWhenNothingChanged(t *testing.T) {
	c, reg, _, _, b := newTestContainer(t)
	require.NoError(t, c.Initialize())
	e1 := reg.CreateEntity(compPosition)
	c.Run(time.Now(), time.Second)
	require.NotEmpty(t, b.lastResult)

	b.executeCalls = 0
	c.Run(time.Now(), time.Second)
	c.Run(time.Now(), time.Second)
	require.Equal(t, 2, b.executeCalls)
	require.ElementsMatch(t, []registry.EntityID{e1}, b.lastResult)
}

func TestContainerStopClearsResultsAndSuspendsExecute(t *testing.T) {
	c, reg, _, _, b := newTestContainer(t)
	require.NoError(t, c.Initialize())
	reg.CreateEntity(compPosition)
	c.Run(time.Now(), time.Second)
	require.NotEmpty(t, b.lastResult)

	c.Stop()
	require.Equal(t, Stopped, c.State())
	require.Zero(t, b.q.Result().Len())

	callsBefore := b.executeCalls
	c.Run(time.Now(), time.Second)
	require.Equal(t, callsBefore, b.executeCalls)
}

func TestContainerRestartRebuildsFromLiveEntitiesAndSkipsStaleDeltas(t *testing.T) {
	c, reg, _, _, b := newTestContainer(t)
	require.NoError(t, c.Initialize())

	e1 := reg.CreateEntity(compPosition)
	c.Run(time.Now(), time.Second)
	c.Stop()

	// Mutations while stopped must not be replayed as deltas after restart;
	// restart itself discovers them by walking live entities.
	e2 := reg.CreateEntity(compPosition)
	reg.DestroyEntity(e1)

	c.Restart()
	require.Equal(t, Running, c.State())
	c.Run(time.Now(), time.Second)
	require.ElementsMatch(t, []registry.EntityID{e2}, b.lastResult)
}

func TestContainerWriteOnlyTouchesResultMembersNotShape(t *testing.T) {
	shapeLog := changelog.New()
	writeLog := changelog.New()
	reg := registry.New(shapeLog)
	reg.RegisterComponentType(nil)

	b := &recordingBehavior{}
	builder := query.NewBuilder().Writes(compPosition)
	q, readMask, writeMask := builder.Build()
	b.q = q

	c := NewContainer(0, "writer", b, reg, shapeLog, writeLog, zap.NewNop())
	c.AddQuery(q, readMask, writeMask)
	c.Finalize()
	require.NoError(t, c.Initialize())

	e1 := reg.CreateEntity(compPosition)
	c.Run(time.Now(), time.Second)
	require.ElementsMatch(t, []registry.EntityID{e1}, b.lastResult)

	reg.MarkWritten(writeLog, compPosition, e1)
	c.Run(time.Now(), time.Second)
	require.ElementsMatch(t, []registry.EntityID{e1}, b.lastResult)
	require.True(t, q.Transient().Contains(e1))
}

func TestContextMarkWrittenRejectsUndeclaredComponentType(t *testing.T) {
	c, reg, _, writeLog, _ := newTestContainer(t)
	require.NoError(t, c.Initialize())
	e1 := reg.CreateEntity(compPosition)

	ctx := c.Context()
	require.Error(t, ctx.MarkWritten(compVelocity, e1))

	var err query.ErrWriteNotDeclared
	require.ErrorAs(t, ctx.MarkWritten(compVelocity, e1), &err)
	require.Equal(t, compVelocity, err.Type)

	_ = writeLog
}

func TestContextMarkWrittenAppendsToWriteLogForDeclaredType(t *testing.T) {
	shapeLog := changelog.New()
	writeLog := changelog.New()
	reg := registry.New(shapeLog)
	reg.RegisterComponentType(nil)

	b := &recordingBehavior{}
	builder := query.NewBuilder().Writes(compPosition)
	q, readMask, writeMask := builder.Build()
	b.q = q

	c := NewContainer(0, "writer", b, reg, shapeLog, writeLog, zap.NewNop())
	c.AddQuery(q, readMask, writeMask)
	c.Finalize()
	require.NoError(t, c.Initialize())

	e1 := reg.CreateEntity(compPosition)
	c.Run(time.Now(), time.Second)

	require.NoError(t, c.Context().MarkWritten(compPosition, e1))
	c.Run(time.Now(), time.Second)
	require.True(t, q.Transient().Contains(e1))
}

func TestContainerShapeChangeSuppressesRedundantWriteOnSameEntity(t *testing.T) {
	shapeLog := changelog.New()
	writeLog := changelog.New()
	reg := registry.New(shapeLog)
	reg.RegisterComponentType(nil)

	b := &recordingBehavior{}
	builder := query.NewBuilder().Writes(compPosition)
	q, readMask, writeMask := builder.Build()
	b.q = q

	c := NewContainer(0, "writer", b, reg, shapeLog, writeLog, zap.NewNop())
	c.AddQuery(q, readMask, writeMask)
	c.Finalize()
	require.NoError(t, c.Initialize())

	e1 := reg.CreateEntity()
	require.NoError(t, reg.AddComponent(e1, compPosition))
	reg.MarkWritten(writeLog, compPosition, e1)

	c.Run(time.Now(), time.Second)
	require.ElementsMatch(t, []registry.EntityID{e1}, b.lastResult)
	require.True(t, q.Transient().Contains(e1))
}

func TestContainerPanicsOnShapeLogEntryForUnallocatedEntity(t *testing.T) {
	c, _, shapeLog, _, _ := newTestContainer(t)
	require.NoError(t, c.Initialize())

	// No entity was ever created through reg, so entity id 1 is not
	// allocated; a shape-log entry naming it can only mean the log was
	// fed an entry outside the normal CreateEntity/AddComponent path.
	shapeLog.Append(changelog.ShapeEntry(1))

	require.Panics(t, func() { c.Run(time.Now(), time.Second) })
}

func TestContainerPanicsOnWriteLogEntryForUnallocatedEntity(t *testing.T) {
	shapeLog := changelog.New()
	writeLog := changelog.New()
	reg := registry.New(shapeLog)
	reg.RegisterComponentType(nil)

	b := &recordingBehavior{}
	builder := query.NewBuilder().Writes(compPosition)
	q, readMask, writeMask := builder.Build()
	b.q = q

	c := NewContainer(0, "writer", b, reg, shapeLog, writeLog, zap.NewNop())
	c.AddQuery(q, readMask, writeMask)
	c.Finalize()
	require.NoError(t, c.Initialize())

	writeLog.Append(changelog.WriteEntry(int(compPosition), 1))

	require.Panics(t, func() { c.Run(time.Now(), time.Second) })
}
