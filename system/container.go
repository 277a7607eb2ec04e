// Package system implements the per-system runtime: the container that
// drives a registered system through its lifecycle (construction, query and
// schedule building, finalize, initialize, and the per-frame run-and-update
// pipeline), and the attachment placeholder mechanism used to wire systems
// to their peers.
package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rtcorbin/ecsrun/internal/changelog"
	"github.com/rtcorbin/ecsrun/internal/registry"
	"github.com/rtcorbin/ecsrun/query"
)

// ErrProcessedSetCorrupt is the panic payload raised when a shape- or
// write-log entry names an entity id the registry never allocated. The
// processed set is only ever indexed by ids the logs themselves hand back,
// so this means a log entry was fabricated or corrupted outside the normal
// CreateEntity/AddComponent/RemoveComponent/MarkWritten paths.
type ErrProcessedSetCorrupt struct {
	System   string
	EntityID registry.EntityID
}

func (e ErrProcessedSetCorrupt) Error() string {
	return fmt.Sprintf("system: %s consumed a log entry for unallocated entity %d", e.System, e.EntityID)
}

// RunState is a container's position in the run-state machine.
type RunState int

const (
	// Stopped is the initial state: execute is a no-op and all query
	// result sets are empty.
	Stopped RunState = iota
	// Running is the steady state: every frame drives the query-update
	// pipeline and then calls the user's Execute.
	Running
)

func (s RunState) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Behavior is what a user system implements. Execute is invoked once per
// frame while the container is Running, after that frame's queries have
// been brought up to date.
type Behavior interface {
	// Initialize runs once, after every system's queries and schedule have
	// been built and every attachment resolved, before the first frame.
	Initialize(ctx *Context) error
	Execute(ctx *Context)
}

// Context is the surface a Behavior sees: read-only per-frame fields plus
// the handful of operations §6 exposes to user code.
type Context struct {
	container *Container
}

// ID returns the container's dense registration-order id.
func (c *Context) ID() int { return c.container.id }

// Name returns the system's diagnostic name.
func (c *Context) Name() string { return c.container.name }

// Time returns the current frame's timestamp.
func (c *Context) Time() time.Time { return c.container.frameTime }

// Delta returns the current frame's elapsed time since the previous one.
func (c *Context) Delta() time.Duration { return c.container.frameDelta }

// CreateEntity delegates to the registry. The returned id must not be
// retained past the current Execute call's lifetime guarantees (it's a
// plain id, so nothing stops misuse, but the registry may recycle it once
// destroyed).
func (c *Context) CreateEntity(initial ...registry.ComponentTypeID) registry.EntityID {
	return c.container.reg.CreateEntity(initial...)
}

// AccessRecentlyDeletedData flips the registry-wide graveyard-visibility
// toggle for HasShape calls made after this point.
func (c *Context) AccessRecentlyDeletedData(toggle bool) {
	c.container.reg.AccessRecentlyDeletedData(toggle)
}

// MarkWritten appends a write-log entry for (t, id), giving component
// storage code the entry point into the write change log that drives
// downstream queries' transient sets. Fails with query.ErrWriteNotDeclared
// if t is not in this system's declared write mask, since an undeclared
// write would notify queries no system ever promised to trigger.
func (c *Context) MarkWritten(t registry.ComponentTypeID, id registry.EntityID) error {
	if !c.container.writeMask.Has(t) {
		return query.ErrWriteNotDeclared{System: c.container.name, Type: t}
	}
	c.container.reg.MarkWritten(c.container.writeLog, t, id)
	return nil
}

// Stop transitions the container to Stopped.
func (c *Context) Stop() { c.container.Stop() }

// Restart transitions the container to Running, rebuilding every query's
// result set from the live entity population.
func (c *Context) Restart() { c.container.Restart() }

// ownedQuery wraps a compiled query owned by the container. Write-log
// entries are routed only to the queries whose IsWrite reports true.
type ownedQuery struct {
	q *query.Query
}

// Container is the per-system runtime record: masks, owned queries, log
// cursors, run state, and the processed-entity bitset used to dedupe a
// frame's log consumption.
type Container struct {
	id   int
	name string

	behavior Behavior

	readMask  registry.Mask
	writeMask registry.Mask

	queries    []ownedQuery
	hasWriters bool

	reg      ComponentRegistry
	shapeLog ChangeLog
	writeLog ChangeLog

	shapeCursor *changelog.Cursor
	writeCursor *changelog.Cursor // nil unless hasWriters

	processed entityProcessedSet

	state      RunState
	ranLastFrame bool

	frameTime  time.Time
	frameDelta time.Duration

	log *zap.Logger
}

// entityProcessedSet is a scratch per-frame bitset, cleared at the start of
// every update pass rather than reallocated.
type entityProcessedSet struct {
	words []uint64
}

func (s *entityProcessedSet) clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

func (s *entityProcessedSet) markIfAbsent(id registry.EntityID) bool {
	w, bit := int(id)>>6, uint64(1)<<(uint(id)&63)
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}
	if s.words[w]&bit != 0 {
		return false
	}
	s.words[w] |= bit
	return true
}

func (s *entityProcessedSet) contains(id registry.EntityID) bool {
	w := int(id) >> 6
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(uint64(1)<<(uint(id)&63)) != 0
}

// NewContainer wires a fresh container for behavior, reading and writing
// the shared shape/write logs owned by the dispatcher. log receives
// Stop/Restart transition events; a nil log is replaced with a no-op one.
func NewContainer(id int, name string, behavior Behavior, reg ComponentRegistry, shapeLog, writeLog ChangeLog, log *zap.Logger) *Container {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{
		id:       id,
		name:     name,
		behavior: behavior,
		reg:      reg,
		shapeLog: shapeLog,
		writeLog: writeLog,
		state:    Stopped,
		log:      log,
	}
	c.shapeCursor = shapeLog.CreatePointer(nil)
	return c
}

// Context returns the Context view passed to this container's behavior.
func (c *Container) Context() *Context { return &Context{container: c} }

// Behavior returns the user system instance this container drives, used by
// the dispatcher for attachment resolution.
func (c *Container) Behavior() Behavior { return c.behavior }

// Name returns the container's diagnostic name.
func (c *Container) Name() string { return c.name }

// State reports the container's current run state.
func (c *Container) State() RunState { return c.state }

// ReadMask and WriteMask return the OR of every owned query's declared
// read/write component sets.
func (c *Container) ReadMask() registry.Mask  { return c.readMask }
func (c *Container) WriteMask() registry.Mask { return c.writeMask }

// AddQuery registers a compiled query with the container, OR-ing its
// read/write masks into the container's own. Only valid during the
// query/schedule build phase, before Finalize.
func (c *Container) AddQuery(q *query.Query, readMask, writeMask registry.Mask) {
	c.queries = append(c.queries, ownedQuery{q: q})
	c.readMask = c.readMask.Or(readMask)
	c.writeMask = c.writeMask.Or(writeMask)
	if q.IsWrite() {
		c.hasWriters = true
	}
}

// Finalize allocates the write-log cursor if any owned query declared
// write access. Called once, after every query has been added.
func (c *Container) Finalize() {
	if c.hasWriters {
		c.writeCursor = c.writeLog.CreatePointer(nil)
	}
}

// Initialize invokes the behavior's Initialize hook and, on success,
// transitions the container to Running.
func (c *Container) Initialize() error {
	if err := c.behavior.Initialize(c.Context()); err != nil {
		return err
	}
	c.state = Running
	return nil
}

// Run advances the container by one frame: if Running, it brings every
// owned query up to date from the shape/write logs and then invokes the
// behavior's Execute. If Stopped, it does nothing.
func (c *Container) Run(t time.Time, delta time.Duration) {
	if c.state != Running {
		return
	}
	c.frameTime = t
	c.frameDelta = delta
	c.updateQueries()
	c.behavior.Execute(c.Context())
}

// updateQueries implements the three-path decision in §4.2: clear and
// reconsume when anything changed, clear-only when idle after a frame that
// did run, or a true no-op otherwise.
func (c *Container) updateQueries() {
	shapesChanged := c.shapeLog.HasUpdatesSince(c.shapeCursor)
	writesMade := c.hasWriters && c.writeLog.HasUpdatesSince(c.writeCursor)

	switch {
	case shapesChanged || writesMade:
		for _, oq := range c.queries {
			oq.q.ClearTransient()
		}
		c.consumeLogs()
		c.ranLastFrame = true
	case c.hasTransientQueries() && c.ranLastFrame:
		for _, oq := range c.queries {
			oq.q.ClearTransient()
		}
		c.ranLastFrame = false
	default:
		c.ranLastFrame = false
	}
}

// hasTransientQueries reports whether the container owns at least one
// query at all (every query tracks a transient set; the name follows §4.2's
// wording for the branch that only needs to clear transients).
func (c *Container) hasTransientQueries() bool {
	return len(c.queries) > 0
}

// consumeLogs implements §4.2's log consumption order: shape log first,
// marking entities processed this frame, then the write log, skipping
// anything the shape log already delivered.
func (c *Container) consumeLogs() {
	c.processed.clear()

	if buf, _, _, ok := c.shapeLog.ProcessSince(c.shapeCursor); ok {
		for _, entry := range buf {
			id := registry.EntityID(changelog.ShapeEntryEntity(entry))
			if id.IsZero() || id > c.reg.MaxEntityID() {
				panic(ErrProcessedSetCorrupt{System: c.name, EntityID: id})
			}
			if !c.processed.markIfAbsent(id) {
				continue
			}
			shape, alive := c.reg.Shape(id)
			if !alive {
				shape = nil
			}
			for _, oq := range c.queries {
				oq.q.HandleShapeUpdate(id, shape)
			}
		}
	}

	if !c.hasWriters {
		return
	}
	if buf, _, _, ok := c.writeLog.ProcessSince(c.writeCursor); ok {
		for _, entry := range buf {
			rawType, rawID := changelog.WriteEntryParts(entry)
			t, id := registry.ComponentTypeID(rawType), registry.EntityID(rawID)
			if id.IsZero() || id > c.reg.MaxEntityID() {
				panic(ErrProcessedSetCorrupt{System: c.name, EntityID: id})
			}
			if c.processed.contains(id) {
				continue
			}
			wordOffset := registry.WordOffset(t)
			bitMask := registry.BitMask(t)
			for _, oq := range c.queries {
				if oq.q.IsWrite() {
					oq.q.HandleWrite(id, wordOffset, bitMask)
				}
			}
		}
	}
}

// Stop clears every owned query's result and transient sets and moves the
// container to Stopped. Subsequent Run calls become no-ops.
func (c *Container) Stop() {
	for _, oq := range c.queries {
		oq.q.ClearAll()
	}
	c.state = Stopped
	c.log.Info("system stopped", zap.String("system", c.name))
}

// Restart rebuilds every owned query's result set from the live entity
// population, clears transients, and re-anchors both log cursors to the
// current tail so deltas already in the logs are not replayed. Moves the
// container to Running.
func (c *Container) Restart() {
	c.reg.AllAlive(func(id registry.EntityID) {
		shape, _ := c.reg.Shape(id)
		for _, oq := range c.queries {
			oq.q.HandleShapeUpdate(id, shape)
		}
	})
	for _, oq := range c.queries {
		oq.q.ClearTransient()
	}
	c.shapeCursor = c.shapeLog.CreatePointer(c.shapeCursor)
	if c.hasWriters {
		c.writeCursor = c.writeLog.CreatePointer(c.writeCursor)
	}
	c.state = Running
	c.log.Info("system restarted", zap.String("system", c.name))
}
