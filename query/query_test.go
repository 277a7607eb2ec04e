package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rtcorbin/ecsrun/internal/registry"
)

const (
	typePosition registry.ComponentTypeID = iota
	typeVelocity
	typeFrozen
)

func TestBuilderRequireForbidCompiledIntoPredicate(t *testing.T) {
	q, readMask, writeMask := NewBuilder().Require(typePosition, typeVelocity).Forbid(typeFrozen).Build()
	require.True(t, writeMask.IsZero())
	require.False(t, readMask.IsZero())
	require.False(t, q.IsWrite())

	var shape registry.Shape
	shape.Set(typePosition)
	shape.Set(typeVelocity)
	require.True(t, q.predicate.Test(&shape))

	shape.Set(typeFrozen)
	require.False(t, q.predicate.Test(&shape))
}

func TestBuilderWritesImpliesRequireAndIsWrite(t *testing.T) {
	q, _, writeMask := NewBuilder().Writes(typePosition).Build()
	require.True(t, q.IsWrite())
	require.False(t, writeMask.IsZero())

	var shape registry.Shape
	require.False(t, q.predicate.Test(&shape))
	shape.Set(typePosition)
	require.True(t, q.predicate.Test(&shape))
}

func TestHandleShapeUpdateAddsAndEvictsFromResult(t *testing.T) {
	q, _, _ := NewBuilder().Require(typePosition).Build()

	var shape registry.Shape
	shape.Set(typePosition)
	q.HandleShapeUpdate(1, &shape)
	require.True(t, q.Result().Contains(1))
	require.True(t, q.Transient().Contains(1))

	q.ClearTransient()
	q.HandleShapeUpdate(1, nil)
	require.False(t, q.Result().Contains(1))
	require.True(t, q.Transient().Contains(1))
}

func TestHandleShapeUpdateIsNoOpWhenMembershipUnchanged(t *testing.T) {
	q, _, _ := NewBuilder().Require(typePosition).Build()
	var shape registry.Shape
	shape.Set(typePosition)

	q.HandleShapeUpdate(1, &shape)
	q.ClearTransient()
	q.HandleShapeUpdate(1, &shape)
	require.False(t, q.Transient().Contains(1))
}

func TestHandleWriteOnlyAffectsExistingResultMembers(t *testing.T) {
	q, _, _ := NewBuilder().Writes(typePosition).Build()
	wordOffset := registry.WordOffset(typePosition)
	bitMask := registry.BitMask(typePosition)

	q.HandleWrite(1, wordOffset, bitMask)
	require.False(t, q.Transient().Contains(1))

	var shape registry.Shape
	shape.Set(typePosition)
	q.HandleShapeUpdate(1, &shape)
	q.ClearTransient()

	q.HandleWrite(1, wordOffset, bitMask)
	require.True(t, q.Transient().Contains(1))
}

func TestHandleWriteIgnoresUnwatchedComponent(t *testing.T) {
	q, _, _ := NewBuilder().Writes(typePosition).Build()
	var shape registry.Shape
	shape.Set(typePosition)
	q.HandleShapeUpdate(1, &shape)
	q.ClearTransient()

	q.HandleWrite(1, registry.WordOffset(typeVelocity), registry.BitMask(typeVelocity))
	require.False(t, q.Transient().Contains(1))
}

func TestHandleWriteIsNoOpOnNonWriteQuery(t *testing.T) {
	q, _, _ := NewBuilder().Require(typePosition).Build()
	var shape registry.Shape
	shape.Set(typePosition)
	q.HandleShapeUpdate(1, &shape)
	q.ClearTransient()

	q.HandleWrite(1, registry.WordOffset(typePosition), registry.BitMask(typePosition))
	require.False(t, q.Transient().Contains(1))
}

func TestHandleWriteNotifiesOnOptionalWatchedComponent(t *testing.T) {
	// typeVelocity is only Optional here, never Required or Writes-declared
	// by this query, but Writes(typePosition) already makes the query a
	// write query, so a write to the optional component should still
	// surface as a transient notification for an entity already matching.
	q, _, _ := NewBuilder().Require(typePosition).Writes(typePosition).Optional(typeVelocity).Build()

	var shape registry.Shape
	shape.Set(typePosition)
	q.HandleShapeUpdate(1, &shape)
	q.ClearTransient()

	q.HandleWrite(1, registry.WordOffset(typeVelocity), registry.BitMask(typeVelocity))
	require.True(t, q.Transient().Contains(1))
}

func TestClearAllEmptiesResultAndTransient(t *testing.T) {
	q, _, _ := NewBuilder().Require(typePosition).Build()
	var shape registry.Shape
	shape.Set(typePosition)
	q.HandleShapeUpdate(1, &shape)

	q.ClearAll()
	require.Zero(t, q.Result().Len())
	require.Zero(t, q.Transient().Len())
}
