package query

import "github.com/rtcorbin/ecsrun/internal/registry"

// Query is a live, incrementally maintained entity set matching a compiled
// Predicate. It never rescans the whole entity population after its
// initial build: result membership only ever changes via HandleShapeUpdate
// (or is emptied by ClearAll), while HandleWrite only feeds the transient
// set; both are driven by the owning system.Container from shape- and
// write-log deltas.
type Query struct {
	predicate Predicate
	watched   registry.Mask // component types whose writes this query reports in its transient set
	isWrite   bool

	result    EntitySet
	transient EntitySet
}

// IsWrite reports whether this query declared write access to any
// referenced component.
func (q *Query) IsWrite() bool { return q.isWrite }

// Result returns the query's current matching entity set: exactly the live
// entities satisfying the predicate as of the moment the host system's
// execute runs.
func (q *Query) Result() *EntitySet { return &q.result }

// Transient returns the entities whose membership changed during the most
// recent update (empty if nothing changed, or if this frame's update didn't
// touch this query at all).
func (q *Query) Transient() *EntitySet { return &q.transient }

// ClearTransient empties the transient delta without touching the result
// set.
func (q *Query) ClearTransient() { q.transient.Clear() }

// ClearAll empties both the result and transient sets; used by
// system.Container.Stop so a restarted system rediscovers its matches from
// scratch.
func (q *Query) ClearAll() {
	q.result.Clear()
	q.transient.Clear()
}

// HandleShapeUpdate re-evaluates the predicate against id's live shape,
// updating membership and, on a transition, recording it in the transient
// set. shape is nil (treated as the empty shape) when id is no longer
// alive, so a just-destroyed entity is correctly evicted from the result.
func (q *Query) HandleShapeUpdate(id registry.EntityID, shape *registry.Shape) {
	matches := shape != nil && q.predicate.Test(shape)
	if matches {
		if q.result.Add(id) {
			q.transient.Add(id)
		}
	} else {
		if q.result.Remove(id) {
			q.transient.Add(id)
		}
	}
}

// HandleWrite records id in the transient set if this is a write query, the
// written component intersects its watched set, and id is currently a
// match; on a non-write query it does nothing. This
// never changes result membership; only shape changes do that.
func (q *Query) HandleWrite(id registry.EntityID, wordOffset int, bitMask uint32) {
	if !q.isWrite {
		return
	}
	if !q.watched.Intersects(wordOffset, bitMask) {
		return
	}
	if q.result.Contains(id) {
		q.transient.Add(id)
	}
}
