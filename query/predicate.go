// Package query implements compiled, incrementally maintained entity
// queries. A query is built once via Builder during a system's construction
// phase, compiled into a predicate bit-mask triple plus a watched-writes
// mask, and from then on only ever updated from shape- and write-log
// deltas. It never rescans the whole entity population.
package query

import (
	"fmt"

	"github.com/rtcorbin/ecsrun/internal/registry"
)

// ErrWriteNotDeclared is returned when code marks a write against a
// component type a system's queries never declared via Writes.
type ErrWriteNotDeclared struct {
	System string
	Type   registry.ComponentTypeID
}

func (e ErrWriteNotDeclared) Error() string {
	return fmt.Sprintf("query: system %s wrote undeclared component type %d", e.System, e.Type)
}

// Predicate is the conjunction/disjunction over "has component" / "lacks
// component": required bits must all be present, forbidden bits must all
// be absent. Optional bits gate nothing but mark component types the query
// still wants write notifications for.
type Predicate struct {
	Required  registry.Mask
	Forbidden registry.Mask
}

// Test evaluates the predicate against a live shape.
func (p Predicate) Test(shape *registry.Shape) bool {
	if !p.Required.IsZero() && !p.Required.All(shape) {
		return false
	}
	if !p.Forbidden.IsZero() && p.Forbidden.Any(shape) {
		return false
	}
	return true
}

// Builder accumulates a query's predicate and write-access declarations.
// Builder itself has no phase check; dispatcher.Builder.Query, which
// registers the built query with a system's container, panics with
// dispatcher.ErrFinalized once that system's Declare has returned.
type Builder struct {
	required  registry.Mask
	forbidden registry.Mask
	optional  registry.Mask
	writable  registry.Mask
}

// NewBuilder returns an empty query builder.
func NewBuilder() *Builder { return &Builder{} }

// Require adds types to the "must have all" clause.
func (b *Builder) Require(types ...registry.ComponentTypeID) *Builder {
	b.required = b.required.Or(registry.NewMask(types...))
	return b
}

// Forbid adds types to the "must lack all" clause.
func (b *Builder) Forbid(types ...registry.ComponentTypeID) *Builder {
	b.forbidden = b.forbidden.Or(registry.NewMask(types...))
	return b
}

// Optional adds types the query wants write notifications for without
// gating membership on their presence.
func (b *Builder) Optional(types ...registry.ComponentTypeID) *Builder {
	b.optional = b.optional.Or(registry.NewMask(types...))
	return b
}

// Writes declares write access to types, implicitly Require-ing them too
// since a system can't usefully write a component it never reads the
// presence of. A query is a write query iff Writes was called at least once.
func (b *Builder) Writes(types ...registry.ComponentTypeID) *Builder {
	b.writable = b.writable.Or(registry.NewMask(types...))
	return b.Require(types...)
}

// Referenced returns the union of every component type this builder's
// clauses name (required, forbidden, and optional alike), for validating
// against a registry's registered types before the query is built.
func (b *Builder) Referenced() registry.Mask {
	return b.required.Or(b.optional).Or(b.forbidden)
}

// Build compiles the accumulated declarations into a Query. ReadMask and
// WriteMask are returned alongside so the owning system container can OR
// them into its own read/write masks.
func (b *Builder) Build() (q *Query, readMask, writeMask registry.Mask) {
	watched := b.required.Or(b.optional).Or(b.forbidden)
	q = &Query{
		predicate: Predicate{Required: b.required, Forbidden: b.forbidden},
		watched:   watched,
		isWrite:   !b.writable.IsZero(),
	}
	readMask = b.required.Or(b.optional).Or(b.forbidden)
	writeMask = b.writable
	return q, readMask, writeMask
}
