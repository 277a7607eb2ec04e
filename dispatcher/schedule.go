package dispatcher

import "github.com/rtcorbin/ecsrun/internal/registry"

// Default precedence weights. Named-peer constraints are the most specific
// thing a system can declare, so they carry the highest weight; phase
// membership is the least specific (pure convenience sugar over the same
// graph) and carries the lowest.
const (
	weightNamedPeer         = 10
	weightComponentAnchored = 5
	weightPhase             = 3
)

type constraintKind int

const (
	constraintBefore constraintKind = iota
	constraintAfter
	constraintDenyBefore
	constraintDenyAfter
	constraintBeforeWritersOf
	constraintAfterWritersOf
)

type constraint struct {
	kind   constraintKind
	peer   string
	anchor registry.ComponentTypeID
}

// ScheduleBuilder accumulates one system's ordering constraints. A system
// declares at most one schedule, built via Builder.Schedule.
type ScheduleBuilder struct {
	constraints []constraint
}

// Before declares that the owning system must run before peer.
func (s *ScheduleBuilder) Before(peer string) *ScheduleBuilder {
	s.constraints = append(s.constraints, constraint{kind: constraintBefore, peer: peer})
	return s
}

// After declares that the owning system must run after peer.
func (s *ScheduleBuilder) After(peer string) *ScheduleBuilder {
	s.constraints = append(s.constraints, constraint{kind: constraintAfter, peer: peer})
	return s
}

// DenyBefore records a denial on the owning system -> peer edge, replacing a
// "before peer" constraint of equal or lower weight inherited from
// elsewhere. Seal drops the denial itself, so it adds no ordering: the two
// systems are left unordered unless another constraint orders them.
func (s *ScheduleBuilder) DenyBefore(peer string) *ScheduleBuilder {
	s.constraints = append(s.constraints, constraint{kind: constraintDenyBefore, peer: peer})
	return s
}

// DenyAfter is the mirror of DenyBefore.
func (s *ScheduleBuilder) DenyAfter(peer string) *ScheduleBuilder {
	s.constraints = append(s.constraints, constraint{kind: constraintDenyAfter, peer: peer})
	return s
}

// BeforeWritersOf declares that the owning system must run before every
// other system that writes component type t, a component-anchored peer
// set rather than a single named one.
func (s *ScheduleBuilder) BeforeWritersOf(t registry.ComponentTypeID) *ScheduleBuilder {
	s.constraints = append(s.constraints, constraint{kind: constraintBeforeWritersOf, anchor: t})
	return s
}

// AfterWritersOf is the mirror of BeforeWritersOf.
func (s *ScheduleBuilder) AfterWritersOf(t registry.ComponentTypeID) *ScheduleBuilder {
	s.constraints = append(s.constraints, constraint{kind: constraintAfterWritersOf, anchor: t})
	return s
}
