package dispatcher

import (
	"fmt"

	"github.com/rtcorbin/ecsrun/internal/registry"
	"github.com/rtcorbin/ecsrun/query"
	"github.com/rtcorbin/ecsrun/system"
)

// ErrDuplicateSchedule is returned when a system's Declare calls Schedule
// more than once.
type ErrDuplicateSchedule struct{ System string }

func (e ErrDuplicateSchedule) Error() string {
	return fmt.Sprintf("dispatcher: system %s declared more than one schedule", e.System)
}

// ErrUnknownComponentType is a configuration error returned when a query or
// a component-anchored schedule constraint names a component type id the
// registry never had registered via RegisterComponentType.
type ErrUnknownComponentType struct {
	System string
	Type   registry.ComponentTypeID
}

func (e ErrUnknownComponentType) Error() string {
	return fmt.Sprintf("dispatcher: system %s references unregistered component type %d", e.System, e.Type)
}

// ErrFinalized is raised when a Builder method is called after the
// dispatcher has finished processing the owning system's Declare call. A
// retained *Builder has nowhere left to return an error to, so this is a
// panic rather than a returned error, the same way system.Placeholder
// panics on a post-resolution misuse.
type ErrFinalized struct{ System string }

func (e ErrFinalized) Error() string {
	return fmt.Sprintf("dispatcher: system %s used its builder after finalize", e.System)
}

// Declarer is implemented by systems that need to declare queries, a
// schedule, or attachments during construction. Systems with nothing to
// declare need not implement it.
type Declarer interface {
	Declare(b *Builder) error
}

type pendingAttachment struct {
	owner       string
	placeholder *system.Placeholder
}

// Builder is the construction-phase surface a Declarer sees: query
// registration, at most one schedule, and attachment placeholder creation.
// Calling any of its methods after the dispatcher has finished processing
// this system's Declare call panics with ErrFinalized.
type Builder struct {
	disp        *Dispatcher
	container   *system.Container
	name        string
	scheduled   bool
	constraints []constraint
	attachments []*pendingAttachment
	phase       string
	phaseSet    bool
	finalized   bool
	err         error
}

// Phase assigns the owning system to one of the dispatcher's declared
// phases (see Dispatcher.DeclarePhases), a convenience constraint that
// orders it after every system in the previous phase and before every
// system in the next, at the lowest default weight, so any explicit
// schedule declaration between the same systems takes precedence.
func (b *Builder) Phase(name string) {
	if b.finalized {
		panic(ErrFinalized{System: b.name})
	}
	b.phase = name
	b.phaseSet = true
}

// Query compiles qb and registers the resulting query with the owning
// system's container, returning it so the system can read its result set
// later from Execute. Every component type qb references must already be
// registered with the dispatcher's registry; the first violation found is
// recorded and surfaces from Dispatcher.Build.
func (b *Builder) Query(qb *query.Builder) *query.Query {
	if b.finalized {
		panic(ErrFinalized{System: b.name})
	}
	if b.err == nil {
		numTypes := b.disp.reg.NumComponentTypes()
		qb.Referenced().Each(func(t registry.ComponentTypeID) {
			if b.err == nil && int(t) >= numTypes {
				b.err = ErrUnknownComponentType{System: b.name, Type: t}
			}
		})
	}
	q, readMask, writeMask := qb.Build()
	b.container.AddQuery(q, readMask, writeMask)
	return q
}

// Schedule declares the owning system's ordering constraints. It may be
// called at most once per system.
func (b *Builder) Schedule(fn func(s *ScheduleBuilder)) error {
	if b.finalized {
		panic(ErrFinalized{System: b.name})
	}
	if b.scheduled {
		return ErrDuplicateSchedule{System: b.name}
	}
	b.scheduled = true
	sb := &ScheduleBuilder{}
	fn(sb)
	b.constraints = append(b.constraints, sb.constraints...)
	return nil
}

// Attach creates an unresolved placeholder targeting the named peer
// system, resolved once every system has been registered.
func (b *Builder) Attach(peerName string) *system.Placeholder {
	if b.finalized {
		panic(ErrFinalized{System: b.name})
	}
	p := system.NewPlaceholder(peerName)
	b.attachments = append(b.attachments, &pendingAttachment{owner: b.name, placeholder: p})
	return p
}
