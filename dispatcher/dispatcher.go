// Package dispatcher implements the scheduler: system registration, graph
// construction from declared constraints, topological ordering, per-frame
// serial execution, and attachment resolution.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rtcorbin/ecsrun/graph"
	"github.com/rtcorbin/ecsrun/internal/registry"
	"github.com/rtcorbin/ecsrun/system"
)

// ErrUnknownPeer is a configuration error returned when a schedule
// constraint names a peer system that was never registered.
type ErrUnknownPeer struct {
	System string
	Peer   string
}

func (e ErrUnknownPeer) Error() string {
	return fmt.Sprintf("dispatcher: system %s references unknown peer %s", e.System, e.Peer)
}

// ErrUnknownPhase is returned by RunUntil for a phase name never declared.
type ErrUnknownPhase struct{ Phase string }

func (e ErrUnknownPhase) Error() string {
	return fmt.Sprintf("dispatcher: unknown phase %q", e.Phase)
}

// Dispatcher owns every system container, the precedence graph, and the
// shape/write change logs systems consume.
type Dispatcher struct {
	reg      ComponentRegistry
	shapeLog ChangeLog
	writeLog ChangeLog

	g          *graph.Graph
	containers []*system.Container
	names      []string
	nameIndex  map[string]int

	phases         []string
	phaseIndex     map[string]int
	containerPhase []int // -1 if the system declared no phase

	order  []int
	sealed bool

	log *zap.Logger
}

// New returns a dispatcher over reg, appending to and reading from the
// given shape and write logs. log receives registration, seal, cycle-error,
// and container stop/restart events; a nil log is replaced with a no-op
// one.
func New(reg ComponentRegistry, shapeLog, writeLog ChangeLog, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		reg:       reg,
		shapeLog:  shapeLog,
		writeLog:  writeLog,
		g:         graph.New(),
		nameIndex: make(map[string]int),
		log:       log,
	}
}

// DeclarePhases fixes the dispatcher's named execution phases, in order.
// Must be called before any system declares a phase via Builder.Phase.
func (d *Dispatcher) DeclarePhases(names ...string) {
	d.phases = names
	d.phaseIndex = make(map[string]int, len(names))
	for i, n := range names {
		d.phaseIndex[n] = i
	}
}

// Register assigns behavior a dense id in registration order and returns
// it. Must be called before Build.
func (d *Dispatcher) Register(name string, behavior system.Behavior) int {
	idx := len(d.containers)
	c := system.NewContainer(idx, name, behavior, d.reg, d.shapeLog, d.writeLog, d.log)
	d.containers = append(d.containers, c)
	d.names = append(d.names, name)
	d.nameIndex[name] = idx
	d.containerPhase = append(d.containerPhase, -1)
	d.g.AddNode(name)
	d.log.Info("system registered", zap.String("system", name), zap.Int("id", idx))
	return idx
}

// Build runs the construction → query/schedule build → finalize →
// constraint-resolution → attachment-resolution → seal pipeline over every
// registered system. It must be called exactly once, after every system is
// registered and before Initialize or RunFrame.
//
// Declare for every container runs to completion, and Finalize is called
// for every container, before any constraint is resolved against a second
// pass over the builders. Component-anchored constraints
// (ScheduleBuilder.BeforeWritersOf/AfterWritersOf) work by scanning every
// container's WriteMask(), which AddQuery only finishes populating once
// that container's own Declare has run; resolving them inline in the first
// pass would silently miss containers not yet declared, making the result
// depend on registration order. The second pass runs only after every
// WriteMask() is final, so component-anchored constraints are
// order-independent the same way named-peer constraints already are.
func (d *Dispatcher) Build() error {
	var pending []*pendingAttachment
	builders := make([]*Builder, len(d.containers))

	for idx, c := range d.containers {
		b := &Builder{disp: d, container: c, name: d.names[idx]}
		if decl, ok := c.Behavior().(Declarer); ok {
			if err := decl.Declare(b); err != nil {
				d.log.Warn("system declare failed", zap.String("system", d.names[idx]), zap.Error(err))
				return err
			}
		}
		b.finalized = true
		if b.err != nil {
			d.log.Warn("system declare failed", zap.String("system", d.names[idx]), zap.Error(b.err))
			return b.err
		}
		c.Finalize()
		pending = append(pending, b.attachments...)
		if b.phaseSet {
			p, ok := d.phaseIndex[b.phase]
			if !ok {
				err := ErrUnknownPhase{Phase: b.phase}
				d.log.Warn("system declare failed", zap.String("system", d.names[idx]), zap.Error(err))
				return err
			}
			d.containerPhase[idx] = p
		}
		builders[idx] = b
	}

	for idx, b := range builders {
		if err := d.applyConstraints(idx, b.constraints); err != nil {
			d.log.Warn("schedule constraint failed", zap.String("system", d.names[idx]), zap.Error(err))
			return err
		}
	}

	d.applyPhaseOrdering()

	for _, p := range pending {
		target, ok := d.nameIndex[p.placeholder.TypeName()]
		if !ok {
			err := system.ErrUnresolvedAttachment{FieldSystem: p.owner, TargetType: p.placeholder.TypeName()}
			d.log.Warn("attachment unresolved", zap.String("system", p.owner), zap.String("target", p.placeholder.TypeName()))
			return err
		}
		p.placeholder.Resolve(d.containers[target].Behavior())
	}

	if err := d.g.Seal(); err != nil {
		d.log.Error("schedule seal failed", zap.Error(err))
		return err
	}
	order, err := d.g.Order()
	if err != nil {
		d.log.Error("schedule order failed", zap.Error(err))
		return err
	}
	d.order = order
	d.sealed = true

	names := make([]string, len(order))
	for i, idx := range order {
		names[i] = d.names[idx]
	}
	d.log.Info("schedule sealed", zap.Strings("order", names))
	return nil
}

func (d *Dispatcher) applyConstraints(idx int, constraints []constraint) error {
	name := d.names[idx]
	for _, c := range constraints {
		switch c.kind {
		case constraintBefore:
			peer, ok := d.nameIndex[c.peer]
			if !ok {
				return ErrUnknownPeer{System: name, Peer: c.peer}
			}
			d.g.Add(idx, peer, weightNamedPeer)
		case constraintAfter:
			peer, ok := d.nameIndex[c.peer]
			if !ok {
				return ErrUnknownPeer{System: name, Peer: c.peer}
			}
			d.g.Add(peer, idx, weightNamedPeer)
		case constraintDenyBefore:
			peer, ok := d.nameIndex[c.peer]
			if !ok {
				return ErrUnknownPeer{System: name, Peer: c.peer}
			}
			d.g.Deny(idx, peer, weightNamedPeer)
		case constraintDenyAfter:
			peer, ok := d.nameIndex[c.peer]
			if !ok {
				return ErrUnknownPeer{System: name, Peer: c.peer}
			}
			d.g.Deny(peer, idx, weightNamedPeer)
		case constraintBeforeWritersOf:
			if int(c.anchor) >= d.reg.NumComponentTypes() {
				return ErrUnknownComponentType{System: name, Type: c.anchor}
			}
			for _, peer := range d.writersOf(c.anchor) {
				if peer == idx {
					continue
				}
				d.g.Add(idx, peer, weightComponentAnchored)
			}
		case constraintAfterWritersOf:
			if int(c.anchor) >= d.reg.NumComponentTypes() {
				return ErrUnknownComponentType{System: name, Type: c.anchor}
			}
			for _, peer := range d.writersOf(c.anchor) {
				if peer == idx {
					continue
				}
				d.g.Add(peer, idx, weightComponentAnchored)
			}
		}
	}
	return nil
}

func (d *Dispatcher) writersOf(t registry.ComponentTypeID) []int {
	var out []int
	for i, c := range d.containers {
		if c.WriteMask().Has(t) {
			out = append(out, i)
		}
	}
	return out
}

// applyPhaseOrdering links each declared phase to the next: every system
// in phase i is constrained to run before every system in phase i+1. This
// is convenience sugar over the same precedence graph, so it carries the
// lowest default weight and yields to any more specific constraint.
func (d *Dispatcher) applyPhaseOrdering() {
	if len(d.phases) < 2 {
		return
	}
	groups := make([][]int, len(d.phases))
	for idx, p := range d.containerPhase {
		if p >= 0 {
			groups[p] = append(groups[p], idx)
		}
	}
	for i := 0; i+1 < len(groups); i++ {
		for _, a := range groups[i] {
			for _, b := range groups[i+1] {
				d.g.Add(a, b, weightPhase)
			}
		}
	}
}

// Initialize runs every system's Initialize hook concurrently via an
// errgroup, returning the first error (if any) once every hook has
// returned; a failing hook does not stop the others. Must be called after
// Build and before the first
// RunFrame/RunUntil.
func (d *Dispatcher) Initialize(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, c := range d.containers {
		c := c
		g.Go(func() error { return c.Initialize() })
	}
	return g.Wait()
}

// RunFrame executes every system once, in topological order, with the
// given frame timestamp and delta, then clears the registry's graveyard of
// recently-deleted entity shapes.
func (d *Dispatcher) RunFrame(t time.Time, delta time.Duration) error {
	if !d.sealed {
		return graph.ErrNotSealed
	}
	for _, idx := range d.order {
		d.containers[idx].Run(t, delta)
	}
	d.reg.ClearGraveyard()
	return nil
}

// RunUntil executes, in topological order, every system up to and
// including the last system whose declared phase is at or before
// throughPhase, then returns without looking at the rest of the order at
// all: a phase-less system positioned after that cutoff does not run this
// call, even though it would run unconditionally under RunFrame. Intended
// for high-frequency partial-frame polling between full RunFrame calls. If
// no system in the order has a phase at or before throughPhase, nothing
// runs.
func (d *Dispatcher) RunUntil(t time.Time, delta time.Duration, throughPhase string) error {
	if !d.sealed {
		return graph.ErrNotSealed
	}
	limit, ok := d.phaseIndex[throughPhase]
	if !ok {
		return ErrUnknownPhase{Phase: throughPhase}
	}
	cutoff := -1
	for pos, idx := range d.order {
		if p := d.containerPhase[idx]; p >= 0 && p <= limit {
			cutoff = pos
		}
	}
	if cutoff < 0 {
		return nil
	}
	for _, idx := range d.order[:cutoff+1] {
		d.containers[idx].Run(t, delta)
	}
	return nil
}

// ContainerBehavior returns the registered behavior instance for name, for
// callers that need to wire cross-system references (e.g. a reporting
// system reading another's query handles) after Build. Panics if name was
// never registered.
func (d *Dispatcher) ContainerBehavior(name string) system.Behavior {
	idx, ok := d.nameIndex[name]
	if !ok {
		panic("dispatcher: unknown system " + name)
	}
	return d.containers[idx].Behavior()
}

// Order returns the sealed topological order as system names, for
// diagnostics.
func (d *Dispatcher) Order() ([]string, error) {
	if !d.sealed {
		return nil, graph.ErrNotSealed
	}
	names := make([]string, len(d.order))
	for i, idx := range d.order {
		names[i] = d.names[idx]
	}
	return names, nil
}
