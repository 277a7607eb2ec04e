package registry

import (
	"fmt"

	"github.com/rtcorbin/ecsrun/internal/changelog"
)

// ErrDeadEntity is returned when an operation targets an entity id that is
// not (or no longer) alive.
type ErrDeadEntity struct{ ID EntityID }

func (e ErrDeadEntity) Error() string { return fmt.Sprintf("registry: entity %d is not alive", e.ID) }

// Store is implemented by a component's payload storage so the registry can
// bulk-clear it on entity destruction.
type Store interface {
	Remove(EntityID)
}

// BoundedStore is a Store with a fixed capacity. AddComponent type-asserts a
// registered Store against this interface and, if it implements it and
// reports itself full, fails the add with ErrStorageFull rather than
// silently setting a shape bit the store cannot actually back.
type BoundedStore interface {
	Store
	Full() bool
}

// ErrStorageFull is returned by AddComponent when the registered Store for
// t implements BoundedStore and Full() reports no remaining capacity.
type ErrStorageFull struct{ Type ComponentTypeID }

func (e ErrStorageFull) Error() string {
	return fmt.Sprintf("registry: store for component type %d is full", e.Type)
}

// Appender is the minimal write capability MarkWritten needs from a change
// log. Defined here, not imported from changelog, so this package's public
// methods don't force every caller to hand over a concrete changelog.Log,
// only something that can record an entry; *changelog.Log satisfies it.
type Appender interface {
	Append(entry uint64)
}

// Registry owns entity identity and liveness (via EntityPool) and
// per-entity shape bitmasks, and appends to the shape log on every
// create/destroy/component change so the scheduler's queries can stay
// incrementally maintained.
//
// Component payload storage is not modeled here; embedders register their
// own Store per component type so it can be swept on destroy and on
// component removal, and, if it is a BoundedStore, consulted for capacity
// on AddComponent.
type Registry struct {
	pool   *EntityPool
	shapes []Shape // indexed by EntityID
	stores []Store // indexed by ComponentTypeID

	graveyard map[EntityID]Shape // last known shape of recently-destroyed entities

	shapeLog *changelog.Log

	includeRecentlyDeleted bool
}

// New creates a registry that appends shape-change entries to shapeLog. The
// log is owned by the dispatcher; the registry only holds a reference so it
// can append.
func New(shapeLog *changelog.Log) *Registry {
	return &Registry{
		pool:      NewEntityPool(),
		shapes:    make([]Shape, 1, 1024),
		graveyard: make(map[EntityID]Shape),
		shapeLog:  shapeLog,
	}
}

// RegisterComponentType reserves the next dense ComponentTypeID and
// associates it with a Store to sweep on destroy. store may be nil if the
// embedder manages its own payload lifecycle.
func (r *Registry) RegisterComponentType(store Store) ComponentTypeID {
	t := ComponentTypeID(len(r.stores))
	r.stores = append(r.stores, store)
	return t
}

// NumComponentTypes returns how many component types have been registered.
func (r *Registry) NumComponentTypes() int { return len(r.stores) }

// MaxEntityID returns the highest entity id ever allocated.
func (r *Registry) MaxEntityID() EntityID { return r.pool.Max() }

// CreateEntity allocates a new entity with the given initial component
// types already set.
func (r *Registry) CreateEntity(initial ...ComponentTypeID) EntityID {
	id := r.pool.Create()
	for int(id) >= len(r.shapes) {
		r.shapes = append(r.shapes, Shape{})
	}
	r.shapes[id].Reset()
	for _, t := range initial {
		r.shapes[id].Set(t)
	}
	r.shapeLog.Append(changelog.ShapeEntry(uint32(id)))
	return id
}

// DestroyEntity releases id, sweeping every registered Store and recording
// its last-known shape in the graveyard for one frame of "recently deleted"
// visibility.
func (r *Registry) DestroyEntity(id EntityID) {
	if !r.pool.Alive(id) {
		return
	}
	r.graveyard[id] = Shape{words: append([]uint32(nil), r.shapes[id].words...)}
	for _, s := range r.stores {
		if s != nil {
			s.Remove(id)
		}
	}
	r.shapes[id].Reset()
	r.pool.Destroy(id)
	r.shapeLog.Append(changelog.ShapeEntry(uint32(id)))
}

// ClearGraveyard drops all recently-deleted shape snapshots. Call this once
// per frame (the dispatcher does, after every system has had a chance to
// observe this frame's destructions) so the graveyard doesn't grow without
// bound.
func (r *Registry) ClearGraveyard() {
	for k := range r.graveyard {
		delete(r.graveyard, k)
	}
}

// AddComponent sets t on id's shape and logs the shape change. If the Store
// registered for t implements BoundedStore and reports itself full, the add
// fails with ErrStorageFull and the shape is left unchanged.
func (r *Registry) AddComponent(id EntityID, t ComponentTypeID) error {
	if !r.pool.Alive(id) {
		return ErrDeadEntity{id}
	}
	if r.shapes[id].Has(t) {
		return nil
	}
	if int(t) < len(r.stores) {
		if bs, ok := r.stores[t].(BoundedStore); ok && bs.Full() {
			return ErrStorageFull{Type: t}
		}
	}
	r.shapes[id].Set(t)
	r.shapeLog.Append(changelog.ShapeEntry(uint32(id)))
	return nil
}

// RemoveComponent clears t from id's shape and logs the shape change.
func (r *Registry) RemoveComponent(id EntityID, t ComponentTypeID) error {
	if !r.pool.Alive(id) {
		return ErrDeadEntity{id}
	}
	if !r.shapes[id].Has(t) {
		return nil
	}
	r.shapes[id].Clear(t)
	if s := r.stores[t]; s != nil {
		s.Remove(id)
	}
	r.shapeLog.Append(changelog.ShapeEntry(uint32(id)))
	return nil
}

// MarkWritten appends a write-log entry for (t, id); component stores call
// this after mutating a tracked field. writeLog need only satisfy Appender,
// so an embedder's own log implementation works here too, not just
// *changelog.Log.
func (r *Registry) MarkWritten(writeLog Appender, t ComponentTypeID, id EntityID) {
	writeLog.Append(changelog.WriteEntry(int(t), uint32(id)))
}

// AccessRecentlyDeletedData flips whether HasShape consults the graveyard
// for dead entities by default.
func (r *Registry) AccessRecentlyDeletedData(toggle bool) {
	r.includeRecentlyDeleted = toggle
}

// HasShape reports whether entity id carries component type t. The
// includeRecentlyDeleted parameter overrides the registry-wide toggle for
// this one call when explicitly requested.
func (r *Registry) HasShape(id EntityID, t ComponentTypeID, includeRecentlyDeleted bool) bool {
	if r.pool.Alive(id) {
		return r.shapes[id].Has(t)
	}
	if includeRecentlyDeleted || r.includeRecentlyDeleted {
		if shape, ok := r.graveyard[id]; ok {
			return shape.Has(t)
		}
	}
	return false
}

// Shape returns a read-only view of id's current shape, or the graveyard
// shape if dead and recently-deleted access is enabled.
func (r *Registry) Shape(id EntityID) (*Shape, bool) {
	if r.pool.Alive(id) {
		return &r.shapes[id], true
	}
	if r.includeRecentlyDeleted {
		if shape, ok := r.graveyard[id]; ok {
			return &shape, true
		}
	}
	return nil, false
}

// Alive reports whether id is currently live.
func (r *Registry) Alive(id EntityID) bool { return r.pool.Alive(id) }

// AllAlive iterates every live entity id, in ascending order. Used by
// system.Container.Restart to rebuild query result sets from scratch.
func (r *Registry) AllAlive(fn func(EntityID)) {
	for id := EntityID(1); id <= r.pool.Max(); id++ {
		if r.pool.Alive(id) {
			fn(id)
		}
	}
}
