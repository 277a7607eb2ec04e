package system

import (
	"github.com/rtcorbin/ecsrun/internal/changelog"
	"github.com/rtcorbin/ecsrun/internal/registry"
)

// ComponentRegistry abstracts the entity/component collaborator a container
// drives systems against: entity identity and liveness, per-entity shape,
// and component-type registration. *registry.Registry implements it; an
// embedder may substitute its own component-storage engine as long as it
// satisfies this interface.
type ComponentRegistry interface {
	RegisterComponentType(store registry.Store) registry.ComponentTypeID
	NumComponentTypes() int
	MaxEntityID() registry.EntityID
	CreateEntity(initial ...registry.ComponentTypeID) registry.EntityID
	DestroyEntity(id registry.EntityID)
	ClearGraveyard()
	AddComponent(id registry.EntityID, t registry.ComponentTypeID) error
	RemoveComponent(id registry.EntityID, t registry.ComponentTypeID) error
	MarkWritten(writeLog registry.Appender, t registry.ComponentTypeID, id registry.EntityID)
	AccessRecentlyDeletedData(toggle bool)
	HasShape(id registry.EntityID, t registry.ComponentTypeID, includeRecentlyDeleted bool) bool
	Shape(id registry.EntityID) (*registry.Shape, bool)
	Alive(id registry.EntityID) bool
	AllAlive(fn func(registry.EntityID))
}

// ChangeLog abstracts the append-only, per-consumer-cursor change stream
// both the shape log and the write log are instances of. *changelog.Log
// implements it.
type ChangeLog interface {
	registry.Appender
	CreatePointer(reuse *changelog.Cursor) *changelog.Cursor
	HasUpdatesSince(c *changelog.Cursor) bool
	ProcessSince(c *changelog.Cursor) (buf []uint64, start, end int, ok bool)
}
