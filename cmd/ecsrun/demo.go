package main

import (
	"fmt"

	"github.com/rtcorbin/ecsrun/dispatcher"
	"github.com/rtcorbin/ecsrun/internal/registry"
	"github.com/rtcorbin/ecsrun/query"
	"github.com/rtcorbin/ecsrun/system"
)

const (
	componentPosition registry.ComponentTypeID = iota
	componentVelocity
	componentDamaged
)

// spawnerSystem creates a handful of moving entities once, during
// Initialize, then stops contributing further work.
type spawnerSystem struct {
	count int
}

func (s *spawnerSystem) Initialize(ctx *system.Context) error {
	for i := 0; i < s.count; i++ {
		ctx.CreateEntity(componentPosition, componentVelocity)
	}
	return nil
}

func (s *spawnerSystem) Execute(ctx *system.Context) {}

// movementSystem advances every entity with a position and velocity, and
// must run after spawnerSystem's entities exist but that ordering falls
// out of the registry being populated during Initialize, not a schedule
// constraint.
type movementSystem struct {
	moving *query.Query
}

func (m *movementSystem) Declare(b *dispatcher.Builder) error {
	m.moving = b.Query(query.NewBuilder().Require(componentPosition, componentVelocity).Writes(componentPosition))
	return nil
}

func (m *movementSystem) Initialize(ctx *system.Context) error { return nil }

func (m *movementSystem) Execute(ctx *system.Context) {
	m.moving.Result().Each(func(id registry.EntityID) {
		// a real system would mutate the position store here before marking it
		_ = ctx.MarkWritten(componentPosition, id)
	})
}

// damageSystem declares a write query over positioned entities, whose
// transient set picks up the entities movementSystem marked as written this
// frame, and is scheduled after every writer of componentPosition. Its
// Execute does nothing, so no entity is ever flagged as damaged.
type damageSystem struct {
	damaged *query.Query
}

func (d *damageSystem) Declare(b *dispatcher.Builder) error {
	d.damaged = b.Query(query.NewBuilder().Require(componentPosition).Writes(componentDamaged))
	return b.Schedule(func(s *dispatcher.ScheduleBuilder) {
		s.AfterWritersOf(componentPosition)
	})
}

func (d *damageSystem) Initialize(ctx *system.Context) error { return nil }

func (d *damageSystem) Execute(ctx *system.Context) {}

// reportSystem prints each query's current and transient population.
// Scheduled last via an explicit After on both upstream systems.
type reportSystem struct {
	moving, damaged *query.Query
}

func (r *reportSystem) Declare(b *dispatcher.Builder) error {
	return b.Schedule(func(s *dispatcher.ScheduleBuilder) {
		s.After("movement").After("damage")
	})
}

func (r *reportSystem) Initialize(ctx *system.Context) error { return nil }

func (r *reportSystem) Execute(ctx *system.Context) {
	fmt.Printf("  frame %s: moving=%d moving-changed=%d damaged=%d\n",
		ctx.Delta(), r.moving.Result().Len(), r.moving.Transient().Len(), r.damaged.Result().Len())
}
