package ecs

import (
	"slices"
	"time"

	"github.com/kamstrup/intmap"

	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/pkg/sequence"
)

// World owns the entity table and the ordered system list. It is driven from
// a single goroutine; workers never touch it directly.
type World struct {
	entities *intmap.Map[EntityID, *Entity]
	// order keeps live IDs ascending so scans are deterministic.
	order  []EntityID
	nextID EntityID

	systems []System
	metrics []*Metrics

	events *bus.Manager
	logger log.Log
}

// NewWorld creates an empty world publishing on events. A private bus is
// created when events is nil.
func NewWorld(events *bus.Manager, logger log.Log) *World {
	if events == nil {
		events = bus.New()
	}
	return &World{
		entities: intmap.New[EntityID, *Entity](256),
		nextID:   1,
		events:   events,
		logger:   log.OrNop(logger).With(log.String("component", "world")),
	}
}

// Events returns the bus systems publish on.
func (w *World) Events() *bus.Manager {
	return w.events
}

// Logger returns the world logger.
func (w *World) Logger() log.Log {
	return w.logger
}

// CreateEntity returns a fresh entity with no components.
func (w *World) CreateEntity() *Entity {
	id := w.nextID
	w.nextID++
	e := newEntity(id)
	w.entities.Put(id, e)
	w.order = append(w.order, id)
	return e
}

// CreateEntityWithID inserts an entity under a fixed ID, as used when
// restoring a snapshot. An existing entity with that ID is returned as is.
func (w *World) CreateEntityWithID(id EntityID) *Entity {
	if id == NoEntity {
		return nil
	}
	if e, ok := w.entities.Get(id); ok {
		return e
	}
	e := newEntity(id)
	w.entities.Put(id, e)
	pos, _ := slices.BinarySearch(w.order, id)
	w.order = slices.Insert(w.order, pos, id)
	if id >= w.nextID {
		w.nextID = id + 1
	}
	return e
}

// DestroyEntity removes the entity and its components. Unknown IDs are ignored.
func (w *World) DestroyEntity(id EntityID) {
	if _, ok := w.entities.Get(id); !ok {
		return
	}
	w.entities.Del(id)
	if pos, found := slices.BinarySearch(w.order, id); found {
		w.order = slices.Delete(w.order, pos, pos+1)
	}
}

// Entity returns the entity or nil.
func (w *World) Entity(id EntityID) *Entity {
	if id == NoEntity {
		return nil
	}
	e, _ := w.entities.Get(id)
	return e
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.Len()
}

// NextID returns the ID the next CreateEntity call will hand out.
func (w *World) NextID() EntityID {
	return w.nextID
}

// SetNextID moves the allocation counter forward. Smaller values are ignored
// so IDs are never reused.
func (w *World) SetNextID(id EntityID) {
	if id > w.nextID {
		w.nextID = id
	}
}

// Clear drops every entity and resets the ID counter. Systems stay registered.
func (w *World) Clear() {
	w.entities.Clear()
	w.order = w.order[:0]
	w.nextID = 1
}

// All returns a one-shot scan over every entity in ID order.
func (w *World) All() *sequence.Iterator[*Entity] {
	return w.scan(nil)
}

// With returns a one-shot scan over entities carrying a T. The ID list is
// captured when the call is made; entities destroyed mid-scan are skipped.
func With[T any](w *World) *sequence.Iterator[*Entity] {
	return w.scan([]ComponentID{ComponentIDOf[T]()})
}

// With2 scans entities carrying both an A and a B.
func With2[A, B any](w *World) *sequence.Iterator[*Entity] {
	return w.scan([]ComponentID{ComponentIDOf[A](), ComponentIDOf[B]()})
}

// With3 scans entities carrying an A, a B and a C.
func With3[A, B, C any](w *World) *sequence.Iterator[*Entity] {
	return w.scan([]ComponentID{ComponentIDOf[A](), ComponentIDOf[B](), ComponentIDOf[C]()})
}

func (w *World) scan(required []ComponentID) *sequence.Iterator[*Entity] {
	ids := slices.Clone(w.order)
	return sequence.Once(func(yield func(*Entity) bool) {
		for _, id := range ids {
			e, ok := w.entities.Get(id)
			if !ok || !e.hasAll(required) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	})
}

// AddSystem appends s to the update order.
func (w *World) AddSystem(s System) {
	w.systems = append(w.systems, s)
	w.metrics = append(w.metrics, &Metrics{Name: s.Name()})
	w.logger.Debug("system registered", log.String("system", s.Name()), log.Int("order", len(w.systems)-1))
}

// Systems returns the registered systems in update order.
func (w *World) Systems() []System {
	return slices.Clone(w.systems)
}

// System returns the first registered system with the given name.
func (w *World) System(name string) (System, bool) {
	for _, s := range w.systems {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Update runs every system once, in registration order.
func (w *World) Update(dt float64) {
	for i, s := range w.systems {
		start := time.Now()
		s.Update(w, dt)
		w.metrics[i].record(time.Since(start))
	}
}

// Metrics returns a copy of the per-system execution metrics.
func (w *World) Metrics() []Metrics {
	out := make([]Metrics, len(w.metrics))
	for i, m := range w.metrics {
		out[i] = *m
	}
	return out
}
