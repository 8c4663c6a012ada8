package ecs

import (
	"slices"
)

// EntityID is an opaque entity handle. Zero never names a live entity.
type EntityID uint64

// NoEntity is the zero EntityID.
const NoEntity EntityID = 0

// Entity is an ID plus at most one component per component type.
type Entity struct {
	id         EntityID
	components map[ComponentID]any
}

func newEntity(id EntityID) *Entity {
	return &Entity{id: id, components: make(map[ComponentID]any, 8)}
}

func (e *Entity) ID() EntityID {
	return e.id
}

// ComponentCount returns the number of attached components.
func (e *Entity) ComponentCount() int {
	return len(e.components)
}

// ComponentIDs returns the attached component IDs in ascending order.
func (e *Entity) ComponentIDs() []ComponentID {
	ids := make([]ComponentID, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (e *Entity) hasAll(ids []ComponentID) bool {
	for _, id := range ids {
		if _, ok := e.components[id]; !ok {
			return false
		}
	}
	return true
}
