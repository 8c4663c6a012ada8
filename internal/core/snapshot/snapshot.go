// Package snapshot captures and restores the runtime state of a World.
// Entities keep their IDs across a round trip and the ID counter is carried
// along so restored worlds never hand out a used ID.
package snapshot

import (
	"fmt"
	"io"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/pkg/encoding"
)

// FormatVersion is bumped whenever RuntimeSnapshot changes shape.
const FormatVersion = 2

// ComponentState is one component. Value is nil for marker components.
type ComponentState struct {
	Type  string
	Value any
}

// componentJSON is the encoded form of ComponentState. The type name picks
// the Go type the value is decoded into.
type componentJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (c ComponentState) MarshalJSON() ([]byte, error) {
	out := componentJSON{Type: c.Type}
	if c.Value != nil {
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", c.Type, err)
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

func (c *ComponentState) UnmarshalJSON(data []byte) error {
	var in componentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	typ, ok := lookup(in.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, in.Type)
	}
	c.Type = in.Type
	c.Value = nil
	if len(in.Value) == 0 || isMarker(typ) {
		return nil
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(in.Value, ptr.Interface()); err != nil {
		return fmt.Errorf("component %s: %w", in.Type, err)
	}
	c.Value = ptr.Elem().Interface()
	return nil
}

type EntityState struct {
	ID         ecs.EntityID     `json:"id"`
	Components []ComponentState `json:"components"`
}

type RuntimeSnapshot struct {
	Version  int           `json:"version"`
	NextID   ecs.EntityID  `json:"next_id"`
	Entities []EntityState `json:"entities"`
	// Owners is set by AttachOwners.
	Owners *registry.OwnersState `json:"owners,omitempty"`
}

var _ encoding.Serializable = (*RuntimeSnapshot)(nil)

// Capture copies every entity of w. The result shares no memory with w.
func Capture(w *ecs.World) RuntimeSnapshot {
	snap := RuntimeSnapshot{
		Version:  FormatVersion,
		NextID:   w.NextID(),
		Entities: make([]EntityState, 0, w.EntityCount()),
	}
	for e := range w.All().Seq() {
		values := e.Components()
		es := EntityState{ID: e.ID(), Components: make([]ComponentState, 0, len(values))}
		for _, v := range values {
			typ := reflect.TypeOf(v)
			cs := ComponentState{Type: typeName(typ)}
			if !isMarker(typ) {
				cs.Value = clone(v)
			}
			es.Components = append(es.Components, cs)
		}
		snap.Entities = append(snap.Entities, es)
	}
	return snap
}

// AttachOwners stores the owner registry alongside the entities.
func (s *RuntimeSnapshot) AttachOwners(owners *registry.Owners) {
	if owners == nil {
		s.Owners = nil
		return
	}
	state := owners.State()
	s.Owners = &state
}

// Restore replaces the contents of w with snap. Systems stay registered.
// Nothing is touched when snap holds a component type that is not
// registered.
func Restore(w *ecs.World, snap RuntimeSnapshot) error {
	if snap.Version != FormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, snap.Version, FormatVersion)
	}

	values := make([][]any, len(snap.Entities))
	for i, es := range snap.Entities {
		if es.ID == ecs.NoEntity {
			return fmt.Errorf("entity %d: %w", i, ErrInvalidEntity)
		}
		values[i] = make([]any, 0, len(es.Components))
		for _, cs := range es.Components {
			v, err := componentValue(cs)
			if err != nil {
				return fmt.Errorf("entity %d: %w", es.ID, err)
			}
			values[i] = append(values[i], v)
		}
	}

	w.Clear()
	for i, es := range snap.Entities {
		e := w.CreateEntityWithID(es.ID)
		for _, v := range values[i] {
			ecs.Attach(e, v)
		}
	}
	w.SetNextID(snap.NextID)
	return nil
}

// RestoreOwners loads the owner registry when the snapshot carries one.
func (s RuntimeSnapshot) RestoreOwners(owners *registry.Owners) bool {
	if s.Owners == nil || owners == nil {
		return false
	}
	owners.Restore(*s.Owners)
	return true
}

// RebuildBuildings registers the footprint of every live building in w,
// since the collision registry is derived state.
func RebuildBuildings(w *ecs.World, reg *navigation.BuildingRegistry) int {
	if reg == nil {
		return 0
	}
	reg.Clear()
	n := 0
	for e := range ecs.With3[components.Building, components.Unit, components.Transform](w).Seq() {
		if !gameplay.Alive(e) {
			continue
		}
		u := ecs.Get[components.Unit](e)
		t := ecs.Get[components.Transform](e)
		reg.RegisterBuilding(e.ID(), u.SpawnType.String(), t.Position.X, t.Position.Z, u.OwnerID)
		n++
	}
	return n
}

// Checksum hashes the encoded snapshot. Two worlds in the same state give
// the same checksum, which makes it usable for drift detection.
func (s RuntimeSnapshot) Checksum() (uint64, error) {
	data, err := s.Serialize()
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func (s *RuntimeSnapshot) Serialize() ([]byte, error) {
	return encoding.Marshal(*s)
}

func (s *RuntimeSnapshot) Deserialize(data []byte) error {
	snap, err := encoding.Unmarshal[RuntimeSnapshot](data)
	if err != nil {
		return err
	}
	*s = snap
	return nil
}

// Encode writes snap to w as JSON. Components are keyed by type name.
func Encode(w io.Writer, snap RuntimeSnapshot) error {
	return encoding.EncodeJSON(w, snap)
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (RuntimeSnapshot, error) {
	return encoding.DecodeJSON[RuntimeSnapshot](r)
}

func componentValue(cs ComponentState) (any, error) {
	typ, ok := lookup(cs.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, cs.Type)
	}
	if cs.Value == nil {
		return reflect.New(typ).Elem().Interface(), nil
	}
	if got := reflect.TypeOf(cs.Value); got != typ {
		return nil, fmt.Errorf("%w: %s holds %s", ErrTypeMismatch, cs.Type, got)
	}
	return clone(cs.Value), nil
}

// clone copies a component value, duplicating top-level slices and maps so
// the copy can be mutated independently.
func clone(v any) any {
	src := reflect.ValueOf(v)
	if src.Kind() != reflect.Struct {
		return v
	}
	dst := reflect.New(src.Type()).Elem()
	dst.Set(src)
	for i := range dst.NumField() {
		f := dst.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.Slice:
			if !f.IsNil() {
				cp := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
				reflect.Copy(cp, f)
				f.Set(cp)
			}
		case reflect.Map:
			if !f.IsNil() {
				cp := reflect.MakeMapWithSize(f.Type(), f.Len())
				iter := f.MapRange()
				for iter.Next() {
					cp.SetMapIndex(iter.Key(), iter.Value())
				}
				f.Set(cp)
			}
		}
	}
	return dst.Interface()
}
