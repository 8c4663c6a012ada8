package ecs

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ComponentID identifies a component type. It is stable across runs because
// it is derived from the fully qualified Go type name.
type ComponentID uint64

var (
	componentIDs   sync.Map // reflect.Type -> ComponentID
	componentTypes sync.Map // ComponentID -> reflect.Type
)

// ComponentIDOf returns the ComponentID for T.
func ComponentIDOf[T any]() ComponentID {
	return componentIDFor(reflect.TypeFor[T]())
}

func componentIDFor(typ reflect.Type) ComponentID {
	if id, ok := componentIDs.Load(typ); ok {
		return id.(ComponentID)
	}
	return registerComponentID(typ, ComponentID(xxhash.Sum64String(componentTypeName(typ))))
}

func componentTypeName(typ reflect.Type) string {
	if typ.Name() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}

// registerComponentID binds id to typ. Two types hashing to the same id would
// share storage, so that panics.
func registerComponentID(typ reflect.Type, id ComponentID) ComponentID {
	if prev, loaded := componentTypes.LoadOrStore(id, typ); loaded && prev.(reflect.Type) != typ {
		panic(fmt.Sprintf("ecs: component id %#x of %s collides with %s", uint64(id), typ, prev))
	}
	actual, _ := componentIDs.LoadOrStore(typ, id)
	return actual.(ComponentID)
}

// Add attaches c to e, replacing any existing component of the same type, and
// returns a pointer to the stored value.
func Add[T any](e *Entity, c T) *T {
	if e == nil {
		return nil
	}
	ptr := new(T)
	*ptr = c
	e.components[ComponentIDOf[T]()] = ptr
	return ptr
}

// Get returns the component of type T or nil.
func Get[T any](e *Entity) *T {
	if e == nil {
		return nil
	}
	if v, ok := e.components[ComponentIDOf[T]()]; ok {
		return v.(*T)
	}
	return nil
}

// Has reports whether e carries a component of type T.
func Has[T any](e *Entity) bool {
	if e == nil {
		return false
	}
	_, ok := e.components[ComponentIDOf[T]()]
	return ok
}

// Remove detaches the component of type T. It is a no-op when absent.
func Remove[T any](e *Entity) {
	if e == nil {
		return
	}
	delete(e.components, ComponentIDOf[T]())
}

// GetOrAdd returns the existing component of type T, attaching init first if
// e has none.
func GetOrAdd[T any](e *Entity, init T) *T {
	if c := Get[T](e); c != nil {
		return c
	}
	return Add(e, init)
}

// Components returns copies of the attached component values in ComponentID
// order. It is meant for serialization; systems use Get.
func (e *Entity) Components() []any {
	if e == nil {
		return nil
	}
	out := make([]any, 0, len(e.components))
	for _, id := range e.ComponentIDs() {
		out = append(out, reflect.ValueOf(e.components[id]).Elem().Interface())
	}
	return out
}

// Attach stores the component value v under its dynamic type, as Add would
// for a statically typed value. Nil values and pointers are rejected.
func Attach(e *Entity, v any) bool {
	if e == nil || v == nil {
		return false
	}
	typ := reflect.TypeOf(v)
	if typ.Kind() == reflect.Pointer {
		return false
	}
	ptr := reflect.New(typ)
	ptr.Elem().Set(reflect.ValueOf(v))
	e.components[componentIDFor(typ)] = ptr.Interface()
	return true
}
