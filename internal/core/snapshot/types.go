package snapshot

import (
	"reflect"
	"sync"

	"github.com/zeusync/ironcore/internal/core/components"
)

// The type table is process wide and filled once at init. Encoded snapshots
// name their components by the keys of this table.
var (
	typesMu sync.RWMutex
	types   = make(map[string]reflect.Type)
)

func init() {
	Register(
		components.Transform{},
		components.Renderable{},
		components.Unit{},
		components.Movement{},
		components.AttackTarget{},
		components.Patrol{},
		components.GuardMode{},
		components.HoldMode{},
		components.HitFeedback{},
		components.Healer{},
		components.Home{},
		components.IdleBehavior{},
		components.Capture{},
		components.Building{},
		components.PendingRemoval{},
		components.AIControlled{},
		components.Attack{},
		components.CatapultLoading{},
		components.Elephant{},
		components.Production{},
		components.BuilderProduction{},
	)
}

// Register makes component types known to Restore and Decode.
// Pass zero values, not pointers.
func Register(prototypes ...any) {
	typesMu.Lock()
	defer typesMu.Unlock()
	for _, p := range prototypes {
		typ := reflect.TypeOf(p)
		name := typeName(typ)
		if _, ok := types[name]; ok {
			continue
		}
		types[name] = typ
	}
}

func lookup(name string) (reflect.Type, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	typ, ok := types[name]
	return typ, ok
}

func typeName(typ reflect.Type) string {
	if typ.PkgPath() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}

// isMarker reports whether typ carries no data. Only the name of such a
// component is stored.
func isMarker(typ reflect.Type) bool {
	if typ.Kind() != reflect.Struct {
		return false
	}
	for i := range typ.NumField() {
		if typ.Field(i).IsExported() {
			return false
		}
	}
	return true
}
