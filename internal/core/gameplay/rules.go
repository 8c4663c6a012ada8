// Package gameplay holds the rules every combat-facing system shares: damage
// application, hostility checks, target search and unit commands.
package gameplay

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/registry"
)

// Rules binds the shared helpers to the registries the engine owns. A zero
// Rules works: without an owner registry only identical owners are allies,
// and without a building registry nothing is unregistered on death.
type Rules struct {
	Owners    *registry.Owners
	Buildings *navigation.BuildingRegistry
}

func NewRules(owners *registry.Owners, buildings *navigation.BuildingRegistry) *Rules {
	return &Rules{Owners: owners, Buildings: buildings}
}

// AreAllies is true for the same owner or owners on a shared team.
func (r *Rules) AreAllies(a, b int) bool {
	if a == b {
		return true
	}
	if r == nil || r.Owners == nil {
		return false
	}
	return r.Owners.AreAllies(a, b)
}

// IsHostile reports whether units of owner a may attack units of owner b.
// Neutral structures are never hostile.
func (r *Rules) IsHostile(a, b int) bool {
	if a == components.NeutralOwner || b == components.NeutralOwner {
		return false
	}
	return !r.AreAllies(a, b)
}

// Alive reports whether e is a unit with health left that is not queued for
// removal.
func Alive(e *ecs.Entity) bool {
	if e == nil || ecs.Has[components.PendingRemoval](e) {
		return false
	}
	u := ecs.Get[components.Unit](e)
	return u != nil && u.Alive()
}

// IsBuilding reports whether e carries the Building tag.
func IsBuilding(e *ecs.Entity) bool {
	return ecs.Has[components.Building](e)
}

// InHoldMode reports whether e is holding position.
func InHoldMode(e *ecs.Entity) bool {
	h := ecs.Get[components.HoldMode](e)
	return h != nil && h.Active
}

// InGuardMode reports whether e is guarding.
func InGuardMode(e *ecs.Entity) bool {
	g := ecs.Get[components.GuardMode](e)
	return g != nil && g.Active
}

// IsIdle is true when nothing is steering e: no hold, no guard return, no
// attack order, no movement target, no melee lock and no patrol.
func IsIdle(e *ecs.Entity) bool {
	if InHoldMode(e) {
		return false
	}
	if g := ecs.Get[components.GuardMode](e); g != nil && g.Active && g.ReturningToPosition {
		return false
	}
	if at := ecs.Get[components.AttackTarget](e); at != nil && at.TargetID != ecs.NoEntity {
		return false
	}
	if mv := ecs.Get[components.Movement](e); mv != nil && mv.HasTarget {
		return false
	}
	if atk := ecs.Get[components.Attack](e); atk != nil && atk.InMeleeLock {
		return false
	}
	p := ecs.Get[components.Patrol](e)
	return p == nil || !p.Patrolling
}

// PlanarDistSq is the squared ground-plane distance between two transforms.
func PlanarDistSq(a, b *components.Transform) float64 {
	dx := b.Position.X - a.Position.X
	dz := b.Position.Z - a.Position.Z
	return dx*dx + dz*dz
}

// YawTowards returns the heading in degrees that faces from a to b.
func YawTowards(a, b *components.Transform) float64 {
	return math.Atan2(b.Position.X-a.Position.X, b.Position.Z-a.Position.Z) * 180 / math.Pi
}

// FaceTarget sets a desired yaw on attacker that points at target.
func FaceTarget(attacker, target *components.Transform) {
	if attacker == nil || target == nil {
		return
	}
	attacker.DesiredYaw = YawTowards(attacker, target)
	attacker.HasDesiredYaw = true
}

// InRange tests ground distance against rng plus the target's footprint
// radius. Melee attackers additionally respect their height limit.
func InRange(attacker, target *ecs.Entity, rng float64) bool {
	at := ecs.Get[components.Transform](attacker)
	tt := ecs.Get[components.Transform](target)
	if at == nil || tt == nil {
		return false
	}
	effective := rng + max(tt.Scale.X, tt.Scale.Z)*0.5
	if PlanarDistSq(at, tt) > effective*effective {
		return false
	}
	if atk := ecs.Get[components.Attack](attacker); atk != nil && atk.CurrentMode == components.ModeMelee {
		if math.Abs(tt.Position.Y-at.Position.Y) > atk.MaxHeightDiff {
			return false
		}
	}
	return true
}
