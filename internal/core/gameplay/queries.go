package gameplay

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/pkg/sequence"
)

// holdBlockingRadius is how close to the attack line a holding enemy must
// stand to be picked over the nearest target.
const holdBlockingRadius = 2.0

// liveUnits scans units that are alive and not queued for removal.
func liveUnits(w *ecs.World) *sequence.Iterator[*ecs.Entity] {
	return ecs.With[components.Unit](w).Filter(func(e *ecs.Entity) bool {
		return Alive(e)
	})
}

// UnitsOwnedBy returns the live units belonging to owner.
func UnitsOwnedBy(w *ecs.World, owner int) []*ecs.Entity {
	return liveUnits(w).Filter(func(e *ecs.Entity) bool {
		return ecs.Get[components.Unit](e).OwnerID == owner
	}).Collect()
}

// UnitsNotOwnedBy returns the live units of every other owner.
func UnitsNotOwnedBy(w *ecs.World, owner int) []*ecs.Entity {
	return liveUnits(w).Filter(func(e *ecs.Entity) bool {
		return ecs.Get[components.Unit](e).OwnerID != owner
	}).Collect()
}

// AlliedUnits returns live units of owners allied with owner, excluding owner's own.
func (r *Rules) AlliedUnits(w *ecs.World, owner int) []*ecs.Entity {
	return liveUnits(w).Filter(func(e *ecs.Entity) bool {
		o := ecs.Get[components.Unit](e).OwnerID
		return o != owner && r.AreAllies(owner, o)
	}).Collect()
}

// EnemyUnits returns live units hostile to owner.
func (r *Rules) EnemyUnits(w *ecs.World, owner int) []*ecs.Entity {
	return liveUnits(w).Filter(func(e *ecs.Entity) bool {
		return r.IsHostile(owner, ecs.Get[components.Unit](e).OwnerID)
	}).Collect()
}

// EnemiesWithin returns hostile live units within radius of (x, z), buildings
// included when withBuildings is set.
func (r *Rules) EnemiesWithin(w *ecs.World, owner int, x, z, radius float64, withBuildings bool) []*ecs.Entity {
	rr := radius * radius
	return liveUnits(w).Filter(func(e *ecs.Entity) bool {
		if !withBuildings && IsBuilding(e) {
			return false
		}
		if !r.IsHostile(owner, ecs.Get[components.Unit](e).OwnerID) {
			return false
		}
		t := ecs.Get[components.Transform](e)
		if t == nil {
			return false
		}
		dx, dz := t.Position.X-x, t.Position.Z-z
		return dx*dx+dz*dz <= rr
	}).Collect()
}

// NearestEnemy finds the closest hostile non-building unit within maxRange of
// e. When an enemy in hold mode stands between e and that unit, the closest
// such blocker is returned instead.
func (r *Rules) NearestEnemy(w *ecs.World, e *ecs.Entity, maxRange float64) *ecs.Entity {
	unit := ecs.Get[components.Unit](e)
	pos := ecs.Get[components.Transform](e)
	if unit == nil || pos == nil {
		return nil
	}

	candidates := liveUnits(w).Filter(func(c *ecs.Entity) bool {
		if c == e || IsBuilding(c) || !ecs.Has[components.Transform](c) {
			return false
		}
		return r.IsHostile(unit.OwnerID, ecs.Get[components.Unit](c).OwnerID)
	}).Collect()

	var nearest *ecs.Entity
	best := maxRange * maxRange
	for _, c := range candidates {
		if d := PlanarDistSq(pos, ecs.Get[components.Transform](c)); d < best {
			best, nearest = d, c
		}
	}
	if nearest == nil {
		return nil
	}

	target := ecs.Get[components.Transform](nearest)
	var blocker *ecs.Entity
	blockerDist := best
	for _, c := range candidates {
		if c == nearest || !InHoldMode(c) {
			continue
		}
		ct := ecs.Get[components.Transform](c)
		if !blocksPath(pos, target, ct) {
			continue
		}
		if d := PlanarDistSq(pos, ct); d < blockerDist {
			blockerDist, blocker = d, c
		}
	}
	if blocker != nil {
		return blocker
	}
	return nearest
}

// blocksPath reports whether b stands in front of a, closer than t and within
// holdBlockingRadius of the a→t line.
func blocksPath(a, t, b *components.Transform) bool {
	tx, tz := t.Position.X-a.Position.X, t.Position.Z-a.Position.Z
	targetSq := tx*tx + tz*tz
	if targetSq < 0.01 {
		return false
	}
	bx, bz := b.Position.X-a.Position.X, b.Position.Z-a.Position.Z
	if bx*bx+bz*bz >= targetSq {
		return false
	}
	d := math.Sqrt(targetSq)
	dirX, dirZ := tx/d, tz/d
	proj := bx*dirX + bz*dirZ
	if proj < 0 {
		return false
	}
	px, pz := bx-proj*dirX, bz-proj*dirZ
	return px*px+pz*pz <= holdBlockingRadius*holdBlockingRadius
}
