// Package tower makes defense towers shoot at the nearest enemy in range.
package tower

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

const (
	arrowSpeed  = 12.0
	muzzleLift  = 2.0
	muzzleAhead = 0.5
	impactLift  = 0.8
	spread      = 0.3
)

// ArrowSpawner launches tower arrows. The projectile system satisfies it.
type ArrowSpawner interface {
	SpawnArrow(sp projectile.Spawn) *projectile.Projectile
}

// ColorFunc returns the team color of an owner.
type ColorFunc func(owner int) [3]float64

type System struct {
	systems.Base

	rules   *gameplay.Rules
	arrows  ArrowSpawner
	color   ColorFunc
	offsets uint64
}

// New creates the tower system. Without arrows, hits land immediately.
// color may be nil.
func New(rules *gameplay.Rules, arrows ArrowSpawner, color ColorFunc, logger log.Log) *System {
	return &System{
		Base:   systems.NewBase(systems.NameTower, logger),
		rules:  rules,
		arrows: arrows,
		color:  color,
	}
}

func (s *System) Update(w *ecs.World, dt float64) {
	for e := range ecs.With3[components.Building, components.Unit, components.Attack](w).Seq() {
		u := ecs.Get[components.Unit](e)
		if u.SpawnType != components.SpawnDefenseTower || !gameplay.Alive(e) {
			continue
		}
		atk := ecs.Get[components.Attack](e)
		atk.TimeSinceLast += dt
		if atk.TimeSinceLast < atk.Cooldown {
			continue
		}
		target := s.nearestEnemy(w, e, atk.Range)
		if target == nil {
			continue
		}
		s.fire(w, e, target, atk.Damage)
		atk.TimeSinceLast = 0
	}
}

// nearestEnemy returns the closest hostile, living non-building unit within
// rng of the tower.
func (s *System) nearestEnemy(w *ecs.World, tower *ecs.Entity, rng float64) *ecs.Entity {
	owner := ecs.Get[components.Unit](tower).OwnerID
	tt := ecs.Get[components.Transform](tower)
	if tt == nil {
		return nil
	}
	best := rng * rng
	var nearest *ecs.Entity
	for c := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		if c == tower || gameplay.IsBuilding(c) || !gameplay.Alive(c) {
			continue
		}
		if !s.rules.IsHostile(owner, ecs.Get[components.Unit](c).OwnerID) {
			continue
		}
		if d := gameplay.PlanarDistSq(tt, ecs.Get[components.Transform](c)); d < best {
			best, nearest = d, c
		}
	}
	return nearest
}

func (s *System) fire(w *ecs.World, tower, target *ecs.Entity, damage int) {
	if s.arrows == nil {
		s.rules.DealDamage(w, target, damage, tower.ID())
		return
	}
	from := ecs.Get[components.Transform](tower).Position
	to := ecs.Get[components.Transform](target).Position
	from.Y += muzzleLift

	dx, dy, dz := to.X-from.X, to.Y-from.Y, to.Z-from.Z
	n := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if n > 0 {
		dx, dy, dz = dx/n, dy/n, dz/n
	}
	// Lateral offsets cycle through a fixed pattern.
	side := s.lateral()
	px, pz := -dz*side, dx*side

	color := [3]float64{0.8, 0.9, 1.0}
	if s.color != nil {
		color = s.color(ecs.Get[components.Unit](tower).OwnerID)
	}
	s.arrows.SpawnArrow(projectile.Spawn{
		Start:      components.Vec3{X: from.X + dx*muzzleAhead + px, Y: from.Y + dy*muzzleAhead, Z: from.Z + dz*muzzleAhead + pz},
		End:        components.Vec3{X: to.X + px, Y: to.Y + impactLift, Z: to.Z + pz},
		Impact:     to,
		Color:      color,
		Speed:      arrowSpeed,
		Damage:     damage,
		AttackerID: tower.ID(),
		TargetID:   target.ID(),
	})
	s.Logger().Debug("tower fired",
		log.Uint64("tower", uint64(tower.ID())),
		log.Uint64("target", uint64(target.ID())))
}

func (s *System) lateral() float64 {
	s.offsets++
	steps := [...]float64{0, spread, -spread, spread / 2, -spread / 2}
	return steps[s.offsets%uint64(len(steps))]
}
