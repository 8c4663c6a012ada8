// Package healing restores health to friendly units around healers.
package healing

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

const (
	beamLift  = 1.0
	beamSpeed = 6.0
)

var beamColor = [3]float64{0.2, 1.0, 0.4}

// BeamSpawner draws a healing beam. The projectile system satisfies it; beams
// carry no damage.
type BeamSpawner interface {
	SpawnArrow(sp projectile.Spawn) *projectile.Projectile
}

type System struct {
	systems.Base

	beams BeamSpawner
}

// New creates the healing system. beams may be nil.
func New(beams BeamSpawner, logger log.Log) *System {
	return &System{
		Base:  systems.NewBase(systems.NameHealing, logger),
		beams: beams,
	}
}

func (s *System) Update(w *ecs.World, dt float64) {
	for e := range ecs.With3[components.Healer, components.Unit, components.Transform](w).Seq() {
		if !gameplay.Alive(e) {
			continue
		}
		h := ecs.Get[components.Healer](e)
		h.TimeSinceLastHeal += dt
		if h.TimeSinceLastHeal < h.HealingCooldown {
			continue
		}
		if s.heal(w, e, h) > 0 {
			h.TimeSinceLastHeal = 0
		}
	}
}

// heal tops up every damaged unit of the healer's owner in range and returns
// how many were healed. The cooldown only restarts when someone was healed.
func (s *System) heal(w *ecs.World, healer *ecs.Entity, h *components.Healer) int {
	hu := ecs.Get[components.Unit](healer)
	ht := ecs.Get[components.Transform](healer)
	rr := h.HealingRange * h.HealingRange

	healed := 0
	for c := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		if !gameplay.Alive(c) {
			continue
		}
		cu := ecs.Get[components.Unit](c)
		if cu.OwnerID != hu.OwnerID || cu.Health >= cu.MaxHealth {
			continue
		}
		ct := ecs.Get[components.Transform](c)
		if gameplay.PlanarDistSq(ht, ct) > rr {
			continue
		}
		cu.Health = min(cu.MaxHealth, cu.Health+h.HealingAmount)
		healed++

		if s.beams != nil {
			s.beams.SpawnArrow(projectile.Spawn{
				Start: components.Vec3{X: ht.Position.X, Y: ht.Position.Y + beamLift, Z: ht.Position.Z},
				End:   components.Vec3{X: ct.Position.X, Y: ct.Position.Y + beamLift, Z: ct.Position.Z},
				Color: beamColor,
				Speed: beamSpeed,
			})
		}
	}
	if healed > 0 {
		s.Logger().Debug("healed units",
			log.Uint64("healer", uint64(healer.ID())),
			log.Int("count", healed))
	}
	return healed
}
