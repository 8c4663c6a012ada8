package combat

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
)

// autoEngage gives idle melee troops the nearest enemy in sight. Guards
// engage too, limited to their guard radius and without chasing. A unit that
// just engaged waits EngagementCooldown before it may pick again.
func (s *System) autoEngage(w *ecs.World, dt float64) {
	for id, left := range s.cooldowns {
		if left -= dt; left <= 0 {
			delete(s.cooldowns, id)
		} else {
			s.cooldowns[id] = left
		}
	}

	for e := range ecs.With2[components.Unit, components.Attack](w).Seq() {
		if !gameplay.Alive(e) || gameplay.IsBuilding(e) {
			continue
		}
		atk := ecs.Get[components.Attack](e)
		if !atk.CanMelee || (atk.CanRanged && atk.PreferredMode != components.ModeMelee) {
			continue
		}
		unit := ecs.Get[components.Unit](e)
		if !autoEngagesMelee(unit.SpawnType) {
			continue
		}
		if _, cooling := s.cooldowns[e.ID()]; cooling {
			continue
		}

		guard := ecs.Get[components.GuardMode](e)
		guarding := guard != nil && guard.Active
		if !guarding && !gameplay.IsIdle(e) {
			continue
		}
		detection := unit.VisionRange
		if guarding {
			detection = min(detection, guard.GuardRadius)
		}

		enemy := s.rules.NearestEnemy(w, e, detection)
		if enemy == nil {
			continue
		}
		at := ecs.GetOrAdd(e, components.AttackTarget{})
		at.TargetID = enemy.ID()
		at.ShouldChase = !guarding
		s.cooldowns[e.ID()] = EngagementCooldown
	}
}

func autoEngagesMelee(s components.SpawnType) bool {
	switch s {
	case components.SpawnKnight, components.SpawnSpearman, components.SpawnMountedKnight:
		return true
	default:
		return false
	}
}
