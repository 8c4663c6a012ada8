package combat

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
)

// processMeleeLock keeps locked pairs facing each other and pulls the
// attacker back in when the pair drifts apart. The lock breaks when the
// partner is gone or the pull would step onto an obstacle.
func (s *System) processMeleeLock(w *ecs.World, e *ecs.Entity, atk *components.Attack, dt float64) {
	if !atk.InMeleeLock {
		return
	}
	partner := w.Entity(atk.MeleeLockTargetID)
	if !gameplay.Alive(partner) {
		atk.ReleaseMeleeLock()
		return
	}

	at := ecs.Get[components.Transform](e)
	pt := ecs.Get[components.Transform](partner)
	if at == nil || pt == nil {
		return
	}
	gameplay.FaceTarget(at, pt)
	gameplay.FaceTarget(pt, at)

	dx, dz := pt.Position.X-at.Position.X, pt.Position.Z-at.Position.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist <= maxMeleeSeparation || dist <= minDistance || gameplay.InHoldMode(e) || gameplay.IsBuilding(e) {
		return
	}

	pull := (dist - idealMeleeDistance) * meleePullFactor * dt * meleePullSpeed
	nx := at.Position.X + dx/dist*pull
	nz := at.Position.Z + dz/dist*pull
	if f := s.opts.Finder; f != nil {
		cell := f.WorldToGrid(nx, nz)
		if !f.IsWalkable(cell.X, cell.Y) {
			atk.ReleaseMeleeLock()
			return
		}
	}
	at.Position.X, at.Position.Z = nx, nz
}

// syncMeleeLockTarget pins the attack order to the melee partner.
func syncMeleeLockTarget(e *ecs.Entity, atk *components.Attack) {
	if !atk.InMeleeLock || atk.MeleeLockTargetID == ecs.NoEntity {
		return
	}
	at := ecs.GetOrAdd(e, components.AttackTarget{})
	at.TargetID = atk.MeleeLockTargetID
	at.ShouldChase = false
}

// initiateMelee locks both sides and closes the gap toward the ideal melee
// distance. Holding units and buildings do not move.
func (s *System) initiateMelee(attacker, target *ecs.Entity, atk *components.Attack) {
	atk.InMeleeLock = true
	atk.MeleeLockTargetID = target.ID()
	if ta := ecs.Get[components.Attack](target); ta != nil {
		ta.InMeleeLock = true
		ta.MeleeLockTargetID = attacker.ID()
	}

	at := ecs.Get[components.Transform](attacker)
	tt := ecs.Get[components.Transform](target)
	if at == nil || tt == nil {
		return
	}
	gameplay.FaceTarget(at, tt)
	gameplay.FaceTarget(tt, at)

	dx, dz := tt.Position.X-at.Position.X, tt.Position.Z-at.Position.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist <= idealMeleeDistance+0.1 || dist <= minDistance {
		return
	}
	step := (dist - idealMeleeDistance) * meleeSnapFactor
	dirX, dirZ := dx/dist, dz/dist
	if !gameplay.InHoldMode(attacker) && !gameplay.IsBuilding(attacker) {
		at.Position.X += dirX * step
		at.Position.Z += dirZ * step
	}
	if !gameplay.InHoldMode(target) && !gameplay.IsBuilding(target) {
		tt.Position.X -= dirX * step
		tt.Position.Z -= dirZ * step
	}
}

// updateCombatMode resolves Auto into Melee or Ranged by the distance to the
// nearest hostile unit. Units that are not engaged fall back to their
// default mode.
func (s *System) updateCombatMode(w *ecs.World, e *ecs.Entity, atk *components.Attack) {
	if atk.PreferredMode != components.ModeAuto {
		atk.CurrentMode = atk.PreferredMode
		return
	}
	fallback := components.ModeMelee
	if atk.CanRanged {
		fallback = components.ModeRanged
	}
	if !atk.InMeleeLock && !ecs.Has[components.AttackTarget](e) {
		atk.CurrentMode = fallback
		return
	}

	t := ecs.Get[components.Transform](e)
	unit := ecs.Get[components.Unit](e)
	if t == nil || unit == nil {
		return
	}

	closest := math.Inf(1)
	var heightDiff float64
	for c := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		if c == e || gameplay.IsBuilding(c) {
			continue
		}
		cu := ecs.Get[components.Unit](c)
		if !cu.Alive() || !s.rules.IsHostile(unit.OwnerID, cu.OwnerID) {
			continue
		}
		ct := ecs.Get[components.Transform](c)
		if d := gameplay.PlanarDistSq(t, ct); d < closest {
			closest = d
			heightDiff = math.Abs(ct.Position.Y - t.Position.Y)
		}
	}
	if math.IsInf(closest, 1) {
		atk.CurrentMode = fallback
		return
	}

	dist := math.Sqrt(closest)
	switch {
	case atk.CanMelee && atk.InMeleeRange(dist, heightDiff):
		atk.CurrentMode = components.ModeMelee
	case atk.CanRanged && atk.InRangedRange(dist):
		atk.CurrentMode = components.ModeRanged
	default:
		atk.CurrentMode = fallback
	}
}

// applyHoldBonuses boosts archers and spearmen holding position.
func (s *System) applyHoldBonuses(e *ecs.Entity, unit *components.Unit, rng float64, damage int) (float64, int) {
	if !gameplay.InHoldMode(e) {
		return rng, damage
	}
	switch unit.SpawnType {
	case components.SpawnArcher:
		rng *= archerHoldRange
		damage = int(float64(damage) * archerHoldDamage)
		s.raiseMaxHealth(unit, holdHealthBonus)
	case components.SpawnSpearman:
		damage = int(float64(damage) * spearmanHoldDamage)
		s.raiseMaxHealth(unit, holdHealthBonus)
	}
	return rng, damage
}

// raiseMaxHealth lifts max health to factor times the catalog base, keeping
// the current health ratio. It never lowers max health.
func (s *System) raiseMaxHealth(unit *components.Unit, factor float64) {
	if s.opts.Catalog == nil {
		return
	}
	tc, ok := s.opts.Catalog.Class(unit.SpawnType)
	if !ok || tc.Health <= 0 {
		return
	}
	bonus := int(float64(tc.Health) * factor)
	if unit.MaxHealth >= bonus {
		return
	}
	pct := unit.Health * 100 / max(1, unit.MaxHealth)
	unit.MaxHealth = bonus
	unit.Health = bonus * pct / 100
}

func isCavalry(s components.SpawnType) bool {
	return s == components.SpawnMountedKnight || s == components.SpawnHorseArcher
}

func highGround(high, low *components.Transform) bool {
	if high == nil || low == nil {
		return false
	}
	return high.Position.Y-low.Position.Y > highGroundThreshold
}

// tacticalMultiplier scales damage by matchup: spears against cavalry,
// arrows against elephants and height advantage for archers and spearmen.
func tacticalMultiplier(attacker, target *ecs.Entity, au, tu *components.Unit) float64 {
	m := 1.0
	at := ecs.Get[components.Transform](attacker)
	tt := ecs.Get[components.Transform](target)
	switch au.SpawnType {
	case components.SpawnSpearman:
		if isCavalry(tu.SpawnType) {
			m *= spearmanVsCavalry
		}
		if highGround(at, tt) {
			m *= spearmanHighGround
		}
	case components.SpawnArcher, components.SpawnHorseArcher:
		if tu.SpawnType == components.SpawnElephant || ecs.Has[components.Elephant](target) {
			m *= archerVsElephant
		}
		if highGround(at, tt) {
			m *= archerHighGround
		}
	}
	return m
}

// highGroundDefense softens hits on archers and spearmen standing above
// their attacker and grants them a health bonus.
func (s *System) highGroundDefense(attacker, target *ecs.Entity, tu *components.Unit, damage int) int {
	if tu.SpawnType != components.SpawnArcher && tu.SpawnType != components.SpawnSpearman {
		return damage
	}
	if !highGround(ecs.Get[components.Transform](target), ecs.Get[components.Transform](attacker)) {
		return damage
	}
	s.raiseMaxHealth(tu, highGroundHealthBonus)
	return max(1, int(float64(damage)*highGroundArmor))
}
