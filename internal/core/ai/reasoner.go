package ai

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
)

const (
	DefendRadius     = 40.0
	MinStateDuration = 3.0
	DecisionInterval = 2.0

	rallyOffset          = 5.0
	noEnemyDistance      = 1000.0
	nearEnemyDistance    = 50.0
	damagedHealthRatio   = 0.5
	lowHealthRatio       = 0.40
	retreatHealthRatio   = 0.25
	attackHealthRatio    = 0.65
	calmHealthRatio      = 0.80
	recoverHealthRatio   = 0.55
	retreatRecoveryDelay = 6.0
)

// UpdateContext refreshes ctx's statistics from snap.
func UpdateContext(snap *Snapshot, ctx *Context) {
	releaseDead(snap, ctx)

	ctx.MilitaryUnits = ctx.MilitaryUnits[:0]
	ctx.Buildings = ctx.Buildings[:0]
	ctx.PrimaryBarracks = ecs.NoEntity
	ctx.TotalUnits, ctx.IdleUnits, ctx.CombatUnits = 0, 0, 0
	ctx.MeleeCount, ctx.RangedCount, ctx.DamagedUnits = 0, 0, 0
	ctx.AverageHealth = 1
	ctx.RallyX, ctx.RallyZ = 0, 0
	ctx.BaseX, ctx.BaseZ = 0, 0
	ctx.BarracksUnderThreat = false
	ctx.NearbyThreatCount = 0
	ctx.ClosestThreatDistance = math.Inf(1)
	ctx.VisibleEnemyCount = 0
	ctx.EnemyBuildingsCount = 0
	ctx.AverageEnemyDistance = 0

	var healthSum float64
	for i := range snap.Friendlies {
		ent := &snap.Friendlies[i]
		if ent.IsBuilding {
			ctx.Buildings = append(ctx.Buildings, ent.ID)
			if ent.SpawnType == components.SpawnBarracks && ctx.PrimaryBarracks == ecs.NoEntity {
				ctx.PrimaryBarracks = ent.ID
				ctx.RallyX, ctx.RallyZ = ent.X-rallyOffset, ent.Z
				ctx.BaseX, ctx.BaseZ = ent.X, ent.Z
			}
			continue
		}

		ctx.MilitaryUnits = append(ctx.MilitaryUnits, ent.ID)
		ctx.TotalUnits++
		switch {
		case isRanged(ent.SpawnType):
			ctx.RangedCount++
		case isMelee(ent.SpawnType):
			ctx.MeleeCount++
		}
		if !ent.HasMovement || !ent.HasTarget {
			ctx.IdleUnits++
		} else {
			ctx.CombatUnits++
		}
		if ent.MaxHealth > 0 {
			ratio := float64(ent.Health) / float64(ent.MaxHealth)
			healthSum += ratio
			if ratio < damagedHealthRatio {
				ctx.DamagedUnits++
			}
		}
	}
	if ctx.TotalUnits > 0 {
		ctx.AverageHealth = healthSum / float64(ctx.TotalUnits)
	}

	ctx.VisibleEnemyCount = len(snap.VisibleEnemies)
	var distSum float64
	for _, en := range snap.VisibleEnemies {
		if en.IsBuilding {
			ctx.EnemyBuildingsCount++
		}
		if ctx.PrimaryBarracks != ecs.NoEntity {
			distSum += math.Hypot(en.X-ctx.BaseX, en.Z-ctx.BaseZ)
		}
	}
	ctx.AverageEnemyDistance = noEnemyDistance
	if ctx.VisibleEnemyCount > 0 {
		ctx.AverageEnemyDistance = distSum / float64(ctx.VisibleEnemyCount)
	}

	if ctx.PrimaryBarracks == ecs.NoEntity {
		return
	}
	for _, en := range snap.VisibleEnemies {
		d := math.Hypot(en.X-ctx.BaseX, en.Z-ctx.BaseZ)
		if d <= DefendRadius {
			ctx.BarracksUnderThreat = true
			ctx.NearbyThreatCount++
			ctx.ClosestThreatDistance = math.Min(ctx.ClosestThreatDistance, d)
		}
	}
}

// UpdateStateMachine advances ctx's strategic state. Threats switch to
// Defending immediately; other transitions wait for the decision interval and
// the minimum state duration.
func UpdateStateMachine(ctx *Context, dt float64) {
	ctx.StateTimer += dt
	ctx.DecisionTimer += dt

	prev := ctx.State
	switch {
	case ctx.BarracksUnderThreat && ctx.State != StateDefending:
		ctx.State = StateDefending
	case ctx.VisibleEnemyCount > 0 && ctx.AverageEnemyDistance < nearEnemyDistance &&
		(ctx.State == StateGathering || ctx.State == StateIdle):
		ctx.State = StateDefending
	}

	if ctx.DecisionTimer < DecisionInterval {
		if ctx.State != prev {
			ctx.StateTimer = 0
		}
		return
	}
	ctx.DecisionTimer = 0
	prev = ctx.State

	if ctx.StateTimer < MinStateDuration {
		return
	}

	switch ctx.State {
	case StateIdle:
		switch {
		case ctx.IdleUnits >= 2:
			ctx.State = StateGathering
		case ctx.AverageHealth < lowHealthRatio && ctx.TotalUnits > 0:
			ctx.State = StateDefending
		case ctx.TotalUnits >= 1 && ctx.VisibleEnemyCount > 0:
			ctx.State = StateAttacking
		}
	case StateGathering:
		switch {
		case ctx.TotalUnits >= 3:
			ctx.State = StateAttacking
		case ctx.TotalUnits < 2:
			ctx.State = StateIdle
		case ctx.AverageHealth < lowHealthRatio:
			ctx.State = StateDefending
		case ctx.VisibleEnemyCount > 0:
			ctx.State = StateAttacking
		}
	case StateAttacking:
		switch {
		case ctx.AverageHealth < retreatHealthRatio:
			ctx.State = StateRetreating
		case ctx.TotalUnits == 0:
			ctx.State = StateIdle
		}
	case StateDefending:
		switch {
		case ctx.BarracksUnderThreat:
		case ctx.TotalUnits >= 4 && ctx.AverageHealth > attackHealthRatio:
			ctx.State = StateAttacking
		case ctx.AverageHealth > calmHealthRatio:
			ctx.State = StateIdle
		}
	case StateRetreating:
		if ctx.StateTimer > retreatRecoveryDelay && ctx.AverageHealth > recoverHealthRatio {
			ctx.State = StateDefending
		}
	case StateExpanding:
		ctx.State = StateIdle
	}

	if ctx.State != prev {
		ctx.StateTimer = 0
	}
}

// releaseDead drops assignments of units no longer in the snapshot.
func releaseDead(snap *Snapshot, ctx *Context) {
	if ctx.Assigned == nil {
		ctx.Assigned = make(map[ecs.EntityID]Assignment)
		return
	}
	alive := make(map[ecs.EntityID]struct{}, len(snap.Friendlies))
	for _, ent := range snap.Friendlies {
		if !ent.IsBuilding {
			alive[ent.ID] = struct{}{}
		}
	}
	for id := range ctx.Assigned {
		if _, ok := alive[id]; !ok {
			delete(ctx.Assigned, id)
		}
	}
}

func isRanged(s components.SpawnType) bool {
	switch s {
	case components.SpawnArcher, components.SpawnHorseArcher, components.SpawnCatapult, components.SpawnBallista:
		return true
	}
	return false
}

func isMelee(s components.SpawnType) bool {
	switch s {
	case components.SpawnKnight, components.SpawnSpearman, components.SpawnMountedKnight, components.SpawnElephant:
		return true
	}
	return false
}
