package ai

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
)

// EngagedRadius is how close an enemy must be for a unit to count as engaged.
const EngagedRadius = 7.5

// engaged reports whether ent is hurt or has an enemy within EngagedRadius.
func engaged(ent *EntitySnapshot, enemies []ContactSnapshot) bool {
	if ent.MaxHealth > 0 && ent.Health < ent.MaxHealth {
		return true
	}
	for _, en := range enemies {
		if distSq(ent.X, ent.Z, en.X, en.Z) <= EngagedRadius*EngagedRadius {
			return true
		}
	}
	return false
}

func distSq(x1, z1, x2, z2 float64) float64 {
	dx, dz := x2-x1, z2-z1
	return dx*dx + dz*dz
}

// claim assigns the requested units to a behavior. A unit already owned by
// another behavior is taken over only by a higher priority once its
// assignment is older than lock.
func claim(ids []ecs.EntityID, prio Priority, task string, ctx *Context, lock float64) []ecs.EntityID {
	claimed := make([]ecs.EntityID, 0, len(ids))
	for _, id := range ids {
		if cur, ok := ctx.Assigned[id]; ok {
			if prio <= cur.Owner || ctx.Clock-cur.Since <= lock {
				continue
			}
		}
		ctx.Assigned[id] = Assignment{Owner: prio, Since: ctx.Clock, Task: task}
		claimed = append(claimed, id)
	}
	return claimed
}

// Engagement summarizes how a fight between two groups would go.
type Engagement struct {
	FriendlyCount int
	EnemyCount    int
	ForceRatio    float64
	ShouldEngage  bool
}

func assessEngagement(friendlies []*EntitySnapshot, enemies []*ContactSnapshot, minRatio float64) Engagement {
	res := Engagement{FriendlyCount: len(friendlies), EnemyCount: len(enemies)}
	if len(friendlies) == 0 || len(enemies) == 0 {
		return res
	}
	var fh, eh float64
	var fn, en int
	for _, f := range friendlies {
		if f.MaxHealth > 0 {
			fh += float64(f.Health) / float64(f.MaxHealth)
			fn++
		}
	}
	for _, e := range enemies {
		if e.MaxHealth > 0 {
			eh += float64(e.Health) / float64(e.MaxHealth)
			en++
		}
	}
	favg, eavg := 1.0, 1.0
	if fn > 0 {
		favg = fh / float64(fn)
	}
	if en > 0 {
		eavg = eh / float64(en)
	}
	friendly := float64(res.FriendlyCount) * favg
	enemy := float64(res.EnemyCount) * eavg
	if enemy < 0.01 {
		res.ForceRatio = 10
	} else {
		res.ForceRatio = friendly / enemy
	}
	res.ShouldEngage = res.ForceRatio >= minRatio
	return res
}

// focusTarget scores every enemy and returns the best one to converge on.
// Wounded, isolated, ranged and close-to-base enemies score higher; the
// current target keeps a stickiness bonus.
func focusTarget(enemies []*ContactSnapshot, cx, cz float64, ctx *Context, current ecs.EntityID) ecs.EntityID {
	best := ecs.NoEntity
	bestScore := math.Inf(-1)
	for _, en := range enemies {
		d := math.Sqrt(distSq(en.X, en.Z, cx, cz))
		score := -d * 0.5
		if en.MaxHealth > 0 {
			ratio := float64(en.Health) / float64(en.MaxHealth)
			if ratio < 0.5 {
				score += 8 * (1 - ratio)
			}
			if ratio < 0.25 {
				score += 12
			}
		}
		score += typePriority(en) * 3
		if !en.IsBuilding {
			score += 5
		}
		if current != ecs.NoEntity && en.ID == current {
			score += 10
		}
		if isolated(en, enemies, 8) {
			score += 6
		}
		if ctx.PrimaryBarracks != ecs.NoEntity {
			if base := math.Hypot(en.X-ctx.BaseX, en.Z-ctx.BaseZ); base < 16 {
				score += (16 - base) * 0.8
			}
		}
		if ctx.State == StateAttacking && !en.IsBuilding {
			score += 3
		}
		if score > bestScore {
			best, bestScore = en.ID, score
		}
	}
	return best
}

func typePriority(en *ContactSnapshot) float64 {
	switch {
	case en.SpawnType.IsBuilding():
		return 0.5
	case isRanged(en.SpawnType):
		return 3
	case isMelee(en.SpawnType):
		return 2
	case en.SpawnType == components.SpawnBuilder:
		return 1
	default:
		return 1.5
	}
}

func isolated(target *ContactSnapshot, all []*ContactSnapshot, radius float64) bool {
	near := 0
	for _, other := range all {
		if other.ID == target.ID {
			continue
		}
		if distSq(target.X, target.Z, other.X, other.Z) <= radius*radius {
			near++
		}
	}
	return near <= 1
}
