package ai

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
)

// BuildSnapshot copies playerID's AI-controlled units and every live hostile
// out of w. The result shares nothing with the world and may be read on any
// goroutine.
func BuildSnapshot(w *ecs.World, rules *gameplay.Rules, playerID int, gameTime float64) Snapshot {
	snap := Snapshot{PlayerID: playerID, GameTime: gameTime}

	for e := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		if !gameplay.Alive(e) {
			continue
		}
		u := ecs.Get[components.Unit](e)
		t := ecs.Get[components.Transform](e)

		if u.OwnerID == playerID {
			if !ecs.Has[components.AIControlled](e) {
				continue
			}
			snap.Friendlies = append(snap.Friendlies, friendly(e, u, t))
			continue
		}
		if !rules.IsHostile(playerID, u.OwnerID) {
			continue
		}
		snap.VisibleEnemies = append(snap.VisibleEnemies, ContactSnapshot{
			ID:         e.ID(),
			SpawnType:  u.SpawnType,
			IsBuilding: gameplay.IsBuilding(e),
			X:          t.Position.X,
			Z:          t.Position.Z,
			Health:     u.Health,
			MaxHealth:  u.MaxHealth,
		})
	}
	return snap
}

func friendly(e *ecs.Entity, u *components.Unit, t *components.Transform) EntitySnapshot {
	ent := EntitySnapshot{
		ID:         e.ID(),
		SpawnType:  u.SpawnType,
		OwnerID:    u.OwnerID,
		Health:     u.Health,
		MaxHealth:  u.MaxHealth,
		IsBuilding: gameplay.IsBuilding(e),
		X:          t.Position.X,
		Z:          t.Position.Z,
	}
	if mv := ecs.Get[components.Movement](e); mv != nil {
		ent.HasMovement = true
		ent.HasTarget = mv.HasTarget
	}
	if p := ecs.Get[components.Production](e); p != nil {
		ent.Production = ProductionSnapshot{
			HasComponent:  true,
			InProgress:    p.InProgress,
			BuildTime:     p.BuildTime,
			TimeRemaining: p.TimeRemaining,
			ProducedCount: p.ProducedCount,
			MaxUnits:      p.MaxUnits,
			ProductType:   p.ProductType,
			RallySet:      p.RallySet,
			RallyX:        p.RallyX,
			RallyZ:        p.RallyZ,
			QueueSize:     len(p.Queue),
		}
	}
	return ent
}
