// Package patrol walks units around their waypoint loops and lets them stop
// to fight whatever crosses their path.
package patrol

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

const (
	EngageRadius   = 5.0
	WaypointRadius = 1.0
)

type System struct {
	systems.Base

	rules    *gameplay.Rules
	commands *gameplay.Commands
}

func New(rules *gameplay.Rules, commands *gameplay.Commands, logger log.Log) *System {
	return &System{
		Base:     systems.NewBase(systems.NamePatrol, logger),
		rules:    rules,
		commands: commands,
	}
}

func (s *System) Update(w *ecs.World, _ float64) {
	for e := range ecs.With3[components.Patrol, components.Transform, components.Unit](w).Seq() {
		p := ecs.Get[components.Patrol](e)
		mv := ecs.Get[components.Movement](e)
		if mv == nil || !p.Patrolling || len(p.Waypoints) < 2 {
			continue
		}
		unit := ecs.Get[components.Unit](e)
		if !unit.Alive() {
			p.Patrolling = false
			continue
		}
		if at := ecs.Get[components.AttackTarget](e); at != nil && at.TargetID != ecs.NoEntity {
			continue
		}

		t := ecs.Get[components.Transform](e)
		if enemy := s.enemyNear(w, unit.OwnerID, t); enemy != nil {
			at := ecs.GetOrAdd(e, components.AttackTarget{})
			at.TargetID = enemy.ID()
			at.ShouldChase = false
			continue
		}

		p.CurrentWaypoint %= len(p.Waypoints)
		wp := p.Waypoints[p.CurrentWaypoint]
		dx, dz := wp.X-t.Position.X, wp.Z-t.Position.Z
		if dx*dx+dz*dz < WaypointRadius*WaypointRadius {
			p.CurrentWaypoint = (p.CurrentWaypoint + 1) % len(p.Waypoints)
			wp = p.Waypoints[p.CurrentWaypoint]
			mv.VX, mv.VZ = 0, 0
		}
		s.commands.MoveUnit(w, e.ID(), wp.X, wp.Z, gameplay.MoveOptions{AllowDirectFallback: true})
	}
}

func (s *System) enemyNear(w *ecs.World, owner int, t *components.Transform) *ecs.Entity {
	found, _ := ecs.With2[components.Unit, components.Transform](w).Find(func(c *ecs.Entity) bool {
		if !gameplay.Alive(c) || !s.rules.IsHostile(owner, ecs.Get[components.Unit](c).OwnerID) {
			return false
		}
		return gameplay.PlanarDistSq(t, ecs.Get[components.Transform](c)) < EngageRadius*EngageRadius
	})
	return found
}
