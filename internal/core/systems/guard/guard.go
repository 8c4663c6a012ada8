// Package guard keeps guarding units at their post: they engage enemies that
// enter the guard radius and walk back to a formation slot around the guard
// point otherwise.
package guard

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

const (
	// ArriveDistance is how close to its slot a returning guard must get.
	ArriveDistance = 2.0

	groupCellSize    = 5.0
	formationSpacing = 3.0
)

type cell struct{ x, z int }

type System struct {
	systems.Base

	rules     *gameplay.Rules
	commands  *gameplay.Commands
	formation gameplay.FormationType
}

// New creates the guard system. commands may be nil, in which case guards walk
// straight to their slot.
func New(rules *gameplay.Rules, commands *gameplay.Commands, formation gameplay.FormationType, logger log.Log) *System {
	return &System{
		Base:      systems.NewBase(systems.NameGuard, logger),
		rules:     rules,
		commands:  commands,
		formation: formation,
	}
}

func (s *System) Update(w *ecs.World, _ float64) {
	// Guards posted near each other share one formation.
	groups := make(map[cell][]*ecs.Entity)
	var order []cell
	for e := range ecs.With[components.GuardMode](w).Seq() {
		g := ecs.Get[components.GuardMode](e)
		if !g.Active {
			continue
		}
		gx, gz := guardPoint(w, g)
		c := cell{int(math.Floor(gx / groupCellSize)), int(math.Floor(gz / groupCellSize))}
		if _, seen := groups[c]; !seen {
			order = append(order, c)
		}
		groups[c] = append(groups[c], e)
	}

	for _, c := range order {
		members := groups[c]
		first := ecs.Get[components.GuardMode](members[0])
		cx, cz := guardPoint(w, first)
		slots := gameplay.FormationPositions(s.formation, len(members), cx, cz, formationSpacing)
		for i, e := range members {
			s.guard(w, e, slots[i])
		}
	}
}

func (s *System) guard(w *ecs.World, e *ecs.Entity, slot components.Waypoint) {
	g := ecs.Get[components.GuardMode](e)
	unit := ecs.Get[components.Unit](e)
	t := ecs.Get[components.Transform](e)
	mv := ecs.Get[components.Movement](e)
	if unit == nil || t == nil || mv == nil {
		return
	}
	if !unit.Alive() {
		g.Active = false
		return
	}

	if at := ecs.Get[components.AttackTarget](e); at != nil && at.TargetID != ecs.NoEntity {
		if gameplay.Alive(w.Entity(at.TargetID)) {
			g.ReturningToPosition = true
			return
		}
		ecs.Remove[components.AttackTarget](e)
		g.ReturningToPosition = true
	}

	if enemy := s.intruder(w, unit.OwnerID, g); enemy != nil {
		at := ecs.GetOrAdd(e, components.AttackTarget{})
		at.TargetID = enemy.ID()
		at.ShouldChase = true
		g.ReturningToPosition = true
		return
	}

	dx, dz := slot.X-t.Position.X, slot.Z-t.Position.Z
	away := dx*dx+dz*dz >= ArriveDistance*ArriveDistance
	switch {
	case g.ReturningToPosition && !away:
		g.ReturningToPosition = false
		mv.Stop()
	case g.ReturningToPosition || away:
		s.commands.MoveUnit(w, e.ID(), slot.X, slot.Z, gameplay.MoveOptions{AllowDirectFallback: true})
	}
}

// intruder returns the first living hostile unit inside the guard radius.
func (s *System) intruder(w *ecs.World, owner int, g *components.GuardMode) *ecs.Entity {
	gx, gz := guardPoint(w, g)
	rr := g.GuardRadius * g.GuardRadius
	found, _ := ecs.With2[components.Unit, components.Transform](w).Find(func(c *ecs.Entity) bool {
		if !gameplay.Alive(c) || !s.rules.IsHostile(owner, ecs.Get[components.Unit](c).OwnerID) {
			return false
		}
		ct := ecs.Get[components.Transform](c)
		dx, dz := ct.Position.X-gx, ct.Position.Z-gz
		return dx*dx+dz*dz < rr
	})
	return found
}

// guardPoint follows the guarded entity while it exists.
func guardPoint(w *ecs.World, g *components.GuardMode) (float64, float64) {
	if g.GuardedEntityID != ecs.NoEntity {
		if gt := ecs.Get[components.Transform](w.Entity(g.GuardedEntityID)); gt != nil {
			return gt.Position.X, gt.Position.Z
		}
	}
	return g.GuardX, g.GuardZ
}
