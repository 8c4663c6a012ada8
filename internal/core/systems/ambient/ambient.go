// Package ambient classifies the local player's situation for music and
// ambience, and keeps per-unit idle hints current for renderers.
package ambient

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

const (
	CheckInterval = 2.0
	CombatRadius  = 15.0

	// IdleHintDelay is how long a unit stands still before it gets a hint.
	IdleHintDelay = 3.0
	idleMoveSpeed = 0.1
)

var idleHints = []string{"weight_shift", "breathing", "head_turn", "foot_adjust", "grip_adjust"}

// System publishes AmbientStateChanged when the local player's situation
// changes. The first evaluation happens once CheckInterval has elapsed.
type System struct {
	systems.Base

	rules   *gameplay.Rules
	timer   float64
	current events.AmbientState
}

func New(rules *gameplay.Rules, logger log.Log) *System {
	return &System{
		Base:    systems.NewBase(systems.NameAmbient, logger),
		rules:   rules,
		current: events.AmbientPeaceful,
	}
}

// State returns the last published state.
func (s *System) State() events.AmbientState { return s.current }

func (s *System) Update(w *ecs.World, dt float64) {
	updateIdle(w, dt)

	s.timer += dt
	if s.timer < CheckInterval {
		return
	}
	s.timer = 0

	next := s.evaluate(w)
	if next == s.current {
		return
	}
	prev := s.current
	s.current = next
	s.Logger().Info("ambient state changed",
		log.String("from", prev.String()),
		log.String("to", next.String()))
	bus.Publish(w.Events(), events.AmbientStateChanged{NewState: next, PreviousState: prev})
}

func (s *System) localPlayer() int {
	if s.rules == nil || s.rules.Owners == nil {
		return 1
	}
	return s.rules.Owners.LocalPlayerID()
}

func (s *System) evaluate(w *ecs.World) events.AmbientState {
	local := s.localPlayer()

	var own, enemy bool
	for e := range ecs.With2[components.Building, components.Unit](w).Seq() {
		u := ecs.Get[components.Unit](e)
		if u.SpawnType != components.SpawnBarracks || !gameplay.Alive(e) {
			continue
		}
		switch {
		case u.OwnerID == local:
			own = true
		case s.rules.IsHostile(local, u.OwnerID):
			enemy = true
		}
	}

	switch {
	case own && !enemy && s.anyHostileOwner(w, local):
		return events.AmbientVictory
	case !own && enemy:
		return events.AmbientDefeat
	case s.inCombat(w, local):
		return events.AmbientCombat
	case own && enemy:
		return events.AmbientTense
	default:
		return events.AmbientPeaceful
	}
}

// anyHostileOwner reports whether an enemy ever fielded anything; a map with
// no opponents is not a victory.
func (s *System) anyHostileOwner(w *ecs.World, local int) bool {
	if s.rules != nil && s.rules.Owners != nil {
		if len(s.rules.Owners.EnemiesOf(local)) > 0 {
			return true
		}
	}
	return ecs.With[components.Unit](w).Any(func(e *ecs.Entity) bool {
		return s.rules.IsHostile(local, ecs.Get[components.Unit](e).OwnerID)
	})
}

func (s *System) inCombat(w *ecs.World, local int) bool {
	var mine, others []*ecs.Entity
	for e := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		if !gameplay.Alive(e) {
			continue
		}
		if ecs.Get[components.Unit](e).OwnerID == local {
			if ecs.Has[components.AttackTarget](e) {
				return true
			}
			mine = append(mine, e)
			continue
		}
		if s.rules.IsHostile(local, ecs.Get[components.Unit](e).OwnerID) {
			others = append(others, e)
		}
	}

	const r2 = CombatRadius * CombatRadius
	for _, a := range mine {
		at := ecs.Get[components.Transform](a)
		for _, b := range others {
			if gameplay.PlanarDistSq(at, ecs.Get[components.Transform](b)) < r2 {
				return true
			}
		}
	}
	return false
}

// updateIdle accumulates idle time for units standing still out of combat and
// rotates their hint so neighbours do not animate in lockstep.
func updateIdle(w *ecs.World, dt float64) {
	for e := range ecs.With[components.IdleBehavior](w).Seq() {
		idle := ecs.Get[components.IdleBehavior](e)
		if !gameplay.Alive(e) || busy(e) {
			idle.IdleTime = 0
			idle.Hint = ""
			continue
		}
		idle.IdleTime += dt
		if idle.IdleTime < IdleHintDelay {
			idle.Hint = ""
			continue
		}
		i := (int(e.ID()) + int(idle.IdleTime)) % len(idleHints)
		idle.Hint = idleHints[i]
	}
}

func busy(e *ecs.Entity) bool {
	if ecs.Has[components.AttackTarget](e) {
		return true
	}
	mv := ecs.Get[components.Movement](e)
	if mv == nil {
		return false
	}
	return mv.HasTarget || mv.PathPending || mv.VX*mv.VX+mv.VZ*mv.VZ > idleMoveSpeed*idleMoveSpeed
}
