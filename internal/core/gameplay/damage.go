package gameplay

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
)

const (
	flinchDuration = 0.35
	fallDuration   = 0.8
	// a hit worth at least this share of max health knocks the unit down
	fallThreshold = 0.25
)

// DealDamage subtracts damage from target, clamping health at zero, and
// publishes the matching events. A lethal hit releases the victim's melee
// partner, unregisters buildings, hides the model, stops movement and marks
// the entity for removal. Entities without a Unit are ignored.
func (r *Rules) DealDamage(w *ecs.World, target *ecs.Entity, damage int, attackerID ecs.EntityID) {
	unit := ecs.Get[components.Unit](target)
	if unit == nil {
		return
	}

	killing := unit.Health > 0 && unit.Health <= damage
	unit.Health = max(0, unit.Health-damage)

	// no attacker unit leaves both at their zero value
	attackerOwner := 0
	attackerType := ""
	var attacker *ecs.Entity
	if attackerID != ecs.NoEntity && w != nil {
		attacker = w.Entity(attackerID)
		if au := ecs.Get[components.Unit](attacker); au != nil {
			attackerOwner = au.OwnerID
			attackerType = au.SpawnType.String()
		}
	}

	var m *bus.Manager
	if w != nil {
		m = w.Events()
	}

	bus.Publish(m, events.CombatHit{
		AttackerID:   attackerID,
		TargetID:     target.ID(),
		Damage:       damage,
		AttackerType: attackerType,
		Killing:      killing,
	})

	if unit.Health > 0 {
		ApplyHitFeedback(target, attacker, damage)
		if IsBuilding(target) {
			bus.Publish(m, events.BuildingAttacked{
				BuildingID:      target.ID(),
				OwnerID:         unit.OwnerID,
				BuildingType:    unit.SpawnType.String(),
				AttackerID:      attackerID,
				AttackerOwnerID: attackerOwner,
				Damage:          damage,
			})
		}
		return
	}

	bus.Publish(m, events.UnitDied{
		UnitID:        target.ID(),
		OwnerID:       unit.OwnerID,
		UnitType:      unit.SpawnType.String(),
		KillerID:      attackerID,
		KillerOwnerID: attackerOwner,
	})

	r.releaseMeleePartner(w, target)

	if IsBuilding(target) && r != nil && r.Buildings != nil {
		r.Buildings.UnregisterBuilding(target.ID())
	}
	if rend := ecs.Get[components.Renderable](target); rend != nil {
		rend.Visible = false
	}
	if mv := ecs.Get[components.Movement](target); mv != nil {
		mv.Stop()
	}
	ecs.Add(target, components.PendingRemoval{})
}

func (r *Rules) releaseMeleePartner(w *ecs.World, target *ecs.Entity) {
	atk := ecs.Get[components.Attack](target)
	if atk == nil || !atk.InMeleeLock || atk.MeleeLockTargetID == ecs.NoEntity || w == nil {
		return
	}
	partner := w.Entity(atk.MeleeLockTargetID)
	if partner == nil || ecs.Has[components.PendingRemoval](partner) {
		return
	}
	if pa := ecs.Get[components.Attack](partner); pa != nil && pa.MeleeLockTargetID == target.ID() {
		pa.ReleaseMeleeLock()
	}
}

// ApplyHitFeedback starts a hit reaction on target. Heavy hits knock the unit
// down instead of a flinch.
func ApplyHitFeedback(target, attacker *ecs.Entity, damage int) {
	if target == nil || IsBuilding(target) {
		return
	}
	fb := ecs.GetOrAdd(target, components.HitFeedback{})
	fb.Reaction = components.HitFlinch
	fb.Duration = flinchDuration
	if u := ecs.Get[components.Unit](target); u != nil && u.MaxHealth > 0 &&
		float64(damage) >= fallThreshold*float64(u.MaxHealth) {
		fb.Reaction = components.HitFall
		fb.Duration = fallDuration
	}
	fb.Elapsed = 0
	fb.Intensity = 1
	fb.LastDamage = damage
	fb.ReactionSeen = false

	tt := ecs.Get[components.Transform](target)
	at := ecs.Get[components.Transform](attacker)
	if tt == nil {
		return
	}
	fb.SourceX, fb.SourceZ = tt.Position.X, tt.Position.Z
	if at != nil {
		fb.SourceX, fb.SourceZ = at.Position.X, at.Position.Z
	}
}

// AdvanceHitFeedback ages every running hit reaction by dt and clears the
// ones that have played out. Intensity fades linearly.
func AdvanceHitFeedback(w *ecs.World, dt float64) {
	for e := range ecs.With[components.HitFeedback](w).Seq() {
		if ecs.Has[components.PendingRemoval](e) {
			continue
		}
		fb := ecs.Get[components.HitFeedback](e)
		if fb.Reaction == components.HitNone {
			continue
		}
		fb.Elapsed += dt
		if fb.Duration <= 0 || fb.Elapsed >= fb.Duration {
			*fb = components.HitFeedback{ReactionSeen: fb.ReactionSeen, LastDamage: fb.LastDamage}
			continue
		}
		fb.Intensity = math.Max(0, 1-fb.Elapsed/fb.Duration)
	}
}
