package combat

import (
	"math"
	"math/rand/v2"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

const (
	PanicHealthRatio  = 0.3
	PanicChance       = 0.5
	PanicDuration     = 10.0
	PanicRedirect     = 2.0
	PanicFleeDistance = 10.0

	ChargeMinDistance = 5.0
	ChargeMaxDistance = 15.0
	ChargeDuration    = 3.0
	ChargeCooldown    = 8.0

	trampleMoveThreshold = 0.1
)

// ElephantSystem drives panic, charge and trample for war elephants.
type ElephantSystem struct {
	systems.Base

	rules *gameplay.Rules
	rand  *rand.Rand
}

// NewElephant honours WithRand; other options are ignored.
func NewElephant(rules *gameplay.Rules, logger log.Log, opts ...Option) *ElephantSystem {
	o := buildOptions(opts)
	return &ElephantSystem{
		Base:  systems.NewBase(systems.NameElephant, logger),
		rules: rules,
		rand:  o.Rand,
	}
}

func (s *ElephantSystem) Update(w *ecs.World, dt float64) {
	for e := range ecs.With[components.Unit](w).Seq() {
		unit := ecs.Get[components.Unit](e)
		if unit.SpawnType != components.SpawnElephant || !gameplay.Alive(e) {
			continue
		}
		el := ecs.GetOrAdd(e, components.NewElephant())

		if !el.Panicked && unit.HealthRatio() < PanicHealthRatio && s.rand.Float64() < PanicChance {
			el.Panicked = true
			el.PanicDuration = PanicDuration
			el.PanicRedirectTimer = PanicRedirect
			s.Logger().Debug("elephant panicked", log.Uint64("entity", uint64(e.ID())))
		}
		if el.Panicked {
			s.flee(e, el, dt)
		}
		if el.ChargeCooldown > 0 {
			el.ChargeCooldown -= dt
		}
		s.charge(w, e, el, dt)
		s.trample(w, e, el, dt)
	}
}

// flee counts the panic down and periodically bolts toward a random point.
func (s *ElephantSystem) flee(e *ecs.Entity, el *components.Elephant, dt float64) {
	el.PanicDuration -= dt
	if el.PanicDuration <= 0 {
		el.Panicked = false
		el.PanicDuration = 0
		el.PanicRedirectTimer = 0
		return
	}

	el.PanicRedirectTimer += dt
	if el.PanicRedirectTimer < PanicRedirect {
		return
	}
	el.PanicRedirectTimer = 0

	t := ecs.Get[components.Transform](e)
	mv := ecs.Get[components.Movement](e)
	if t == nil || mv == nil {
		return
	}
	angle := s.rand.Float64() * 2 * math.Pi
	x := t.Position.X + math.Cos(angle)*PanicFleeDistance
	z := t.Position.Z + math.Sin(angle)*PanicFleeDistance
	mv.ClearPath()
	mv.TargetX, mv.TargetZ = x, z
	mv.GoalX, mv.GoalZ = x, z
	mv.HasTarget = true
}

func (s *ElephantSystem) charge(w *ecs.World, e *ecs.Entity, el *components.Elephant, dt float64) {
	t := ecs.Get[components.Transform](e)
	if t == nil || !ecs.Has[components.Movement](e) {
		return
	}
	switch el.ChargeState {
	case components.ChargeIdle:
		at := ecs.Get[components.AttackTarget](e)
		if at == nil || at.TargetID == ecs.NoEntity || el.ChargeCooldown > 0 || el.Panicked {
			return
		}
		tt := ecs.Get[components.Transform](w.Entity(at.TargetID))
		if tt == nil {
			return
		}
		if d := math.Sqrt(gameplay.PlanarDistSq(t, tt)); d >= ChargeMinDistance && d <= ChargeMaxDistance {
			el.ChargeState = components.ChargeCharging
			el.ChargeDuration = ChargeDuration
		}
	case components.ChargeCharging:
		el.ChargeDuration -= dt
		if el.ChargeDuration <= 0 {
			el.ChargeState = components.ChargeRecovering
			el.ChargeCooldown = ChargeCooldown
		}
	case components.ChargeRecovering:
		el.ChargeState = components.ChargeIdle
	}
}

// trample accumulates damage while the elephant moves or stands on its
// target, and deals the whole part to everyone it may hurt in range.
func (s *ElephantSystem) trample(w *ecs.World, e *ecs.Entity, el *components.Elephant, dt float64) {
	t := ecs.Get[components.Transform](e)
	mv := ecs.Get[components.Movement](e)
	unit := ecs.Get[components.Unit](e)
	if t == nil || mv == nil {
		return
	}

	moving := math.Abs(mv.VX) > trampleMoveThreshold || math.Abs(mv.VZ) > trampleMoveThreshold
	if !moving && !s.targetUnderfoot(w, e, el, t) {
		el.TrampleAccumulator = 0
		return
	}

	el.TrampleAccumulator += float64(el.TrampleDamage) * dt
	damage := int(el.TrampleAccumulator)
	if damage <= 0 {
		return
	}

	rr := el.TrampleRadius * el.TrampleRadius
	victims := ecs.With2[components.Unit, components.Transform](w).Filter(func(c *ecs.Entity) bool {
		if c == e || !gameplay.Alive(c) {
			return false
		}
		if !el.Panicked && !s.rules.IsHostile(unit.OwnerID, ecs.Get[components.Unit](c).OwnerID) {
			return false
		}
		return gameplay.PlanarDistSq(t, ecs.Get[components.Transform](c)) <= rr
	}).Collect()

	if len(victims) == 0 {
		el.TrampleAccumulator = 0
		return
	}
	for _, v := range victims {
		s.rules.DealDamage(w, v, damage, e.ID())
	}
	el.TrampleAccumulator -= float64(damage)
}

func (s *ElephantSystem) targetUnderfoot(w *ecs.World, e *ecs.Entity, el *components.Elephant, t *components.Transform) bool {
	at := ecs.Get[components.AttackTarget](e)
	if at == nil || at.TargetID == ecs.NoEntity {
		return false
	}
	tt := ecs.Get[components.Transform](w.Entity(at.TargetID))
	if tt == nil {
		return false
	}
	reach := el.TrampleRadius
	if atk := ecs.Get[components.Attack](e); atk != nil {
		reach = max(reach, atk.MeleeRange)
	}
	return gameplay.PlanarDistSq(t, tt) <= reach*reach
}
