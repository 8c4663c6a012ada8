package combat

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

// fixedSource makes every Float64 draw return the same value.
type fixedSource uint64

func (f fixedSource) Uint64() uint64 { return uint64(f) }

func elephant(w *ecs.World, owner int, x, z float64) *ecs.Entity {
	e := spawn(w, components.SpawnElephant, owner, x, z)
	ecs.Add(e, components.NewAttack(3, 30, 2))
	ecs.Add(e, components.Movement{})
	return e
}

func TestElephantPanicsAndFlees(t *testing.T) {
	w := newWorld()
	sys := NewElephant(gameplay.NewRules(nil, nil), log.NewNop(), WithRand(rand.New(fixedSource(0))))
	e := elephant(w, 1, 0, 0)
	ecs.Get[components.Unit](e).Health = 20

	sys.Update(w, 1)
	el := ecs.Get[components.Elephant](e)
	require.NotNil(t, el)
	assert.True(t, el.Panicked)

	mv := ecs.Get[components.Movement](e)
	assert.True(t, mv.HasTarget)
	assert.InDelta(t, PanicFleeDistance, mv.TargetX, 1e-9)
	assert.InDelta(t, 0, mv.TargetZ, 1e-9)

	for range 9 {
		sys.Update(w, 1)
	}
	assert.False(t, el.Panicked)
}

func TestElephantPanicIsAChance(t *testing.T) {
	w := newWorld()
	sys := NewElephant(gameplay.NewRules(nil, nil), log.NewNop(), WithRand(rand.New(fixedSource(math.MaxUint64))))
	e := elephant(w, 1, 0, 0)
	ecs.Get[components.Unit](e).Health = 20

	sys.Update(w, 1)
	assert.False(t, ecs.Get[components.Elephant](e).Panicked)
	assert.False(t, ecs.Get[components.Movement](e).HasTarget)
}

func TestElephantChargeCycle(t *testing.T) {
	w := newWorld()
	sys := NewElephant(gameplay.NewRules(nil, nil), log.NewNop())
	e := elephant(w, 1, 0, 0)
	target := spawn(w, components.SpawnKnight, 2, 10, 0)
	ecs.Add(e, components.AttackTarget{TargetID: target.ID(), ShouldChase: true})

	sys.Update(w, 1)
	el := ecs.Get[components.Elephant](e)
	assert.Equal(t, components.ChargeCharging, el.ChargeState)

	for range 3 {
		sys.Update(w, 1)
	}
	assert.Equal(t, components.ChargeRecovering, el.ChargeState)
	assert.Equal(t, ChargeCooldown, el.ChargeCooldown)

	sys.Update(w, 1)
	assert.Equal(t, components.ChargeIdle, el.ChargeState)
	sys.Update(w, 1)
	assert.Equal(t, components.ChargeIdle, el.ChargeState, "cooldown blocks a new charge")
}

func TestElephantChargeNeedsDistance(t *testing.T) {
	w := newWorld()
	sys := NewElephant(gameplay.NewRules(nil, nil), log.NewNop())
	e := elephant(w, 1, 0, 0)
	target := spawn(w, components.SpawnKnight, 2, 2, 0)
	ecs.Add(e, components.AttackTarget{TargetID: target.ID()})

	sys.Update(w, 1)
	assert.Equal(t, components.ChargeIdle, ecs.Get[components.Elephant](e).ChargeState)
}

func TestElephantTramplesEnemies(t *testing.T) {
	w := newWorld()
	sys := NewElephant(gameplay.NewRules(nil, nil), log.NewNop())
	e := elephant(w, 1, 0, 0)
	enemy := spawn(w, components.SpawnKnight, 2, 1, 0)
	ally := spawn(w, components.SpawnKnight, 1, 0, 1)
	far := spawn(w, components.SpawnKnight, 2, 5, 0)

	mv := ecs.Get[components.Movement](e)
	mv.VX = 1

	sys.Update(w, 0.25)
	el := ecs.Get[components.Elephant](e)
	assert.Equal(t, 98, ecs.Get[components.Unit](enemy).Health)
	assert.Equal(t, 100, ecs.Get[components.Unit](ally).Health)
	assert.Equal(t, 100, ecs.Get[components.Unit](far).Health)
	assert.InDelta(t, 0.5, el.TrampleAccumulator, 1e-9)

	mv.VX = 0
	sys.Update(w, 0.25)
	assert.Zero(t, el.TrampleAccumulator)
	assert.Equal(t, 98, ecs.Get[components.Unit](enemy).Health)
}

func TestPanickedElephantTramplesEveryone(t *testing.T) {
	w := newWorld()
	sys := NewElephant(gameplay.NewRules(nil, nil), log.NewNop(), WithRand(rand.New(fixedSource(0))))
	e := elephant(w, 1, 0, 0)
	ecs.Get[components.Unit](e).Health = 20
	ally := spawn(w, components.SpawnKnight, 1, 0, 1)
	ecs.Get[components.Movement](e).VX = 1

	sys.Update(w, 0.25)
	assert.True(t, ecs.Get[components.Elephant](e).Panicked)
	assert.Equal(t, 98, ecs.Get[components.Unit](ally).Health)
}

func TestGenericCombatDrivesElephantMelee(t *testing.T) {
	w := newWorld()
	sys := New(gameplay.NewRules(nil, nil), log.NewNop())
	e := elephant(w, 1, 0, 0)
	target := spawn(w, components.SpawnKnight, 2, 8, 0)
	ecs.Add(e, components.AttackTarget{TargetID: target.ID(), ShouldChase: true})

	sys.Update(w, 2.5)
	mv := ecs.Get[components.Movement](e)
	require.True(t, mv.HasTarget, "the elephant chases its target")
	assert.InDelta(t, 8.0, mv.GoalX, 1e-9)
	assert.Equal(t, 100, ecs.Get[components.Unit](target).Health)

	ecs.Get[components.Transform](e).Position.X = 7.5
	sys.Update(w, 2.5)
	assert.Less(t, ecs.Get[components.Unit](target).Health, 100)
	assert.Equal(t, components.ModeMelee, ecs.Get[components.Attack](e).CurrentMode)
}
