package gameplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
)

func spawn(w *ecs.World, kind components.SpawnType, owner int, x, z float64) *ecs.Entity {
	e := w.CreateEntity()
	ecs.Add(e, components.NewTransform(x, 0, z))
	ecs.Add(e, components.NewUnit(kind, owner))
	return e
}

func TestDealDamageLethalHit(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	rules := NewRules(registry.NewOwners(), nil)

	var died []events.UnitDied
	var hits []events.CombatHit
	bus.Subscribe(w.Events(), func(ev events.UnitDied) { died = append(died, ev) })
	bus.Subscribe(w.Events(), func(ev events.CombatHit) { hits = append(hits, ev) })

	archer := spawn(w, components.SpawnArcher, 1, 0, 0)
	victim := spawn(w, components.SpawnKnight, 2, 3, 0)
	ecs.Get[components.Unit](victim).Health = 50
	ecs.Add(victim, components.NewRenderable("knight", ""))
	ecs.Add(victim, components.Movement{HasTarget: true, VX: 1})

	rules.DealDamage(w, victim, 60, archer.ID())

	u := ecs.Get[components.Unit](victim)
	assert.Equal(t, 0, u.Health)
	require.Len(t, died, 1)
	assert.Equal(t, events.UnitDied{
		UnitID:        victim.ID(),
		OwnerID:       2,
		UnitType:      "swordsman",
		KillerID:      archer.ID(),
		KillerOwnerID: 1,
	}, died[0])
	require.Len(t, hits, 1)
	assert.True(t, hits[0].Killing)
	assert.Equal(t, "archer", hits[0].AttackerType)

	assert.True(t, ecs.Has[components.PendingRemoval](victim))
	assert.False(t, ecs.Get[components.Renderable](victim).Visible)
	mv := ecs.Get[components.Movement](victim)
	assert.False(t, mv.HasTarget)
	assert.Zero(t, mv.VX)
}

func TestDealDamageNoKillerCredit(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	var died []events.UnitDied
	var hits []events.CombatHit
	bus.Subscribe(w.Events(), func(ev events.UnitDied) { died = append(died, ev) })
	bus.Subscribe(w.Events(), func(ev events.CombatHit) { hits = append(hits, ev) })

	victim := spawn(w, components.SpawnArcher, 2, 0, 0)
	(&Rules{}).DealDamage(w, victim, 500, ecs.NoEntity)

	require.Len(t, died, 1)
	assert.Equal(t, ecs.NoEntity, died[0].KillerID)
	assert.Zero(t, died[0].KillerOwnerID)
	require.Len(t, hits, 1)
	assert.Empty(t, hits[0].AttackerType, "no attacker unit means no attacker type")
}

func TestDealDamageNonLethalStartsFeedback(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	attacker := spawn(w, components.SpawnKnight, 1, 0, 0)
	victim := spawn(w, components.SpawnKnight, 2, 1, 0)

	NewRules(nil, nil).DealDamage(w, victim, 10, attacker.ID())

	assert.Equal(t, 90, ecs.Get[components.Unit](victim).Health)
	fb := ecs.Get[components.HitFeedback](victim)
	require.NotNil(t, fb)
	assert.Equal(t, components.HitFlinch, fb.Reaction)
	assert.Equal(t, 0.0, fb.SourceX)

	AdvanceHitFeedback(w, 1)
	assert.Equal(t, components.HitNone, fb.Reaction)
	assert.False(t, ecs.Has[components.PendingRemoval](victim))
}

func TestDealDamageBuildingEvents(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	buildings := navigation.NewBuildingRegistry()
	rules := NewRules(nil, buildings)

	var attacked []events.BuildingAttacked
	bus.Subscribe(w.Events(), func(ev events.BuildingAttacked) { attacked = append(attacked, ev) })

	attacker := spawn(w, components.SpawnKnight, 1, 0, 0)
	barracks := spawn(w, components.SpawnBarracks, 2, 10, 10)
	ecs.Add(barracks, components.Building{})
	buildings.RegisterBuilding(barracks.ID(), "barracks", 10, 10, 2)
	require.True(t, buildings.IsPointInBuilding(10, 10, ecs.NoEntity))

	rules.DealDamage(w, barracks, 30, attacker.ID())
	require.Len(t, attacked, 1)
	assert.Equal(t, 30, attacked[0].Damage)
	assert.Equal(t, 1, attacked[0].AttackerOwnerID)

	rules.DealDamage(w, barracks, 100, attacker.ID())
	assert.Len(t, attacked, 1, "lethal hits report death, not an attack")
	assert.False(t, buildings.IsPointInBuilding(10, 10, ecs.NoEntity))
}

func TestDealDamageReleasesMeleePartner(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	a := spawn(w, components.SpawnKnight, 1, 0, 0)
	b := spawn(w, components.SpawnKnight, 2, 1, 0)
	aa := ecs.Add(a, components.NewAttack(1.5, 10, 1))
	ba := ecs.Add(b, components.NewAttack(1.5, 10, 1))
	aa.InMeleeLock, aa.MeleeLockTargetID = true, b.ID()
	ba.InMeleeLock, ba.MeleeLockTargetID = true, a.ID()

	NewRules(nil, nil).DealDamage(w, b, 1000, a.ID())

	assert.False(t, aa.InMeleeLock)
	assert.Equal(t, ecs.NoEntity, aa.MeleeLockTargetID)
}

func TestRulesHostility(t *testing.T) {
	owners := registry.NewOwners()
	owners.RegisterWithID(1, registry.OwnerPlayer, "red")
	owners.RegisterWithID(2, registry.OwnerAI, "blue")
	owners.RegisterWithID(3, registry.OwnerAI, "green")
	owners.SetTeam(1, 7)
	owners.SetTeam(3, 7)
	rules := NewRules(owners, nil)

	assert.True(t, rules.IsHostile(1, 2))
	assert.False(t, rules.IsHostile(1, 3))
	assert.False(t, rules.IsHostile(1, 1))
	assert.False(t, rules.IsHostile(1, components.NeutralOwner))

	var zero *Rules
	assert.True(t, zero.IsHostile(1, 3))
	assert.True(t, zero.AreAllies(4, 4))
}

func TestNearestEnemy(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	rules := NewRules(nil, nil)
	me := spawn(w, components.SpawnKnight, 1, 0, 0)
	spawn(w, components.SpawnKnight, 1, 1, 0)
	far := spawn(w, components.SpawnKnight, 2, 8, 0)
	near := spawn(w, components.SpawnKnight, 2, 5, 0)
	dead := spawn(w, components.SpawnKnight, 2, 2, 0)
	ecs.Get[components.Unit](dead).Health = 0
	b := spawn(w, components.SpawnBarracks, 2, 1, 1)
	ecs.Add(b, components.Building{})

	assert.Equal(t, near.ID(), rules.NearestEnemy(w, me, 10).ID())
	assert.Nil(t, rules.NearestEnemy(w, me, 4))
	_ = far
}

func TestNearestEnemyPrefersHoldingBlocker(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	rules := NewRules(nil, nil)
	me := spawn(w, components.SpawnKnight, 1, 0, 0)
	spawn(w, components.SpawnKnight, 2, 3, 0)
	// holding, but off to the side of the line of fire
	holder := spawn(w, components.SpawnSpearman, 2, 2.5, 3.5)
	ecs.Add(holder, components.NewHoldMode())
	assert.NotEqual(t, holder.ID(), rules.NearestEnemy(w, me, 10).ID())

	blocker := spawn(w, components.SpawnSpearman, 2, 2, 0.5)
	ecs.Add(blocker, components.NewHoldMode())
	assert.Equal(t, blocker.ID(), rules.NearestEnemy(w, me, 10).ID())
}

func TestOwnershipQueries(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	owners := registry.NewOwners()
	for id := 1; id <= 3; id++ {
		owners.RegisterWithID(id, registry.OwnerAI, "")
	}
	owners.SetTeam(1, 1)
	owners.SetTeam(3, 1)
	rules := NewRules(owners, nil)

	spawn(w, components.SpawnKnight, 1, 0, 0)
	spawn(w, components.SpawnKnight, 2, 0, 0)
	spawn(w, components.SpawnKnight, 3, 0, 0)
	spawn(w, components.SpawnKnight, 2, 20, 0)

	assert.Len(t, UnitsOwnedBy(w, 2), 2)
	assert.Len(t, UnitsNotOwnedBy(w, 2), 2)
	assert.Len(t, rules.AlliedUnits(w, 1), 1)
	assert.Len(t, rules.EnemyUnits(w, 1), 2)
	assert.Len(t, rules.EnemiesWithin(w, 1, 0, 0, 5, false), 1)
}

func TestRomanFormation(t *testing.T) {
	pos := FormationPositions(FormationRoman, 10, 5, 5, 1)
	require.Len(t, pos, 10)

	var sx, sz float64
	for _, p := range pos {
		sx += p.X
		sz += p.Z
	}
	// rows = int(sqrt(7)) = 2, cols = 5: a full block centred on (5, 5)
	assert.InDelta(t, 5.0, sx/10, 1e-9)
	assert.InDelta(t, 5.0, sz/10, 1e-9)
	assert.InDelta(t, 1.2, pos[1].X-pos[0].X, 1e-9)
	assert.InDelta(t, 1.2*0.9, pos[5].Z-pos[0].Z, 1e-9)

	assert.Empty(t, FormationPositions(FormationRoman, 0, 0, 0, 1))
}

func TestBarbarianFormationIsStable(t *testing.T) {
	a := FormationPositions(FormationBarbarian, 9, 0, 0, 1)
	b := FormationPositions(FormationBarbarian, 9, 0, 0, 1)
	assert.Equal(t, a, b)
	assert.Len(t, a, 9)
}

func TestCommandsDirectMove(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	cmds := NewCommands(nil)
	e := spawn(w, components.SpawnKnight, 1, 0, 0)
	ecs.Add(e, components.AttackTarget{TargetID: 99})

	cmds.MoveUnit(w, e.ID(), 4, 3, DefaultMoveOptions())

	mv := ecs.Get[components.Movement](e)
	require.NotNil(t, mv)
	assert.True(t, mv.HasTarget)
	assert.Equal(t, 4.0, mv.TargetX)
	assert.Equal(t, 3.0, mv.GoalZ)
	assert.False(t, ecs.Has[components.AttackTarget](e))
}

func TestCommandsPathedMove(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	finder := navigation.NewPathfinder(50, 50, navigation.NewBuildingRegistry())
	cmds := NewCommands(navigation.NewPathService(finder, log.NewNop()))
	e := spawn(w, components.SpawnKnight, 1, 0, 0)

	cmds.MoveUnit(w, e.ID(), 20, 0, DefaultMoveOptions())
	mv := ecs.Get[components.Movement](e)
	assert.True(t, mv.PathPending)
	assert.False(t, mv.HasTarget)
	assert.Equal(t, 1, cmds.PendingRequests())

	cmds.ProcessPathResults(w)
	assert.False(t, mv.PathPending)
	assert.Zero(t, cmds.PendingRequests())
	require.NotEmpty(t, mv.Path)
	assert.True(t, mv.HasTarget)
	assert.Equal(t, components.Waypoint{X: 20, Z: 0}, mv.Path[len(mv.Path)-1])
	assert.Equal(t, mv.Path[0].X, mv.TargetX)
}

func TestCommandsRepeatedOrderIsIgnored(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	finder := navigation.NewPathfinder(50, 50, navigation.NewBuildingRegistry())
	cmds := NewCommands(navigation.NewPathService(finder, log.NewNop()))
	e := spawn(w, components.SpawnKnight, 1, 0, 0)

	cmds.MoveUnit(w, e.ID(), 20, 0, DefaultMoveOptions())
	first := ecs.Get[components.Movement](e).PendingRequestID
	cmds.MoveUnit(w, e.ID(), 20.05, 0, DefaultMoveOptions())
	assert.Equal(t, first, ecs.Get[components.Movement](e).PendingRequestID)
	assert.Equal(t, 1, cmds.PendingRequests())
}

func TestCommandsAttackTargetChases(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	cmds := NewCommands(nil)
	e := spawn(w, components.SpawnKnight, 1, 0, 0)
	ecs.Add(e, components.NewAttack(2, 10, 1))
	target := spawn(w, components.SpawnKnight, 2, 10, 0)

	cmds.AttackTarget(w, []ecs.EntityID{e.ID()}, target.ID(), true)

	at := ecs.Get[components.AttackTarget](e)
	require.NotNil(t, at)
	assert.Equal(t, target.ID(), at.TargetID)
	mv := ecs.Get[components.Movement](e)
	assert.True(t, mv.HasTarget)
	assert.InDelta(t, 8.2, mv.TargetX, 1e-9)

	cmds.StopUnits(w, []ecs.EntityID{e.ID()})
	assert.False(t, ecs.Has[components.AttackTarget](e))
	assert.False(t, mv.HasTarget)
}
