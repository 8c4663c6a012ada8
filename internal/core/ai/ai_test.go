package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/systems/production"
)

func spawn(w *ecs.World, kind components.SpawnType, owner int, x, z float64, ai bool) *ecs.Entity {
	e := w.CreateEntity()
	ecs.Add(e, components.NewTransform(x, 0, z))
	ecs.Add(e, components.NewUnit(kind, owner))
	if kind.IsBuilding() {
		ecs.Add(e, components.Building{})
	} else {
		ecs.Add(e, components.Movement{})
	}
	if kind == components.SpawnBarracks {
		ecs.Add(e, components.NewProduction())
	}
	if ai {
		ecs.Add(e, components.AIControlled{})
	}
	return e
}

func TestUpdateContextStatistics(t *testing.T) {
	snap := Snapshot{
		PlayerID: 2,
		Friendlies: []EntitySnapshot{
			{ID: 1, SpawnType: components.SpawnBarracks, IsBuilding: true, X: 50, Z: 50},
			{ID: 2, SpawnType: components.SpawnArcher, Health: 40, MaxHealth: 100, HasMovement: true},
			{ID: 3, SpawnType: components.SpawnKnight, Health: 100, MaxHealth: 100, HasMovement: true, HasTarget: true},
		},
		VisibleEnemies: []ContactSnapshot{
			{ID: 9, X: 60, Z: 50},
			{ID: 10, X: 200, Z: 50, IsBuilding: true},
		},
	}
	ctx := NewContext(2, 50)
	ctx.Assigned[77] = Assignment{Owner: PriorityNormal}
	UpdateContext(&snap, &ctx)

	assert.Equal(t, ecs.EntityID(1), ctx.PrimaryBarracks)
	assert.Equal(t, 45.0, ctx.RallyX)
	assert.Equal(t, 2, ctx.TotalUnits)
	assert.Equal(t, 1, ctx.IdleUnits)
	assert.Equal(t, 1, ctx.CombatUnits)
	assert.Equal(t, 1, ctx.RangedCount)
	assert.Equal(t, 1, ctx.MeleeCount)
	assert.Equal(t, 1, ctx.DamagedUnits)
	assert.InDelta(t, 0.7, ctx.AverageHealth, 1e-9)
	assert.True(t, ctx.BarracksUnderThreat)
	assert.Equal(t, 1, ctx.NearbyThreatCount)
	assert.Equal(t, 10.0, ctx.ClosestThreatDistance)
	assert.Equal(t, 1, ctx.EnemyBuildingsCount)
	assert.Equal(t, 80.0, ctx.AverageEnemyDistance)
	assert.NotContains(t, ctx.Assigned, ecs.EntityID(77))
}

func TestStateMachine(t *testing.T) {
	ctx := NewContext(2, 50)
	ctx.BarracksUnderThreat = true
	UpdateStateMachine(&ctx, 0.3)
	assert.Equal(t, StateDefending, ctx.State)
	assert.Equal(t, 0.0, ctx.StateTimer)

	ctx = NewContext(2, 50)
	ctx.IdleUnits = 2
	ctx.TotalUnits = 2
	UpdateStateMachine(&ctx, 1)
	assert.Equal(t, StateIdle, ctx.State)
	UpdateStateMachine(&ctx, 1)
	assert.Equal(t, StateIdle, ctx.State, "state held for the minimum duration")
	UpdateStateMachine(&ctx, 2)
	assert.Equal(t, StateGathering, ctx.State)
	assert.Equal(t, 0.0, ctx.StateTimer)

	ctx.State = StateAttacking
	ctx.StateTimer = 5
	ctx.DecisionTimer = 2
	ctx.AverageHealth = 0.2
	UpdateStateMachine(&ctx, 0.1)
	assert.Equal(t, StateRetreating, ctx.State)
}

type stubBehavior struct {
	name       string
	prio       Priority
	concurrent bool
	runs       int
}

func (b *stubBehavior) Name() string                           { return b.name }
func (b *stubBehavior) Priority() Priority                     { return b.prio }
func (b *stubBehavior) CanRunConcurrently() bool               { return b.concurrent }
func (b *stubBehavior) ShouldExecute(*Snapshot, *Context) bool { return true }
func (b *stubBehavior) Execute(*Snapshot, *Context, float64) []Command {
	b.runs++
	return []Command{{Type: CommandStartProduction}}
}

func TestRunBehaviorsExclusivity(t *testing.T) {
	low := &stubBehavior{name: "low", prio: PriorityLow}
	critical := &stubBehavior{name: "critical", prio: PriorityCritical}
	high := &stubBehavior{name: "high", prio: PriorityHigh, concurrent: true}
	normal := &stubBehavior{name: "normal", prio: PriorityNormal}

	bs := []Behavior{low, critical, high, normal}
	SortBehaviors(bs)
	assert.Equal(t, []Behavior{critical, high, normal, low}, bs)

	cmds := RunBehaviors(bs, &Snapshot{}, &Context{}, 0.3)
	assert.Len(t, cmds, 2)
	assert.Equal(t, 1, critical.runs)
	assert.Equal(t, 1, high.runs)
	assert.Equal(t, 0, normal.runs)
	assert.Equal(t, 0, low.runs)
}

func TestClaimRespectsPriorityAndLock(t *testing.T) {
	ctx := NewContext(2, 50)
	assert.Equal(t, []ecs.EntityID{1, 2}, claim([]ecs.EntityID{1, 2}, PriorityLow, "gathering", &ctx, 2))
	assert.Empty(t, claim([]ecs.EntityID{1}, PriorityLow, "again", &ctx, 2))
	assert.Empty(t, claim([]ecs.EntityID{1}, PriorityCritical, "defending", &ctx, 2), "lock not expired")

	ctx.Clock = 5
	assert.Equal(t, []ecs.EntityID{1}, claim([]ecs.EntityID{1}, PriorityCritical, "defending", &ctx, 2))
	assert.Equal(t, "defending", ctx.Assigned[1].Task)
}

func TestProductionBehaviorPicksTroopMix(t *testing.T) {
	snap := Snapshot{Friendlies: []EntitySnapshot{
		{ID: 1, SpawnType: components.SpawnBarracks, IsBuilding: true, Production: ProductionSnapshot{HasComponent: true, MaxUnits: 5}},
		{ID: 2, SpawnType: components.SpawnBarracks, IsBuilding: true, Production: ProductionSnapshot{HasComponent: true, InProgress: true, MaxUnits: 5}},
	}}
	b := &ProductionBehavior{}
	ctx := NewContext(2, 50)

	assert.Empty(t, b.Execute(&snap, &ctx, 1))
	cmds := b.Execute(&snap, &ctx, 1)
	require.Len(t, cmds, 1)
	assert.Equal(t, ecs.EntityID(1), cmds[0].BuildingID)
	assert.Equal(t, components.SpawnArcher, cmds[0].ProductType)

	ctx.TotalUnits, ctx.RangedCount = 10, 8
	cmds = b.Execute(&snap, &ctx, 2)
	require.Len(t, cmds, 1)
	assert.Equal(t, components.SpawnKnight, cmds[0].ProductType)

	ctx.TotalUnits = 50
	assert.False(t, b.ShouldExecute(&snap, &ctx))
}

func TestGatherMovesToRally(t *testing.T) {
	snap := Snapshot{Friendlies: []EntitySnapshot{
		{ID: 1, SpawnType: components.SpawnBarracks, IsBuilding: true, X: 20, Z: 20},
		{ID: 2, SpawnType: components.SpawnArcher, Health: 100, MaxHealth: 100, X: 40, Z: 40},
		{ID: 3, SpawnType: components.SpawnArcher, Health: 100, MaxHealth: 100, X: 15, Z: 20},
	}}
	ctx := NewContext(2, 50)
	UpdateContext(&snap, &ctx)

	b := &GatherBehavior{}
	require.True(t, b.ShouldExecute(&snap, &ctx))
	cmds := b.Execute(&snap, &ctx, 1)
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandMoveUnits, cmds[0].Type)
	assert.Equal(t, []ecs.EntityID{2}, cmds[0].Units)
	require.Len(t, cmds[0].Targets, 1)
	assert.InDelta(t, 15, cmds[0].Targets[0].X, 1e-9)
	assert.InDelta(t, 20, cmds[0].Targets[0].Z, 1e-9)
}

func TestDefendAttacksThreat(t *testing.T) {
	snap := Snapshot{
		Friendlies: []EntitySnapshot{
			{ID: 1, SpawnType: components.SpawnBarracks, IsBuilding: true},
			{ID: 2, SpawnType: components.SpawnKnight, Health: 100, MaxHealth: 100, X: -20},
			{ID: 3, SpawnType: components.SpawnKnight, Health: 100, MaxHealth: 100, X: -25},
		},
		VisibleEnemies: []ContactSnapshot{{ID: 9, SpawnType: components.SpawnArcher, X: 30, Health: 80, MaxHealth: 80}},
	}
	ctx := NewContext(2, 50)
	UpdateContext(&snap, &ctx)
	require.True(t, ctx.BarracksUnderThreat)

	b := &DefendBehavior{}
	require.True(t, b.ShouldExecute(&snap, &ctx))
	cmds := b.Execute(&snap, &ctx, 0.5)
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandAttackTarget, cmds[0].Type)
	assert.Equal(t, ecs.EntityID(9), cmds[0].TargetID)
	assert.True(t, cmds[0].ShouldChase)
	assert.ElementsMatch(t, []ecs.EntityID{2, 3}, cmds[0].Units)
}

func TestCommandFilter(t *testing.T) {
	f := NewCommandFilter(2)
	move := Command{Type: CommandMoveUnits, Units: []ecs.EntityID{1}, Targets: []Target{{X: 10, Z: 10}}}
	attack := Command{Type: CommandAttackTarget, Units: []ecs.EntityID{1}, TargetID: 5}
	prod := Command{Type: CommandStartProduction, BuildingID: 3}

	assert.Len(t, f.Filter([]Command{move, attack, prod}, 0), 3)

	nearby := move
	nearby.Targets = []Target{{X: 11, Z: 10}}
	assert.Equal(t, []Command{prod}, f.Filter([]Command{nearby, attack, prod}, 1))

	far := move
	far.Targets = []Target{{X: 30, Z: 10}}
	assert.Len(t, f.Filter([]Command{far}, 1), 1)

	assert.Len(t, f.Filter([]Command{attack}, 3.5), 1)
}

func TestApplierFiltersForeignUnits(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	mine := spawn(w, components.SpawnKnight, 2, 0, 0, true)
	theirs := spawn(w, components.SpawnKnight, 1, 5, 0, false)
	target := spawn(w, components.SpawnArcher, 1, 3, 0, false)

	a := NewApplier(nil, nil, log.NewNop())
	a.Apply(w, 2, []Command{
		{Type: CommandAttackTarget, Units: []ecs.EntityID{mine.ID(), theirs.ID()}, TargetID: target.ID()},
		{Type: CommandMoveUnits, Units: []ecs.EntityID{theirs.ID()}, Targets: []Target{{X: 50, Z: 50}}},
	})

	require.True(t, ecs.Has[components.AttackTarget](mine))
	assert.Equal(t, target.ID(), ecs.Get[components.AttackTarget](mine).TargetID)
	assert.False(t, ecs.Has[components.AttackTarget](theirs))
	assert.False(t, ecs.Get[components.Movement](theirs).HasTarget)
}

func newSystem(worker *Worker) (*ecs.World, *System, *ecs.Entity) {
	w := ecs.NewWorld(nil, log.NewNop())
	barracks := spawn(w, components.SpawnBarracks, 2, 0, 0, true)
	spawn(w, components.SpawnBarracks, 1, 200, 0, false)

	rules := gameplay.NewRules(nil, nil)
	catalog := registry.NewTroopCatalog(
		registry.TroopClass{SpawnType: components.SpawnArcher, IndividualsPerUnit: 1, BuildTime: 2},
		registry.TroopClass{SpawnType: components.SpawnKnight, IndividualsPerUnit: 1, BuildTime: 3},
	)
	svc := production.NewService(catalog, nil, 50)
	s := New(rules, NewApplier(nil, svc, log.NewNop()), worker, Options{MaxTroopsPerPlayer: 50}, log.NewNop())
	s.AddFaction(2)
	return w, s, barracks
}

func TestSystemInlineStartsProduction(t *testing.T) {
	w, s, barracks := newSystem(nil)
	assert.Same(t, s.Faction(2), s.AddFaction(2))

	s.Update(w, 0.1)
	assert.False(t, ecs.Get[components.Production](barracks).InProgress)

	s.Update(w, 2)
	prod := ecs.Get[components.Production](barracks)
	assert.True(t, prod.InProgress)
	assert.Equal(t, components.SpawnArcher, prod.ProductType)

	ctx := s.Faction(2).Context()
	assert.Equal(t, barracks.ID(), ctx.PrimaryBarracks)
	assert.False(t, s.Faction(2).Processing())
}

func TestSystemThreadedAppliesLater(t *testing.T) {
	worker := NewWorker(log.NewNop())
	w, s, barracks := newSystem(worker)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	require.Eventually(t, worker.Running, time.Second, time.Millisecond)

	s.Update(w, 2)
	assert.False(t, ecs.Get[components.Production](barracks).InProgress, "results apply on a later step")

	faction := s.Faction(2)
	require.Eventually(t, func() bool { return !faction.Processing() }, time.Second, time.Millisecond)

	s.Update(w, 0)
	assert.True(t, ecs.Get[components.Production](barracks).InProgress)
}

func TestStoppedWorkerReleasesBufferedFactions(t *testing.T) {
	worker := NewWorker(log.NewNop())
	w, s, barracks := newSystem(worker)
	faction := s.Faction(2)

	worker.running.Store(true)
	s.Update(w, 2)
	require.True(t, faction.Processing())
	require.Len(t, worker.jobs, 1)
	worker.running.Store(false)

	s.Update(w, 0.1)
	assert.Empty(t, worker.jobs)
	assert.False(t, faction.Processing())

	s.Update(w, 2)
	assert.True(t, ecs.Get[components.Production](barracks).InProgress, "inline evaluation resumes")
}

func TestWorkerRunDropsQueueOnCancel(t *testing.T) {
	worker := NewWorker(log.NewNop())
	_, s, _ := newSystem(worker)
	faction := s.Faction(2)
	faction.processing.Store(true)
	require.True(t, worker.Submit(faction, Job{Context: faction.Context()}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, worker.Run(ctx))
	assert.False(t, faction.Processing())
	assert.Empty(t, worker.jobs)
}
