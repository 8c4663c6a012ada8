package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/units"
)

type fixedCount int

func (c fixedCount) Count(int) int { return int(c) }

func singleCatalog() *registry.TroopCatalog {
	return registry.NewTroopCatalog(
		registry.TroopClass{SpawnType: components.SpawnArcher, IndividualsPerUnit: 1, BuildTime: 2, Health: 50, Speed: 3},
		registry.TroopClass{SpawnType: components.SpawnKnight, IndividualsPerUnit: 1, BuildTime: 3, Health: 90, Speed: 2},
	)
}

func barracks(w *ecs.World, owner int, prod components.Production) *ecs.Entity {
	e := w.CreateEntity()
	ecs.Add(e, components.NewTransform(0, 0, 0))
	ecs.Add(e, components.NewUnit(components.SpawnBarracks, owner))
	ecs.Add(e, components.Building{})
	ecs.Add(e, prod)
	return e
}

func troops(w *ecs.World, spawn components.SpawnType) []*ecs.Entity {
	return ecs.With[components.Unit](w).Filter(func(e *ecs.Entity) bool {
		return ecs.Get[components.Unit](e).SpawnType == spawn
	}).Collect()
}

func TestProductionSpawnsOneUnit(t *testing.T) {
	w := ecs.NewWorld(bus.New(), log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, nil, nil, 0, log.NewNop())

	b := barracks(w, 1, components.Production{
		InProgress:    true,
		BuildTime:     2,
		TimeRemaining: 0.1,
		MaxUnits:      3,
		ProductType:   components.SpawnArcher,
	})

	s.Update(w, 0.2)

	spawned := troops(w, components.SpawnArcher)
	require.Len(t, spawned, 1)
	assert.Equal(t, 1, ecs.Get[components.Unit](spawned[0]).OwnerID)

	prod := ecs.Get[components.Production](b)
	assert.Equal(t, 1, prod.ProducedCount)
	assert.False(t, prod.InProgress)
	assert.Equal(t, 0.0, prod.TimeRemaining)

	// the run does not repeat
	s.Update(w, 5)
	assert.Len(t, troops(w, components.SpawnArcher), 1)
}

func TestProductionSpawnOffsetAndRally(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, nil, nil, 0, log.NewNop())

	barracks(w, 1, components.Production{
		InProgress:    true,
		TimeRemaining: 0.1,
		MaxUnits:      5,
		ProductType:   components.SpawnArcher,
		RallySet:      true,
		RallyX:        10,
		RallyZ:        -4,
	})
	s.Update(w, 0.5)

	spawned := troops(w, components.SpawnArcher)
	require.Len(t, spawned, 1)
	pos := ecs.Get[components.Transform](spawned[0]).Position
	assert.InDelta(t, 2.5, pos.X, 1e-9)
	assert.InDelta(t, 0.0, pos.Z, 1e-9)

	mv := ecs.Get[components.Movement](spawned[0])
	require.NotNil(t, mv)
	assert.True(t, mv.HasTarget)
	assert.Equal(t, 10.0, mv.TargetX)
	assert.Equal(t, -4.0, mv.TargetZ)
}

func TestProductionPerBarracksLimit(t *testing.T) {
	w := ecs.NewWorld(bus.New(), log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, nil, nil, 0, log.NewNop())

	var blocked []events.ProductionBlocked
	bus.Subscribe(w.Events(), func(ev events.ProductionBlocked) { blocked = append(blocked, ev) })

	b := barracks(w, 1, components.Production{
		InProgress:    true,
		TimeRemaining: 1,
		ProducedCount: 3,
		MaxUnits:      3,
		ProductType:   components.SpawnArcher,
	})
	s.Update(w, 2)

	assert.Empty(t, troops(w, components.SpawnArcher))
	assert.False(t, ecs.Get[components.Production](b).InProgress)
	require.Len(t, blocked, 1)
	assert.Equal(t, events.BlockPerBarracksLimit, blocked[0].Reason)
	assert.Equal(t, b.ID(), blocked[0].BarracksID)
	assert.Equal(t, 1, blocked[0].OwnerID)
}

func TestProductionGlobalLimit(t *testing.T) {
	w := ecs.NewWorld(bus.New(), log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, fixedCount(50), nil, 50, log.NewNop())

	var blocked []events.ProductionBlocked
	bus.Subscribe(w.Events(), func(ev events.ProductionBlocked) { blocked = append(blocked, ev) })

	b := barracks(w, 1, components.Production{
		InProgress:    true,
		TimeRemaining: 0.1,
		MaxUnits:      10,
		ProductType:   components.SpawnArcher,
	})
	s.Update(w, 0.2)

	assert.Empty(t, troops(w, components.SpawnArcher))
	prod := ecs.Get[components.Production](b)
	assert.False(t, prod.InProgress)
	assert.Equal(t, 0, prod.ProducedCount)
	require.Len(t, blocked, 1)
	assert.Equal(t, events.BlockGlobalTroopLimit, blocked[0].Reason)
}

func TestProductionQueueAdvances(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, nil, nil, 0, log.NewNop())

	b := barracks(w, 1, components.Production{
		InProgress:    true,
		TimeRemaining: 0.1,
		MaxUnits:      5,
		ProductType:   components.SpawnArcher,
		Queue:         []components.SpawnType{components.SpawnKnight},
	})
	s.Update(w, 0.2)

	prod := ecs.Get[components.Production](b)
	assert.True(t, prod.InProgress)
	assert.Equal(t, components.SpawnKnight, prod.ProductType)
	assert.Equal(t, 3.0, prod.TimeRemaining)
	assert.Empty(t, prod.Queue)

	s.Update(w, 3)
	assert.Len(t, troops(w, components.SpawnKnight), 1)
	assert.Equal(t, 2, prod.ProducedCount)
}

func TestProductionSkipsNeutral(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, nil, nil, 0, log.NewNop())

	b := barracks(w, components.NeutralOwner, components.Production{
		InProgress:    true,
		TimeRemaining: 0.1,
		MaxUnits:      5,
		ProductType:   components.SpawnArcher,
	})
	s.Update(w, 1)

	assert.Empty(t, troops(w, components.SpawnArcher))
	assert.Equal(t, 0.1, ecs.Get[components.Production](b).TimeRemaining)
}

func TestProductionInheritsAIControl(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	factory := units.NewRegistry(singleCatalog(), nil, nil, log.NewNop())
	s := New(factory, nil, nil, 0, log.NewNop())

	b := barracks(w, 2, components.Production{
		InProgress:    true,
		TimeRemaining: 0.1,
		MaxUnits:      5,
		ProductType:   components.SpawnArcher,
	})
	ecs.Add(b, components.AIControlled{})
	s.Update(w, 1)

	spawned := troops(w, components.SpawnArcher)
	require.Len(t, spawned, 1)
	assert.True(t, ecs.Has[components.AIControlled](spawned[0]))
}
