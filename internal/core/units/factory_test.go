package units

import (
	"errors"
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

func TestCreateArcher(t *testing.T) {
	w := ecs.NewWorld(bus.New(), log.NewNop())
	r := NewRegistry(nil, nil, nil, log.NewNop())

	var spawned []events.UnitSpawned
	bus.Subscribe(w.Events(), func(ev events.UnitSpawned) { spawned = append(spawned, ev) })

	e, err := r.Create(components.SpawnArcher, w, Params{X: 3, Z: 4, PlayerID: 2, AIControlled: true})
	require.NoError(t, err)

	u := ecs.Get[components.Unit](e)
	require.NotNil(t, u)
	assert.Equal(t, 80, u.Health)
	assert.Equal(t, 80, u.MaxHealth)
	assert.Equal(t, 2, u.OwnerID)
	assert.Equal(t, 3.0, ecs.Get[components.Transform](e).Position.X)
	assert.True(t, ecs.Has[components.Movement](e))
	assert.True(t, ecs.Has[components.AIControlled](e))

	atk := ecs.Get[components.Attack](e)
	require.NotNil(t, atk)
	assert.True(t, atk.CanRanged)
	assert.True(t, atk.CanMelee)
	assert.Equal(t, 6.0, atk.Range)
	assert.Equal(t, components.ModeAuto, atk.PreferredMode)

	assert.Equal(t, []events.UnitSpawned{{UnitID: e.ID(), OwnerID: 2, UnitType: "archer"}}, spawned)
}

func TestCreateSpecialists(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	r := NewRegistry(nil, nil, nil, log.NewNop())

	healer, err := r.Create(components.SpawnHealer, w, Params{PlayerID: 1})
	require.NoError(t, err)
	assert.True(t, ecs.Has[components.Healer](healer))

	elephant, err := r.Create(components.SpawnElephant, w, Params{PlayerID: 1})
	require.NoError(t, err)
	assert.True(t, ecs.Has[components.Elephant](elephant))
	assert.Equal(t, components.ModeMelee, ecs.Get[components.Attack](elephant).PreferredMode)

	cat, err := r.Create(components.SpawnCatapult, w, Params{PlayerID: 1})
	require.NoError(t, err)
	assert.Equal(t, components.ModeRanged, ecs.Get[components.Attack](cat).PreferredMode)

	builder, err := r.Create(components.SpawnBuilder, w, Params{PlayerID: 1})
	require.NoError(t, err)
	assert.True(t, ecs.Has[components.BuilderProduction](builder))
}

func TestCreateBarracks(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	buildings := navigation.NewBuildingRegistry()
	owners := registry.NewOwners()
	owners.RegisterWithID(1, registry.OwnerPlayer, "player")
	owners.SetColor(1, 0.1, 0.2, 0.3)
	r := NewRegistry(nil, owners, buildings, log.NewNop())

	b, err := r.Create(components.SpawnBarracks, w, Params{X: 10, Z: 10, PlayerID: 1, MaxPopulation: 20})
	require.NoError(t, err)

	assert.True(t, ecs.Has[components.Building](b))
	assert.True(t, buildings.IsPointInBuilding(11, 11, ecs.NoEntity))
	assert.Equal(t, [3]float64{0.1, 0.2, 0.3}, ecs.Get[components.Renderable](b).Color)

	prod := ecs.Get[components.Production](b)
	require.NotNil(t, prod)
	assert.Equal(t, 20, prod.MaxUnits)
	assert.True(t, prod.RallySet)
	assert.Equal(t, 14.0, prod.RallyX)
	assert.Equal(t, 12.0, prod.RallyZ)
	assert.Equal(t, 5.0, prod.BuildTime)
	assert.Equal(t, 20, prod.VillagerCost)
	assert.Equal(t, 2000, ecs.Get[components.Unit](b).Health)

	neutral, err := r.Create(components.SpawnBarracks, w, Params{X: 30, PlayerID: components.NeutralOwner})
	require.NoError(t, err)
	assert.False(t, ecs.Has[components.Production](neutral))
	assert.True(t, ecs.Has[components.Capture](neutral))
}

func TestCreateHome(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	r := NewRegistry(nil, nil, nil, log.NewNop())

	h, err := r.Create(components.SpawnHome, w, Params{PlayerID: 1})
	require.NoError(t, err)
	assert.True(t, ecs.Has[components.Building](h))
	assert.Equal(t, components.DefaultPopulationAdd, ecs.Get[components.Home](h).PopulationContribution)
}

func TestCreateUnknownAndOverride(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	r := NewRegistry(nil, nil, nil, log.NewNop())

	_, err := r.Create(components.SpawnType(200), w, Params{})
	assert.True(t, errors.Is(err, ErrUnknownSpawnType))

	_, err = r.Create(components.SpawnArcher, nil, Params{})
	assert.ErrorIs(t, err, ErrNilWorld)

	boom := errors.New("boom")
	r.Register(components.SpawnArcher, func(*ecs.World, Params) (*ecs.Entity, error) { return nil, boom })
	_, err = r.Create(components.SpawnArcher, w, Params{})
	assert.ErrorIs(t, err, boom)

	for _, s := range components.SpawnTypes() {
		assert.True(t, r.Has(s), s.String())
	}
}
