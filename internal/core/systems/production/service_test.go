package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

func TestServiceStartProduction(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	svc := NewService(singleCatalog(), nil, 0)

	archer := w.CreateEntity()
	ecs.Add(archer, components.NewUnit(components.SpawnArcher, 1))
	b := barracks(w, 1, components.NewProduction())
	selected := []ecs.EntityID{archer.ID(), b.ID()}

	assert.Equal(t, Success, svc.StartProductionForFirstSelected(w, selected, 1, components.SpawnKnight))
	prod := ecs.Get[components.Production](b)
	assert.True(t, prod.InProgress)
	assert.Equal(t, components.SpawnKnight, prod.ProductType)
	assert.Equal(t, 3.0, prod.TimeRemaining)

	assert.Equal(t, AlreadyInProgress, svc.StartProductionForFirstSelected(w, selected, 1, components.SpawnArcher))
	assert.Equal(t, NoBarracks, svc.StartProductionForFirstSelected(w, selected, 2, components.SpawnArcher))
	assert.Equal(t, NoBarracks, svc.StartProductionForFirstSelected(w, []ecs.EntityID{archer.ID()}, 1, components.SpawnArcher))
}

func TestServiceLimits(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())

	full := components.NewProduction()
	full.ProducedCount = full.MaxUnits
	b := barracks(w, 1, full)
	selected := []ecs.EntityID{b.ID()}

	svc := NewService(singleCatalog(), nil, 0)
	assert.Equal(t, PerBarracksLimitReached, svc.StartProductionForFirstSelected(w, selected, 1, components.SpawnArcher))

	other := barracks(w, 1, components.NewProduction())
	capped := NewService(singleCatalog(), fixedCount(50), 50)
	assert.Equal(t, GlobalTroopLimitReached, capped.StartProductionForFirstSelected(w, []ecs.EntityID{other.ID()}, 1, components.SpawnArcher))
	assert.False(t, ecs.Get[components.Production](other).InProgress)
}

func TestServiceEnqueue(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	svc := NewService(singleCatalog(), nil, 0)
	b := barracks(w, 1, components.NewProduction())
	selected := []ecs.EntityID{b.ID()}

	assert.Equal(t, Success, svc.EnqueueProduction(w, selected, 1, components.SpawnArcher))
	prod := ecs.Get[components.Production](b)
	require.True(t, prod.InProgress)
	assert.Empty(t, prod.Queue)

	for range MaxQueueLength {
		assert.Equal(t, Success, svc.EnqueueProduction(w, selected, 1, components.SpawnKnight))
	}
	assert.Equal(t, QueueFull, svc.EnqueueProduction(w, selected, 1, components.SpawnKnight))
	assert.Len(t, prod.Queue, MaxQueueLength)
}

func TestServiceRallyAndState(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	svc := NewService(singleCatalog(), nil, 0)

	_, ok := svc.SelectedBarracksState(w, nil, 1)
	assert.False(t, ok)
	assert.False(t, svc.SetRallyForFirstSelected(w, nil, 1, 1, 1))

	b := barracks(w, 1, components.NewProduction())
	selected := []ecs.EntityID{b.ID()}
	require.True(t, svc.SetRallyForFirstSelected(w, selected, 1, 7, 8))
	require.Equal(t, Success, svc.EnqueueProduction(w, selected, 1, components.SpawnArcher))

	prod := ecs.Get[components.Production](b)
	assert.True(t, prod.RallySet)
	assert.Equal(t, 7.0, prod.RallyX)
	assert.Equal(t, 8.0, prod.RallyZ)

	st, ok := svc.SelectedBarracksState(w, selected, 1)
	require.True(t, ok)
	assert.True(t, st.HasBarracks)
	assert.True(t, st.InProgress)
	assert.Equal(t, components.SpawnArcher, st.ProductType)
	assert.Equal(t, 2.0, st.BuildTime)
	assert.Equal(t, components.DefaultMaxUnits, st.MaxUnits)
	assert.Equal(t, 1, st.VillagerCost)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "queue_full", QueueFull.String())
	assert.Equal(t, "unknown", Result(99).String())
}
