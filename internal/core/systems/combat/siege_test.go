package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
)

type recordingSpawner struct {
	arrows, bolts, stones []projectile.Spawn
}

func (r *recordingSpawner) SpawnArrow(sp projectile.Spawn) *projectile.Projectile {
	r.arrows = append(r.arrows, sp)
	return nil
}

func (r *recordingSpawner) SpawnBolt(sp projectile.Spawn) *projectile.Projectile {
	r.bolts = append(r.bolts, sp)
	return nil
}

func (r *recordingSpawner) SpawnStone(sp projectile.Spawn) *projectile.Projectile {
	r.stones = append(r.stones, sp)
	return nil
}

func siegeUnit(w *ecs.World, kind components.SpawnType, targetID ecs.EntityID) *ecs.Entity {
	e := spawn(w, kind, 1, 0, 0)
	ecs.Add(e, components.NewAttack(18, 60, 4))
	ecs.Add(e, components.Movement{})
	ecs.Add(e, components.AttackTarget{TargetID: targetID})
	return e
}

func TestCatapultFiresOncePerCycle(t *testing.T) {
	w := newWorld()
	rec := &recordingSpawner{}
	sys := NewCatapult(SiegeConfig{LoadDuration: 1, FiringDuration: 0.5}, rec, log.NewNop())

	target := spawn(w, components.SpawnKnight, 2, 10, 0)
	cat := siegeUnit(w, components.SpawnCatapult, target.ID())

	sys.Update(w, 0.25)
	loading := ecs.Get[components.CatapultLoading](cat)
	require.NotNil(t, loading)
	assert.Equal(t, components.LoadingLoading, loading.State)
	assert.True(t, loading.TargetLocked)

	for range 4 {
		sys.Update(w, 0.25)
	}
	assert.Equal(t, components.LoadingReadyToFire, loading.State)
	assert.Empty(t, rec.stones)

	sys.Update(w, 0.25)
	assert.Equal(t, components.LoadingFiring, loading.State)
	require.Len(t, rec.stones, 1)

	sys.Update(w, 0.25)
	sys.Update(w, 0.25)
	assert.Equal(t, components.LoadingIdle, loading.State)
	assert.Len(t, rec.stones, 1, "a cycle fires exactly once")
	assert.Zero(t, ecs.Get[components.Attack](cat).TimeSinceLast)

	stone := rec.stones[0]
	assert.Equal(t, 60, stone.Damage)
	assert.Equal(t, target.ID(), stone.TargetID)
	assert.Equal(t, cat.ID(), stone.AttackerID)
	assert.Equal(t, 1.5, stone.Start.Y)
	assert.Empty(t, rec.bolts)
}

func TestSiegeShootsAtLockedPosition(t *testing.T) {
	w := newWorld()
	rec := &recordingSpawner{}
	sys := NewBallista(SiegeConfig{LoadDuration: 0.5}, rec, log.NewNop())

	target := spawn(w, components.SpawnKnight, 2, 10, 0)
	siegeUnit(w, components.SpawnBallista, target.ID())

	sys.Update(w, 0.25)
	ecs.Get[components.Transform](target).Position.X = 14

	for range 4 {
		sys.Update(w, 0.25)
	}
	require.Len(t, rec.bolts, 1)
	bolt := rec.bolts[0]
	assert.Equal(t, 10.0, bolt.End.X)
	assert.Equal(t, bolt.End, bolt.Impact)
	assert.Equal(t, 1.0, bolt.Start.Y)
	assert.Empty(t, rec.stones)
}

func TestSiegeMovementCancelsLoading(t *testing.T) {
	w := newWorld()
	rec := &recordingSpawner{}
	sys := NewCatapult(SiegeConfig{LoadDuration: 1}, rec, log.NewNop())

	target := spawn(w, components.SpawnKnight, 2, 10, 0)
	cat := siegeUnit(w, components.SpawnCatapult, target.ID())
	mv := ecs.Get[components.Movement](cat)

	sys.Update(w, 0.25)
	sys.Update(w, 0.25)
	loading := ecs.Get[components.CatapultLoading](cat)
	assert.Equal(t, 0.25, loading.LoadingTime)

	mv.VX = 1
	for range 20 {
		sys.Update(w, 0.25)
		assert.Zero(t, loading.LoadingTime)
	}
	assert.Empty(t, rec.stones)
}

func TestSiegeOutOfRangeStaysIdle(t *testing.T) {
	w := newWorld()
	rec := &recordingSpawner{}
	sys := NewCatapult(SiegeConfig{}, rec, log.NewNop())

	target := spawn(w, components.SpawnKnight, 2, 40, 0)
	cat := siegeUnit(w, components.SpawnCatapult, target.ID())

	sys.Update(w, 0.25)
	loading := ecs.Get[components.CatapultLoading](cat)
	assert.Equal(t, components.LoadingIdle, loading.State)
	assert.Equal(t, components.DefaultCatapultLoad, loading.LoadingDuration)
	assert.Equal(t, components.DefaultSiegeFiring, loading.FiringDuration)
}

func TestSiegeWithoutSpawnerResets(t *testing.T) {
	w := newWorld()
	sys := NewCatapult(SiegeConfig{LoadDuration: 0.25}, nil, log.NewNop())

	target := spawn(w, components.SpawnKnight, 2, 10, 0)
	cat := siegeUnit(w, components.SpawnCatapult, target.ID())

	sys.Update(w, 0.25)
	sys.Update(w, 0.25)
	loading := ecs.Get[components.CatapultLoading](cat)
	assert.Equal(t, components.LoadingReadyToFire, loading.State)

	sys.Update(w, 0.25)
	assert.Equal(t, components.LoadingIdle, loading.State)
	assert.False(t, loading.TargetLocked)
	assert.Equal(t, 100, ecs.Get[components.Unit](target).Health)
}
