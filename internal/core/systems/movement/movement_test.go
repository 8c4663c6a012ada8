package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

func newUnit(w *ecs.World, x, z, speed float64) *ecs.Entity {
	e := w.CreateEntity()
	ecs.Add(e, components.NewTransform(x, 0, z))
	u := components.NewUnit(components.SpawnKnight, 1)
	u.Speed = speed
	ecs.Add(e, u)
	ecs.Add(e, components.Movement{})
	return e
}

func TestMovementConvergesWithoutOvershoot(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, nil, nil, log.NewNop())
	e := newUnit(w, 0, 0, 2)
	mv := ecs.Get[components.Movement](e)
	mv.HasTarget, mv.TargetX, mv.GoalX = true, 5, 5

	tr := ecs.Get[components.Transform](e)
	for range 400 {
		sys.Update(w, 0.05)
		require.LessOrEqual(t, tr.Position.X, 5.0+1e-9)
	}

	assert.False(t, mv.HasTarget)
	assert.Equal(t, 5.0, tr.Position.X)
	assert.Equal(t, 0.0, tr.Position.Z)
	assert.Zero(t, mv.VX)
	assert.InDelta(t, 90.0, tr.Rotation.Y, 1.0)
}

func TestMovementFollowsPath(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, nil, nil, log.NewNop())
	e := newUnit(w, 0, 0, 3)
	mv := ecs.Get[components.Movement](e)
	mv.Path = []components.Waypoint{{X: 2, Z: 0}, {X: 2, Z: 2}}
	mv.HasTarget, mv.TargetX, mv.TargetZ = true, 2, 0
	mv.GoalX, mv.GoalZ = 2, 2

	for range 600 {
		sys.Update(w, 0.05)
	}

	tr := ecs.Get[components.Transform](e)
	assert.Equal(t, 2.0, tr.Position.X)
	assert.Equal(t, 2.0, tr.Position.Z)
	assert.Empty(t, mv.Path)
	assert.False(t, mv.HasTarget)
}

func TestMovementIdleDamping(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, nil, nil, log.NewNop())
	e := newUnit(w, 0, 0, 2)
	mv := ecs.Get[components.Movement](e)
	mv.VX = 1

	sys.Update(w, 0.1)
	assert.InDelta(t, 0.4, mv.VX, 1e-9)
	sys.Update(w, 0.5)
	assert.Zero(t, mv.VX)
}

func TestMovementHoldModeOnlyTurns(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, nil, nil, log.NewNop())
	e := newUnit(w, 0, 0, 2)
	ecs.Add(e, components.NewHoldMode())
	mv := ecs.Get[components.Movement](e)
	mv.HasTarget, mv.TargetX, mv.VX = true, 10, 1
	tr := ecs.Get[components.Transform](e)
	tr.DesiredYaw, tr.HasDesiredYaw = 90, true

	sys.Update(w, 0.25)
	assert.Equal(t, 0.0, tr.Position.X)
	assert.False(t, mv.HasTarget)
	assert.Zero(t, mv.VX)
	assert.InDelta(t, 45.0, tr.Rotation.Y, 1e-9)

	sys.Update(w, 0.25)
	sys.Update(w, 0.25)
	assert.InDelta(t, 90.0, tr.Rotation.Y, 1e-9)
	assert.False(t, tr.HasDesiredYaw)
}

func TestMovementMeleeLockFreezes(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, nil, nil, log.NewNop())
	e := newUnit(w, 0, 0, 2)
	atk := ecs.Add(e, components.NewAttack(1.5, 10, 1))
	atk.InMeleeLock, atk.MeleeLockTargetID = true, 42
	mv := ecs.Get[components.Movement](e)
	mv.HasTarget, mv.TargetX = true, 10

	sys.Update(w, 0.1)
	assert.Equal(t, 0.0, ecs.Get[components.Transform](e).Position.X)
	assert.False(t, mv.HasTarget)
}

func TestMovementSkipsDeadAndPending(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	sys := New(nil, nil, nil, log.NewNop())
	dead := newUnit(w, 0, 0, 2)
	ecs.Get[components.Unit](dead).Health = 0
	ecs.Get[components.Movement](dead).VX = 1
	pending := newUnit(w, 0, 0, 2)
	ecs.Add(pending, components.PendingRemoval{})
	ecs.Get[components.Movement](pending).VX = 1

	sys.Update(w, 0.1)
	assert.Equal(t, 0.0, ecs.Get[components.Transform](dead).Position.X)
	assert.Equal(t, 0.0, ecs.Get[components.Transform](pending).Position.X)
}

func TestMovementBlockedSegmentStops(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	buildings := navigation.NewBuildingRegistry()
	buildings.RegisterBuilding(99, "barracks", 5, 0, 2)
	sys := New(nil, buildings, nil, log.NewNop())

	e := newUnit(w, 0, 0, 2)
	mv := ecs.Get[components.Movement](e)
	mv.HasTarget, mv.TargetX, mv.GoalX = true, 10, 10

	sys.Update(w, 0.05)
	assert.False(t, mv.HasTarget)
	assert.Zero(t, mv.VX)
}

func TestMovementRepathsAroundBuilding(t *testing.T) {
	w := ecs.NewWorld(nil, log.NewNop())
	buildings := navigation.NewBuildingRegistry()
	buildings.RegisterBuilding(99, "barracks", 5, 0, 2)
	finder := navigation.NewPathfinder(50, 50, buildings)
	finder.SetGridOffset(-25, -25)
	cmds := gameplay.NewCommands(navigation.NewPathService(finder, log.NewNop()))
	sys := New(cmds, buildings, finder, log.NewNop())

	e := newUnit(w, 0, 0, 3)
	mv := ecs.Get[components.Movement](e)
	mv.HasTarget, mv.TargetX, mv.GoalX = true, 10, 10

	sys.Update(w, 0.05)
	assert.True(t, mv.PathPending, "a blocked straight line asks for a path")

	for range 2000 {
		sys.Update(w, 0.05)
	}
	tr := ecs.Get[components.Transform](e)
	assert.InDelta(t, 10.0, tr.Position.X, 1e-6)
	assert.InDelta(t, 0.0, tr.Position.Z, 1e-6)
	assert.False(t, buildings.IsPointInBuilding(tr.Position.X, tr.Position.Z, ecs.NoEntity))
}
