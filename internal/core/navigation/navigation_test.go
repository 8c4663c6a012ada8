package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/ironcore/internal/core/ecs"
)

func TestRegistryPointContainment(t *testing.T) {
	r := NewBuildingRegistry()
	r.RegisterBuilding(1, "barracks", 10, 10, 1)
	r.RegisterBuilding(2, "tower", 0, 0, 2)

	assert.True(t, r.IsPointInBuilding(11.9, 8.1, ecs.NoEntity))
	assert.True(t, r.IsPointInBuilding(12, 12, ecs.NoEntity), "edges are inclusive")
	assert.False(t, r.IsPointInBuilding(12.1, 10, ecs.NoEntity))
	assert.False(t, r.IsPointInBuilding(10, 10, 1), "ignored building")
	assert.True(t, r.IsPointInBuilding(0.5, -0.5, 1))

	r.UnregisterBuilding(1)
	assert.False(t, r.IsPointInBuilding(10, 10, ecs.NoEntity))
	assert.True(t, r.IsPointInBuilding(0, 0, ecs.NoEntity))
	r.UnregisterBuilding(1)
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySwapRemoveKeepsIndex(t *testing.T) {
	r := NewBuildingRegistry()
	for i := 1; i <= 4; i++ {
		r.RegisterBuilding(ecs.EntityID(i), "house", float64(i*10), 0, 1)
	}
	r.UnregisterBuilding(2)

	fp, ok := r.Footprint(4)
	require.True(t, ok)
	assert.Equal(t, 40.0, fp.CenterX)

	r.UpdateBuildingPosition(4, 100, 5)
	r.UpdateBuildingOwner(4, 7)
	fp, _ = r.Footprint(4)
	assert.Equal(t, 100.0, fp.CenterX)
	assert.Equal(t, 7, fp.OwnerID)
	assert.True(t, r.IsPointInBuilding(100, 5, ecs.NoEntity))
	assert.False(t, r.IsPointInBuilding(40, 0, ecs.NoEntity))
}

func TestRegisterExistingUpdatesInPlace(t *testing.T) {
	r := NewBuildingRegistry()
	r.RegisterBuilding(1, "barracks", 0, 0, 1)
	v := r.Version()
	r.RegisterBuilding(1, "barracks", 20, 20, 1)
	assert.Equal(t, 1, r.Len())
	assert.Greater(t, r.Version(), v)
	assert.True(t, r.IsPointInBuilding(20, 20, ecs.NoEntity))
}

func TestOccupiedGridCellsRoundOutward(t *testing.T) {
	r := NewBuildingRegistry()
	r.SetGridPadding(0)
	cells := r.OccupiedGridCells(Footprint{CenterX: 0.5, CenterZ: 0.5, Width: 2, Depth: 2}, 1)
	// [-0.5, 1.5] rounds out to [-1, 2)
	assert.Len(t, cells, 9)
	assert.Contains(t, cells, Cell{X: -1, Z: -1})
	assert.Contains(t, cells, Cell{X: 1, Z: 1})

	r.SetGridPadding(DefaultGridPadding)
	cells = r.OccupiedGridCells(Footprint{CenterX: 0, CenterZ: 0, Width: 2, Depth: 2}, 1)
	assert.Len(t, cells, 16)
}

func TestFindPathTrivialCases(t *testing.T) {
	p := NewPathfinder(10, 10, nil)
	assert.Equal(t, []Point{{X: 3, Y: 3}}, p.FindPath(Point{3, 3}, Point{3, 3}))

	p.SetObstacle(5, 5, true)
	assert.Empty(t, p.FindPath(Point{5, 5}, Point{0, 0}))
	assert.Empty(t, p.FindPath(Point{0, 0}, Point{5, 5}))
	assert.Empty(t, p.FindPath(Point{0, 0}, Point{20, 0}))
	assert.False(t, p.IsWalkable(-1, 0))
}

func assertContiguous(t *testing.T, path []Point, start, end Point) {
	t.Helper()
	require.NotEmpty(t, path)
	assert.Equal(t, start, path[0])
	assert.Equal(t, end, path[len(path)-1])
	for i := 1; i < len(path); i++ {
		dx, dy := abs(path[i].X-path[i-1].X), abs(path[i].Y-path[i-1].Y)
		assert.True(t, dx <= 1 && dy <= 1 && dx+dy > 0, "step %d not 8-connected: %v -> %v", i, path[i-1], path[i])
	}
}

func TestFindPathClearGridIsContiguous(t *testing.T) {
	p := NewPathfinder(20, 20, nil)
	path := p.FindPath(Point{0, 0}, Point{15, 7})
	assertContiguous(t, path, Point{0, 0}, Point{15, 7})
	assert.Len(t, path, 16, "diagonal moves keep the step count at max(dx, dy)")
}

func TestFindPathAroundWallWithoutCornerCutting(t *testing.T) {
	p := NewPathfinder(20, 20, nil)
	for y := 0; y < 19; y++ {
		p.SetObstacle(5, y, true)
	}
	path := p.FindPath(Point{0, 0}, Point{9, 0})
	assertContiguous(t, path, Point{0, 0}, Point{9, 0})
	for i, pt := range path {
		assert.True(t, p.IsWalkable(pt.X, pt.Y), "path crosses obstacle at %v", pt)
		if i == 0 {
			continue
		}
		prev := path[i-1]
		if pt.X != prev.X && pt.Y != prev.Y {
			assert.True(t, p.IsWalkable(pt.X, prev.Y) && p.IsWalkable(prev.X, pt.Y), "corner cut at %v", pt)
		}
	}

	p.SetObstacle(5, 19, true)
	assert.Empty(t, p.FindPath(Point{0, 0}, Point{9, 0}), "sealed wall")
}

func TestArenaLowersOpenCellInPlace(t *testing.T) {
	a := newArena(16)
	gen := a.next()

	a.push(5, gen, openNode{index: 5, g: 4}, openPriority(10, 4))
	a.push(5, gen, openNode{index: 5, g: 2}, openPriority(8, 2))
	a.push(6, gen, openNode{index: 6, g: 3}, openPriority(9, 3))
	require.Equal(t, 2, a.open.Len(), "an open cell is updated, not queued twice")

	first, ok := a.open.Dequeue()
	require.True(t, ok)
	assert.Equal(t, openNode{index: 5, g: 2}, first)

	a.push(5, gen, openNode{index: 5, g: 1}, openPriority(7, 1))
	assert.Equal(t, 2, a.open.Len(), "a popped cell is queued again")

	a.open.Reset()
	next := a.next()
	a.push(6, next, openNode{index: 6}, openPriority(1, 0))
	assert.Equal(t, 1, a.open.Len(), "handles from an older search are ignored")
}

func TestPathfinderRebuildsFromRegistry(t *testing.T) {
	r := NewBuildingRegistry()
	r.SetGridPadding(0)
	p := NewPathfinder(20, 20, r)
	assert.True(t, p.IsWalkable(10, 10))

	r.RegisterBuilding(1, "barracks", 10, 10, 1)
	assert.False(t, p.IsWalkable(10, 10))
	assert.Empty(t, p.FindPath(Point{0, 0}, Point{10, 10}))

	r.UnregisterBuilding(1)
	assert.True(t, p.IsWalkable(10, 10))
}

func TestGridOffsetConversion(t *testing.T) {
	p := NewPathfinder(100, 100, nil)
	p.SetGridOffset(-50, -50)
	assert.Equal(t, Point{X: 50, Y: 52}, p.WorldToGrid(0.2, 1.6))
	x, z := p.GridToWorld(Point{X: 60, Y: 40})
	assert.Equal(t, 10.0, x)
	assert.Equal(t, -10.0, z)
}

func TestFindPathConcurrentCallers(t *testing.T) {
	p := NewPathfinder(30, 30, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			end := Point{X: 29, Y: i}
			path := p.FindPath(Point{0, 0}, end)
			assert.Equal(t, end, path[len(path)-1])
		}(i)
	}
	wg.Wait()
}

func TestPathServiceWorker(t *testing.T) {
	svc := NewPathService(NewPathfinder(10, 10, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	id := svc.NextRequestID()
	svc.Submit(id, Point{0, 0}, Point{4, 4})

	var results []PathResult
	require.Eventually(t, func() bool {
		results = append(results, svc.Completed()...)
		return len(results) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, id, results[0].ID)
	assert.Len(t, results[0].Path, 5)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, svc.Running())
}

func TestPathServiceInline(t *testing.T) {
	svc := NewPathService(NewPathfinder(5, 5, nil), nil)
	svc.Submit(7, Point{0, 0}, Point{0, 0})
	svc.Submit(8, Point{0, 0}, Point{9, 9})
	assert.Equal(t, 2, svc.Pending())
	assert.Equal(t, 2, svc.ProcessPending())

	results := svc.Completed()
	require.Len(t, results, 2)
	assert.Equal(t, []Point{{0, 0}}, results[0].Path)
	assert.Empty(t, results[1].Path)
	assert.Empty(t, svc.Completed())
}
