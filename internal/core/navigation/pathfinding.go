package navigation

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/zeusync/ironcore/pkg/generic"
	"github.com/zeusync/ironcore/pkg/sequence"
)

// Point is a grid cell index pair.
type Point struct {
	X, Y int
}

// Pathfinder runs A* over a fixed-size grid. Static obstacles come from
// SetObstacle; building obstacles are rebuilt from the registry whenever it
// changes. FindPath is safe for concurrent callers: each search draws its own
// arena from a pool.
type Pathfinder struct {
	width, height    int
	cellSize         float64
	offsetX, offsetZ float64

	mu        sync.RWMutex
	static    []uint8
	obstacles []uint8

	registry     *BuildingRegistry
	builtVersion uint64
	dirty        atomic.Bool

	arenas *generic.Pool[*arena]
}

func NewPathfinder(width, height int, registry *BuildingRegistry) *Pathfinder {
	width, height = max(width, 1), max(height, 1)
	cells := width * height
	p := &Pathfinder{
		width:     width,
		height:    height,
		cellSize:  1,
		static:    make([]uint8, cells),
		obstacles: make([]uint8, cells),
		registry:  registry,
	}
	p.arenas = generic.NewHotPool(func() *arena { return newArena(cells) }, 1).
		WithReset(func(a *arena) { a.open.Reset() })
	p.dirty.Store(true)
	return p
}

func (p *Pathfinder) Width() int  { return p.width }
func (p *Pathfinder) Height() int { return p.height }

// SetGridOffset sets the world position of cell (0, 0).
func (p *Pathfinder) SetGridOffset(x, z float64) {
	p.mu.Lock()
	p.offsetX, p.offsetZ = x, z
	p.mu.Unlock()
	p.MarkObstaclesDirty()
}

// WorldToGrid maps a world position to the nearest cell.
func (p *Pathfinder) WorldToGrid(x, z float64) Point {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Point{X: int(math.Round(x - p.offsetX)), Y: int(math.Round(z - p.offsetZ))}
}

// GridToWorld maps a cell back to its world position.
func (p *Pathfinder) GridToWorld(pt Point) (x, z float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return float64(pt.X) + p.offsetX, float64(pt.Y) + p.offsetZ
}

func (p *Pathfinder) inBounds(x, y int) bool {
	return x >= 0 && x < p.width && y >= 0 && y < p.height
}

// SetObstacle marks a static (terrain) obstacle. Out-of-range cells are ignored.
func (p *Pathfinder) SetObstacle(x, y int, blocked bool) {
	if !p.inBounds(x, y) {
		return
	}
	var v uint8
	if blocked {
		v = 1
	}
	p.mu.Lock()
	p.static[y*p.width+x] = v
	p.obstacles[y*p.width+x] = v
	p.mu.Unlock()
	p.MarkObstaclesDirty()
}

// IsWalkable reports whether the cell is inside the grid and free.
func (p *Pathfinder) IsWalkable(x, y int) bool {
	p.refreshObstacles()
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.walkableLocked(x, y)
}

func (p *Pathfinder) walkableLocked(x, y int) bool {
	return p.inBounds(x, y) && p.obstacles[y*p.width+x] == 0
}

// MarkObstaclesDirty forces a rebuild before the next search.
func (p *Pathfinder) MarkObstaclesDirty() {
	p.dirty.Store(true)
}

func (p *Pathfinder) stale() bool {
	if p.dirty.Load() {
		return true
	}
	return p.registry != nil && p.registry.Version() != p.builtVersionLoad()
}

func (p *Pathfinder) builtVersionLoad() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.builtVersion
}

func (p *Pathfinder) refreshObstacles() {
	if !p.stale() {
		return
	}
	var (
		version   uint64
		footprint []Footprint
	)
	if p.registry != nil {
		version = p.registry.Version()
		footprint = p.registry.Buildings()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirty.Store(false)
	copy(p.obstacles, p.static)
	for _, f := range footprint {
		for _, c := range p.registry.OccupiedGridCells(f, p.cellSize) {
			gx := int(math.Round(float64(c.X) - p.offsetX))
			gz := int(math.Round(float64(c.Z) - p.offsetZ))
			if p.inBounds(gx, gz) {
				p.obstacles[gz*p.width+gx] = 1
			}
		}
	}
	p.builtVersion = version
}

// FindPath returns the cells from start to end inclusive. The result is empty
// when either endpoint is blocked or no route exists, and {start} when the
// endpoints coincide.
func (p *Pathfinder) FindPath(start, end Point) []Point {
	p.refreshObstacles()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.walkableLocked(start.X, start.Y) || !p.walkableLocked(end.X, end.Y) {
		return nil
	}
	startIdx, endIdx := p.index(start), p.index(end)
	if startIdx == endIdx {
		return []Point{start}
	}

	a := p.arenas.Get()
	defer p.arenas.Put(a)
	return p.search(a, start, end, startIdx, endIdx)
}

func (p *Pathfinder) index(pt Point) int  { return pt.Y*p.width + pt.X }
func (p *Pathfinder) point(idx int) Point { return Point{X: idx % p.width, Y: idx / p.width} }

func heuristic(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// openPriority orders by f first and breaks ties on the lower g.
func openPriority(f, g int) int {
	return f<<32 | g
}

type openNode struct {
	index int
	g     int
}

func (p *Pathfinder) search(a *arena, start, end Point, startIdx, endIdx int) []Point {
	gen := a.next()
	open := a.open

	a.setG(startIdx, gen, 0)
	a.setParent(startIdx, gen, startIdx)
	a.push(startIdx, gen, openNode{index: startIdx}, openPriority(heuristic(start, end), 0))

	maxIterations := max(p.width*p.height, 1)
	finalCost := -1
	var neighbours [8]Point

	for iterations := 0; !open.IsEmpty() && iterations < maxIterations; iterations++ {
		current, _ := open.Dequeue()
		if a.closed(current.index, gen) {
			continue
		}
		a.setClosed(current.index, gen)
		if current.index == endIdx {
			finalCost = current.g
			break
		}

		cur := p.point(current.index)
		n := p.collectNeighbours(cur, &neighbours)
		for _, nb := range neighbours[:n] {
			if !p.walkableLocked(nb.X, nb.Y) {
				continue
			}
			nIdx := p.index(nb)
			if a.closed(nIdx, gen) {
				continue
			}
			tentative := current.g + 1
			if tentative >= a.g(nIdx, gen) {
				continue
			}
			a.setG(nIdx, gen, tentative)
			a.setParent(nIdx, gen, current.index)
			a.push(nIdx, gen, openNode{index: nIdx, g: tentative}, openPriority(tentative+heuristic(nb, end), tentative))
		}
	}

	if finalCost < 0 {
		return nil
	}
	return p.buildPath(a, gen, startIdx, endIdx, finalCost+1)
}

// collectNeighbours fills buf with in-grid 8-neighbours. Diagonals are
// dropped when either orthogonal side is blocked.
func (p *Pathfinder) collectNeighbours(pt Point, buf *[8]Point) int {
	n := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			x, y := pt.X+dx, pt.Y+dy
			if !p.inBounds(x, y) {
				continue
			}
			if dx != 0 && dy != 0 && (!p.walkableLocked(pt.X+dx, pt.Y) || !p.walkableLocked(pt.X, pt.Y+dy)) {
				continue
			}
			buf[n] = Point{X: x, Y: y}
			n++
		}
	}
	return n
}

func (p *Pathfinder) buildPath(a *arena, gen uint32, startIdx, endIdx, expected int) []Point {
	path := make([]Point, 0, expected)
	for current := endIdx; current >= 0; {
		path = append(path, p.point(current))
		if current == startIdx {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		parent, ok := a.parent(current, gen)
		if !ok || parent == current {
			return nil
		}
		current = parent
	}
	return nil
}

// arena holds per-cell search state. A generation stamp marks which entries
// belong to the current search so nothing is cleared between calls.
type arena struct {
	generation uint32
	closedGen  []uint32
	gGen       []uint32
	gVal       []int32
	parentGen  []uint32
	parentVal  []int32
	handleGen  []uint32
	handles    []*sequence.PriorityItem[openNode]
	open       *sequence.PriorityQueue[openNode]
}

func newArena(cells int) *arena {
	return &arena{
		closedGen: make([]uint32, cells),
		gGen:      make([]uint32, cells),
		gVal:      make([]int32, cells),
		parentGen: make([]uint32, cells),
		parentVal: make([]int32, cells),
		handleGen: make([]uint32, cells),
		handles:   make([]*sequence.PriorityItem[openNode], cells),
		open:      sequence.NewPriorityQueue[openNode](),
	}
}

func (a *arena) next() uint32 {
	a.generation++
	if a.generation == 0 {
		clear(a.closedGen)
		clear(a.gGen)
		clear(a.parentGen)
		clear(a.handleGen)
		a.generation = 1
	}
	return a.generation
}

// push queues cell i, or lowers its priority in place when it is already
// open in this search.
func (a *arena) push(i int, gen uint32, node openNode, priority int) {
	if a.handleGen[i] == gen && a.open.Update(a.handles[i], node, priority) {
		return
	}
	a.handleGen[i] = gen
	a.handles[i] = a.open.Enqueue(node, priority)
}

func (a *arena) closed(i int, gen uint32) bool { return a.closedGen[i] == gen }
func (a *arena) setClosed(i int, gen uint32)   { a.closedGen[i] = gen }

func (a *arena) g(i int, gen uint32) int {
	if a.gGen[i] == gen {
		return int(a.gVal[i])
	}
	return math.MaxInt32
}

func (a *arena) setG(i int, gen uint32, v int) {
	a.gGen[i] = gen
	a.gVal[i] = int32(v)
}

func (a *arena) parent(i int, gen uint32) (int, bool) {
	if a.parentGen[i] == gen {
		return int(a.parentVal[i]), true
	}
	return -1, false
}

func (a *arena) setParent(i int, gen uint32, parent int) {
	a.parentGen[i] = gen
	a.parentVal[i] = int32(parent)
}
