package navigation

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kamstrup/intmap"

	"github.com/zeusync/ironcore/internal/core/ecs"
)

// DefaultGridPadding is added around every footprint when blocking grid cells.
const DefaultGridPadding = 0.1

// Footprint is the ground rectangle a building occupies.
type Footprint struct {
	CenterX, CenterZ float64
	Width, Depth     float64
	OwnerID          int
	EntityID         ecs.EntityID
	BuildingType     string
}

// Bounds returns the inclusive AABB of the footprint.
func (f Footprint) Bounds() (minX, maxX, minZ, maxZ float64) {
	hw, hd := f.Width/2, f.Depth/2
	return f.CenterX - hw, f.CenterX + hw, f.CenterZ - hd, f.CenterZ + hd
}

// Contains reports whether (x, z) lies inside or on the edge of f.
func (f Footprint) Contains(x, z float64) bool {
	minX, maxX, minZ, maxZ := f.Bounds()
	return x >= minX && x <= maxX && z >= minZ && z <= maxZ
}

// Cell is a pathfinding grid coordinate in world-aligned cell units.
type Cell struct {
	X, Z int
}

type buildingSize struct {
	width, depth float64
}

var buildingSizes = map[string]buildingSize{
	"barracks": {4, 4},
}

// BuildingSize returns the footprint dimensions for a building type.
func BuildingSize(buildingType string) (width, depth float64) {
	if s, ok := buildingSizes[buildingType]; ok {
		return s.width, s.depth
	}
	return 2, 2
}

// BuildingRegistry stores building footprints densely with an ID index and
// swap-with-last removal. Every mutation bumps Version so pathfinders can
// tell their obstacle grid is stale.
type BuildingRegistry struct {
	mu        sync.RWMutex
	buildings []Footprint
	index     *intmap.Map[ecs.EntityID, int]
	padding   float64
	version   atomic.Uint64
}

func NewBuildingRegistry() *BuildingRegistry {
	return &BuildingRegistry{
		index:   intmap.New[ecs.EntityID, int](64),
		padding: DefaultGridPadding,
	}
}

// Version changes whenever the set of blocked cells may have changed.
func (r *BuildingRegistry) Version() uint64 {
	return r.version.Load()
}

func (r *BuildingRegistry) markDirty() {
	r.version.Add(1)
}

// RegisterBuilding inserts a footprint. An already registered ID is moved to
// the new center instead of being duplicated.
func (r *BuildingRegistry) RegisterBuilding(id ecs.EntityID, buildingType string, x, z float64, owner int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.markDirty()

	if idx, ok := r.index.Get(id); ok {
		r.buildings[idx].CenterX = x
		r.buildings[idx].CenterZ = z
		return
	}
	w, d := BuildingSize(buildingType)
	r.buildings = append(r.buildings, Footprint{
		CenterX: x, CenterZ: z, Width: w, Depth: d,
		OwnerID: owner, EntityID: id, BuildingType: buildingType,
	})
	r.index.Put(id, len(r.buildings)-1)
}

// UnregisterBuilding removes the footprint for id. Unknown IDs are ignored.
func (r *BuildingRegistry) UnregisterBuilding(id ecs.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.index.Get(id)
	if !ok {
		return
	}
	last := len(r.buildings) - 1
	if idx != last {
		r.buildings[idx] = r.buildings[last]
		r.index.Put(r.buildings[idx].EntityID, idx)
	}
	r.buildings = r.buildings[:last]
	r.index.Del(id)
	r.markDirty()
}

func (r *BuildingRegistry) UpdateBuildingPosition(id ecs.EntityID, x, z float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index.Get(id); ok {
		r.buildings[idx].CenterX = x
		r.buildings[idx].CenterZ = z
		r.markDirty()
	}
}

func (r *BuildingRegistry) UpdateBuildingOwner(id ecs.EntityID, owner int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index.Get(id); ok {
		r.buildings[idx].OwnerID = owner
	}
}

// Footprint returns the footprint registered for id.
func (r *BuildingRegistry) Footprint(id ecs.EntityID) (Footprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx, ok := r.index.Get(id); ok {
		return r.buildings[idx], true
	}
	return Footprint{}, false
}

// Buildings returns a copy of every footprint.
func (r *BuildingRegistry) Buildings() []Footprint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.buildings)
}

func (r *BuildingRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buildings)
}

// IsPointInBuilding tests (x, z) against every footprint except ignore.
func (r *BuildingRegistry) IsPointInBuilding(x, z float64, ignore ecs.EntityID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.buildings {
		if ignore != ecs.NoEntity && b.EntityID == ignore {
			continue
		}
		if b.Contains(x, z) {
			return true
		}
	}
	return false
}

// OccupiedGridCells lists the cells a padded footprint blocks. Bounds round
// outward so partially covered cells are blocked too.
func (r *BuildingRegistry) OccupiedGridCells(f Footprint, cellSize float64) []Cell {
	if cellSize <= 0 {
		cellSize = 1
	}
	pad := r.GridPadding()
	minX, maxX, minZ, maxZ := f.Bounds()
	gx0 := int(math.Floor((minX - pad) / cellSize))
	gx1 := int(math.Ceil((maxX + pad) / cellSize))
	gz0 := int(math.Floor((minZ - pad) / cellSize))
	gz1 := int(math.Ceil((maxZ + pad) / cellSize))

	cells := make([]Cell, 0, max(0, (gx1-gx0)*(gz1-gz0)))
	for gx := gx0; gx < gx1; gx++ {
		for gz := gz0; gz < gz1; gz++ {
			cells = append(cells, Cell{X: gx, Z: gz})
		}
	}
	return cells
}

func (r *BuildingRegistry) SetGridPadding(padding float64) {
	r.mu.Lock()
	r.padding = padding
	r.mu.Unlock()
	r.markDirty()
}

func (r *BuildingRegistry) GridPadding() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.padding
}

func (r *BuildingRegistry) Clear() {
	r.mu.Lock()
	r.buildings = r.buildings[:0]
	r.index.Clear()
	r.mu.Unlock()
	r.markDirty()
}
