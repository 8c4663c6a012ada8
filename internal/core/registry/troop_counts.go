package registry

import (
	"sync"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
)

// TroopCounts keeps a live per-owner count of individual soldiers, fed by
// spawn and death events.
type TroopCounts struct {
	mu      sync.RWMutex
	counts  map[int]int
	catalog *TroopCatalog
	subs    bus.Group
}

func NewTroopCounts(catalog *TroopCatalog) *TroopCounts {
	if catalog == nil {
		catalog = DefaultTroopCatalog()
	}
	return &TroopCounts{counts: make(map[int]int), catalog: catalog}
}

// Attach subscribes the registry to m. Close detaches it.
func (t *TroopCounts) Attach(m *bus.Manager) {
	t.subs.Add(bus.Subscribe(m, t.onUnitSpawned))
	t.subs.Add(bus.Subscribe(m, t.onUnitDied))
}

func (t *TroopCounts) Close() error {
	return t.subs.Close()
}

func (t *TroopCounts) Clear() {
	t.mu.Lock()
	t.counts = make(map[int]int)
	t.mu.Unlock()
}

// Count returns the number of individuals owner currently fields.
func (t *TroopCounts) Count(owner int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counts[owner]
}

func (t *TroopCounts) individuals(unitType string) int {
	spawn, ok := components.ParseSpawnType(unitType)
	if !ok {
		return 1
	}
	return t.catalog.IndividualsPerUnit(spawn)
}

func (t *TroopCounts) onUnitSpawned(ev events.UnitSpawned) {
	n := t.individuals(ev.UnitType)
	if n == 0 {
		return
	}
	t.mu.Lock()
	t.counts[ev.OwnerID] += n
	t.mu.Unlock()
}

func (t *TroopCounts) onUnitDied(ev events.UnitDied) {
	n := t.individuals(ev.UnitType)
	if n == 0 {
		return
	}
	t.mu.Lock()
	t.counts[ev.OwnerID] = max(0, t.counts[ev.OwnerID]-n)
	t.mu.Unlock()
}

// RebuildFromWorld recounts every living unit, discarding event history.
func (t *TroopCounts) RebuildFromWorld(w *ecs.World) {
	counts := make(map[int]int)
	for e := range ecs.With[components.Unit](w).Seq() {
		u := ecs.Get[components.Unit](e)
		if !u.Alive() {
			continue
		}
		counts[u.OwnerID] += t.catalog.IndividualsPerUnit(u.SpawnType)
	}
	t.mu.Lock()
	t.counts = counts
	t.mu.Unlock()
}
