package registry

import (
	"sync"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
)

// PlayerStats is the running scoreboard of one owner. Troop figures count
// individuals, not entities.
type PlayerStats struct {
	TroopsRecruited  int
	EnemiesKilled    int
	TroopsLost       int
	BarracksOwned    int
	BarracksCaptured int

	StartTime float64
	EndTime   float64
	Started   bool
	Ended     bool
}

// PlayTime is the simulated time between game start and end, or until now
// while the game is still going.
func (p PlayerStats) PlayTime(now float64) float64 {
	if !p.Started {
		return 0
	}
	if p.Ended {
		return p.EndTime - p.StartTime
	}
	return now - p.StartTime
}

// Stats tracks per-owner game statistics from spawn, death and capture
// events.
type Stats struct {
	mu      sync.RWMutex
	players map[int]*PlayerStats
	catalog *TroopCatalog
	owners  *Owners
	subs    bus.Group
}

// NewStats builds an empty registry. With no owner registry every pair of
// distinct owners counts as enemies.
func NewStats(catalog *TroopCatalog, owners *Owners) *Stats {
	if catalog == nil {
		catalog = DefaultTroopCatalog()
	}
	return &Stats{players: make(map[int]*PlayerStats), catalog: catalog, owners: owners}
}

func (s *Stats) Attach(m *bus.Manager) {
	s.subs.Add(bus.Subscribe(m, s.onUnitSpawned))
	s.subs.Add(bus.Subscribe(m, s.onUnitDied))
	s.subs.Add(bus.Subscribe(m, s.onBarrackCaptured))
}

func (s *Stats) Close() error {
	return s.subs.Close()
}

func (s *Stats) Clear() {
	s.mu.Lock()
	s.players = make(map[int]*PlayerStats)
	s.mu.Unlock()
}

// Get returns a copy of owner's stats. Unknown owners report zeroes.
func (s *Stats) Get(owner int) PlayerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.players[owner]; ok {
		return *p
	}
	return PlayerStats{}
}

// Owners lists every owner with recorded stats.
func (s *Stats) Owners() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	return ids
}

func (s *Stats) MarkGameStart(owner int, at float64) {
	s.mu.Lock()
	p := s.player(owner)
	p.StartTime, p.Started = at, true
	p.EndTime, p.Ended = 0, false
	s.mu.Unlock()
}

// MarkGameEnd stops the play clock of every started owner.
func (s *Stats) MarkGameEnd(at float64) {
	s.mu.Lock()
	for _, p := range s.players {
		if p.Started && !p.Ended {
			p.EndTime, p.Ended = at, true
		}
	}
	s.mu.Unlock()
}

// player must be called with mu held.
func (s *Stats) player(owner int) *PlayerStats {
	p, ok := s.players[owner]
	if !ok {
		p = &PlayerStats{}
		s.players[owner] = p
	}
	return p
}

func (s *Stats) enemies(a, b int) bool {
	if a == b {
		return false
	}
	if s.owners == nil {
		return true
	}
	return s.owners.AreEnemies(a, b)
}

func (s *Stats) onUnitSpawned(ev events.UnitSpawned) {
	spawn, ok := components.ParseSpawnType(ev.UnitType)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.player(ev.OwnerID)
	if spawn == components.SpawnBarracks {
		p.BarracksOwned++
		return
	}
	p.TroopsRecruited += s.catalog.IndividualsPerUnit(spawn)
}

func (s *Stats) onUnitDied(ev events.UnitDied) {
	spawn, ok := components.ParseSpawnType(ev.UnitType)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if spawn == components.SpawnBarracks {
		p := s.player(ev.OwnerID)
		p.BarracksOwned = max(0, p.BarracksOwned-1)
		return
	}
	n := s.catalog.IndividualsPerUnit(spawn)
	if n == 0 {
		return
	}
	s.player(ev.OwnerID).TroopsLost += n

	killer := ev.KillerOwnerID
	if killer == 0 || killer == components.NeutralOwner || !s.enemies(killer, ev.OwnerID) {
		return
	}
	s.player(killer).EnemiesKilled += n
}

func (s *Stats) onBarrackCaptured(ev events.BarrackCaptured) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.PreviousOwnerID != components.NeutralOwner {
		p := s.player(ev.PreviousOwnerID)
		p.BarracksOwned = max(0, p.BarracksOwned-1)
	}
	p := s.player(ev.NewOwnerID)
	p.BarracksOwned++
	p.BarracksCaptured++
}

// RebuildFromWorld recounts barracks and fielded troops from the living
// entities. Kill, loss and capture history is kept.
func (s *Stats) RebuildFromWorld(w *ecs.World) {
	barracks := make(map[int]int)
	troops := make(map[int]int)
	for e := range ecs.With[components.Unit](w).Seq() {
		u := ecs.Get[components.Unit](e)
		if !u.Alive() {
			continue
		}
		if u.SpawnType == components.SpawnBarracks {
			barracks[u.OwnerID]++
			continue
		}
		troops[u.OwnerID] += s.catalog.IndividualsPerUnit(u.SpawnType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.BarracksOwned = 0
	}
	for owner, n := range barracks {
		s.player(owner).BarracksOwned = n
	}
	for owner, n := range troops {
		p := s.player(owner)
		p.TroopsRecruited = max(p.TroopsRecruited, n)
	}
}
