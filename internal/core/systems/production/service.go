package production

import (
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/registry"
)

// MaxQueueLength bounds Production.Queue.
const MaxQueueLength = 5

// Result is the outcome of a production command.
type Result uint8

const (
	Success Result = iota
	NoBarracks
	PerBarracksLimitReached
	GlobalTroopLimitReached
	AlreadyInProgress
	QueueFull
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NoBarracks:
		return "no_barracks"
	case PerBarracksLimitReached:
		return "per_barracks_limit_reached"
	case GlobalTroopLimitReached:
		return "global_troop_limit_reached"
	case AlreadyInProgress:
		return "already_in_progress"
	case QueueFull:
		return "queue_full"
	default:
		return "unknown"
	}
}

// State is what a UI shows for the selected barracks.
type State struct {
	HasBarracks   bool
	InProgress    bool
	ProductType   components.SpawnType
	TimeRemaining float64
	BuildTime     float64
	ProducedCount int
	MaxUnits      int
	QueueLength   int
	VillagerCost  int
}

// Service answers production commands issued against a selection. It acts on
// the first selected barracks the owner holds.
type Service struct {
	catalog   *registry.TroopCatalog
	counts    TroopCounter
	maxTroops int
}

func NewService(catalog *registry.TroopCatalog, counts TroopCounter, maxTroops int) *Service {
	if catalog == nil {
		catalog = registry.DefaultTroopCatalog()
	}
	if maxTroops <= 0 {
		maxTroops = DefaultMaxTroopsPerPlayer
	}
	return &Service{catalog: catalog, counts: counts, maxTroops: maxTroops}
}

func firstSelectedBarracks(w *ecs.World, selected []ecs.EntityID, owner int) *ecs.Entity {
	for _, id := range selected {
		e := w.Entity(id)
		u := ecs.Get[components.Unit](e)
		if u == nil || u.OwnerID != owner || ecs.Has[components.PendingRemoval](e) {
			continue
		}
		if u.SpawnType == components.SpawnBarracks {
			return e
		}
	}
	return nil
}

// StartProductionForFirstSelected begins training spawn at the first
// selected barracks.
func (s *Service) StartProductionForFirstSelected(w *ecs.World, selected []ecs.EntityID, owner int, spawn components.SpawnType) Result {
	e := firstSelectedBarracks(w, selected, owner)
	if e == nil {
		return NoBarracks
	}
	prod := ecs.GetOrAdd(e, components.NewProduction())
	if r := s.admit(prod, owner, spawn); r != Success {
		return r
	}
	if prod.InProgress {
		return AlreadyInProgress
	}
	start(prod, s.catalog, spawn)
	return Success
}

// EnqueueProduction starts spawn when the barracks is idle and queues it
// behind the current run otherwise.
func (s *Service) EnqueueProduction(w *ecs.World, selected []ecs.EntityID, owner int, spawn components.SpawnType) Result {
	e := firstSelectedBarracks(w, selected, owner)
	if e == nil {
		return NoBarracks
	}
	prod := ecs.GetOrAdd(e, components.NewProduction())
	if !prod.InProgress {
		return s.StartProductionForFirstSelected(w, []ecs.EntityID{e.ID()}, owner, spawn)
	}
	if len(prod.Queue) >= MaxQueueLength {
		return QueueFull
	}
	prod.Queue = append(prod.Queue, spawn)
	return Success
}

func (s *Service) admit(prod *components.Production, owner int, spawn components.SpawnType) Result {
	individuals := s.catalog.IndividualsPerUnit(spawn)
	if prod.ProducedCount+individuals > prod.MaxUnits {
		return PerBarracksLimitReached
	}
	if troopCount(s.counts, owner)+individuals > s.maxTroops {
		return GlobalTroopLimitReached
	}
	return Success
}

// SetRallyForFirstSelected sets where freshly trained units walk to.
func (s *Service) SetRallyForFirstSelected(w *ecs.World, selected []ecs.EntityID, owner int, x, z float64) bool {
	e := firstSelectedBarracks(w, selected, owner)
	if e == nil {
		return false
	}
	prod := ecs.GetOrAdd(e, components.NewProduction())
	prod.RallyX, prod.RallyZ = x, z
	prod.RallySet = true
	return true
}

// SelectedBarracksState reports the first selected barracks' production.
func (s *Service) SelectedBarracksState(w *ecs.World, selected []ecs.EntityID, owner int) (State, bool) {
	e := firstSelectedBarracks(w, selected, owner)
	if e == nil {
		return State{}, false
	}
	st := State{HasBarracks: true}
	if p := ecs.Get[components.Production](e); p != nil {
		st.InProgress = p.InProgress
		st.ProductType = p.ProductType
		st.TimeRemaining = p.TimeRemaining
		st.BuildTime = p.BuildTime
		st.ProducedCount = p.ProducedCount
		st.MaxUnits = p.MaxUnits
		st.QueueLength = len(p.Queue)
		st.VillagerCost = p.VillagerCost
	}
	return st, true
}
