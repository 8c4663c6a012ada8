package production

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
)

const (
	HomeUpdateInterval = 2.0
	HomeSearchRadius   = 50.0
)

// HomeSystem assigns every home to the nearest barracks of its owner and
// moves the home's population contribution along with the assignment.
type HomeSystem struct {
	systems.Base
}

func NewHome(logger log.Log) *HomeSystem {
	return &HomeSystem{Base: systems.NewBase(systems.NameHome, logger)}
}

func (s *HomeSystem) Update(w *ecs.World, dt float64) {
	for e := range ecs.With3[components.Home, components.Transform, components.Unit](w).Seq() {
		home := ecs.Get[components.Home](e)
		if !gameplay.Alive(e) {
			// a fallen home stops contributing
			s.reassign(w, home, ecs.NoEntity)
			continue
		}

		home.UpdateTimer -= dt
		if home.UpdateTimer > 0 {
			continue
		}
		home.UpdateTimer = HomeUpdateInterval

		s.reassign(w, home, nearestBarracks(w, e))
	}
}

func (s *HomeSystem) reassign(w *ecs.World, home *components.Home, next ecs.EntityID) {
	prev := home.AssignedBarracks
	home.AssignedBarracks = next
	if prev == next {
		return
	}
	if p := ecs.Get[components.Production](w.Entity(prev)); p != nil {
		p.MaxUnits = max(0, p.MaxUnits-home.PopulationContribution)
	}
	if p := ecs.Get[components.Production](w.Entity(next)); p != nil {
		p.MaxUnits += home.PopulationContribution
	}
	s.Logger().Debug("home reassigned",
		log.Uint64("from", uint64(prev)),
		log.Uint64("to", uint64(next)))
}

func nearestBarracks(w *ecs.World, home *ecs.Entity) ecs.EntityID {
	ht := ecs.Get[components.Transform](home)
	owner := ecs.Get[components.Unit](home).OwnerID

	best := ecs.NoEntity
	bestDist := math.Inf(1)
	for b := range ecs.With3[components.Production, components.Transform, components.Unit](w).Seq() {
		u := ecs.Get[components.Unit](b)
		if u.SpawnType != components.SpawnBarracks || u.OwnerID != owner || !gameplay.Alive(b) {
			continue
		}
		d := math.Sqrt(gameplay.PlanarDistSq(ht, ecs.Get[components.Transform](b)))
		if d <= HomeSearchRadius && d < bestDist {
			best, bestDist = b.ID(), d
		}
	}
	return best
}
