// Package capture lets an overwhelming force take over barracks.
package capture

import (
	"slices"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/systems"
)

const (
	Radius = 8.0
	// Advantage is how many times the defenders' troops an attacker needs.
	Advantage = 3
	decayRate = 2.0

	capturedMaxUnits = 150
	capturedRallyX   = 4.0
	capturedRallyZ   = 2.0
)

type System struct {
	systems.Base

	rules   *gameplay.Rules
	catalog *registry.TroopCatalog
}

// New creates the capture system. A nil catalog uses the default roster.
func New(rules *gameplay.Rules, catalog *registry.TroopCatalog, logger log.Log) *System {
	if catalog == nil {
		catalog = registry.DefaultTroopCatalog()
	}
	return &System{
		Base:    systems.NewBase(systems.NameCapture, logger),
		rules:   rules,
		catalog: catalog,
	}
}

func (s *System) Update(w *ecs.World, dt float64) {
	for b := range ecs.With3[components.Building, components.Unit, components.Transform](w).Seq() {
		unit := ecs.Get[components.Unit](b)
		if unit.SpawnType != components.SpawnBarracks || ecs.Has[components.PendingRemoval](b) {
			continue
		}
		c := ecs.GetOrAdd(b, components.NewCapture())
		t := ecs.Get[components.Transform](b)

		challenger, attackers := s.strongestChallenger(w, t, unit.OwnerID)
		defenders := 0
		if unit.OwnerID != components.NeutralOwner {
			defenders = s.troopsNear(w, t, unit.OwnerID)
		}

		if challenger == components.NeutralOwner || attackers < defenders*Advantage {
			if c.IsBeingCaptured {
				c.CaptureProgress -= dt * decayRate
				if c.CaptureProgress <= 0 {
					c.CaptureProgress = 0
					c.IsBeingCaptured = false
					c.CapturingPlayerID = components.NeutralOwner
				}
			}
			continue
		}

		if c.CapturingPlayerID != challenger {
			c.CapturingPlayerID = challenger
			c.CaptureProgress = 0
		}
		c.IsBeingCaptured = true
		c.CaptureProgress += dt
		if c.CaptureProgress >= c.RequiredTime {
			s.transfer(w, b, challenger)
			c.CaptureProgress = 0
			c.IsBeingCaptured = false
			c.CapturingPlayerID = components.NeutralOwner
		}
	}
}

// strongestChallenger returns the non-neutral foreign owner with the most
// troops around the barracks. Ties go to the owner seen first.
func (s *System) strongestChallenger(w *ecs.World, t *components.Transform, owner int) (int, int) {
	var owners []int
	for e := range ecs.With[components.Unit](w).Seq() {
		o := ecs.Get[components.Unit](e).OwnerID
		if o != owner && o != components.NeutralOwner && !slices.Contains(owners, o) {
			owners = append(owners, o)
		}
	}

	best, most := components.NeutralOwner, 0
	for _, o := range owners {
		if n := s.troopsNear(w, t, o); n > most {
			best, most = o, n
		}
	}
	return best, most
}

// troopsNear counts owner's individual soldiers within Radius.
func (s *System) troopsNear(w *ecs.World, t *components.Transform, owner int) int {
	total := 0
	for e := range ecs.With2[components.Unit, components.Transform](w).Seq() {
		u := ecs.Get[components.Unit](e)
		if u.OwnerID != owner || !u.Alive() || u.SpawnType == components.SpawnBarracks {
			continue
		}
		if gameplay.PlanarDistSq(t, ecs.Get[components.Transform](e)) <= Radius*Radius {
			total += s.catalog.IndividualsPerUnit(u.SpawnType)
		}
	}
	return total
}

func (s *System) transfer(w *ecs.World, b *ecs.Entity, newOwner int) {
	unit := ecs.Get[components.Unit](b)
	t := ecs.Get[components.Transform](b)
	previous := unit.OwnerID
	unit.OwnerID = newOwner

	if r := ecs.Get[components.Renderable](b); r != nil && s.rules != nil && s.rules.Owners != nil {
		r.Color = s.rules.Owners.Color(newOwner)
	}
	if s.rules != nil && s.rules.Buildings != nil {
		s.rules.Buildings.UpdateBuildingOwner(b.ID(), newOwner)
	}

	prod := ecs.Get[components.Production](b)
	switch {
	case newOwner == components.NeutralOwner:
		ecs.Remove[components.Production](b)
	case prod == nil:
		p := components.NewProduction()
		p.MaxUnits = capturedMaxUnits
		p.RallyX, p.RallyZ = t.Position.X+capturedRallyX, t.Position.Z+capturedRallyZ
		p.RallySet = true
		s.applyProfile(&p)
		ecs.Add(b, p)
	default:
		s.applyProfile(prod)
	}

	s.Logger().Info("barracks captured",
		log.Uint64("barracks", uint64(b.ID())),
		log.Int("from", previous),
		log.Int("to", newOwner))
	bus.Publish(w.Events(), events.BarrackCaptured{
		BarrackID:       b.ID(),
		PreviousOwnerID: previous,
		NewOwnerID:      newOwner,
	})
}

func (s *System) applyProfile(p *components.Production) {
	if tc, ok := s.catalog.Class(p.ProductType); ok && tc.BuildTime > 0 {
		p.BuildTime = tc.BuildTime
	}
	p.VillagerCost = s.catalog.IndividualsPerUnit(p.ProductType)
}
