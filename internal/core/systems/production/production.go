// Package production trains units at barracks, answers player production
// commands and keeps barracks population caps in step with nearby homes.
package production

import (
	"math"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/internal/core/units"
)

// DefaultMaxTroopsPerPlayer caps the individuals one owner may field.
const DefaultMaxTroopsPerPlayer = 50

const (
	exitBaseOffset = 2.5
	exitRingStep   = 0.2
	exitAngleStep  = 0.5
)

// TroopCounter reports how many individuals an owner fields.
// registry.TroopCounts implements it.
type TroopCounter interface {
	Count(owner int) int
}

// System counts down production timers and spawns finished units through the
// factory registry. A run never repeats on its own; queued product types
// start next.
type System struct {
	systems.Base

	factory   *units.Registry
	counts    TroopCounter
	commands  *gameplay.Commands
	maxTroops int
}

// New creates the production system. counts and commands may be nil; a
// non-positive maxTroops uses DefaultMaxTroopsPerPlayer.
func New(factory *units.Registry, counts TroopCounter, commands *gameplay.Commands, maxTroops int, logger log.Log) *System {
	if maxTroops <= 0 {
		maxTroops = DefaultMaxTroopsPerPlayer
	}
	return &System{
		Base:      systems.NewBase(systems.NameProduction, logger),
		factory:   factory,
		counts:    counts,
		commands:  commands,
		maxTroops: maxTroops,
	}
}

func (s *System) Update(w *ecs.World, dt float64) {
	for e := range ecs.With[components.Production](w).Seq() {
		prod := ecs.Get[components.Production](e)
		unit := ecs.Get[components.Unit](e)
		if unit != nil && unit.OwnerID == components.NeutralOwner {
			continue
		}
		if !prod.InProgress || ecs.Has[components.PendingRemoval](e) {
			continue
		}
		s.step(w, e, prod, unit, dt)
	}
}

func (s *System) step(w *ecs.World, e *ecs.Entity, prod *components.Production, unit *components.Unit, dt float64) {
	catalog := s.factory.Catalog()
	individuals := catalog.IndividualsPerUnit(prod.ProductType)
	owner := components.NeutralOwner
	if unit != nil {
		owner = unit.OwnerID
	}

	if prod.ProducedCount+individuals > prod.MaxUnits {
		prod.InProgress = false
		s.blocked(w, e, owner, events.BlockPerBarracksLimit)
		return
	}

	prod.TimeRemaining -= dt
	if prod.TimeRemaining > 0 {
		return
	}

	if t := ecs.Get[components.Transform](e); t != nil && unit != nil {
		if troopCount(s.counts, owner)+individuals > s.maxTroops {
			prod.InProgress = false
			prod.TimeRemaining = 0
			s.blocked(w, e, owner, events.BlockGlobalTroopLimit)
			return
		}
		s.spawn(w, e, prod, t, unit)
		prod.ProducedCount += individuals
	}

	prod.InProgress = false
	prod.TimeRemaining = 0

	if len(prod.Queue) > 0 {
		next := prod.Queue[0]
		prod.Queue = prod.Queue[1:]
		start(prod, catalog, next)
	}
}

func (s *System) spawn(w *ecs.World, e *ecs.Entity, prod *components.Production, t *components.Transform, unit *components.Unit) {
	offset := exitBaseOffset + exitRingStep*float64(prod.ProducedCount%5)
	angle := exitAngleStep * float64(prod.ProducedCount%8)

	created, err := s.factory.Create(prod.ProductType, w, units.Params{
		X:            t.Position.X + offset*math.Cos(angle),
		Z:            t.Position.Z + offset*math.Sin(angle),
		PlayerID:     unit.OwnerID,
		NationID:     unit.NationID,
		AIControlled: ecs.Has[components.AIControlled](e),
	})
	if err != nil {
		s.Logger().Warn("production spawn failed",
			log.Uint64("barracks", uint64(e.ID())),
			log.String("type", prod.ProductType.String()),
			log.Error(err))
		return
	}
	if prod.RallySet {
		s.commands.MoveUnit(w, created.ID(), prod.RallyX, prod.RallyZ, gameplay.DefaultMoveOptions())
	}
}

func (s *System) blocked(w *ecs.World, e *ecs.Entity, owner int, reason events.BlockReason) {
	s.Logger().Debug("production blocked",
		log.Uint64("barracks", uint64(e.ID())),
		log.String("reason", reason.String()))
	bus.Publish(w.Events(), events.ProductionBlocked{BarracksID: e.ID(), OwnerID: owner, Reason: reason})
}

// start begins a run of spawn with the catalog's build time.
func start(prod *components.Production, catalog *registry.TroopCatalog, spawn components.SpawnType) {
	prod.ProductType = spawn
	if tc, ok := catalog.Class(spawn); ok && tc.BuildTime > 0 {
		prod.BuildTime = tc.BuildTime
	}
	prod.VillagerCost = catalog.IndividualsPerUnit(spawn)
	prod.TimeRemaining = prod.BuildTime
	prod.InProgress = true
}

func troopCount(c TroopCounter, owner int) int {
	if c == nil {
		return 0
	}
	return c.Count(owner)
}
