// Package units creates fully wired unit and building entities. Production,
// map loading and snapshot tooling all spawn through a Registry.
package units

import (
	"fmt"
	"sync"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
)

// Params describes one spawn.
type Params struct {
	X, Y, Z      float64
	PlayerID     int
	NationID     int
	AIControlled bool
	// MaxPopulation seeds a barracks' production cap. Zero uses the default.
	MaxPopulation int
}

// Factory builds the entity for one spawn type.
type Factory func(w *ecs.World, p Params) (*ecs.Entity, error)

// Registry maps spawn types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[components.SpawnType]Factory

	catalog   *registry.TroopCatalog
	owners    *registry.Owners
	buildings *navigation.BuildingRegistry
	logger    log.Log
}

// NewRegistry creates a registry with the built-in factories registered. Any
// collaborator may be nil: without a catalog the default roster is used,
// without owners units get the default color, and without a building
// registry structures are not registered for collision.
func NewRegistry(catalog *registry.TroopCatalog, owners *registry.Owners, buildings *navigation.BuildingRegistry, logger log.Log) *Registry {
	if catalog == nil {
		catalog = registry.DefaultTroopCatalog()
	}
	r := &Registry{
		factories: make(map[components.SpawnType]Factory),
		catalog:   catalog,
		owners:    owners,
		buildings: buildings,
		logger:    log.OrNop(logger).With(log.String("component", "units")),
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces the factory for spawn.
func (r *Registry) Register(spawn components.SpawnType, fn Factory) {
	r.mu.Lock()
	r.factories[spawn] = fn
	r.mu.Unlock()
}

func (r *Registry) Has(spawn components.SpawnType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[spawn]
	return ok
}

// Create spawns one entity of type spawn and publishes UnitSpawned.
func (r *Registry) Create(spawn components.SpawnType, w *ecs.World, p Params) (*ecs.Entity, error) {
	if w == nil {
		return nil, ErrNilWorld
	}
	r.mu.RLock()
	fn, ok := r.factories[spawn]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpawnType, spawn)
	}

	e, err := fn(w, p)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", spawn, err)
	}
	bus.Publish(w.Events(), events.UnitSpawned{
		UnitID:   e.ID(),
		OwnerID:  p.PlayerID,
		UnitType: spawn.String(),
	})
	r.logger.Debug("unit spawned",
		log.String("type", spawn.String()),
		log.Uint64("entity", uint64(e.ID())),
		log.Int("owner", p.PlayerID))
	return e, nil
}

// Catalog returns the troop catalog factories read stats from.
func (r *Registry) Catalog() *registry.TroopCatalog {
	return r.catalog
}

func (r *Registry) registerBuiltins() {
	for _, spawn := range components.SpawnTypes() {
		switch spawn {
		case components.SpawnBarracks:
			r.Register(spawn, r.barracks)
		case components.SpawnHome:
			r.Register(spawn, r.home)
		case components.SpawnDefenseTower:
			r.Register(spawn, r.tower)
		default:
			r.Register(spawn, r.troopFactory(spawn))
		}
	}
}

func (r *Registry) color(owner int) [3]float64 {
	if r.owners == nil {
		return [3]float64{1, 1, 1}
	}
	return r.owners.Color(owner)
}

// base attaches the parts every spawn shares.
func (r *Registry) base(w *ecs.World, spawn components.SpawnType, p Params) (*ecs.Entity, *components.Transform, *components.Unit) {
	e := w.CreateEntity()
	t := ecs.Add(e, components.NewTransform(p.X, p.Y, p.Z))

	rend := components.NewRenderable("", "")
	rend.RendererID = "troops/" + spawn.String()
	rend.Color = r.color(p.PlayerID)
	ecs.Add(e, rend)

	u := components.NewUnit(spawn, p.PlayerID)
	u.NationID = p.NationID
	if tc, ok := r.catalog.Class(spawn); ok {
		if tc.Health > 0 {
			u.Health, u.MaxHealth = tc.Health, tc.Health
		}
		if tc.Speed > 0 {
			u.Speed = tc.Speed
		}
		if tc.VisionRange > 0 {
			u.VisionRange = tc.VisionRange
		}
	}
	unit := ecs.Add(e, u)

	if p.AIControlled {
		ecs.Add(e, components.AIControlled{})
	}
	return e, t, unit
}

func (r *Registry) troopFactory(spawn components.SpawnType) Factory {
	return func(w *ecs.World, p Params) (*ecs.Entity, error) {
		e, t, _ := r.base(w, spawn, p)
		ecs.Add(e, components.Movement{GoalX: t.Position.X, GoalZ: t.Position.Z})
		ecs.Add(e, components.IdleBehavior{})

		if tc, ok := r.catalog.Class(spawn); ok && (tc.CanMelee || tc.CanRanged) {
			ecs.Add(e, attackFor(tc))
		}

		switch spawn {
		case components.SpawnHealer:
			ecs.Add(e, components.NewHealer())
		case components.SpawnElephant:
			ecs.Add(e, components.NewElephant())
			t.Scale = components.Vec3{X: 1.6, Y: 1.6, Z: 1.6}
		case components.SpawnCatapult, components.SpawnBallista:
			t.Scale = components.Vec3{X: 1.4, Y: 1.4, Z: 1.4}
		case components.SpawnBuilder:
			ecs.Add(e, components.BuilderProduction{})
		}
		return e, nil
	}
}

func attackFor(tc registry.TroopClass) components.Attack {
	atk := components.NewAttack(tc.RangedRange, tc.RangedDamage, tc.RangedCooldown)
	if tc.MeleeRange > 0 {
		atk.MeleeRange = tc.MeleeRange
	}
	atk.MeleeDamage = tc.MeleeDamage
	if tc.MeleeCooldown > 0 {
		atk.MeleeCooldown = tc.MeleeCooldown
	}
	atk.CanRanged = tc.CanRanged
	atk.CanMelee = tc.CanMelee
	switch {
	case tc.CanRanged && !tc.CanMelee:
		atk.PreferredMode = components.ModeRanged
		atk.CurrentMode = components.ModeRanged
	case tc.CanMelee && !tc.CanRanged:
		atk.PreferredMode = components.ModeMelee
		atk.CurrentMode = components.ModeMelee
	}
	return atk
}

const (
	barracksRallyX = 4.0
	barracksRallyZ = 2.0
)

func (r *Registry) barracks(w *ecs.World, p Params) (*ecs.Entity, error) {
	e, t, u := r.base(w, components.SpawnBarracks, p)
	t.Scale = components.Vec3{X: 1.8, Y: 1.2, Z: 1.8}
	u.Speed = 0
	ecs.Add(e, components.Building{})
	ecs.Add(e, components.NewCapture())

	if r.buildings != nil {
		r.buildings.RegisterBuilding(e.ID(), components.SpawnBarracks.String(), t.Position.X, t.Position.Z, p.PlayerID)
	}

	if p.PlayerID != components.NeutralOwner {
		prod := components.NewProduction()
		if p.MaxPopulation > 0 {
			prod.MaxUnits = p.MaxPopulation
		}
		prod.RallyX, prod.RallyZ = t.Position.X+barracksRallyX, t.Position.Z+barracksRallyZ
		prod.RallySet = true
		if tc, ok := r.catalog.Class(prod.ProductType); ok && tc.BuildTime > 0 {
			prod.BuildTime = tc.BuildTime
		}
		prod.VillagerCost = r.catalog.IndividualsPerUnit(prod.ProductType)
		ecs.Add(e, prod)
	}
	return e, nil
}

func (r *Registry) home(w *ecs.World, p Params) (*ecs.Entity, error) {
	e, t, u := r.base(w, components.SpawnHome, p)
	t.Scale = components.Vec3{X: 1.2, Y: 1, Z: 1.2}
	u.Speed = 0
	ecs.Add(e, components.Building{})
	ecs.Add(e, components.NewHome())
	if r.buildings != nil {
		r.buildings.RegisterBuilding(e.ID(), components.SpawnHome.String(), t.Position.X, t.Position.Z, p.PlayerID)
	}
	return e, nil
}

const (
	towerHealth      = 1500
	towerVision      = 18.0
	towerRange       = 16.0
	towerDamage      = 25
	towerCooldown    = 2.0
	towerHeightLimit = 4.0
)

func (r *Registry) tower(w *ecs.World, p Params) (*ecs.Entity, error) {
	e, t, u := r.base(w, components.SpawnDefenseTower, p)
	t.Scale = components.Vec3{X: 1, Y: 2, Z: 1}
	u.Speed = 0
	u.Health, u.MaxHealth = towerHealth, towerHealth
	u.VisionRange = towerVision
	ecs.Add(e, components.Building{})

	atk := components.NewAttack(towerRange, towerDamage, towerCooldown)
	atk.CanRanged = true
	atk.CanMelee = false
	atk.PreferredMode = components.ModeRanged
	atk.CurrentMode = components.ModeRanged
	atk.MaxHeightDiff = towerHeightLimit
	ecs.Add(e, atk)

	if r.buildings != nil {
		r.buildings.RegisterBuilding(e.ID(), components.SpawnDefenseTower.String(), t.Position.X, t.Position.Z, p.PlayerID)
	}
	return e, nil
}
