// Package engine wires the simulation together: registries, the world with
// its systems in canonical order, and the background workers for paths, AI
// and audio.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/ironcore/internal/config"
	"github.com/zeusync/ironcore/internal/core/ai"
	"github.com/zeusync/ironcore/internal/core/audio"
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/navigation"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/snapshot"
	"github.com/zeusync/ironcore/internal/core/systems/ambient"
	"github.com/zeusync/ironcore/internal/core/systems/capture"
	"github.com/zeusync/ironcore/internal/core/systems/cleanup"
	"github.com/zeusync/ironcore/internal/core/systems/combat"
	"github.com/zeusync/ironcore/internal/core/systems/guard"
	"github.com/zeusync/ironcore/internal/core/systems/healing"
	"github.com/zeusync/ironcore/internal/core/systems/movement"
	"github.com/zeusync/ironcore/internal/core/systems/patrol"
	"github.com/zeusync/ironcore/internal/core/systems/production"
	"github.com/zeusync/ironcore/internal/core/systems/projectile"
	"github.com/zeusync/ironcore/internal/core/systems/tower"
	"github.com/zeusync/ironcore/internal/core/units"
)

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Engine owns one simulation. Step, Save and Load must be called from a
// single goroutine; Start and Stop may be called from any.
type Engine struct {
	cfg    config.Config
	logger log.Log

	events    *bus.Manager
	world     *ecs.World
	owners    *registry.Owners
	catalog   *registry.TroopCatalog
	counts    *registry.TroopCounts
	stats     *registry.Stats
	buildings *navigation.BuildingRegistry
	finder    *navigation.Pathfinder
	paths     *navigation.PathService
	commands  *gameplay.Commands
	rules     *gameplay.Rules
	units     *units.Registry
	prod      *production.Service

	projectiles *projectile.System
	ai          *ai.System
	aiWorker    *ai.Worker

	audio        *audio.System
	audioBackend audio.Backend
	audioEvents  *audio.EventHandler

	state  atomic.Int32
	closed atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group

	subs  bus.Group
	steps atomic.Uint64
	clock float64
}

type Option func(*Engine)

// WithAudioBackend replaces the logging backend.
func WithAudioBackend(b audio.Backend) Option {
	return func(e *Engine) { e.audioBackend = b }
}

// New builds an engine from cfg. The config is validated first.
func New(cfg config.Config, logger log.Log, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = log.OrNop(logger)

	e := &Engine{
		cfg:    cfg,
		logger: logger.With(log.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.events = bus.New()
	e.world = ecs.NewWorld(e.events, logger)

	e.owners = registry.NewOwners()
	e.owners.SetLocalPlayerID(cfg.Gameplay.LocalPlayerID)
	e.catalog = cfg.Catalog()
	e.counts = registry.NewTroopCounts(e.catalog)
	e.counts.Attach(e.events)
	e.stats = registry.NewStats(e.catalog, e.owners)
	e.stats.Attach(e.events)
	e.subs.Add(bus.Subscribe(e.events, e.onAmbientState))

	nav := cfg.Navigation
	e.buildings = navigation.NewBuildingRegistry()
	e.buildings.SetGridPadding(nav.GridPadding)
	e.finder = navigation.NewPathfinder(nav.Width, nav.Height, e.buildings)
	e.finder.SetGridOffset(nav.OffsetX, nav.OffsetZ)
	e.paths = navigation.NewPathService(e.finder, logger)
	e.commands = gameplay.NewCommands(e.paths)
	e.rules = gameplay.NewRules(e.owners, e.buildings)

	e.units = units.NewRegistry(e.catalog, e.owners, e.buildings, logger)
	e.prod = production.NewService(e.catalog, e.counts, cfg.Gameplay.MaxTroopsPerPlayer)
	e.projectiles = projectile.New(e.rules, cfg.Arrow, logger)

	if cfg.Audio.Enabled {
		e.audio = audio.NewSystem(e.audioBackend, cfg.Audio.MaxChannels, logger)
		for group, v := range map[audio.VolumeGroup]float64{
			audio.VolumeMaster: cfg.Audio.MasterVolume,
			audio.VolumeSound:  cfg.Audio.SoundVolume,
			audio.VolumeMusic:  cfg.Audio.MusicVolume,
			audio.VolumeVoice:  cfg.Audio.VoiceVolume,
		} {
			if err := e.audio.SetVolume(group, v); err != nil {
				return nil, fmt.Errorf("audio volume: %w", err)
			}
		}
		e.audioEvents = audio.NewEventHandler(e.audio, e.world, logger)
		e.audioEvents.Attach(e.events)
	}

	e.registerSystems(logger)

	e.logger.Info("engine created",
		log.Int("systems", len(e.world.Systems())),
		log.Bool("ai", cfg.AI.Enabled),
		log.Bool("audio", cfg.Audio.Enabled))
	return e, nil
}

// registerSystems adds every system in the order listed by systems.Order.
func (e *Engine) registerSystems(logger log.Log) {
	cfg := e.cfg

	if cfg.AI.Enabled {
		if cfg.AI.Threaded {
			e.aiWorker = ai.NewWorker(logger)
		}
		e.ai = ai.New(e.rules, ai.NewApplier(e.commands, e.prod, logger), e.aiWorker, ai.Options{
			Interval:           cfg.AI.Interval,
			MaxTroopsPerPlayer: cfg.Gameplay.MaxTroopsPerPlayer,
			Formation:          cfg.Formation(),
			FilterCooldown:     cfg.AI.FilterCooldown,
		}, logger)
		e.world.AddSystem(e.ai)
	}

	combatOpts := []combat.Option{
		combat.WithCommands(e.commands),
		combat.WithFinder(e.finder),
		combat.WithSpawner(e.projectiles),
		combat.WithCatalog(e.catalog),
		combat.WithArrowSpeed(cfg.Arrow.Speed),
	}

	e.world.AddSystem(production.New(e.units, e.counts, e.commands, cfg.Gameplay.MaxTroopsPerPlayer, logger))
	e.world.AddSystem(production.NewHome(logger))
	e.world.AddSystem(movement.New(e.commands, e.buildings, e.finder, logger))
	e.world.AddSystem(patrol.New(e.rules, e.commands, logger))
	e.world.AddSystem(guard.New(e.rules, e.commands, cfg.Formation(), logger))
	e.world.AddSystem(combat.New(e.rules, logger, combatOpts...))
	e.world.AddSystem(combat.NewCatapult(cfg.CatapultConfig(), e.projectiles, logger))
	e.world.AddSystem(combat.NewBallista(cfg.BallistaConfig(), e.projectiles, logger))
	e.world.AddSystem(tower.New(e.rules, e.projectiles, e.owners.Color, logger))
	e.world.AddSystem(combat.NewElephant(e.rules, logger, combatOpts...))
	e.world.AddSystem(healing.New(e.projectiles, logger))
	e.world.AddSystem(e.projectiles)
	e.world.AddSystem(capture.New(e.rules, e.catalog, logger))
	e.world.AddSystem(ambient.New(e.rules, logger))
	e.world.AddSystem(cleanup.New(logger))
}

// Start launches the background workers. They stop when ctx is cancelled
// or Stop is called. A stopped engine cannot be started again.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineStopped
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(stateIdle, stateRunning) {
		if e.state.Load() == stateRunning {
			return ErrEngineRunning
		}
		return ErrEngineStopped
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.group, ctx = errgroup.WithContext(ctx)

	if e.cfg.Navigation.Threaded {
		e.group.Go(func() error { return e.paths.Run(ctx) })
	}
	if e.aiWorker != nil {
		e.group.Go(func() error { return e.aiWorker.Run(ctx) })
	}
	if e.audio != nil {
		e.group.Go(func() error { return e.audio.Run(ctx) })
	}

	e.logger.Info("engine started",
		log.Bool("path_worker", e.cfg.Navigation.Threaded),
		log.Bool("ai_worker", e.aiWorker != nil),
		log.Bool("audio_worker", e.audio != nil))
	return nil
}

// Stop cancels the workers and waits for them. Queued audio requests drain
// before the audio worker exits. Steps keep working afterwards, inline.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CompareAndSwap(stateRunning, stateStopped) {
		return ErrEngineNotRunning
	}

	e.logger.Info("stopping engine")
	e.cancel()
	err := e.group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		e.logger.Error("worker failed", log.Error(err))
		return fmt.Errorf("stop workers: %w", err)
	}
	e.logger.Info("engine stopped", log.Uint64("steps", e.steps.Load()))
	return nil
}

// Close stops the engine if needed and detaches its event subscriptions.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if e.state.Load() == stateRunning {
		errs = append(errs, e.Stop())
	}
	e.state.Store(stateStopped)
	if e.audio != nil {
		e.audio.Shutdown()
	}
	if e.audioEvents != nil {
		errs = append(errs, e.audioEvents.Close())
	}
	errs = append(errs, e.counts.Close(), e.stats.Close(), e.subs.Close())
	return errors.Join(errs...)
}

// Running reports whether the workers are up.
func (e *Engine) Running() bool {
	return e.state.Load() == stateRunning
}

// Step advances the simulation by dt seconds.
func (e *Engine) Step(dt float64) {
	e.world.Update(dt)
	e.clock += dt
	e.steps.Add(1)
}

// Run steps the simulation at the configured tick rate until ctx is done
// or maxSteps steps have run. maxSteps <= 0 means no limit.
func (e *Engine) Run(ctx context.Context, maxSteps int) error {
	dt := 1 / e.cfg.Gameplay.TickRate
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for n := 0; maxSteps <= 0 || n < maxSteps; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Step(dt)
		}
	}
	return nil
}

// Steps returns the number of completed steps.
func (e *Engine) Steps() uint64 { return e.steps.Load() }

// Clock returns the simulated time in seconds.
func (e *Engine) Clock() float64 { return e.clock }

// AddPlayer registers a faction. AI factions are handed to the AI system
// when it is enabled.
func (e *Engine) AddPlayer(kind registry.OwnerType, name string) int {
	id := e.owners.Register(kind, name)
	e.stats.MarkGameStart(id, e.clock)
	if kind == registry.OwnerAI && e.ai != nil {
		e.ai.AddFaction(id)
	}
	e.logger.Info("player added",
		log.Int("player", id),
		log.String("type", kind.String()),
		log.String("name", name))
	return id
}

// Spawn creates one entity through the unit factory registry.
func (e *Engine) Spawn(spawn components.SpawnType, p units.Params) (*ecs.Entity, error) {
	ent, err := e.units.Create(spawn, e.world, p)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", spawn, err)
	}
	return ent, nil
}

// Save writes the world and owner registry to w.
func (e *Engine) Save(w io.Writer) error {
	snap := snapshot.Capture(e.world)
	snap.AttachOwners(e.owners)
	if err := snapshot.Encode(w, snap); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	e.logger.Info("world saved",
		log.Int("entities", len(snap.Entities)),
		log.Uint64("next_id", uint64(snap.NextID)))
	return nil
}

// Load replaces the simulation state with a snapshot written by Save.
// Derived state is rebuilt: building footprints, troop counts, stats and
// AI factions.
func (e *Engine) Load(r io.Reader) error {
	snap, err := snapshot.Decode(r)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := snapshot.Restore(e.world, snap); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	snap.RestoreOwners(e.owners)

	buildings := snapshot.RebuildBuildings(e.world, e.buildings)
	e.counts.RebuildFromWorld(e.world)
	e.stats.RebuildFromWorld(e.world)
	if e.ai != nil {
		for _, id := range e.owners.AIIDs() {
			e.ai.AddFaction(id)
		}
	}

	e.logger.Info("world loaded",
		log.Int("entities", e.world.EntityCount()),
		log.Int("buildings", buildings))
	return nil
}

// onAmbientState stops the play clocks once the match is decided.
func (e *Engine) onAmbientState(ev events.AmbientStateChanged) {
	if ev.NewState == events.AmbientVictory || ev.NewState == events.AmbientDefeat {
		e.stats.MarkGameEnd(e.clock)
	}
}

// Checksum hashes the current world state.
func (e *Engine) Checksum() (uint64, error) {
	return snapshot.Capture(e.world).Checksum()
}

func (e *Engine) Config() config.Config                   { return e.cfg }
func (e *Engine) World() *ecs.World                       { return e.world }
func (e *Engine) Events() *bus.Manager                    { return e.events }
func (e *Engine) Owners() *registry.Owners                { return e.owners }
func (e *Engine) Catalog() *registry.TroopCatalog         { return e.catalog }
func (e *Engine) TroopCounts() *registry.TroopCounts      { return e.counts }
func (e *Engine) Stats() *registry.Stats                  { return e.stats }
func (e *Engine) Buildings() *navigation.BuildingRegistry { return e.buildings }
func (e *Engine) Pathfinder() *navigation.Pathfinder      { return e.finder }
func (e *Engine) Commands() *gameplay.Commands            { return e.commands }
func (e *Engine) Rules() *gameplay.Rules                  { return e.rules }
func (e *Engine) Units() *units.Registry                  { return e.units }
func (e *Engine) Production() *production.Service         { return e.prod }
func (e *Engine) Projectiles() *projectile.System         { return e.projectiles }

// AI returns the AI system, or nil when disabled.
func (e *Engine) AI() *ai.System { return e.ai }

// Audio returns the audio system, or nil when disabled.
func (e *Engine) Audio() *audio.System { return e.audio }

// AudioEvents returns the event-to-sound handler, or nil when audio is
// disabled.
func (e *Engine) AudioEvents() *audio.EventHandler { return e.audioEvents }
