// Command ironsim runs a headless skirmish: one scripted player against one
// AI faction, stepping the simulation and reporting the outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/ironcore/internal/config"
	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/registry"
	"github.com/zeusync/ironcore/internal/core/units"
	"github.com/zeusync/ironcore/internal/engine"
	"github.com/zeusync/ironcore/internal/injector"
)

type options struct {
	configPath string
	steps      int
	realtime   bool
	savePath   string
	loadPath   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.IntVar(&opts.steps, "steps", 1800, "number of simulation steps, 0 runs until interrupted")
	flag.BoolVar(&opts.realtime, "realtime", false, "step at the configured tick rate instead of as fast as possible")
	flag.StringVar(&opts.savePath, "save", "", "write a snapshot here when the run ends")
	flag.StringVar(&opts.loadPath, "load", "", "start from a snapshot instead of the built-in scenario")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "ironsim:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if opts.steps == 0 && !opts.realtime {
		opts.realtime = true
	}

	e, cleanup, err := injector.InitializeEngine(cfg, cfg.LogLevel())
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer cleanup()
	base := log.Provide()
	defer func() { _ = base.Sync() }()
	logger := base.With(log.String("component", "ironsim"))

	if opts.loadPath != "" {
		if err := loadSnapshot(e, opts.loadPath); err != nil {
			return err
		}
	} else if err := setupSkirmish(e); err != nil {
		return err
	}

	if err := e.Start(ctx); err != nil {
		return err
	}

	dt := 1 / cfg.Gameplay.TickRate
	var runErr error
	if opts.realtime {
		runErr = e.Run(ctx, opts.steps)
	} else {
		for i := 0; i < opts.steps && ctx.Err() == nil; i++ {
			e.Step(dt)
		}
		runErr = ctx.Err()
	}

	if err := e.Stop(); err != nil {
		logger.Error("stop failed", log.Error(err))
	}
	report(e, logger)

	if opts.savePath != "" {
		if err := saveSnapshot(e, opts.savePath); err != nil {
			return err
		}
		logger.Info("snapshot written", log.String("path", opts.savePath))
	}
	return runErr
}

// setupSkirmish places a human base in the south-west and an AI base in the
// north-east, each with a small garrison.
func setupSkirmish(e *engine.Engine) error {
	human := e.AddPlayer(registry.OwnerPlayer, "player")
	bot := e.AddPlayer(registry.OwnerAI, "computer")
	e.Owners().SetLocalPlayerID(human)
	e.Owners().SetColor(human, 0.2, 0.4, 1.0)
	e.Owners().SetColor(bot, 1.0, 0.3, 0.3)

	type placement struct {
		spawn components.SpawnType
		x, z  float64
		owner int
	}
	layout := []placement{
		{components.SpawnBarracks, -30, -30, human},
		{components.SpawnHome, -36, -24, human},
		{components.SpawnArcher, -24, -26, human},
		{components.SpawnKnight, -22, -30, human},
		{components.SpawnHealer, -26, -32, human},
		{components.SpawnBarracks, 30, 30, bot},
		{components.SpawnHome, 36, 24, bot},
		{components.SpawnArcher, 24, 26, bot},
		{components.SpawnSpearman, 22, 30, bot},
		{components.SpawnBarracks, 0, 0, components.NeutralOwner},
	}

	var humanBarracks ecs.EntityID
	for _, p := range layout {
		ent, err := e.Spawn(p.spawn, units.Params{
			X:            p.x,
			Z:            p.z,
			PlayerID:     p.owner,
			AIControlled: p.owner == bot,
		})
		if err != nil {
			return err
		}
		if p.spawn == components.SpawnBarracks && p.owner == human {
			humanBarracks = ent.ID()
		}
	}

	selected := []ecs.EntityID{humanBarracks}
	e.Production().SetRallyForFirstSelected(e.World(), selected, human, -10, -10)
	for _, spawn := range []components.SpawnType{components.SpawnKnight, components.SpawnArcher} {
		e.Production().EnqueueProduction(e.World(), selected, human, spawn)
	}
	return nil
}

func report(e *engine.Engine, logger log.Log) {
	fields := []log.Field{
		log.Uint64("steps", e.Steps()),
		log.Float64("clock", e.Clock()),
		log.Int("entities", e.World().EntityCount()),
	}
	for _, owner := range e.Owners().All() {
		fields = append(fields, log.Int(fmt.Sprintf("troops_%d", owner.OwnerID), e.TroopCounts().Count(owner.OwnerID)))
	}
	if sum, err := e.Checksum(); err == nil {
		fields = append(fields, log.Uint64("checksum", sum))
	}
	logger.Info("simulation finished", fields...)

	for _, owner := range e.Owners().All() {
		st := e.Stats().Get(owner.OwnerID)
		logger.Info("player stats",
			log.Int("player", owner.OwnerID),
			log.Int("recruited", st.TroopsRecruited),
			log.Int("killed", st.EnemiesKilled),
			log.Int("lost", st.TroopsLost),
			log.Int("barracks", st.BarracksOwned),
			log.Int("captured", st.BarracksCaptured),
			log.Float64("play_time", st.PlayTime(e.Clock())))
	}

	for _, m := range e.World().Metrics() {
		logger.Debug("system metrics",
			log.String("system", m.Name),
			log.Uint64("runs", m.ExecutionCount),
			log.String("avg", m.AverageExecutionTime.String()),
			log.String("max", m.MaxExecutionTime.String()))
	}
}

func saveSnapshot(e *engine.Engine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := e.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func loadSnapshot(e *engine.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return e.Load(f)
}
