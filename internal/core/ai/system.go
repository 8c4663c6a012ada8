package ai

import (
	"runtime"

	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/gameplay"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/core/systems"
	"github.com/zeusync/ironcore/pkg/concurrent"
	"github.com/zeusync/ironcore/pkg/sequence"
)

const DefaultInterval = 0.3

type Options struct {
	// Interval between evaluations in seconds.
	Interval float64
	// MaxTroopsPerPlayer seeds every faction context.
	MaxTroopsPerPlayer int
	Formation          gameplay.FormationType
	FilterCooldown     float64
}

// System schedules faction evaluations and applies their results. With a
// running worker evaluations happen off the step and apply on a later step;
// otherwise they run inline, factions in parallel.
type System struct {
	systems.Base

	rules   *gameplay.Rules
	applier *Applier
	worker  *Worker
	opts    Options

	factions []*Faction
	timer    float64
	clock    float64
}

// New creates the AI system. worker may be nil for inline evaluation.
func New(rules *gameplay.Rules, applier *Applier, worker *Worker, opts Options, logger log.Log) *System {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &System{
		Base:    systems.NewBase(systems.NameAI, logger),
		rules:   rules,
		applier: applier,
		worker:  worker,
		opts:    opts,
	}
}

// AddFaction starts driving playerID with the default behaviors. Adding an
// existing faction is a no-op.
func (s *System) AddFaction(playerID int) *Faction {
	if f := s.Faction(playerID); f != nil {
		return f
	}
	f := NewFaction(
		NewContext(playerID, s.opts.MaxTroopsPerPlayer),
		DefaultBehaviors(s.opts.Formation),
		NewCommandFilter(s.opts.FilterCooldown),
	)
	s.factions = append(s.factions, f)
	s.Logger().Info("ai faction added", log.Int("player", playerID))
	return f
}

func (s *System) Faction(playerID int) *Faction {
	for _, f := range s.factions {
		if f.PlayerID() == playerID {
			return f
		}
	}
	return nil
}

func (s *System) Factions() []*Faction {
	return append([]*Faction(nil), s.factions...)
}

func (s *System) threaded() bool {
	return s.worker != nil && s.worker.Running()
}

func (s *System) Update(w *ecs.World, dt float64) {
	s.clock += dt
	if s.worker != nil {
		s.apply(w, s.worker.Drain())
		if !s.worker.Running() {
			// Jobs submitted while the worker was shutting down are never
			// picked up.
			s.worker.discard()
		}
	}

	s.timer += dt
	if s.timer < s.opts.Interval {
		return
	}
	delta := s.timer
	s.timer = 0

	var ready []*Faction
	for _, f := range s.factions {
		if f.processing.CompareAndSwap(false, true) {
			ready = append(ready, f)
		}
	}
	// Snapshots only read the world, so factions are captured in parallel.
	jobs := make([]Job, len(ready))
	indices := make([]int, len(ready))
	for i := range indices {
		indices[i] = i
	}
	_ = concurrent.Concurrent(sequence.From(indices), runtime.GOMAXPROCS(0), func(i int) error {
		f := ready[i]
		jobs[i] = Job{
			Snapshot: BuildSnapshot(w, s.rules, f.PlayerID(), s.clock),
			Context:  f.Context(),
			Delta:    delta,
		}
		return nil
	})

	var inline []workItem
	for i, f := range ready {
		job := jobs[i]
		if s.threaded() {
			if !s.worker.Submit(f, job) {
				f.processing.Store(false)
				s.Logger().Warn("ai job queue full", log.Int("player", job.Context.PlayerID))
			}
			continue
		}
		inline = append(inline, workItem{faction: f, job: job})
	}
	if len(inline) == 0 {
		return
	}

	type outcome struct {
		res Result
		err error
	}
	outcomes := concurrent.ParallelMap(sequence.From(inline), runtime.GOMAXPROCS(0), func(item workItem) outcome {
		res, err := item.faction.safeEvaluate(item.job)
		return outcome{res: res, err: err}
	})
	results := make([]Result, 0, len(outcomes))
	for i, o := range outcomes {
		inline[i].faction.processing.Store(false)
		if o.err != nil {
			s.Logger().Error("ai evaluation failed", log.Error(o.err))
			continue
		}
		results = append(results, o.res)
	}
	s.apply(w, results)
}

func (s *System) apply(w *ecs.World, results []Result) {
	for _, res := range results {
		f := s.Faction(res.PlayerID)
		if f == nil {
			continue
		}
		prev := f.Context().State
		f.setContext(res.Context)
		if prev != res.Context.State {
			s.Logger().Debug("ai state changed",
				log.Int("player", res.PlayerID),
				log.String("from", prev.String()),
				log.String("to", res.Context.State.String()))
		}
		cmds := f.filter.Filter(res.Commands, s.clock)
		if s.applier != nil && len(cmds) > 0 {
			s.applier.Apply(w, res.PlayerID, cmds)
		}
	}
}
