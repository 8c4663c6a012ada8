package ai

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zeusync/ironcore/internal/core/observability/log"
)

const defaultJobBuffer = 8

// Faction is one AI-controlled owner: its context, its own behavior instances
// and its command filter. At most one evaluation per faction is in flight.
type Faction struct {
	mu        sync.Mutex
	ctx       Context
	behaviors []Behavior
	filter    *CommandFilter

	processing atomic.Bool
}

func NewFaction(ctx Context, behaviors []Behavior, filter *CommandFilter) *Faction {
	SortBehaviors(behaviors)
	if filter == nil {
		filter = NewCommandFilter(0)
	}
	return &Faction{ctx: ctx, behaviors: behaviors, filter: filter}
}

func (f *Faction) PlayerID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx.PlayerID
}

// Context returns a copy of the faction's current context.
func (f *Faction) Context() Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx.Clone()
}

func (f *Faction) setContext(ctx Context) {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()
}

// Processing reports whether an evaluation is in flight.
func (f *Faction) Processing() bool {
	return f.processing.Load()
}

// evaluate runs one full decision pass over job. It touches only the job's
// copies and the faction's behaviors.
func (f *Faction) evaluate(job Job) Result {
	ctx := job.Context
	ctx.Clock += job.Delta
	UpdateContext(&job.Snapshot, &ctx)
	UpdateStateMachine(&ctx, job.Delta)
	cmds := RunBehaviors(f.behaviors, &job.Snapshot, &ctx, job.Delta)
	return Result{PlayerID: ctx.PlayerID, Context: ctx, Commands: cmds}
}

// safeEvaluate converts a panicking evaluation into an error.
func (f *Faction) safeEvaluate(job Job) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ai evaluation for player %d panicked: %v", job.Context.PlayerID, r)
		}
	}()
	return f.evaluate(job), nil
}

type workItem struct {
	faction *Faction
	job     Job
}

// Worker evaluates factions off the simulation goroutine. Submit never
// blocks; results are collected with Drain on a later step.
type Worker struct {
	jobs   chan workItem
	logger log.Log

	mu      sync.Mutex
	results []Result

	running atomic.Bool
}

func NewWorker(logger log.Log) *Worker {
	return &Worker{
		jobs:   make(chan workItem, defaultJobBuffer),
		logger: log.OrNop(logger).With(log.String("component", "ai_worker")),
	}
}

// Running reports whether Run is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Submit hands job to the worker. It fails when the queue is full.
func (w *Worker) Submit(f *Faction, job Job) bool {
	select {
	case w.jobs <- workItem{faction: f, job: job}:
		return true
	default:
		return false
	}
}

// Drain returns finished results in completion order.
func (w *Worker) Drain() []Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.results
	w.results = nil
	return out
}

// Run is the worker loop. It returns when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.running.Store(true)
	defer w.running.Store(false)
	w.logger.Debug("ai worker started")

	for {
		select {
		case <-ctx.Done():
			dropped := w.discard()
			w.logger.Debug("ai worker stopped", log.Int("dropped", dropped))
			return nil
		case item := <-w.jobs:
			w.process(item)
		}
	}
}

// discard empties the job queue and releases the factions that were waiting
// on it. It returns the number of dropped jobs.
func (w *Worker) discard() int {
	n := 0
	for {
		select {
		case item := <-w.jobs:
			item.faction.processing.Store(false)
			n++
		default:
			return n
		}
	}
}

func (w *Worker) process(item workItem) {
	res, err := item.faction.safeEvaluate(item.job)
	if err != nil {
		w.logger.Error("ai evaluation failed", log.Error(err))
	} else {
		w.mu.Lock()
		w.results = append(w.results, res)
		w.mu.Unlock()
	}
	item.faction.processing.Store(false)
}
