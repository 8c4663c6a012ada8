package navigation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zeusync/ironcore/internal/core/observability/log"
)

type PathRequest struct {
	ID    uint64
	Start Point
	End   Point
}

type PathResult struct {
	ID   uint64
	Path []Point
}

// PathService answers path requests on a worker goroutine. Submit never
// blocks; results are collected with Completed on a later step.
type PathService struct {
	finder *Pathfinder
	logger log.Log

	mu      sync.Mutex
	pending []PathRequest
	notify  chan struct{}

	resultsMu sync.Mutex
	results   []PathResult

	nextID  atomic.Uint64
	running atomic.Bool
}

func NewPathService(finder *Pathfinder, logger log.Log) *PathService {
	return &PathService{
		finder: finder,
		logger: log.OrNop(logger).With(log.String("component", "path_service")),
		notify: make(chan struct{}, 1),
	}
}

// Finder exposes the underlying pathfinder for synchronous queries.
func (s *PathService) Finder() *Pathfinder {
	return s.finder
}

// NextRequestID hands out a fresh nonzero request ID.
func (s *PathService) NextRequestID() uint64 {
	return s.nextID.Add(1)
}

// Submit queues a request for the worker.
func (s *PathService) Submit(id uint64, start, end Point) {
	s.mu.Lock()
	s.pending = append(s.pending, PathRequest{ID: id, Start: start, End: end})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Completed drains finished results in completion order.
func (s *PathService) Completed() []PathResult {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	out := s.results
	s.results = nil
	return out
}

// Pending returns the number of requests not yet picked up.
func (s *PathService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Running reports whether a worker is attached.
func (s *PathService) Running() bool {
	return s.running.Load()
}

// ProcessPending answers every queued request on the calling goroutine and
// returns how many were handled.
func (s *PathService) ProcessPending() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, req := range batch {
		path := s.finder.FindPath(req.Start, req.End)
		s.resultsMu.Lock()
		s.results = append(s.results, PathResult{ID: req.ID, Path: path})
		s.resultsMu.Unlock()
	}
	return len(batch)
}

// Run is the worker loop. It returns when ctx is cancelled, after finishing
// the batch in hand.
func (s *PathService) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)
	s.logger.Debug("path worker started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("path worker stopped", log.Int("pending", s.Pending()))
			return nil
		case <-s.notify:
			if n := s.ProcessPending(); n > 0 {
				s.logger.Debug("paths resolved", log.Int("count", n))
			}
		}
	}
}
