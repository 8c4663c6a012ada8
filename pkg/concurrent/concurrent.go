package concurrent

import (
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/ironcore/pkg/sequence"
)

// Concurrent runs action for each element of the iterator on its own
// goroutine, at most limit at a time. A limit below 1 means no limit. It
// waits for every goroutine and returns the first error.
func Concurrent[T any](i *sequence.Iterator[T], limit int, action func(T) error) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for value := range i.Seq() {
		g.Go(func() error {
			return action(value)
		})
	}
	return g.Wait()
}

// ParallelMap applies mapFn to each element in parallel with at most workers
// goroutines and returns the results in input order.
func ParallelMap[T any, R any](i *sequence.Iterator[T], workers int, mapFn func(T) R) []R {
	in := i.Collect()
	out := make([]R, len(in))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for idx, val := range in {
		g.Go(func() error {
			out[idx] = mapFn(val)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
