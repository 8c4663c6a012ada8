package generic

import (
	"sync"
	"sync/atomic"
)

// Pool is a typed sync.Pool. When a reset hook is set it runs on every Put,
// so values come back clean.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)

	created atomic.Int64
}

func NewPool[T any](generate func() T) *Pool[T] {
	p := &Pool[T]{}
	p.pool.New = func() any {
		p.created.Add(1)
		return generate()
	}
	return p
}

// NewHotPool pre-fills the pool with hotSize values.
func NewHotPool[T any](generate func() T, hotSize int) *Pool[T] {
	p := NewPool[T](generate)
	for range hotSize {
		p.created.Add(1)
		p.pool.Put(generate())
	}
	return p
}

// WithReset sets the hook run on Put and returns p.
func (p *Pool[T]) WithReset(reset func(T)) *Pool[T] {
	p.reset = reset
	return p
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	if p.reset != nil {
		p.reset(value)
	}
	p.pool.Put(value)
}

// Created reports how many values were generated over the pool's lifetime.
func (p *Pool[T]) Created() int64 {
	return p.created.Load()
}
