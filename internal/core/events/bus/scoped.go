package bus

import (
	"errors"
	"sync"
)

// Scoped ties a subscription to the lifetime of its owner. The owner calls
// Close (usually from its own Close or Shutdown) and the handler is detached;
// further calls are no-ops.
type Scoped[T any] struct {
	sub Subscription
}

// NewScoped subscribes handler to events of type T.
func NewScoped[T any](m *Manager, handler func(T)) *Scoped[T] {
	return &Scoped[T]{sub: Subscribe(m, handler)}
}

// Unsubscribe detaches the handler.
func (s *Scoped[T]) Unsubscribe() {
	if s == nil || s.sub == nil {
		return
	}
	_ = s.sub.Cancel()
}

// Close implements io.Closer.
func (s *Scoped[T]) Close() error {
	s.Unsubscribe()
	return nil
}

// Active reports whether the handler is still attached.
func (s *Scoped[T]) Active() bool {
	return s != nil && s.sub != nil && s.sub.IsActive()
}

// Group collects subscriptions of mixed event types so an owner can release
// them together.
type Group struct {
	mu   sync.Mutex
	subs []Subscription
}

// Add records sub and returns it for chaining.
func (g *Group) Add(sub Subscription) Subscription {
	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
	return sub
}

// Len returns the number of subscriptions held.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close cancels every subscription in the group.
func (g *Group) Close() error {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	var all error
	for _, s := range subs {
		if err := s.Cancel(); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}
