package bus

import (
	"reflect"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// subscription implements Subscription interface.
type subscription struct {
	id        string
	eventType string
	handler   func(any)
	active    atomic.Bool
	cancel    func()
	once      sync.Once
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }
func (s *subscription) IsActive() bool    { return s.active.Load() }
func (s *subscription) Cancel() error {
	s.once.Do(func() {
		s.active.Store(false)
		if s.cancel != nil {
			s.cancel()
		}
	})
	return nil
}

type typeEntry struct {
	name string
	// subs is replaced, never mutated in place, so a Publish that already
	// took a reference keeps iterating a stable slice.
	subs         []*subscription
	publishCount uint64
}

// Manager is the in-memory EventBus used by the simulation.
type Manager struct {
	mu        sync.RWMutex
	types     map[reflect.Type]*typeEntry
	metrics   EventBusMetrics
	observers map[EventBusObserver]struct{}
}

// New creates a new event manager.
func New() *Manager {
	return &Manager{
		types:     make(map[reflect.Type]*typeEntry),
		observers: make(map[EventBusObserver]struct{}),
	}
}

// Subscribe registers handler for events of type T and returns its handle.
// A nil manager yields an inactive handle.
func Subscribe[T any](m *Manager, handler func(T)) Subscription {
	typ := reflect.TypeFor[T]()
	s := &subscription{
		id:        uuid.NewString(),
		eventType: typ.String(),
		handler:   func(ev any) { handler(ev.(T)) },
	}
	if m == nil {
		return s
	}
	s.active.Store(true)
	s.cancel = func() { m.remove(typ, s) }

	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.entryLocked(typ)
	next := make([]*subscription, len(entry.subs), len(entry.subs)+1)
	copy(next, entry.subs)
	entry.subs = append(next, s)
	return s
}

// Publish synchronously delivers event to every current subscriber of T in
// registration order.
func Publish[T any](m *Manager, event T) {
	if m == nil {
		return
	}
	m.deliver(reflect.TypeFor[T](), event)
}

// Unsubscribe cancels the given Subscription. It is safe to call with nil.
func (m *Manager) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

// ClearAll drops every subscription. Handles stay valid and report inactive.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	var dropped []*subscription
	for _, entry := range m.types {
		dropped = append(dropped, entry.subs...)
		entry.subs = nil
	}
	m.mu.Unlock()

	for _, s := range dropped {
		s.active.Store(false)
	}
}

// SubscriberCount returns the number of live subscriptions for T.
func SubscriberCount[T any](m *Manager) int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.types[reflect.TypeFor[T]()]; ok {
		return len(entry.subs)
	}
	return 0
}

// Stats returns per-type counters sorted by type name.
func (m *Manager) Stats() []TypeStats {
	m.mu.RLock()
	out := make([]TypeStats, 0, len(m.types))
	for _, entry := range m.types {
		out = append(out, TypeStats{
			EventType:       entry.name,
			PublishCount:    entry.publishCount,
			SubscriberCount: len(entry.subs),
		})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EventType < out[j].EventType })
	return out
}

func (m *Manager) AddObserver(obs EventBusObserver) {
	m.mu.Lock()
	m.observers[obs] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) RemoveObserver(obs EventBusObserver) {
	m.mu.Lock()
	delete(m.observers, obs)
	m.mu.Unlock()
}

func (m *Manager) GetMetrics() EventBusMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

func (m *Manager) entryLocked(typ reflect.Type) *typeEntry {
	entry, ok := m.types[typ]
	if !ok {
		entry = &typeEntry{name: typ.String()}
		m.types[typ] = entry
	}
	return entry
}

func (m *Manager) remove(typ reflect.Type, target *subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.types[typ]
	if !ok {
		return
	}
	entry.subs = slices.DeleteFunc(slices.Clone(entry.subs), func(s *subscription) bool {
		return s == target
	})
}

func (m *Manager) deliver(typ reflect.Type, event any) {
	start := time.Now()

	m.mu.Lock()
	entry := m.entryLocked(typ)
	entry.publishCount++
	subs := entry.subs
	var observers []EventBusObserver
	if len(m.observers) > 0 {
		observers = make([]EventBusObserver, 0, len(m.observers))
		for obs := range m.observers {
			observers = append(observers, obs)
		}
	}
	m.mu.Unlock()

	for _, obs := range observers {
		obs.OnPublish(entry.name, event)
	}

	delivered := 0
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		s.handler(event)
		delivered++
	}

	if len(observers) > 0 {
		dur := time.Since(start).Microseconds()
		for _, obs := range observers {
			obs.OnDelivered(entry.name, delivered, dur)
		}
		// update metrics only when observing
		m.mu.Lock()
		m.metrics.Published++
		m.metrics.DeliveredHandlers += uint64(delivered)
		var active uint64
		for _, e := range m.types {
			active += uint64(len(e.subs))
		}
		m.metrics.SubscribersActive = active
		m.mu.Unlock()
	}
}
