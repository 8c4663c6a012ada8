package bus

// Manager (see eventbus.go) is a thread-safe, in-process pub/sub event bus.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by the Go type of the event value.
// - Synchronous delivery: Publish calls handlers on the publishing goroutine,
//   in the order they subscribed, exactly once per Publish call.
// - Publishing an event type nobody listens to is a no-op.
// - Optional observability: metrics are produced only when observers are registered.
//
// Notes:
// - Handlers must be quick or hand work off to their own goroutine (the audio
//   layer does this with its event queue).
// - A handler cancelled before Publish takes its snapshot is never invoked; a
//   handler cancelled by an earlier handler during the same Publish is skipped.

// Subscription represents a registered handler bound to an event type.
// Use Cancel or Manager.Unsubscribe to stop receiving events.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the Go type name of the events this subscription receives.
	EventType() string
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnPublish(eventType string, event any)
	OnDelivered(eventType string, handlers int, durationMicros int64)
}

// EventBusMetrics represents a minimal set of counters; it is updated only when
// at least one observer is registered.
type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	SubscribersActive uint64
}

// TypeStats is a per-event-type snapshot. PublishCount is tracked regardless
// of observers.
type TypeStats struct {
	EventType       string
	PublishCount    uint64
	SubscriberCount int
}
