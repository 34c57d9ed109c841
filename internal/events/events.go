// Package events carries change notifications from the persistence layer
// to whoever wants to re-sync. A notification only says "something changed
// in table X"; subscribers pull a fresh snapshot rather than applying
// incremental diffs.
package events

import (
	"sync"
	"time"
)

// Tables that emit change notifications.
const (
	TableTrucks   = "trucks"
	TableCheckins = "checkins"
	TableReviews  = "reviews"
)

// Change describes a mutation in one persisted table.
type Change struct {
	Table string
	At    time.Time
}

// Handler reacts to a change notification.
type Handler func(change Change)

// Bus provides in-process pub/sub for table changes.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for changes in the given table.
func (b *Bus) Subscribe(table string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[table] = append(b.subscribers[table], handler)
}

// Publish notifies subscribers of the table. Handlers run synchronously;
// the caller decides the concurrency model.
func (b *Bus) Publish(change Change) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[change.Table]...)
	b.mu.RUnlock()

	if change.At.IsZero() {
		change.At = time.Now()
	}

	for _, handler := range handlers {
		handler(change)
	}
}
