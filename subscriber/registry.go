package subscriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

/* Registry holds the set of known subscribers as a copy-on-write slice.
 * Dispatch flows read it concurrently via Snapshot; the occasional admin
 * append goes through a single serialized write path. A published slice is
 * never mutated, so an in-flight iteration can never observe a torn append.
 */

// ErrDuplicateID is returned when a subscriber identifier is already registered
var ErrDuplicateID = errors.New("subscriber id already registered")

type Registry struct {
	mu    sync.RWMutex
	subs  []Subscriber
	store Store
}

// NewRegistry creates a registry. The store is optional: pass nil for a
// memory-only registry, or a Store to persist runtime appends.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Snapshot returns the current subscriber set in registration order.
// The returned slice is shared and must not be modified.
func (r *Registry) Snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs
}

// Get returns the subscriber with the given id
func (r *Registry) Get(id string) (Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		if s.ID == id {
			return s, true
		}
	}
	return Subscriber{}, false
}

// Len returns the number of registered subscribers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Add validates and registers a subscriber in memory only. Used when seeding
// the registry from configuration or from the store at startup.
func (r *Registry) Add(sub Subscriber) error {
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validating subscriber: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publish(sub)
}

// Append validates and registers a subscriber, persisting it to the attached
// store first so a storage failure leaves the registry unchanged. This is
// the administrative mutation path.
func (r *Registry) Append(ctx context.Context, sub Subscriber) error {
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validating subscriber: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.contains(sub.ID) {
		return fmt.Errorf("subscriber %s: %w", sub.ID, ErrDuplicateID)
	}
	if r.store != nil {
		if err := r.store.Save(ctx, sub); err != nil {
			return fmt.Errorf("persisting subscriber: %w", err)
		}
	}
	return r.publish(sub)
}

// publish swaps in a fresh slice so previously returned snapshots stay
// immutable. Callers must hold the write lock.
func (r *Registry) publish(sub Subscriber) error {
	if r.contains(sub.ID) {
		return fmt.Errorf("subscriber %s: %w", sub.ID, ErrDuplicateID)
	}
	next := make([]Subscriber, len(r.subs)+1)
	copy(next, r.subs)
	next[len(r.subs)] = sub
	r.subs = next
	return nil
}

func (r *Registry) contains(id string) bool {
	for _, s := range r.subs {
		if s.ID == id {
			return true
		}
	}
	return false
}
