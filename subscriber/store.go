package subscriber

import "context"

/* Small, focused interface abstracting where runtime-added subscribers are
 * persisted. The registry works without one; attaching a store makes admin
 * appends survive restarts.
 */

// Store persists subscribers appended at runtime
type Store interface {
	// Save persists a subscriber. Called with the registry lock held, so
	// implementations only need to be safe against concurrent Save/List.
	Save(ctx context.Context, sub Subscriber) error

	// List returns every persisted subscriber
	List(ctx context.Context) ([]Subscriber, error)

	Close(ctx context.Context) error
}
