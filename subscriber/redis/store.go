package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of subscriber.Store
 * Uses one hash per subscriber for the fields and a list for append order,
 * so restored subscribers resolve in the same deterministic order they were
 * registered in.
 */

const (
	hashPrefix = "subscriber"      // Hash naming: subscriber:{id}
	orderKey   = "subscribers:ids" // List of ids in append order
)

type Store struct {
	client *redis.Client
}

// NewStore creates a Redis-backed subscriber store
func NewStore(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Store{
		client: client,
	}, nil
}

// Save persists a subscriber hash and records its position in the order list
func (s *Store) Save(ctx context.Context, sub subscriber.Subscriber) error {
	hashKey := fmt.Sprintf("%s:%s", hashPrefix, sub.ID)

	existed, err := s.client.Exists(ctx, hashKey).Result()
	if err != nil {
		return fmt.Errorf("checking subscriber key: %w", err)
	}

	err = s.client.HSet(ctx, hashKey, map[string]interface{}{
		"id":           sub.ID,
		"name":         sub.Name,
		"base_url":     sub.BaseURL,
		"webhook_path": sub.WebhookPath,
		"verify_path":  sub.VerifyPath,
		"enabled":      boolToInt(sub.Enabled),
		"timeout_ms":   sub.Timeout.Milliseconds(),
		"created_at":   time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing subscriber: %w", err)
	}

	// Only index new ids; re-saving must not duplicate the order entry
	if existed == 0 {
		if err := s.client.RPush(ctx, orderKey, sub.ID).Err(); err != nil {
			return fmt.Errorf("indexing subscriber: %w", err)
		}
	}

	return nil
}

// List returns every persisted subscriber in append order
func (s *Store) List(ctx context.Context) ([]subscriber.Subscriber, error) {
	ids, err := s.client.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing subscriber ids: %w", err)
	}

	subs := make([]subscriber.Subscriber, 0, len(ids))
	for _, id := range ids {
		sub, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (s *Store) get(ctx context.Context, id string) (subscriber.Subscriber, error) {
	hashKey := fmt.Sprintf("%s:%s", hashPrefix, id)

	data, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return subscriber.Subscriber{}, fmt.Errorf("getting subscriber: %w", err)
	}
	if len(data) == 0 {
		return subscriber.Subscriber{}, fmt.Errorf("subscriber not found: %s", id)
	}

	return subscriber.Subscriber{
		ID:          data["id"],
		Name:        data["name"],
		BaseURL:     data["base_url"],
		WebhookPath: data["webhook_path"],
		VerifyPath:  data["verify_path"],
		Enabled:     data["enabled"] == "1",
		Timeout:     time.Duration(parseInt64(data["timeout_ms"])) * time.Millisecond,
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseInt64(str string) int64 {
	var result int64
	fmt.Sscanf(str, "%d", &result)
	return result
}
