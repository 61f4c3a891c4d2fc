// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the client appends action records to.
const DefaultQueueName = "kalooki_actions"

// Record is one player action and how it ended, as the client saw it.
type Record struct {
	SessionID   uuid.UUID              `json:"session_id"`
	GameID      string                 `json:"game_id"`
	PlayerID    int                    `json:"player_id"`
	ActionIndex int                    `json:"action_index"`
	Action      string                 `json:"action"`
	Outcome     string                 `json:"outcome"`
	Error       string                 `json:"error,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// Publisher accepts records. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// Nop drops every record. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Record) error { return nil }

// Redis is a Publisher backed by a Redis list; it also serves as the
// historian's source.
type Redis struct {
	rdb   *redis.Client
	queue string
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedis wraps an open client. An empty queue name means DefaultQueueName.
func NewRedis(rdb *redis.Client, queue string) *Redis {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Redis{rdb: rdb, queue: queue}
}

// Publish serializes the record to JSON and pushes it onto the queue.
func (r *Redis) Publish(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}
	if err := r.rdb.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. ok is false when the queue
// stayed empty.
func (r *Redis) Pop(ctx context.Context, timeout time.Duration) (rec Record, ok bool, err error) {
	res, err := r.rdb.BLPop(ctx, timeout, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("BLPop %s: %w", r.queue, err)
	}
	// res[0] is the queue name, res[1] the payload.
	if len(res) < 2 {
		return Record{}, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return Record{}, false, fmt.Errorf("invalid journal record: %w", err)
	}
	return rec, true, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.rdb.Close() }
