// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event types pushed onto the queue.
const (
	TypeRequestSent     = "friend_request.sent"
	TypeRequestAccepted = "friend_request.accepted"
)

// Record is one friendship lifecycle event. Downstream consumers (e.g. a
// notification fan-out worker) pop these off the Redis list.
type Record struct {
	Type        string    `json:"type"`
	RequestID   uuid.UUID `json:"request_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Timestamp   int64     `json:"timestamp"`
}

// Publisher pushes records to a Redis list. A nil *Publisher is valid and
// drops everything, so the queue stays optional.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// Connect builds the Redis client and pings it.
func Connect(addr string, db int, queue string) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Publisher{rdb: rdb, queue: queue}, nil
}

// Close releases the Redis client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}

// Publish serializes the record and appends it to the queue. Best effort:
// callers log failures but do not fail the originating request over them.
func (p *Publisher) Publish(ctx context.Context, record Record) error {
	if p == nil {
		return nil
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal event record: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
