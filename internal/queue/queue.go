// Package queue carries ledger change events from the API to background consumers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tutorhub/internal/metrics"
)

// DefaultKey is the Redis list holding ledger events.
const DefaultKey = "tutorhub:ledger-events"

// ErrFull is returned by InMemory when no consumer keeps up.
var ErrFull = errors.New("queue full")

// Event kinds.
const (
	AttendanceMarked = "attendance.marked"
	ScoresRecorded   = "scores.recorded"
)

// Event describes one committed ledger write.
type Event struct {
	Kind    string    `json:"kind"`
	BatchID string    `json:"batchId"`
	ActorID string    `json:"actorId"`
	Subject string    `json:"subject,omitempty"`
	Date    string    `json:"date"`
	Written int       `json:"written"`
	Skipped int       `json:"skipped"`
	At      time.Time `json:"at"`
}

// Publisher accepts events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publisher
	Consume(ctx context.Context) (<-chan Event, error)
}

// InMemory is a bounded channel-backed queue for dev and tests. Publish never blocks.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

// Publish enqueues evt or returns ErrFull.
func (q *InMemory) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- evt:
		return nil
	default:
		return ErrFull
	}
}

// Consume returns a channel for workers. It is closed when ctx ends.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue is a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event.
func (q *RedisQueue) Publish(ctx context.Context, evt Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// Consume streams events using BRPOP. Undecodable entries are logged and dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					log.Printf("queue: brpop %s: %v", q.key, err)
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var evt Event
			if err := json.Unmarshal([]byte(res[1]), &evt); err != nil {
				log.Printf("queue: dropping malformed event: %v", err)
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Drain hands every event to handle until ctx ends.
func Drain(ctx context.Context, q Queue, handle func(Event)) error {
	events, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for evt := range events {
		handle(evt)
	}
	return ctx.Err()
}

// LogEvent writes an audit line for evt and counts it.
func LogEvent(evt Event) {
	metrics.LedgerEvents.WithLabelValues(evt.Kind, evt.BatchID).Inc()
	if evt.Subject != "" {
		log.Printf("audit: %s batch=%s subject=%s date=%s by=%s written=%d skipped=%d",
			evt.Kind, evt.BatchID, evt.Subject, evt.Date, evt.ActorID, evt.Written, evt.Skipped)
		return
	}
	log.Printf("audit: %s batch=%s date=%s by=%s written=%d skipped=%d",
		evt.Kind, evt.BatchID, evt.Date, evt.ActorID, evt.Written, evt.Skipped)
}
