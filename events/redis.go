package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	streamMaxLen  = 10000
	publishExpiry = 5 * time.Second
)

// StreamSink publishes debate events to a per-debate Redis Stream so that
// other instances (or a replay consumer) can pick them up.
type StreamSink struct {
	rdb *redis.Client
}

// NewStreamSink connects to Redis and verifies the connection.
func NewStreamSink(addr, password string, db int) (*StreamSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &StreamSink{rdb: rdb}, nil
}

// Publish appends the event to the debate's stream. Runs asynchronously so
// lifecycle operations never wait on Redis.
func (s *StreamSink) Publish(debateID string, event *Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishExpiry)
		defer cancel()

		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("events: marshal %s event: %v", event.Type, err)
			return
		}

		streamKey := fmt.Sprintf("debate:%s:events", debateID)
		err = s.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: streamKey,
			Values: map[string]interface{}{"data": string(data)},
			MaxLen: streamMaxLen,
			Approx: true,
		}).Err()
		if err != nil {
			log.Printf("events: publish to %s: %v", streamKey, err)
		}
	}()
}

// Close releases the Redis connection.
func (s *StreamSink) Close() error {
	return s.rdb.Close()
}
