package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues messages for asynchronous processing.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
	EnqueueWithID(ctx context.Context, id, msgType string, payload interface{}) error
}

// Config contains the configuration for the queue.
type Config struct {
	Workers    int           // 0 makes the queue producer-only
	RetryLimit int           // maximum retries before the dead-letter list
	RetryDelay time.Duration // delay before a failed message is retried
}

// ParsePayload decodes a message payload into T.
func ParsePayload[T any](msg Message) (*T, error) {
	var out T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("empty payload for message %s", msg.ID)
	}
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal payload of %s: %w", msg.ID, err)
	}
	return &out, nil
}
