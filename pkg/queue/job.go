package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Job handles one message type.
type Job interface {
	Name() string
	// Type is the message type routed to this job.
	Type() string
	Handle(ctx context.Context, msg Message) error
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}
