// Package bus forwards domain changes to an external message broker so other
// services can follow them. Browser clients are served by package realtime.
package bus

import (
	"context"
	"strings"
	"time"
)

// Publisher emits domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Envelope is the payload written to the broker for every event.
type Envelope struct {
	Topic     string    `json:"topic"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Subject maps a topic such as "event:created" onto a dotted subject under prefix.
func Subject(prefix, topic string) string {
	subject := strings.ReplaceAll(topic, ":", ".")
	if prefix == "" {
		return subject
	}
	return strings.TrimSuffix(prefix, ".") + "." + subject
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
