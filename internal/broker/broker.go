// Package broker defines the at-least-once delivery boundary the rest of
// this repo treats as an external collaborator: opaque byte payloads keyed
// by topic. The core only needs the interface; this package also carries a
// production Kafka implementation and an in-memory one for tests.
package broker

import (
	"context"

	"github.com/instrument-daq/frame-pipeline/internal/telemetry"
)

// Message is one broker record, decoded only as far as topic/key/headers —
// the payload stays opaque until a wire.Decode* call unpacks it.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Partition int
	Offset    int64
	Span      telemetry.Span
}

// Consumer delivers messages at least once. Commit acknowledges a message
// has been fully handled; the offset only advances after the consume side
// is done with it.
type Consumer interface {
	Consume(ctx context.Context) (Message, error)
	Commit(ctx context.Context, m Message) error
	Close() error
}

// Producer publishes best-effort; callers retry on the next tick rather than
// block the consume loop.
type Producer interface {
	Produce(ctx context.Context, topic, key string, value []byte, span telemetry.Span) error
	Close() error
}
