package broker

import (
	"context"
	"sync"

	"github.com/instrument-daq/frame-pipeline/internal/telemetry"
)

// Memory is an in-process Consumer+Producer pair used by tests and by the
// simulators this repo does not own. Each published message is delivered
// once, in publish order; Consume removes it from the queue whether or not
// it is later committed.
type Memory struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Message
	nextOff int64
	closed  bool
}

func NewMemory() *Memory {
	m := &Memory{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Publish enqueues a message as if it arrived from an upstream producer.
func (m *Memory) Publish(topic, key string, value []byte, span telemetry.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Message{Topic: topic, Key: key, Value: value, Offset: m.nextOff, Span: span})
	m.nextOff++
	m.cond.Signal()
}

func (m *Memory) Consume(ctx context.Context) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				m.cond.Broadcast()
			case <-done:
			}
		}()
		m.cond.Wait()
		close(done)
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
	}
	if m.closed && len(m.queue) == 0 {
		return Message{}, context.Canceled
	}
	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, nil
}

// Commit is a no-op: Memory already removed the message from the queue on
// delivery, so redelivery can only be simulated by re-Publish-ing.
func (m *Memory) Commit(ctx context.Context, msg Message) error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
	return nil
}

// MemoryProducer collects published messages for assertions in tests.
type MemoryProducer struct {
	mu       sync.Mutex
	Messages []Message
}

func NewMemoryProducer() *MemoryProducer { return &MemoryProducer{} }

func (p *MemoryProducer) Produce(ctx context.Context, topic, key string, value []byte, span telemetry.Span) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, Message{Topic: topic, Key: key, Value: value, Span: span})
	return nil
}

func (p *MemoryProducer) Close() error { return nil }

func (p *MemoryProducer) Snapshot() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.Messages...)
}
