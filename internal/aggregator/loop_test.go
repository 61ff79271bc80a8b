package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instrument-daq/frame-pipeline/internal/broker"
	"github.com/instrument-daq/frame-pipeline/internal/frame"
	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

func digitiserPayload(digitiserID uint8, frameNumber uint32) []byte {
	m := wire.FrameMetadata{
		Timestamp:   time.Unix(2000, 0).UTC(),
		FrameNumber: frameNumber,
	}
	return wire.EncodeDigitiserEvent(wire.DigitiserEventMessage{
		DigitiserID: digitiserID,
		Metadata:    m,
		Time:        []uint32{uint32(digitiserID)},
		Intensity:   []uint16{uint16(digitiserID)},
		Channel:     []uint32{uint32(digitiserID)},
	})
}

func newTestLoop(t *testing.T) (*Loop, *broker.Memory, *broker.MemoryProducer) {
	t.Helper()
	cache := frame.New([]uint8{1, 2}, 200*time.Millisecond, nil)
	consumer := broker.NewMemory()
	producer := broker.NewMemoryProducer()
	l := &Loop{
		Cache:       cache,
		Consumer:    consumer,
		Producer:    producer,
		OutputTopic: "frame-events",
		PollEvery:   20 * time.Millisecond,
	}
	return l, consumer, producer
}

func TestLoopPublishesOnCompletion(t *testing.T) {
	l, consumer, producer := newTestLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	consumer.Publish("digitiser-events", "", digitiserPayload(1, 42), nil)
	consumer.Publish("digitiser-events", "", digitiserPayload(2, 42), nil)

	require.Eventually(t, func() bool {
		return len(producer.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	msgs := producer.Snapshot()
	out, err := wire.DecodeAggregatedFrame(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), out.Metadata.FrameNumber)
	assert.Equal(t, []uint8{1, 2}, out.SortedDigitiserIDs())

	cancel()
	<-done
}

func TestLoopEvictsIncompleteFrameAtTTL(t *testing.T) {
	l, consumer, producer := newTestLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	consumer.Publish("digitiser-events", "", digitiserPayload(1, 7), nil)

	require.Eventually(t, func() bool {
		return len(producer.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	msgs := producer.Snapshot()
	out, err := wire.DecodeAggregatedFrame(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1}, out.DigitiserIDs)

	cancel()
	<-done
}

func TestLoopDropsMalformedPayload(t *testing.T) {
	l, consumer, producer := newTestLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	consumer.Publish("digitiser-events", "", []byte("short"), nil)
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, producer.Snapshot())

	cancel()
	<-done
}
