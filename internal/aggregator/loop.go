// Package aggregator wires the frame cache to the broker.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/instrument-daq/frame-pipeline/internal/broker"
	"github.com/instrument-daq/frame-pipeline/internal/frame"
	"github.com/instrument-daq/frame-pipeline/internal/telemetry"
	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

const outputKey = "FrameAssembledEventsList"

// Loop is a single cooperative task: exactly one of a broker receive or a
// TTL tick makes progress at any moment. The receive side runs on its own
// goroutine only so it can be multiplexed with the ticker in a select; all
// cache mutation and publish decisions happen on the Run goroutine alone.
type Loop struct {
	Cache       *frame.Cache
	Consumer    broker.Consumer
	Producer    broker.Producer
	OutputTopic string
	PollEvery   time.Duration
	Log         *slog.Logger

	// RetryLimiter caps how often a backlog of failed publishes is retried,
	// so a producer-side outage doesn't turn every tick into a storm of
	// repeated failures against the broker.
	RetryLimiter *rate.Limiter

	pending []frame.Built
}

func (l *Loop) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

func (l *Loop) limiter() *rate.Limiter {
	if l.RetryLimiter == nil {
		l.RetryLimiter = rate.NewLimiter(rate.Every(time.Second), 5)
	}
	return l.RetryLimiter
}

// Run drives the loop until ctx is cancelled. On return, residual cache
// entries and any queued-but-unpublished frames are simply dropped — the
// caller already observed ctx.Done().
func (l *Loop) Run(ctx context.Context) error {
	if l.PollEvery <= 0 {
		l.PollEvery = 500 * time.Millisecond
	}
	ticker := time.NewTicker(l.PollEvery)
	defer ticker.Stop()

	msgCh := make(chan broker.Message)
	errCh := make(chan error, 1)
	go l.receive(ctx, msgCh, errCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case msg := <-msgCh:
			l.handleMessage(ctx, msg)
		case <-ticker.C:
			l.drainPoll(ctx)
		}
	}
}

func (l *Loop) receive(ctx context.Context, out chan<- broker.Message, errCh chan<- error) {
	for {
		msg, err := l.Consumer.Consume(ctx)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) handleMessage(ctx context.Context, msg broker.Message) {
	kind, ok := wire.Identify(msg.Value)
	if !ok || kind != wire.KindDigitiserEvent {
		l.logger().Warn("malformed digitiser event payload dropped",
			"topic", msg.Topic, "offset", msg.Offset, "correlation_id", telemetry.CorrelationID())
		l.commit(ctx, msg)
		return
	}
	ev, err := wire.DecodeDigitiserEvent(msg.Value)
	if err != nil {
		l.logger().Warn("malformed digitiser event dropped",
			"error", err, "topic", msg.Topic, "offset", msg.Offset, "correlation_id", telemetry.CorrelationID())
		l.commit(ctx, msg)
		return
	}
	if err := ev.Validate(); err != nil {
		l.logger().Warn("digitiser event size mismatch, frame contribution dropped",
			"error", err, "digitiser_id", ev.DigitiserID, "frame_number", ev.Metadata.FrameNumber,
			"correlation_id", telemetry.CorrelationID())
		l.commit(ctx, msg)
		return
	}

	_, complete := l.Cache.Push(time.Now(), ev.DigitiserID, ev.Metadata, ev)
	// The offset is committed once the contribution has been pushed into the
	// cache, regardless of whether it completed a frame.
	l.commit(ctx, msg)

	if complete {
		l.drainPoll(ctx)
	}
}

func (l *Loop) commit(ctx context.Context, msg broker.Message) {
	if err := l.Consumer.Commit(ctx, msg); err != nil {
		l.logger().Error("commit failed", "error", err, "topic", msg.Topic, "offset", msg.Offset)
	}
}

// drainPoll first retries anything still queued from an earlier failed
// publish, then empties the cache of evictable frames and attempts to
// publish each.
func (l *Loop) drainPoll(ctx context.Context) {
	l.retryPending(ctx)

	for {
		built, ok := l.Cache.Poll(time.Now())
		if !ok {
			return
		}
		if !built.Complete {
			l.logger().Warn("frame evicted incomplete at TTL",
				"frame_number", built.Frame.Metadata.FrameNumber, "missing_digitisers", built.Missing)
		}
		l.publish(ctx, built)
	}
}

func (l *Loop) retryPending(ctx context.Context) {
	if len(l.pending) == 0 {
		return
	}
	still := l.pending[:0]
	for _, built := range l.pending {
		if !l.limiter().Allow() {
			still = append(still, built)
			continue
		}
		if !l.tryPublish(ctx, built) {
			still = append(still, built)
		}
	}
	l.pending = still
}

func (l *Loop) publish(ctx context.Context, built frame.Built) {
	if !l.tryPublish(ctx, built) {
		l.pending = append(l.pending, built)
	}
}

func (l *Loop) tryPublish(ctx context.Context, built frame.Built) bool {
	payload := wire.EncodeAggregatedFrame(built.Frame)
	if err := l.Producer.Produce(ctx, l.OutputTopic, outputKey, payload, nil); err != nil {
		l.logger().Error("publish failed, will retry on next tick", "error", err,
			"frame_number", built.Frame.Metadata.FrameNumber)
		return false
	}
	return true
}
