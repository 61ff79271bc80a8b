package runengine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/instrument-daq/frame-pipeline/internal/broker"
	"github.com/instrument-daq/frame-pipeline/internal/telemetry"
	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

// Loop fans in run-control, frame, runlog, selog, and alarm consumers and
// drives Engine off whichever one has a message ready, interleaved with a
// tick that flushes and closes runs whose FlushDelay has elapsed.
type Loop struct {
	Engine *Engine

	RunControl broker.Consumer
	Frames     broker.Consumer
	RunLog     broker.Consumer
	SELog      broker.Consumer
	Alarms     broker.Consumer

	TickEvery time.Duration
	Log       *slog.Logger
}

func (l *Loop) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

// Run drives the loop until ctx is cancelled, then aborts every run still
// in the engine, newest first, so each run file is closed before returning.
func (l *Loop) Run(ctx context.Context) error {
	if l.TickEvery <= 0 {
		l.TickEvery = time.Second
	}
	ticker := time.NewTicker(l.TickEvery)
	defer ticker.Stop()

	msgCh := make(chan routedMessage)
	errCh := make(chan error, 5)
	for _, c := range []broker.Consumer{l.RunControl, l.Frames, l.RunLog, l.SELog, l.Alarms} {
		go feed(ctx, c, msgCh, errCh)
	}

	for {
		select {
		case <-ctx.Done():
			for {
				if _, ok := l.Engine.ActiveRunNumber(); !ok {
					break
				}
				if err := l.Engine.Abort(time.Now()); err != nil {
					l.logger().Error("abort on shutdown failed", "error", err)
					break
				}
			}
			return ctx.Err()
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case msg := <-msgCh:
			l.dispatch(ctx, msg)
		case now := <-ticker.C:
			if _, err := l.Engine.Tick(now); err != nil {
				l.logger().Error("run close tick failed", "error", err)
			}
		}
	}
}

// routedMessage carries a consumed message alongside the consumer it came
// from, so the dispatch side can commit back to the right source.
type routedMessage struct {
	broker.Message
	from broker.Consumer
}

func feed(ctx context.Context, c broker.Consumer, out chan<- routedMessage, errCh chan<- error) {
	for {
		msg, err := c.Consume(ctx)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case out <- routedMessage{Message: msg, from: c}:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, rm routedMessage) {
	msg := rm.Message
	kind, ok := wire.Identify(msg.Value)
	if !ok {
		l.logger().Warn("malformed message dropped",
			"topic", msg.Topic, "offset", msg.Offset, "correlation_id", telemetry.CorrelationID())
		l.commit(ctx, rm)
		return
	}

	var err error
	switch kind {
	case wire.KindRunStart:
		var start wire.RunStart
		if start, err = wire.DecodeRunStart(msg.Value); err == nil {
			err = l.Engine.Start(start)
		}
	case wire.KindRunStop:
		var stop wire.RunStop
		if stop, err = wire.DecodeRunStop(msg.Value); err == nil {
			err = l.Engine.Stop(stop)
		}
	case wire.KindAggregatedFrame:
		var frame wire.AggregatedFrameMessage
		if frame, err = wire.DecodeAggregatedFrame(msg.Value); err == nil {
			err = l.Engine.PushEvent(frame)
		}
	case wire.KindF144Log:
		var sample wire.F144LogData
		if sample, err = wire.DecodeF144(msg.Value); err == nil {
			err = l.Engine.PushRunLog(sample)
		}
	case wire.KindSE00Data:
		var sample wire.SE00Data
		if sample, err = wire.DecodeSE00(msg.Value); err == nil {
			err = l.Engine.PushSELog(sample)
		}
	case wire.KindAlarm:
		var alarm wire.AlarmData
		if alarm, err = wire.DecodeAlarm(msg.Value); err == nil {
			err = l.Engine.PushAlarm(alarm)
		}
	default:
		l.logger().Warn("unrecognized message kind dropped",
			"topic", msg.Topic, "correlation_id", telemetry.CorrelationID())
		l.commit(ctx, rm)
		return
	}

	if err != nil {
		if errors.Is(err, ErrTimestampOutOfRange) {
			l.logger().Warn("message timestamp outside any open run, dropped",
				"topic", msg.Topic, "offset", msg.Offset, "correlation_id", telemetry.CorrelationID())
		} else {
			l.logger().Error("message routing failed", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
	l.commit(ctx, rm)
}

func (l *Loop) commit(ctx context.Context, rm routedMessage) {
	if err := rm.from.Commit(ctx, rm.Message); err != nil {
		l.logger().Error("commit failed", "error", err, "topic", rm.Topic, "offset", rm.Offset)
	}
}
