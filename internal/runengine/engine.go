// Package runengine drives the run lifecycle state machine: opening a
// NeXus file on run-start, routing data messages into it by timestamp, and
// closing it once a stopped run's flush delay elapses.
package runengine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/instrument-daq/frame-pipeline/internal/nexus"
	"github.com/instrument-daq/frame-pipeline/internal/runregistry"
	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

// Engine owns the FIFO of live runs and their NeXus files, reserving run
// numbers and recording audit rows through Registry. A run leaves the FIFO
// only once Tick or Abort closes it; until then a stopped run keeps draining
// late-arriving runlog/selog/alarm messages alongside any run started after
// it.
type Engine struct {
	Registry     *runregistry.Registry
	FilePathRoot string
	FlushDelay   time.Duration
	Chunks       nexus.ChunkSizes
	Log          *slog.Logger

	runs []*run
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Engine) back() *run {
	if len(e.runs) == 0 {
		return nil
	}
	return e.runs[len(e.runs)-1]
}

func (e *Engine) front() *run {
	if len(e.runs) == 0 {
		return nil
	}
	return e.runs[0]
}

// Start opens a new run. It fails with ErrUnexpectedRunStart only if the
// most recently started run has no recorded stop yet — a stopped run still
// draining its flush delay does not block a new run from starting.
func (e *Engine) Start(start wire.RunStart) error {
	if back := e.back(); back != nil && back.stopTime == nil {
		return ErrUnexpectedRunStart
	}

	runNumber, err := e.Registry.NextRunNumber()
	if err != nil {
		return fmt.Errorf("runengine: reserve run number: %w", err)
	}

	startTime := time.UnixMilli(int64(start.StartTimeMs)).UTC()
	file, err := nexus.Create(e.FilePathRoot, start.RunName, start.InstrumentName, runNumber, startTime, e.Chunks)
	if err != nil {
		return fmt.Errorf("runengine: create nexus file: %w", err)
	}

	if err := e.Registry.RecordOpened(runNumber, start.RunName, start.InstrumentName, file.Path(), startTime); err != nil {
		file.Close()
		return fmt.Errorf("runengine: record opened: %w", err)
	}

	e.runs = append(e.runs, &run{
		number:         runNumber,
		name:           start.RunName,
		instrumentName: start.InstrumentName,
		startTime:      startTime,
		state:          Open,
		file:           file,
	})
	e.logger().Info("run opened", "run_number", runNumber, "run_name", start.RunName)
	return nil
}

// Stop marks the most recently started run as closing. It fails with
// ErrStopBeforeStart if no run is open, ErrRunStopAlreadySet if a stop was
// already recorded for it, and ErrStopEarlier if the stop time precedes its
// start time.
func (e *Engine) Stop(stop wire.RunStop) error {
	r := e.back()
	if r == nil || r.state == Closed {
		return ErrStopBeforeStart
	}
	if r.stopTime != nil {
		return ErrRunStopAlreadySet
	}

	stopTime := time.UnixMilli(int64(stop.StopTimeMs)).UTC()
	if stopTime.Before(r.startTime) {
		return ErrStopEarlier
	}

	r.stopTime = &stopTime
	r.lastModified = time.Now()
	r.state = Closing
	if err := r.file.Stop(stopTime); err != nil {
		return fmt.Errorf("runengine: record stop time: %w", err)
	}
	if err := e.Registry.RecordStopped(r.number, stopTime); err != nil {
		return fmt.Errorf("runengine: record stopped: %w", err)
	}
	e.logger().Info("run stopping", "run_number", r.number, "stop_time", stopTime)
	return nil
}

// Abort force-closes the most recently started run immediately, used when
// the writer is shutting down with a run still open.
func (e *Engine) Abort(now time.Time) error {
	r := e.back()
	if r == nil || r.state == Closed {
		return nil
	}
	if r.stopTime == nil {
		stop := now
		r.stopTime = &stop
		r.lastModified = now
		if err := r.file.Stop(stop); err != nil {
			return fmt.Errorf("runengine: record abort stop time: %w", err)
		}
	}
	return e.closeRun(r, now, true)
}

// PushEvent routes an aggregated frame into the first live run whose window
// contains its timestamp.
func (e *Engine) PushEvent(frame wire.AggregatedFrameMessage) error {
	r := e.route(frame.Metadata.Timestamp)
	if r == nil {
		return ErrTimestampOutOfRange
	}
	if err := r.file.AppendFrame(frame); err != nil {
		return err
	}
	r.touch(time.Now())
	return nil
}

// PushRunLog routes an f144 sample into the engine's active run — the most
// recently started run that isn't fully closed — regardless of whether the
// sample's timestamp falls within that run's event window.
func (e *Engine) PushRunLog(sample wire.F144LogData) error {
	r := e.activeRun()
	if r == nil {
		return ErrTimestampOutOfRange
	}
	if err := r.file.AppendRunLog(sample); err != nil {
		return err
	}
	r.touch(time.Now())
	return nil
}

// PushSELog routes an se00 packet into the engine's active run, regardless
// of the packet's timestamp.
func (e *Engine) PushSELog(sample wire.SE00Data) error {
	r := e.activeRun()
	if r == nil {
		return ErrTimestampOutOfRange
	}
	if err := r.file.AppendSELog(sample); err != nil {
		return err
	}
	r.touch(time.Now())
	return nil
}

// PushAlarm routes an alarm event into the engine's active run, regardless
// of the alarm's timestamp.
func (e *Engine) PushAlarm(alarm wire.AlarmData) error {
	r := e.activeRun()
	if r == nil {
		return ErrTimestampOutOfRange
	}
	if err := r.file.AppendAlarm(alarm); err != nil {
		return err
	}
	r.touch(time.Now())
	return nil
}

// route returns the first live run (in start order) whose window contains
// ts, or nil if none matches.
func (e *Engine) route(ts time.Time) *run {
	for _, r := range e.runs {
		if r.state != Closed && r.inWindow(ts) {
			return r
		}
	}
	return nil
}

// activeRun returns the most recently started run that isn't fully closed,
// the target for run-control-independent log and alarm traffic.
func (e *Engine) activeRun() *run {
	r := e.back()
	if r == nil || r.state == Closed {
		return nil
	}
	return r
}

func (e *Engine) routable(ts time.Time) bool {
	return e.route(ts) != nil
}

// Tick closes the oldest live run once it has been Closing for at least
// FlushDelay since the last message it accepted, and reports whether a
// close happened. Only ever the front of the FIFO is considered: a run
// started after it cannot be older, so it cannot be ready sooner.
func (e *Engine) Tick(now time.Time) (bool, error) {
	r := e.front()
	if r == nil || r.state != Closing {
		return false, nil
	}
	if now.Before(r.closeDeadline(e.FlushDelay)) {
		return false, nil
	}
	if err := e.closeRun(r, now, false); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) closeRun(r *run, now time.Time, aborted bool) error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("runengine: close file: %w", err)
	}
	if err := e.Registry.RecordClosed(r.number, now, aborted); err != nil {
		return fmt.Errorf("runengine: record closed: %w", err)
	}
	e.logger().Info("run closed", "run_number", r.number, "aborted", aborted)
	r.state = Closed
	r.file = nil
	e.popRun(r)
	return nil
}

// popRun removes a closed run from the FIFO. Tick only ever closes the
// front, but Abort closes the back, which is not the front while an older
// stopped run is still draining, so this searches the whole FIFO.
func (e *Engine) popRun(r *run) {
	for i, candidate := range e.runs {
		if candidate == r {
			e.runs = append(e.runs[:i], e.runs[i+1:]...)
			return
		}
	}
}

// ActiveRunNumber reports the most recently started run's number, if any
// live run remains.
func (e *Engine) ActiveRunNumber() (uint64, bool) {
	r := e.activeRun()
	if r == nil {
		return 0, false
	}
	return r.number, true
}
