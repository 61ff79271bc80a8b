package runengine

import (
	"time"

	"github.com/instrument-daq/frame-pipeline/internal/nexus"
)

// State is a run's position in its lifecycle.
type State int

const (
	// Open accepts events, period data, and logs. A run-stop moves it to
	// Closing; it never moves directly to Closed.
	Open State = iota
	// Closing has a recorded stop time but keeps accepting late-arriving
	// runlog/selog/alarm messages until FlushDelay elapses since the last
	// message it accepted.
	Closing
	// Closed has had its file flushed and closed; the engine drops its
	// reference once a run reaches this state.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// run tracks one in-progress or closing run and the file backing it. The
// engine keeps a FIFO of these so a stopped run can keep draining
// late-arriving messages alongside a freshly started one.
type run struct {
	number         uint64
	name           string
	instrumentName string
	startTime      time.Time
	stopTime       *time.Time
	lastModified   time.Time
	state          State

	file *nexus.RunFile
}

// inWindow reports whether ts falls strictly after startTime and, if a stop
// time is set, strictly before it.
func (r *run) inWindow(ts time.Time) bool {
	if !r.startTime.Before(ts) {
		return false
	}
	if r.stopTime != nil && !ts.Before(*r.stopTime) {
		return false
	}
	return true
}

// touch records that a message was just routed to this run, pushing back
// its close deadline while it remains Closing.
func (r *run) touch(now time.Time) {
	r.lastModified = now
}

// closeDeadline is the time at which a Closing run becomes eligible to be
// flushed and closed: FlushDelay after the last message it accepted.
func (r *run) closeDeadline(flushDelay time.Duration) time.Time {
	if r.stopTime == nil {
		return time.Time{}
	}
	return r.lastModified.Add(flushDelay)
}
