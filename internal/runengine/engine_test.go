package runengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

func TestRunWindowRouting(t *testing.T) {
	start := time.Unix(1000, 0).UTC()
	stop := time.Unix(2000, 0).UTC()
	r := &run{startTime: start, stopTime: &stop, state: Closing}

	assert.False(t, r.inWindow(start.Add(-time.Second)))
	assert.False(t, r.inWindow(start))
	assert.True(t, r.inWindow(start.Add(time.Nanosecond)))
	assert.True(t, r.inWindow(start.Add(500*time.Second)))
	assert.False(t, r.inWindow(stop))
	assert.False(t, r.inWindow(stop.Add(time.Second)))
}

func TestRunWindowOpenEndedAcceptsAnythingAfterStart(t *testing.T) {
	start := time.Unix(1000, 0).UTC()
	r := &run{startTime: start, state: Open}

	assert.True(t, r.inWindow(start.Add(time.Hour)))
	assert.False(t, r.inWindow(start))
	assert.False(t, r.inWindow(start.Add(-time.Millisecond)))
}

func TestCloseDeadline(t *testing.T) {
	stop := time.Unix(2000, 0).UTC()
	r := &run{stopTime: &stop, lastModified: stop}

	assert.Equal(t, stop.Add(30*time.Second), r.closeDeadline(30*time.Second))
}

func TestCloseDeadlineAdvancesOnLateMessages(t *testing.T) {
	stop := time.Unix(2000, 0).UTC()
	later := stop.Add(10 * time.Second)
	r := &run{stopTime: &stop, lastModified: stop}
	r.touch(later)

	assert.Equal(t, later.Add(30*time.Second), r.closeDeadline(30*time.Second))
}

func TestCloseDeadlineZeroBeforeStop(t *testing.T) {
	r := &run{}
	assert.True(t, r.closeDeadline(30*time.Second).IsZero())
}

func TestTickNoOpWithoutActiveRun(t *testing.T) {
	e := &Engine{}
	closed, err := e.Tick(time.Now())
	assert.NoError(t, err)
	assert.False(t, closed)
}

func TestRoutingErrorsWithNoActiveRun(t *testing.T) {
	e := &Engine{}
	assert.False(t, e.routable(time.Now()))
	_, ok := e.ActiveRunNumber()
	assert.False(t, ok)
}

func TestStartRejectsOnlyWhenBackRunHasNoStop(t *testing.T) {
	e := &Engine{runs: []*run{{number: 1, state: Open}}}
	assert.ErrorIs(t, e.Start(wire.RunStart{RunName: "r2"}), ErrUnexpectedRunStart)

	// Once the back run has a recorded stop, the guard no longer trips —
	// checked directly, since exercising the rest of Start needs a real
	// Registry and nexus.RunFile this package's tests deliberately avoid.
	stop := time.Unix(2000, 0).UTC()
	e.runs[0].stopTime = &stop
	e.runs[0].state = Closing
	back := e.back()
	assert.NotNil(t, back)
	assert.NotNil(t, back.stopTime)
}

func TestPushEventRoutesToFirstMatchingLiveRun(t *testing.T) {
	older := &run{number: 1, startTime: time.Unix(0, 0).UTC(), state: Open}
	stopOlder := time.Unix(1000, 0).UTC()
	older.stopTime = &stopOlder
	older.state = Closing

	newer := &run{number: 2, startTime: time.Unix(1500, 0).UTC(), state: Open}

	e := &Engine{runs: []*run{older, newer}}

	// A timestamp inside the older, already-stopped run's window routes
	// there even though a newer run is also live.
	r := e.route(time.Unix(500, 0).UTC())
	assert.Same(t, older, r)

	// A timestamp only the newer run covers routes to it instead.
	r = e.route(time.Unix(1600, 0).UTC())
	assert.Same(t, newer, r)

	// A timestamp in neither window matches nothing.
	assert.Nil(t, e.route(time.Unix(1200, 0).UTC()))
}

func TestActiveRunIsMostRecentlyStarted(t *testing.T) {
	older := &run{number: 1, state: Closing}
	newer := &run{number: 2, state: Open}
	e := &Engine{runs: []*run{older, newer}}

	r := e.activeRun()
	assert.Same(t, newer, r)
}
