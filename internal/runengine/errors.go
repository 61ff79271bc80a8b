package runengine

import "errors"

var (
	// ErrUnexpectedRunStart is returned when a run-start message arrives
	// while a run is already open.
	ErrUnexpectedRunStart = errors.New("runengine: run already open, unexpected run start")
	// ErrStopBeforeStart is returned when a run-stop message arrives with no
	// run currently open.
	ErrStopBeforeStart = errors.New("runengine: run stop received before run start")
	// ErrStopEarlier is returned when a run-stop's timestamp precedes the
	// run's start time.
	ErrStopEarlier = errors.New("runengine: run stop timestamp precedes run start")
	// ErrRunStopAlreadySet is returned when a second run-stop arrives for a
	// run that is already closing.
	ErrRunStopAlreadySet = errors.New("runengine: run stop already set for this run")
	// ErrTimestampOutOfRange is returned when routing a frame whose
	// timestamp falls outside every live run's (start, stop) window, and
	// when a runlog/selog/alarm message arrives with no live run to take it.
	ErrTimestampOutOfRange = errors.New("runengine: timestamp does not fall within any open run")
)
