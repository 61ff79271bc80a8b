package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

func meta(frameNumber uint32, veto uint16) wire.FrameMetadata {
	return wire.FrameMetadata{
		Timestamp:   time.Unix(1000, 0).UTC(),
		FrameNumber: frameNumber,
		VetoFlags:   veto,
	}
}

func TestHappyFrame(t *testing.T) {
	c := New([]uint8{1, 2}, 500*time.Millisecond, nil)
	now := time.Now()

	m1 := meta(100, 0)
	_, complete := c.Push(now, 1, m1, wire.DigitiserEventMessage{Metadata: m1, Time: []uint32{1, 2}, Intensity: []uint16{10, 20}, Channel: []uint32{0, 1}})
	assert.False(t, complete)

	m2 := meta(100, 0)
	fp, complete := c.Push(now, 2, m2, wire.DigitiserEventMessage{Metadata: m2, Time: []uint32{3}, Intensity: []uint16{30}, Channel: []uint32{2}})
	assert.True(t, complete)

	built, ok := c.Poll(now)
	require.True(t, ok)
	assert.True(t, built.Complete)
	assert.Equal(t, []uint32{1, 2, 3}, built.Frame.Time)
	assert.Equal(t, []uint16{10, 20, 30}, built.Frame.Intensity)
	assert.Equal(t, []uint32{0, 1, 2}, built.Frame.Channel)
	assert.Equal(t, []uint8{1, 2}, built.Frame.DigitiserIDs)

	_, found := c.Find(fp)
	assert.False(t, found, "evicted frame should no longer be findable")
}

func TestTTLEviction(t *testing.T) {
	c := New([]uint8{1, 2}, 500*time.Millisecond, nil)
	start := time.Now()

	m1 := meta(101, 0)
	c.Push(start, 1, m1, wire.DigitiserEventMessage{Metadata: m1, Time: []uint32{1, 2}, Intensity: []uint16{10, 20}, Channel: []uint32{0, 1}})

	_, ok := c.Poll(start.Add(100 * time.Millisecond))
	assert.False(t, ok, "frame should not evict before TTL")

	built, ok := c.Poll(start.Add(600 * time.Millisecond))
	require.True(t, ok)
	assert.False(t, built.Complete)
	assert.Equal(t, []uint8{2}, built.Missing)
	assert.Equal(t, []uint32{1, 2}, built.Frame.Time)
}

func TestDuplicateDigitiserFirstWins(t *testing.T) {
	c := New([]uint8{1, 2}, 500*time.Millisecond, nil)
	now := time.Now()

	m1 := meta(102, 0)
	c.Push(now, 1, m1, wire.DigitiserEventMessage{Metadata: m1, Time: []uint32{1}, Intensity: []uint16{10}, Channel: []uint32{0}})
	c.Push(now, 1, m1, wire.DigitiserEventMessage{Metadata: m1, Time: []uint32{99}, Intensity: []uint16{99}, Channel: []uint32{9}})
	_, complete := c.Push(now, 2, m1, wire.DigitiserEventMessage{Metadata: m1, Time: []uint32{3}, Intensity: []uint16{30}, Channel: []uint32{2}})
	assert.True(t, complete)

	built, ok := c.Poll(now)
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 3}, built.Frame.Time, "second contribution from digitiser 1 must be dropped")
}

func TestUnknownDigitiserNeverEmits(t *testing.T) {
	c := New([]uint8{1, 2}, 10*time.Millisecond, nil)
	now := time.Now()

	m := meta(103, 0)
	fp, complete := c.Push(now, 3, m, wire.DigitiserEventMessage{Metadata: m, Time: []uint32{1}, Intensity: []uint16{1}, Channel: []uint32{1}})
	assert.False(t, complete)

	_, found := c.Find(fp)
	assert.False(t, found, "unknown digitiser must not create a partial frame")

	_, ok := c.Poll(now.Add(time.Second))
	assert.False(t, ok, "no partial frame exists, so nothing is ever emitted for fn=103")
}

func TestLateArrivalAfterPublishIsDropped(t *testing.T) {
	c := New([]uint8{1, 2}, 500*time.Millisecond, nil)
	now := time.Now()

	m := meta(104, 0)
	c.Push(now, 1, m, wire.DigitiserEventMessage{Metadata: m, Time: []uint32{1}, Intensity: []uint16{1}, Channel: []uint32{1}})
	c.Push(now, 2, m, wire.DigitiserEventMessage{Metadata: m, Time: []uint32{2}, Intensity: []uint16{2}, Channel: []uint32{2}})
	_, ok := c.Poll(now)
	require.True(t, ok)

	_, complete := c.Push(now, 1, m, wire.DigitiserEventMessage{Metadata: m, Time: []uint32{9}, Intensity: []uint16{9}, Channel: []uint32{9}})
	assert.False(t, complete)
	assert.Equal(t, 0, c.PendingCount())
}

func TestFingerprintStability(t *testing.T) {
	m1 := meta(200, 1)
	m2 := meta(200, 5) // veto flags differ, still frame-equal
	assert.Equal(t, FingerprintOf(m1), FingerprintOf(m2))
	assert.True(t, m1.FrameEqual(m2))
}
