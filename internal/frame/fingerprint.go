// Package frame implements the frame fingerprint, the TTL-bounded partial
// frame cache, and the aggregated-frame builder.
package frame

import "github.com/instrument-daq/frame-pipeline/internal/wire"

// Fingerprint is a frame's lookup key: (timestamp, frame_number). Two
// metadata values sharing a Fingerprint may still disagree on other fields
// (a hash collision or corrupt input); the cache performs a full frame-equal
// check on hit to tell the two cases apart.
type Fingerprint struct {
	TimestampUnixNano int64
	FrameNumber       uint32
}

// FingerprintOf derives the lookup key from frame metadata, ignoring
// VetoFlags: two contributions with the same timestamp and frame number but
// different veto flags are still the same frame.
func FingerprintOf(m wire.FrameMetadata) Fingerprint {
	return Fingerprint{
		TimestampUnixNano: m.Timestamp.UnixNano(),
		FrameNumber:       m.FrameNumber,
	}
}
