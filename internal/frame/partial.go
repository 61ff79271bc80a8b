package frame

import (
	"sort"
	"time"

	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

// Partial is the cache entry accumulating per-digitiser contributions for one
// fingerprint. Contributions is keyed by digitiser ID; ExpectedIDs is the
// configured digitiser set this deployment waits for.
type Partial struct {
	Metadata      wire.FrameMetadata
	ExpectedIDs   map[uint8]struct{}
	Contributions map[uint8]wire.DigitiserEventMessage
	Birth         time.Time
}

func newPartial(meta wire.FrameMetadata, expected []uint8, birth time.Time) *Partial {
	expectedSet := make(map[uint8]struct{}, len(expected))
	for _, id := range expected {
		expectedSet[id] = struct{}{}
	}
	return &Partial{
		Metadata:      meta,
		ExpectedIDs:   expectedSet,
		Contributions: make(map[uint8]wire.DigitiserEventMessage),
		Birth:         birth,
	}
}

// Complete reports whether every expected digitiser has contributed.
func (p *Partial) Complete() bool {
	if len(p.Contributions) != len(p.ExpectedIDs) {
		return false
	}
	for id := range p.ExpectedIDs {
		if _, ok := p.Contributions[id]; !ok {
			return false
		}
	}
	return true
}

// MissingIDs returns the expected digitisers that never contributed, used in
// the aggregator's incomplete-frame warning log line.
func (p *Partial) MissingIDs() []uint8 {
	var missing []uint8
	for id := range p.ExpectedIDs {
		if _, ok := p.Contributions[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// DeadlineAt returns the eviction time for this entry.
func (p *Partial) DeadlineAt(ttl time.Duration) time.Time {
	return p.Birth.Add(ttl)
}
