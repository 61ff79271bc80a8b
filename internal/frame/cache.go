package frame

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/instrument-daq/frame-pipeline/internal/wire"
)

// Cache is a TTL-bounded per-frame cache joining digitiser contributions
// into aggregated frames. It is safe for concurrent use, though the
// aggregator loop is the only caller and drives it from a single goroutine.
type Cache struct {
	mu          sync.Mutex
	entries     map[Fingerprint]*Partial
	expectedIDs []uint8
	ttl         time.Duration
	log         *slog.Logger

	// polled remembers fingerprints that have already been built and
	// published, so a late duplicate push after eviction is dropped
	// instead of silently reopening a partial frame.
	polled map[Fingerprint]time.Time
}

// New builds a Cache for the configured set of digitisers.
func New(expectedIDs []uint8, ttl time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		entries:     make(map[Fingerprint]*Partial),
		expectedIDs: expectedIDs,
		ttl:         ttl,
		log:         log,
		polled:      make(map[Fingerprint]time.Time),
	}
}

func (c *Cache) isExpected(id uint8) bool {
	for _, e := range c.expectedIDs {
		if e == id {
			return true
		}
	}
	return false
}

// Push inserts one digitiser's contribution. It returns the fingerprint the
// contribution resolved to and whether the frame became complete as a
// result of this call.
func (c *Cache) Push(now time.Time, digitiserID uint8, meta wire.FrameMetadata, payload wire.DigitiserEventMessage) (Fingerprint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fp := FingerprintOf(meta)

	if polledAt, ok := c.polled[fp]; ok {
		c.log.Warn("late contribution for already-published frame dropped",
			"frame_number", meta.FrameNumber, "digitiser_id", digitiserID, "polled_at", polledAt)
		return fp, false
	}

	if !c.isExpected(digitiserID) {
		c.log.Warn("contribution from unknown digitiser dropped",
			"digitiser_id", digitiserID, "frame_number", meta.FrameNumber)
		return fp, false
	}

	p, ok := c.entries[fp]
	if !ok {
		p = newPartial(meta, c.expectedIDs, now)
		c.entries[fp] = p
	} else if !p.Metadata.FrameEqual(meta) {
		c.log.Warn("fingerprint collision: metadata disagrees on hit, dropping contribution",
			"frame_number", meta.FrameNumber, "digitiser_id", digitiserID)
		return fp, false
	}

	if _, dup := p.Contributions[digitiserID]; dup {
		c.log.Warn("duplicate digitiser contribution dropped (first wins)",
			"digitiser_id", digitiserID, "frame_number", meta.FrameNumber)
		return fp, false
	}

	p.Contributions[digitiserID] = payload
	return fp, p.Complete()
}

// Find performs a lookup-only query, used by callers that want to inspect a
// frame without mutating the cache.
func (c *Cache) Find(fp Fingerprint) (*Partial, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[fp]
	return p, ok
}

// Poll returns and removes one evictable frame: either a complete one or one
// whose TTL has expired. Among evictable frames it picks the one with the
// smallest Birth, bounding both memory and publish latency.
func (c *Cache) Poll(now time.Time) (Built, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var bestFP Fingerprint
	var best *Partial
	for fp, p := range c.entries {
		evictable := p.Complete() || !now.Before(p.DeadlineAt(c.ttl))
		if !evictable {
			continue
		}
		if best == nil || p.Birth.Before(best.Birth) {
			bestFP, best = fp, p
		}
	}
	if best == nil {
		return Built{}, false
	}

	delete(c.entries, bestFP)
	c.polled[bestFP] = now
	c.prunePolled(now)
	return buildFrame(best), true
}

// prunePolled drops polled-fingerprint markers older than the TTL, since a
// duplicate contribution arriving that long after publish is vanishingly
// unlikely and the map would otherwise grow for the life of the process.
func (c *Cache) prunePolled(now time.Time) {
	cutoff := now.Add(-c.ttl)
	for fp, polledAt := range c.polled {
		if polledAt.Before(cutoff) {
			delete(c.polled, fp)
		}
	}
}

// PendingCount reports the number of partial frames currently cached, a
// cheap observability hook for the aggregator loop.
func (c *Cache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// contributingIDs returns the digitiser IDs that contributed, sorted
// ascending for deterministic concatenation order.
func contributingIDs(p *Partial) []uint8 {
	ids := make([]uint8, 0, len(p.Contributions))
	for id := range p.Contributions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
