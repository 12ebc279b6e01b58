package fusion

import (
	"time"
)

// floodCache keeps the latest HazardReading per location. Duplicate
// location_ids keep the newest timestamp; ties go to the later arrival.
type floodCache struct {
	readings map[string]*HazardReading
}

func newFloodCache() *floodCache {
	return &floodCache{readings: make(map[string]*HazardReading)}
}

func (c *floodCache) Put(r *HazardReading) {
	prev, ok := c.readings[r.LocationID]
	if ok && prev.Timestamp.After(r.Timestamp) {
		return
	}
	c.readings[r.LocationID] = r
}

func (c *floodCache) Evict(now time.Time, ttl time.Duration) int {
	evicted := 0
	for id, r := range c.readings {
		if now.Sub(r.Timestamp) > ttl {
			delete(c.readings, id)
			evicted++
		}
	}
	return evicted
}

func (c *floodCache) Len() int { return len(c.readings) }

func (c *floodCache) Clear() { c.readings = make(map[string]*HazardReading) }

// scoutCache is an ordered append-only list of reports, evicted by TTL.
type scoutCache struct {
	reports []*ScoutReport
}

func newScoutCache() *scoutCache {
	return &scoutCache{}
}

func (c *scoutCache) Append(r *ScoutReport) {
	c.reports = append(c.reports, r)
}

func (c *scoutCache) Evict(now time.Time, ttl time.Duration) int {
	kept := c.reports[:0]
	evicted := 0
	for _, r := range c.reports {
		if now.Sub(r.Timestamp) > ttl {
			evicted++
			continue
		}
		kept = append(kept, r)
	}
	c.reports = kept
	return evicted
}

func (c *scoutCache) Len() int { return len(c.reports) }

func (c *scoutCache) Clear() { c.reports = nil }

// riskHistory is a bounded ring of per-commit average risks used for trend
// classification.
type riskHistory struct {
	entries []historyEntry
	size    int
	next    int
	count   int
}

type historyEntry struct {
	At      time.Time
	Average float64
}

func newRiskHistory(size int) *riskHistory {
	if size < 2 {
		size = 2
	}
	return &riskHistory{entries: make([]historyEntry, size), size: size}
}

func (h *riskHistory) Push(at time.Time, avg float64) {
	h.entries[h.next] = historyEntry{At: at, Average: avg}
	h.next = (h.next + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// LastTwo returns the two most recent commits, newest last.
func (h *riskHistory) LastTwo() (prev, cur historyEntry, ok bool) {
	if h.count < 2 {
		return historyEntry{}, historyEntry{}, false
	}
	curIdx := (h.next - 1 + h.size) % h.size
	prevIdx := (h.next - 2 + h.size) % h.size
	return h.entries[prevIdx], h.entries[curIdx], true
}

func (h *riskHistory) Reset() {
	h.next = 0
	h.count = 0
}

// trendEpsilon is the insensitivity band for trend classification, in average
// risk per minute.
const trendEpsilon = 0.001

// classifyTrend labels the rate of change between the last two commits.
func (h *riskHistory) classifyTrend() (Trend, float64) {
	prev, cur, ok := h.LastTwo()
	if !ok {
		return TrendStable, 0
	}
	minutes := cur.At.Sub(prev.At).Minutes()
	if minutes <= 0 {
		return TrendStable, 0
	}
	rate := (cur.Average - prev.Average) / minutes
	switch {
	case rate > trendEpsilon:
		return TrendIncreasing, rate
	case rate < -trendEpsilon:
		return TrendDecreasing, rate
	default:
		return TrendStable, rate
	}
}
