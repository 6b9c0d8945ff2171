// Package correlator implements C2: the passive correlator. Every inbound
// chat message is remembered briefly so a later bot reply can be sent as a
// "passive" follow-up to it instead of a fresh message, exactly mirroring
// original_source/plugins/passive_manager/manager.py.
package correlator

import (
	"sort"
	"sync"
	"time"

	"parlor/internal/chat"
)

const (
	eligibilityWindow = 5 * time.Minute
	maxSeq            = 5
)

type record struct {
	channelID string
	messageID string
	timestamp time.Time
	seq       int
}

// Correlator is a process-local, mutex-guarded list of recent inbound
// message records, matched against outbound replies for the same channel.
type Correlator struct {
	mu      sync.Mutex
	records []record
}

// New returns an empty Correlator.
func New() *Correlator {
	return &Correlator{}
}

// Observe remembers an inbound event for later passive correlation.
func (c *Correlator) Observe(ev chat.InboundEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record{
		channelID: ev.ChannelID,
		messageID: ev.MessageID,
		timestamp: ev.Timestamp,
	})
}

// Acquire returns the best eligible passive ref for channelID, if any, and
// atomically bumps its seq. Eligibility: age <= 5 minutes and seq <= 5;
// among eligible records, the most recent (by original event timestamp)
// wins.
func (c *Correlator) Acquire(channelID string) (*chat.PassiveRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var eligible []int
	for i, r := range c.records {
		if r.channelID != channelID {
			continue
		}
		if now.Sub(r.timestamp) > eligibilityWindow {
			continue
		}
		if r.seq > maxSeq {
			continue
		}
		eligible = append(eligible, i)
	}
	if len(eligible) == 0 {
		return nil, false
	}

	sort.Slice(eligible, func(a, b int) bool {
		return c.records[eligible[a]].timestamp.Before(c.records[eligible[b]].timestamp)
	})
	winner := eligible[len(eligible)-1]
	c.records[winner].seq++

	ref := chat.PassiveRef{
		MessageID: c.records[winner].messageID,
		Seq:       c.records[winner].seq,
	}
	return &ref, true
}

// Sweep drops every record older than the eligibility window. Intended to
// run on a periodic timer alongside the other background jobs.
func (c *Correlator) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	kept := c.records[:0]
	for _, r := range c.records {
		if now.Sub(r.timestamp) <= eligibilityWindow {
			kept = append(kept, r)
		}
	}
	c.records = kept
}

// Len reports how many records are currently tracked, for tests and metrics.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
