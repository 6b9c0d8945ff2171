package correlator

import (
	"testing"
	"time"

	"parlor/internal/chat"
)

func observeAt(c *Correlator, channelID, messageID string, ts time.Time) {
	c.mu.Lock()
	c.records = append(c.records, record{channelID: channelID, messageID: messageID, timestamp: ts})
	c.mu.Unlock()
}

func TestAcquirePicksMostRecentEligible(t *testing.T) {
	c := New()
	now := time.Now()
	observeAt(c, "chan-1", "msg-old", now.Add(-4*time.Minute))
	observeAt(c, "chan-1", "msg-new", now.Add(-1*time.Minute))

	ref, ok := c.Acquire("chan-1")
	if !ok {
		t.Fatal("expected an eligible passive ref")
	}
	if ref.MessageID != "msg-new" {
		t.Fatalf("expected msg-new to win, got %s", ref.MessageID)
	}
	if ref.Seq != 1 {
		t.Fatalf("expected seq to bump to 1, got %d", ref.Seq)
	}
}

func TestAcquireRejectsExpiredRecords(t *testing.T) {
	c := New()
	observeAt(c, "chan-1", "msg-stale", time.Now().Add(-10*time.Minute))

	if _, ok := c.Acquire("chan-1"); ok {
		t.Fatal("expected no eligible passive ref for an expired record")
	}
}

func TestAcquireRejectsOverusedRecords(t *testing.T) {
	c := New()
	now := time.Now()
	observeAt(c, "chan-1", "msg-1", now)
	for i := 0; i <= maxSeq; i++ {
		if _, ok := c.Acquire("chan-1"); !ok {
			t.Fatalf("expected acquire %d to succeed", i)
		}
	}
	if _, ok := c.Acquire("chan-1"); ok {
		t.Fatal("expected the record to be exhausted after maxSeq+1 uses")
	}
}

func TestAcquireScopesByChannel(t *testing.T) {
	c := New()
	observeAt(c, "chan-1", "msg-1", time.Now())

	if _, ok := c.Acquire("chan-2"); ok {
		t.Fatal("expected no cross-channel match")
	}
}

func TestSweepDropsExpiredRecords(t *testing.T) {
	c := New()
	observeAt(c, "chan-1", "msg-stale", time.Now().Add(-10*time.Minute))
	observeAt(c, "chan-1", "msg-fresh", time.Now())

	c.Sweep()

	if c.Len() != 1 {
		t.Fatalf("expected 1 record to survive sweep, got %d", c.Len())
	}
}

func TestObserveRecordsInboundEvent(t *testing.T) {
	c := New()
	c.Observe(chat.InboundEvent{ChannelID: "chan-1", MessageID: "msg-1", Timestamp: time.Now()})

	if c.Len() != 1 {
		t.Fatalf("expected 1 record after Observe, got %d", c.Len())
	}
}
