package correlator

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror republishes each Observe into Redis as a TTL-backed sorted
// set member, so a second process replica can still answer "is there an
// eligible passive ref" for a channel without sharing this process's
// in-memory Correlator. It is a mirror, not a replacement: Acquire/Sweep
// authority always stays with the in-process Correlator that owns the
// live chat connection for a channel.
type RedisMirror struct {
	client *redis.Client
}

// NewRedisMirror wraps an existing Redis client. client may be nil, in
// which case every method is a no-op (matches cache.New()'s "running
// without Redis cache" degrade-gracefully behavior).
func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func key(channelID string) string {
	return fmt.Sprintf("correlator:{%s}", channelID)
}

// Publish mirrors an observed message_id into the channel's sorted set,
// scored by unix-nano timestamp so ZRANGE returns most-recent-last.
func (m *RedisMirror) Publish(ctx context.Context, channelID, messageID string, ts time.Time) error {
	if m == nil || m.client == nil {
		return nil
	}
	z := redis.Z{Score: float64(ts.UnixNano()), Member: messageID}
	if err := m.client.ZAdd(ctx, key(channelID), z).Err(); err != nil {
		return fmt.Errorf("mirror publish: %w", err)
	}
	m.client.Expire(ctx, key(channelID), eligibilityWindow)
	return nil
}

// HasEligible reports whether the channel's mirror has a record newer
// than the eligibility window, for a replica deciding whether it is even
// worth asking the owning process for a passive ref.
func (m *RedisMirror) HasEligible(ctx context.Context, channelID string) (bool, error) {
	if m == nil || m.client == nil {
		return false, nil
	}
	cutoff := float64(time.Now().Add(-eligibilityWindow).UnixNano())
	count, err := m.client.ZCount(ctx, key(channelID), fmt.Sprintf("%f", cutoff), "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("mirror query: %w", err)
	}
	return count > 0, nil
}
