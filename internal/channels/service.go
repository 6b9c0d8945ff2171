package channels

import (
	"context"
	"database/sql"
	"math/rand"

	"golang.org/x/sync/singleflight"

	"parlor/internal/core"
	"parlor/internal/database"
)

// Service is C10: the channel<->member bag, updated on every inbound
// message and join/leave notice, grounded on data_source.py's
// ChannelMemberManager.
type Service struct {
	db    *sql.DB
	group singleflight.Group
}

func New(db database.Service) *Service {
	return &Service{db: db.DB()}
}

// Touch records that userID is (still) present in channelID, upserting
// both sides of the relation, per data_source.py:add_member_to_channel.
func (s *Service) Touch(ctx context.Context, channelID, userID, avatarURL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Wrap(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels.channels (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, channelID,
	); err != nil {
		return core.Wrap(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels.members (id, avatar_url) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET avatar_url = EXCLUDED.avatar_url`,
		userID, nullableAvatar(avatarURL),
	); err != nil {
		return core.Wrap(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels.memberships (channel_id, member_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		channelID, userID,
	); err != nil {
		return core.Wrap(err)
	}
	return core.Wrap(tx.Commit())
}

func nullableAvatar(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RemoveMember drops userID from channelID's membership, per
// data_source.py:remove_member_from_channel.
func (s *Service) RemoveMember(ctx context.Context, channelID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM channels.memberships WHERE channel_id = $1 AND member_id = $2`,
		channelID, userID,
	)
	return core.Wrap(err)
}

// RemoveChannel drops a whole channel and its memberships on a
// "guild removed" event, per data_source.py:delete_channel.
func (s *Service) RemoveChannel(ctx context.Context, channelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Wrap(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM channels.memberships WHERE channel_id = $1`, channelID); err != nil {
		return core.Wrap(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channels.channels WHERE id = $1`, channelID); err != nil {
		return core.Wrap(err)
	}
	return core.Wrap(tx.Commit())
}

// GetChannelMembers returns every known member of a channel, with
// cached avatars, per data_source.py:get_channel_members.
func (s *Service) GetChannelMembers(ctx context.Context, channelID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, COALESCE(m.avatar_url, '')
		 FROM channels.memberships cm
		 JOIN channels.members m ON m.id = cm.member_id
		 WHERE cm.channel_id = $1`,
		channelID,
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.AvatarURL); err != nil {
			return nil, core.Wrap(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMemberChannels returns every channel a user is known to belong to,
// per data_source.py:get_member_channels.
func (s *Service) GetMemberChannels(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id FROM channels.memberships WHERE member_id = $1`,
		userID,
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.Wrap(err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RandomOtherMember picks a random member of channelID other than
// excludeUserID, for the "pick a random groupmate" feature. Concurrent
// calls for the same channel collapse into a single membership query
// via singleflight, since the result set rarely changes between two
// requests a few milliseconds apart.
func (s *Service) RandomOtherMember(ctx context.Context, channelID, excludeUserID string) (*Member, error) {
	v, err, _ := s.group.Do(channelID, func() (any, error) {
		return s.GetChannelMembers(ctx, channelID)
	})
	if err != nil {
		return nil, err
	}
	return pickRandomOther(v.([]Member), excludeUserID)
}

func pickRandomOther(members []Member, excludeUserID string) (*Member, error) {
	candidates := make([]Member, 0, len(members))
	for _, m := range members {
		if m.UserID != excludeUserID {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, core.New(core.KindNotFound, "no other members in this channel")
	}
	chosen := candidates[rand.Intn(len(candidates))]
	return &chosen, nil
}
