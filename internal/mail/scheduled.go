package mail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parlor/internal/core"
)

// ParseTimeString accepts an absolute "YYYY-MM-DD HH:MM" (or
// "YYYY-MM-DD", defaulting to 00:00) or a relative "+Nm"/"+Nh"/"+Nd"
// offset from now, per __init__.py:parse_time_string.
func ParseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		part := s[1:]
		if len(part) < 2 {
			return time.Time{}, core.New(core.KindInvalidArgument, "invalid relative time: "+s)
		}
		unit := part[len(part)-1]
		n, err := strconv.Atoi(part[:len(part)-1])
		if err != nil {
			return time.Time{}, core.New(core.KindInvalidArgument, "invalid relative time: "+s)
		}
		switch unit {
		case 'm':
			return time.Now().Add(time.Duration(n) * time.Minute), nil
		case 'h':
			return time.Now().Add(time.Duration(n) * time.Hour), nil
		case 'd':
			return time.Now().Add(time.Duration(n) * 24 * time.Hour), nil
		default:
			return time.Time{}, core.New(core.KindInvalidArgument, "unknown relative time unit: "+string(unit))
		}
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, core.New(core.KindInvalidArgument, "unrecognized time format: "+s)
}

// CreateScheduled persists a scheduled mail, generating a name when none
// is given, per scheduled_service.py:create_scheduled_mail.
func (s *Service) CreateScheduled(ctx context.Context, name, recipients, title, content string, starShards int64, expireDays int, scheduledTime time.Time, createdBy string) (*Scheduled, error) {
	if expireDays <= 0 {
		expireDays = 7
	}
	if name == "" {
		name = fmt.Sprintf("mail_%d", time.Now().Unix())
	}

	var sched Scheduled
	now := time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO mail.scheduled (name, recipients, title, content, star_shards, expire_days, scheduled_time, created_at, created_by, is_sent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false) RETURNING id`,
		name, recipients, title, content, starShards, expireDays, scheduledTime.Unix(), now.Unix(), createdBy,
	).Scan(&sched.ID)
	if err != nil {
		return nil, core.Wrap(fmt.Errorf("create scheduled mail %q: %w", name, err))
	}

	sched.Name = name
	sched.Recipients = recipients
	sched.Title = title
	sched.Content = content
	sched.StarShards = starShards
	sched.ExpireDays = expireDays
	sched.ScheduledTime = scheduledTime
	sched.CreatedAt = now
	sched.CreatedBy = createdBy
	return &sched, nil
}

func scanScheduled(row interface{ Scan(dest ...any) error }) (*Scheduled, error) {
	var sc Scheduled
	var scheduledAt, createdAt int64
	var sentAt sql.NullInt64
	err := row.Scan(&sc.ID, &sc.Name, &sc.Recipients, &sc.Title, &sc.Content, &sc.StarShards, &sc.ExpireDays,
		&scheduledAt, &createdAt, &sc.CreatedBy, &sc.IsSent, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Wrap(err)
	}
	sc.ScheduledTime = time.Unix(scheduledAt, 0)
	sc.CreatedAt = time.Unix(createdAt, 0)
	if sentAt.Valid {
		t := time.Unix(sentAt.Int64, 0)
		sc.SentAt = &t
	}
	return &sc, nil
}

const scheduledColumns = `id, name, recipients, title, content, star_shards, expire_days,
	scheduled_time, created_at, created_by, is_sent, sent_at`

// GetScheduled lists scheduled mail ordered by send time, optionally
// including already-sent rows.
func (s *Service) GetScheduled(ctx context.Context, includeSent bool) ([]*Scheduled, error) {
	query := `SELECT ` + scheduledColumns + ` FROM mail.scheduled`
	if !includeSent {
		query += ` WHERE is_sent = false`
	}
	query += ` ORDER BY scheduled_time ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var out []*Scheduled
	for rows.Next() {
		sc, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Service) GetScheduledByName(ctx context.Context, name string) (*Scheduled, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduledColumns+` FROM mail.scheduled WHERE name = $1`, name)
	return scanScheduled(row)
}

// UpdateScheduled edits any non-nil field of an unsent scheduled mail,
// per scheduled_service.py:update_scheduled_mail.
func (s *Service) UpdateScheduled(ctx context.Context, name string, title, content, recipients *string, starShards *int64, expireDays *int, scheduledTime *time.Time) (bool, error) {
	existing, err := s.GetScheduledByName(ctx, name)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.IsSent {
		return false, nil
	}

	if title != nil {
		existing.Title = *title
	}
	if content != nil {
		existing.Content = *content
	}
	if recipients != nil {
		existing.Recipients = *recipients
	}
	if starShards != nil {
		existing.StarShards = *starShards
	}
	if expireDays != nil {
		existing.ExpireDays = *expireDays
	}
	if scheduledTime != nil {
		existing.ScheduledTime = *scheduledTime
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE mail.scheduled SET title=$1, content=$2, recipients=$3, star_shards=$4, expire_days=$5, scheduled_time=$6 WHERE name=$7`,
		existing.Title, existing.Content, existing.Recipients, existing.StarShards, existing.ExpireDays, existing.ScheduledTime.Unix(), name,
	)
	if err != nil {
		return false, core.Wrap(err)
	}
	return true, nil
}

// DeleteScheduled removes a scheduled mail regardless of sent state,
// per scheduled_service.py:delete_scheduled_mail.
func (s *Service) DeleteScheduled(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mail.scheduled WHERE name = $1`, name)
	if err != nil {
		return false, core.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, core.Wrap(err)
	}
	return n > 0, nil
}

// GetPendingScheduledCount reports how many scheduled mails are still
// unsent.
func (s *Service) GetPendingScheduledCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mail.scheduled WHERE is_sent = false`).Scan(&count)
	if err != nil {
		return 0, core.Wrap(err)
	}
	return count, nil
}

// ProcessDueMails dispatches every scheduled mail whose time has come:
// "all" becomes a broadcast template, a CSV of user IDs becomes one
// direct template+recipient per user, per
// scheduled_service.py:process_due_mails. Intended to run on a 5-second
// ticker (spec.md §4.8).
func (s *Service) ProcessDueMails(ctx context.Context) (int, error) {
	due, err := s.dueScheduled(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, sc := range due {
		if err := s.dispatchScheduled(ctx, sc); err != nil {
			continue
		}
		now := time.Now()
		if _, err := s.db.ExecContext(ctx,
			`UPDATE mail.scheduled SET is_sent = true, sent_at = $1 WHERE id = $2`,
			now.Unix(), sc.ID,
		); err != nil {
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *Service) dueScheduled(ctx context.Context) ([]*Scheduled, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledColumns+` FROM mail.scheduled WHERE scheduled_time <= $1 AND is_sent = false`,
		time.Now().Unix(),
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var out []*Scheduled
	for rows.Next() {
		sc, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Service) dispatchScheduled(ctx context.Context, sc *Scheduled) error {
	if strings.EqualFold(sc.Recipients, recipientsAll) {
		_, err := s.SendBroadcast(ctx, sc.Title, sc.Content, sc.StarShards, sc.ExpireDays, sc.CreatedBy)
		return err
	}

	for _, uid := range strings.Split(sc.Recipients, ",") {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		if _, err := s.Send(ctx, uid, sc.Title, sc.Content, sc.StarShards, sc.ExpireDays, sc.CreatedBy); err != nil {
			return err
		}
	}
	return nil
}
