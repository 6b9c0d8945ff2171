package mail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parlor/internal/core"
	"parlor/internal/database"
	"parlor/internal/ledger"
)

// Service is C9: template/recipient persistence, lazy broadcast
// materialization, the read-once reward, and expiry cleanup.
type Service struct {
	db     *sql.DB
	ledger *ledger.Service
}

func New(db database.Service, lg *ledger.Service) *Service {
	return &Service{db: db.DB(), ledger: lg}
}

// Send writes a direct-mail template plus its one recipient row, per
// service.py:send_mail.
func (s *Service) Send(ctx context.Context, recipientID, title, content string, starShards int64, expireDays int, senderID string) (int64, error) {
	if expireDays <= 0 {
		expireDays = 7
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.Wrap(err)
	}
	defer tx.Rollback()

	var mailID int64
	now := time.Now()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO mail.templates (title, content, star_shards, expire_days, sender_id, is_broadcast, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6) RETURNING id`,
		title, content, starShards, expireDays, senderID, now.Unix(),
	).Scan(&mailID)
	if err != nil {
		return 0, core.Wrap(fmt.Errorf("create mail template: %w", err))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO mail.recipients (mail_id, user_id, is_read) VALUES ($1, $2, false)`,
		mailID, recipientID,
	); err != nil {
		return 0, core.Wrap(fmt.Errorf("create mail recipient: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return 0, core.Wrap(err)
	}
	return mailID, nil
}

// SendBroadcast writes a broadcast template with no recipient rows;
// rows are lazily materialized per-user on List, per
// service.py:send_broadcast_mail.
func (s *Service) SendBroadcast(ctx context.Context, title, content string, starShards int64, expireDays int, senderID string) (int64, error) {
	if expireDays <= 0 {
		expireDays = 7
	}
	var mailID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO mail.templates (title, content, star_shards, expire_days, sender_id, is_broadcast, created_at)
		 VALUES ($1, $2, $3, $4, $5, true, $6) RETURNING id`,
		title, content, starShards, expireDays, senderID, time.Now().Unix(),
	).Scan(&mailID)
	if err != nil {
		return 0, core.Wrap(fmt.Errorf("create broadcast template: %w", err))
	}
	return mailID, nil
}

// materializeBroadcastRecipients ensures a recipient row exists for
// userID for every non-expired broadcast template, per
// service.py:get_user_mails's lazy-insert pass.
func (s *Service) materializeBroadcastRecipients(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mail.recipients (mail_id, user_id, is_read)
		 SELECT t.id, $1, false
		 FROM mail.templates t
		 WHERE t.is_broadcast = true
		   AND t.created_at + t.expire_days * 86400 > $2
		 ON CONFLICT (mail_id, user_id) DO NOTHING`,
		userID, time.Now().Unix(),
	)
	if err != nil {
		return core.Wrap(fmt.Errorf("materialize broadcast recipients: %w", err))
	}
	return nil
}

// List returns every non-expired mail entry for a user, newest first,
// per service.py:get_user_mails.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	if err := s.materializeBroadcastRecipients(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.content, t.star_shards, t.expire_days, t.sender_id, t.is_broadcast, t.created_at,
		        r.is_read, r.read_at
		 FROM mail.recipients r
		 JOIN mail.templates t ON t.id = r.mail_id
		 WHERE r.user_id = $1 AND t.created_at + t.expire_days * 86400 > $2
		 ORDER BY t.created_at DESC`,
		userID, time.Now().Unix(),
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row interface{ Scan(dest ...any) error }) (Entry, error) {
	var e Entry
	var createdAt int64
	var readAt sql.NullInt64
	err := row.Scan(&e.ID, &e.Title, &e.Content, &e.StarShards, &e.ExpireDays, &e.SenderID, &e.IsBroadcast, &createdAt, &e.IsRead, &readAt)
	if err != nil {
		return Entry{}, core.Wrap(err)
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	if readAt.Valid {
		t := time.Unix(readAt.Int64, 0)
		e.ReadAt = &t
	}
	return e, nil
}

// Read fetches one mail by ID for userID, marking it read and crediting
// star_shards exactly once (the first read), per
// service.py:read_mail. Returns (nil, nil) if the recipient row doesn't
// exist or the template has expired.
func (s *Service) Read(ctx context.Context, userID string, mailID int64) (*Entry, error) {
	var e Entry
	var createdAt int64
	var readAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT t.id, t.title, t.content, t.star_shards, t.expire_days, t.sender_id, t.is_broadcast, t.created_at,
		        r.is_read, r.read_at
		 FROM mail.recipients r
		 JOIN mail.templates t ON t.id = r.mail_id
		 WHERE t.id = $1 AND r.user_id = $2 AND t.created_at + t.expire_days * 86400 > $3`,
		mailID, userID, time.Now().Unix(),
	).Scan(&e.ID, &e.Title, &e.Content, &e.StarShards, &e.ExpireDays, &e.SenderID, &e.IsBroadcast, &createdAt, &e.IsRead, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Wrap(err)
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	if readAt.Valid {
		t := time.Unix(readAt.Int64, 0)
		e.ReadAt = &t
	}

	if e.IsRead {
		return &e, nil
	}

	now := time.Now()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE mail.recipients SET is_read = true, read_at = $1 WHERE mail_id = $2 AND user_id = $3`,
		now.Unix(), mailID, userID,
	); err != nil {
		return nil, core.Wrap(err)
	}
	e.IsRead = true
	e.ReadAt = &now

	if e.StarShards > 0 {
		if err := s.ledger.Add(ctx, userID, e.StarShards, fmt.Sprintf("mail_reward_%d", mailID)); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// CleanupExpired deletes templates whose expiry has passed; recipient
// rows cascade, per service.py:cleanup_expired_mails. Intended to run
// daily at 03:00 local (spec.md §4.8).
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mail.templates WHERE created_at + expire_days * 86400 <= $1`,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, core.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.Wrap(err)
	}
	return n, nil
}
