package redenvelope

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parlor/internal/core"
	"parlor/internal/database"
	"parlor/internal/fairness"
	"parlor/internal/ledger"
)

// Service is C8: envelope creation, claim resolution, and the periodic
// expiry sweep, wired to the ledger for credits and refunds.
type Service struct {
	db     *sql.DB
	ledger *ledger.Service
	nonce  int
}

func New(db database.Service, lg *ledger.Service) *Service {
	return &Service{db: db.DB(), ledger: lg}
}

func (s *Service) nextSource() *fairness.Source {
	s.nonce++
	return fairness.NewSource(fairness.GenerateSeed(), fairness.GenerateSeed(), s.nonce)
}

// Create pre-generates the amount vector and persists a new envelope,
// per service.py:create_envelope.
func (s *Service) Create(ctx context.Context, creatorID, channelID, title string, totalAmount int64, totalCount int) (*Envelope, error) {
	if totalAmount <= 0 {
		return nil, core.New(core.KindInvalidAmount, "total amount must be positive")
	}
	if totalCount <= 0 {
		return nil, core.New(core.KindInvalidArgument, "recipient count must be positive")
	}
	if title == "" {
		title = "红包"
	}

	amounts, err := generateRandomDistribution(s.nextSource(), totalAmount, totalCount)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Cost(ctx, creatorID, totalAmount, "red_envelope_create"); err != nil {
		return nil, err
	}

	now := time.Now()
	pendingJSON, err := json.Marshal(amounts)
	if err != nil {
		return nil, core.Wrap(err)
	}

	var envelope Envelope
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO redenvelope.envelopes
			(creator_id, channel_id, channel_index, title, total_amount, remaining_amount,
			 total_count, remaining_count, pending_amounts, created_at, expires_at, is_expired)
		 VALUES ($1, $2,
			 COALESCE((SELECT MAX(channel_index) FROM redenvelope.envelopes WHERE channel_id = $2), 0) + 1,
			 $3, $4, $4, $5, $5, $6, $7, $8, false)
		 RETURNING id, channel_index`,
		creatorID, channelID, title, totalAmount, totalCount, string(pendingJSON), now.Unix(), now.Add(expireAfter).Unix(),
	).Scan(&envelope.ID, &envelope.ChannelIndex)
	if err != nil {
		_ = s.ledger.Add(ctx, creatorID, totalAmount, "red_envelope_create_refund")
		return nil, core.Wrap(fmt.Errorf("create envelope: %w", err))
	}

	envelope.CreatorID = creatorID
	envelope.ChannelID = channelID
	envelope.Title = title
	envelope.TotalAmount = totalAmount
	envelope.RemainingAmount = totalAmount
	envelope.TotalCount = totalCount
	envelope.RemainingCount = totalCount
	envelope.PendingAmounts = amounts
	envelope.CreatedAt = now
	envelope.ExpiresAt = now.Add(expireAfter)
	return &envelope, nil
}

func scanEnvelope(row rowScanner) (*Envelope, error) {
	var e Envelope
	var pendingJSON string
	var createdAt, expiresAt int64
	err := row.Scan(
		&e.ID, &e.CreatorID, &e.ChannelID, &e.ChannelIndex, &e.Title,
		&e.TotalAmount, &e.RemainingAmount, &e.TotalCount, &e.RemainingCount,
		&pendingJSON, &createdAt, &expiresAt, &e.IsExpired,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Wrap(err)
	}
	if err := json.Unmarshal([]byte(pendingJSON), &e.PendingAmounts); err != nil {
		return nil, core.Wrap(err)
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.ExpiresAt = time.Unix(expiresAt, 0)
	return &e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const envelopeColumns = `id, creator_id, channel_id, channel_index, title,
	total_amount, remaining_amount, total_count, remaining_count,
	pending_amounts, created_at, expires_at, is_expired`

// GetActiveEnvelopes lists unexpired, unclaimed-out envelopes for a
// channel, newest first.
func (s *Service) GetActiveEnvelopes(ctx context.Context, channelID string) ([]*Envelope, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+envelopeColumns+` FROM redenvelope.envelopes
		 WHERE channel_id = $1 AND is_expired = false AND remaining_count > 0 AND expires_at > $2
		 ORDER BY created_at DESC`,
		channelID, time.Now().Unix(),
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var out []*Envelope
	for rows.Next() {
		e, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Service) getByIndex(ctx context.Context, channelID string, channelIndex int) (*Envelope, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+envelopeColumns+` FROM redenvelope.envelopes WHERE channel_id = $1 AND channel_index = $2`,
		channelID, channelIndex,
	)
	return scanEnvelope(row)
}

func (s *Service) getMostRecentActive(ctx context.Context, channelID string) (*Envelope, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+envelopeColumns+` FROM redenvelope.envelopes
		 WHERE channel_id = $1 AND is_expired = false AND remaining_count > 0 AND expires_at > $2
		 ORDER BY created_at DESC LIMIT 1`,
		channelID, time.Now().Unix(),
	)
	return scanEnvelope(row)
}

// expireEnvelope marks an envelope expired and refunds its remaining
// amount to the creator, per service.py:_expire_envelope.
func (s *Service) expireEnvelope(ctx context.Context, e *Envelope) (int64, error) {
	if e.IsExpired {
		return 0, nil
	}
	refund := e.RemainingAmount
	if refund < 0 {
		refund = 0
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE redenvelope.envelopes SET is_expired = true, remaining_amount = 0, remaining_count = 0 WHERE id = $1`,
		e.ID,
	)
	if err != nil {
		return 0, core.Wrap(err)
	}
	if refund > 0 {
		if err := s.ledger.Add(ctx, e.CreatorID, refund, fmt.Sprintf("red_envelope_refund_%d", e.ID)); err != nil {
			return 0, err
		}
	}
	return refund, nil
}

// Claim resolves an envelope by explicit channelIndex (if non-nil) or the
// most recent active envelope in the channel, and attempts to draw the
// next pre-generated amount, per service.py:claim_envelope's branch
// structure. The returned CompletionInfo is non-nil only on the claim
// that drains the envelope (spec.md §4.7's lucky-king announcement).
func (s *Service) Claim(ctx context.Context, userID, channelID string, channelIndex *int) (ClaimStatus, int64, *CompletionInfo, error) {
	var envelope *Envelope
	var err error
	if channelIndex == nil {
		envelope, err = s.getMostRecentActive(ctx, channelID)
	} else {
		envelope, err = s.getByIndex(ctx, channelID, *channelIndex)
	}
	if err != nil {
		return "", 0, nil, err
	}
	if envelope == nil {
		if channelIndex == nil {
			return ClaimNoActive, 0, nil, nil
		}
		return ClaimNotFound, 0, nil, nil
	}

	now := time.Now()
	if envelope.expiredAt(now) {
		_, _ = s.expireEnvelope(ctx, envelope)
		return ClaimExpired, 0, nil, nil
	}
	if envelope.RemainingCount <= 0 || envelope.RemainingAmount <= 0 {
		return ClaimEmpty, 0, nil, nil
	}

	var already int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM redenvelope.claims WHERE envelope_id = $1 AND user_id = $2`,
		envelope.ID, userID,
	).Scan(&already); err != nil {
		return "", 0, nil, core.Wrap(err)
	}
	if already > 0 {
		return ClaimAlready, 0, nil, nil
	}

	if len(envelope.PendingAmounts) == 0 {
		return ClaimEmpty, 0, nil, nil
	}
	amount := envelope.PendingAmounts[0]
	remainingPending := envelope.PendingAmounts[1:]
	pendingJSON, err := json.Marshal(remainingPending)
	if err != nil {
		return "", 0, nil, core.Wrap(err)
	}

	newRemainingAmount := envelope.RemainingAmount - amount
	newRemainingCount := envelope.RemainingCount - 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, nil, core.Wrap(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE redenvelope.envelopes SET pending_amounts = $1, remaining_amount = $2, remaining_count = $3 WHERE id = $4`,
		string(pendingJSON), newRemainingAmount, newRemainingCount, envelope.ID,
	); err != nil {
		return "", 0, nil, core.Wrap(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO redenvelope.claims (envelope_id, user_id, amount, claimed_at) VALUES ($1, $2, $3, $4)`,
		envelope.ID, userID, amount, now.Unix(),
	); err != nil {
		return "", 0, nil, core.Wrap(err)
	}
	if err := tx.Commit(); err != nil {
		return "", 0, nil, core.Wrap(err)
	}

	if err := s.ledger.Add(ctx, userID, amount, fmt.Sprintf("red_envelope_claim_%d", envelope.ID)); err != nil {
		return "", 0, nil, err
	}

	if newRemainingCount > 0 {
		return ClaimSuccess, amount, nil, nil
	}

	info, err := s.buildCompletionInfo(ctx, envelope)
	if err != nil {
		return ClaimSuccess, amount, nil, err
	}
	return ClaimSuccess, amount, info, nil
}

func (s *Service) buildCompletionInfo(ctx context.Context, envelope *Envelope) (*CompletionInfo, error) {
	var luckyUser string
	var luckyAmount int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT user_id, amount FROM redenvelope.claims WHERE envelope_id = $1 ORDER BY amount DESC, claimed_at ASC LIMIT 1`,
		envelope.ID,
	).Scan(&luckyUser, &luckyAmount); err != nil {
		return nil, core.Wrap(err)
	}
	return &CompletionInfo{
		CreatorID:    envelope.CreatorID,
		DrainedAfter: time.Since(envelope.CreatedAt),
		LuckyUserID:  luckyUser,
		LuckyAmount:  luckyAmount,
	}, nil
}

// SweepExpired marks every overdue envelope expired and refunds each,
// per service.py:expire_overdue_envelopes. Intended to run on a 5-minute
// ticker (spec.md §4.7).
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+envelopeColumns+` FROM redenvelope.envelopes WHERE is_expired = false AND expires_at <= $1`,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, core.Wrap(err)
	}
	var overdue []*Envelope
	for rows.Next() {
		e, err := scanEnvelope(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		overdue = append(overdue, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, core.Wrap(err)
	}
	rows.Close()

	count := 0
	for _, e := range overdue {
		if _, err := s.expireEnvelope(ctx, e); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
