package nickname

import (
	"context"
	"database/sql"
	"fmt"

	"parlor/internal/core"
	"parlor/internal/database"
	"parlor/internal/ledger"
)

// Service is the nickname profile store: a unique display name per user,
// billed through the ledger on every change after the first.
type Service struct {
	db       *sql.DB
	ledger   *ledger.Service
	cost     int64
	maxLen   int
}

// New builds a nickname Service on top of the shared database and ledger.
// cost is charged on every change after the first free set; maxLen bounds
// the nickname length (spec.md §6: "one token, length <= 20").
func New(db database.Service, lg *ledger.Service, cost int64, maxLen int) *Service {
	return &Service{db: db.DB(), ledger: lg, cost: cost, maxLen: maxLen}
}

// Get returns userID's nickname, or "", false if none is set.
func (s *Service) Get(ctx context.Context, userID string) (string, bool, error) {
	var nick string
	err := s.db.QueryRowContext(ctx,
		`SELECT nickname FROM nickname.nicknames WHERE user_id = $1`, userID,
	).Scan(&nick)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.Wrap(fmt.Errorf("get nickname: %w", err))
	}
	return nick, true, nil
}

// GetID resolves a nickname back to the user_id that owns it, used by the
// transfer command to resolve a recipient nickname (spec.md §6).
func (s *Service) GetID(ctx context.Context, nick string) (string, bool, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM nickname.nicknames WHERE nickname = $1`, nick,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.Wrap(fmt.Errorf("get nickname owner: %w", err))
	}
	return userID, true, nil
}

// Set assigns nick to userID: free on first set, billed s.cost shards on
// every subsequent change (precondition: caller has verified funds is not
// required — Set itself checks balance and rejects with
// insufficient_balance, since unlike the ledger's Cost this is a
// user-initiated purchase, not a pre-approved debit). changed reports
// whether this call actually altered the stored nickname (false when the
// new value equals the old one, per the original's "you already go by
// that name" short-circuit).
func (s *Service) Set(ctx context.Context, userID, nick string) (changed bool, err error) {
	if nick == "" {
		return false, core.New(core.KindInvalidArgument, "nickname must not be empty")
	}
	if len([]rune(nick)) > s.maxLen {
		return false, core.New(core.KindNicknameTooLong, fmt.Sprintf("nickname must be at most %d characters", s.maxLen))
	}

	current, has, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if has && current == nick {
		return false, nil
	}

	owner, taken, err := s.GetID(ctx, nick)
	if err != nil {
		return false, err
	}
	if taken && owner != userID {
		return false, core.New(core.KindDuplicateNickname, "that nickname is already taken")
	}

	if has {
		u, err := s.ledger.GetUser(ctx, userID)
		if err != nil {
			return false, err
		}
		if u.Balance < s.cost {
			return false, core.New(core.KindInsufficientBalance, "insufficient balance to change nickname")
		}
		if err := s.ledger.Cost(ctx, userID, s.cost, "change_nickname"); err != nil {
			return false, err
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE nickname.nicknames SET nickname = $2 WHERE user_id = $1`, userID, nick,
		); err != nil {
			return false, core.Wrap(fmt.Errorf("update nickname: %w", err))
		}
		return true, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO nickname.nicknames (user_id, nickname) VALUES ($1, $2)`, userID, nick,
	); err != nil {
		return false, core.Wrap(fmt.Errorf("insert nickname: %w", err))
	}
	return true, nil
}
