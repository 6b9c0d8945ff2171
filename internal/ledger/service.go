package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"parlor/internal/core"
	"parlor/internal/database"
)

// Service is the public contract of C1 (spec.md §4.1).
type Service struct {
	db *sql.DB
}

// New builds a ledger Service on top of the shared database connection.
func New(db database.Service) *Service {
	return &Service{db: db.DB()}
}

// GetUser auto-creates the row with defaults (0, 1, 0) and never returns nil.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	return s.getOrCreate(ctx, s.db, userID)
}

func (s *Service) getOrCreate(ctx context.Context, q querier, userID string) (User, error) {
	var u User
	err := q.QueryRowContext(ctx,
		`SELECT user_id, balance, level, last_daily_time FROM ledger.users WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.Balance, &u.Level, &u.LastDaily)
	if err == sql.ErrNoRows {
		_, err = q.ExecContext(ctx,
			`INSERT INTO ledger.users (user_id, balance, level, last_daily_time)
			 VALUES ($1, 0, 1, 0) ON CONFLICT (user_id) DO NOTHING`,
			userID,
		)
		if err != nil {
			return User{}, core.Wrap(fmt.Errorf("create user: %w", err))
		}
		return User{UserID: userID, Balance: 0, Level: 1, LastDaily: 0}, nil
	}
	if err != nil {
		return User{}, core.Wrap(fmt.Errorf("load user: %w", err))
	}
	return u, nil
}

// querier lets transaction helpers share code between *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Service) writeTransaction(ctx context.Context, tx querier, userID string, category TransactionCategory, amount int64, description string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger.transactions (user_id, category, amount, time, description)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, category, amount, time.Now().Unix(), description,
	)
	return err
}

func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Wrap(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.Wrap(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// Add credits amount to user_id's balance and appends an income
// transaction, atomically. Precondition: amount >= 0.
func (s *Service) Add(ctx context.Context, userID string, amount int64, description string) error {
	if amount < 0 {
		return core.New(core.KindInvalidAmount, "amount must be non-negative")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET balance = balance + $2 WHERE user_id = $1`,
			userID, amount,
		); err != nil {
			return core.Wrap(fmt.Errorf("credit balance: %w", err))
		}
		if err := s.writeTransaction(ctx, tx, userID, CategoryIncome, amount, description); err != nil {
			return core.Wrap(fmt.Errorf("write income transaction: %w", err))
		}
		return nil
	})
}

// Cost debits amount from user_id's balance and appends an expense
// transaction. The ledger does not itself reject overdraft; callers must
// pre-check funds (spec.md §4.1).
func (s *Service) Cost(ctx context.Context, userID string, amount int64, description string) error {
	if amount < 0 {
		return core.New(core.KindInvalidAmount, "amount must be non-negative")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET balance = balance - $2 WHERE user_id = $1`,
			userID, amount,
		); err != nil {
			return core.Wrap(fmt.Errorf("debit balance: %w", err))
		}
		if err := s.writeTransaction(ctx, tx, userID, CategoryExpense, amount, description); err != nil {
			return core.Wrap(fmt.Errorf("write expense transaction: %w", err))
		}
		return nil
	})
}

// Set overwrites user_id's balance and appends a set transaction.
func (s *Service) Set(ctx context.Context, userID string, amount int64, description string) error {
	if amount < 0 {
		return core.New(core.KindInvalidAmount, "amount must be non-negative")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET balance = $2 WHERE user_id = $1`,
			userID, amount,
		); err != nil {
			return core.Wrap(fmt.Errorf("set balance: %w", err))
		}
		if err := s.writeTransaction(ctx, tx, userID, CategorySet, amount, description); err != nil {
			return core.Wrap(fmt.Errorf("write set transaction: %w", err))
		}
		return nil
	})
}

// Transfer is semantically cost(from) ; add(to), plus one summary transfer
// transaction against the recipient, all in one commit so concurrent
// readers never see one side without the other.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount int64, description string) error {
	if amount <= 0 {
		return core.New(core.KindInvalidAmount, "amount must be positive")
	}
	if fromID == toID {
		return core.New(core.KindInvalidArgument, "cannot transfer to yourself")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		from, err := s.getOrCreate(ctx, tx, fromID)
		if err != nil {
			return err
		}
		if _, err := s.getOrCreate(ctx, tx, toID); err != nil {
			return err
		}
		if from.Balance < amount {
			return core.New(core.KindInsufficientBalance, "insufficient balance")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET balance = balance - $2 WHERE user_id = $1`,
			fromID, amount,
		); err != nil {
			return core.Wrap(fmt.Errorf("debit sender: %w", err))
		}
		if err := s.writeTransaction(ctx, tx, fromID, CategoryExpense, amount, fmt.Sprintf("transfer_to_%s", toID)); err != nil {
			return core.Wrap(err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET balance = balance + $2 WHERE user_id = $1`,
			toID, amount,
		); err != nil {
			return core.Wrap(fmt.Errorf("credit recipient: %w", err))
		}
		if err := s.writeTransaction(ctx, tx, toID, CategoryIncome, amount, fmt.Sprintf("transfer_from_%s", fromID)); err != nil {
			return core.Wrap(err)
		}
		if err := s.writeTransaction(ctx, tx, toID, CategoryTransfer, amount, description); err != nil {
			return core.Wrap(err)
		}
		return nil
	})
}

// Daily returns true iff last_daily's calendar day (local time) differs
// from today, advancing last_daily to now on success. Idempotent within
// one local day.
func (s *Service) Daily(ctx context.Context, userID string) (bool, error) {
	var advanced bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := s.getOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}
		now := time.Now()
		last := time.Unix(u.LastDaily, 0).Local()
		if sameLocalDay(last, now) {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET last_daily_time = $2 WHERE user_id = $1`,
			userID, now.Unix(),
		); err != nil {
			return core.Wrap(fmt.Errorf("advance last_daily: %w", err))
		}
		advanced = true
		return nil
	})
	return advanced, err
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// GetLevel returns the user's current level.
func (s *Service) GetLevel(ctx context.Context, userID string) (int, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Level, nil
}

// SetLevel overwrites the user's level; levels below 1 are rejected.
func (s *Service) SetLevel(ctx context.Context, userID string, level int) error {
	if level < 1 {
		return core.New(core.KindInvalidArgument, "level must be at least 1")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE ledger.users SET level = $2 WHERE user_id = $1`, userID, level)
		if err != nil {
			return core.Wrap(err)
		}
		return nil
	})
}

// IncreaseLevel raises the user's level by n (n >= 0).
func (s *Service) IncreaseLevel(ctx context.Context, userID string, n int) error {
	if n < 0 {
		return core.New(core.KindInvalidArgument, "level delta must be non-negative")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE ledger.users SET level = level + $2 WHERE user_id = $1`, userID, n)
		if err != nil {
			return core.Wrap(err)
		}
		return nil
	})
}

// DecreaseLevel lowers the user's level by n (n >= 0), saturating at 1.
func (s *Service) DecreaseLevel(ctx context.Context, userID string, n int) error {
	if n < 0 {
		return core.New(core.KindInvalidArgument, "level delta must be non-negative")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getOrCreate(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE ledger.users SET level = GREATEST(1, level - $2) WHERE user_id = $1`,
			userID, n,
		)
		if err != nil {
			return core.Wrap(err)
		}
		return nil
	})
}

// GetTopUsers returns the top `limit` users ordered by (level desc, balance desc).
func (s *Service) GetTopUsers(ctx context.Context, limit int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, balance, level, last_daily_time FROM ledger.users
		 ORDER BY level DESC, balance DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Balance, &u.Level, &u.LastDaily); err != nil {
			return nil, core.Wrap(err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserRank counts how many users strictly outrank user_id by
// (level, balance), and reports the two distances spec.md §4.1 defines.
func (s *Service) GetUserRank(ctx context.Context, userID string) (Rank, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return Rank{}, err
	}

	var rank int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger.users
		 WHERE level > $1 OR (level = $1 AND balance > $2)`,
		u.Level, u.Balance,
	).Scan(&rank)
	if err != nil {
		return Rank{}, core.Wrap(err)
	}
	rank++

	var nextRankBalance sql.NullInt64
	var nextRankLevel sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT level, balance FROM ledger.users
		 WHERE level > $1 OR (level = $1 AND balance > $2)
		 ORDER BY level ASC, balance ASC LIMIT 1`,
		u.Level, u.Balance,
	).Scan(&nextRankLevel, &nextRankBalance)
	if err != nil && err != sql.ErrNoRows {
		return Rank{}, core.Wrap(err)
	}

	var distanceToNextRank int64
	if err == nil && nextRankLevel.Valid && nextRankLevel.Int64 == int64(u.Level) {
		distanceToNextRank = nextRankBalance.Int64 - u.Balance
	}

	var nextLevel sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT level FROM ledger.users WHERE level > $1 ORDER BY level ASC LIMIT 1`,
		u.Level,
	).Scan(&nextLevel)
	if err != nil && err != sql.ErrNoRows {
		return Rank{}, core.Wrap(err)
	}

	var distanceToNextLevel int
	if err == nil && nextLevel.Valid {
		distanceToNextLevel = int(nextLevel.Int64) - u.Level
	}

	return Rank{
		Rank:                rank,
		DistanceToNextRank:  distanceToNextRank,
		DistanceToNextLevel: distanceToNextLevel,
	}, nil
}

// GetUserStats bundles balance, level, rank, and last-daily in one call,
// grounded on ranking_service.py's get_user_stats.
func (s *Service) GetUserStats(ctx context.Context, userID string) (Stats, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	r, err := s.GetUserRank(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		UserID:              u.UserID,
		Balance:             u.Balance,
		Level:               u.Level,
		Rank:                r.Rank,
		DistanceToNextRank:  r.DistanceToNextRank,
		DistanceToNextLevel: r.DistanceToNextLevel,
		LastDaily:           u.LastDaily,
	}, nil
}

// GetUserTransactions returns the user's transactions, newest-first, with
// an optional description filter and limit.
func (s *Service) GetUserTransactions(ctx context.Context, userID string, descriptionFilter string, limit int) ([]Transaction, error) {
	query := `SELECT id, user_id, category, amount, time, description FROM ledger.transactions WHERE user_id = $1`
	args := []any{userID}

	if descriptionFilter != "" {
		query += fmt.Sprintf(" AND description = $%d", len(args)+1)
		args = append(args, descriptionFilter)
	}
	query += " ORDER BY time DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Category, &t.Amount, &t.Time, &t.Description); err != nil {
			return nil, core.Wrap(err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// logf centralizes the teacher's [TAG] logging convention.
func logf(format string, args ...any) {
	log.Printf("[LEDGER] "+format, args...)
}
