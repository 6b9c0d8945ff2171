package mines

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parlor/internal/core"
	"parlor/internal/database"
	"parlor/internal/fairness"
	"parlor/internal/ledger"
	"parlor/internal/session"
)

// State is C6's in-memory session payload.
type State struct {
	UserID        string
	ChannelID     string
	Bet           int64
	Mines         int
	Field         *Field
	RevealedCount int
	CreatedAt     time.Time
}

// Service is C6: the mines table, wired to the ledger and the shared
// session registry.
type Service struct {
	db       *sql.DB
	ledger   *ledger.Service
	nonce    int
	Sessions *session.Registry[State]
}

func New(db database.Service, lg *ledger.Service) *Service {
	return &Service{
		db:       db.DB(),
		ledger:   lg,
		Sessions: session.NewRegistry[State](),
	}
}

func (s *Service) nextSource() *fairness.Source {
	s.nonce++
	return fairness.NewSource(fairness.GenerateSeed(), fairness.GenerateSeed(), s.nonce)
}

// StartGame debits bet and generates a fresh field, defaulting mines to 5
// (spec.md §4.5) and registering the live session.
func (s *Service) StartGame(ctx context.Context, userID, channelID string, bet int64, mineCount int) (*session.Engine[State], error) {
	if mineCount == 0 {
		mineCount = 5
	}
	if mineCount < MinMines || mineCount > MaxMines {
		return nil, core.New(core.KindInvalidArgument, fmt.Sprintf("mines must be between %d and %d", MinMines, MaxMines))
	}
	if bet <= 0 {
		return nil, core.New(core.KindInvalidAmount, "bet must be positive")
	}
	if s.Sessions.IsActive(userID) {
		return nil, core.New(core.KindAlreadyInGame, "you already have a mines game in progress")
	}

	u, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Balance < bet {
		return nil, core.New(core.KindInsufficientBalance, "insufficient balance")
	}
	if err := s.ledger.Cost(ctx, userID, bet, "mines"); err != nil {
		return nil, err
	}

	field := NewField(s.generateMinePositions(mineCount))
	state := &State{
		UserID:    userID,
		ChannelID: channelID,
		Bet:       bet,
		Mines:     mineCount,
		Field:     field,
		CreatedAt: time.Now(),
	}

	engine, err := s.Sessions.Start(userID, channelID, state)
	if err != nil {
		_ = s.ledger.Add(ctx, userID, bet, "mines_refund")
		return nil, err
	}
	return engine, nil
}

func (s *Service) generateMinePositions(count int) []int {
	src := s.nextSource()
	all := make([]int, GridSize)
	for i := range all {
		all[i] = i
	}
	fairness.Shuffle(src, all)
	return all[:count]
}

// RevealOutcome reports what happened after a reveal, and whether the
// game is over.
type RevealOutcome struct {
	IsMine     bool
	Settled    bool
	Result     Result
	Winnings   int64
	Multiplier float64
	Payout     int64
}

// Reveal processes one tile click. index must not already be revealed.
func (s *Service) Reveal(ctx context.Context, state *State, index int) (RevealOutcome, error) {
	if index < 0 || index >= GridSize {
		return RevealOutcome{}, core.New(core.KindInvalidArgument, "tile must be between 1 and 25")
	}
	if state.Field.Shown[index] {
		return RevealOutcome{}, core.New(core.KindInvalidArgument, "that tile is already revealed")
	}

	isMine := state.Field.Reveal(index)
	if isMine {
		state.RevealedCount++ // the losing reveal counts, per SPEC_FULL.md's Open Question resolution #4
		state.Field.RevealAllMines()
		if err := s.settle(ctx, state, ResultLose, -state.Bet, 0); err != nil {
			return RevealOutcome{}, err
		}
		return RevealOutcome{IsMine: true, Settled: true, Result: ResultLose, Winnings: -state.Bet}, nil
	}

	state.RevealedCount++
	mult := Multiplier(state.Mines, state.RevealedCount)
	payout := Payout(state.Bet, state.Mines, state.RevealedCount)

	if state.RevealedCount == state.Field.SafeCells() {
		winnings := payout - state.Bet
		if err := s.settle(ctx, state, ResultWin, winnings, payout); err != nil {
			return RevealOutcome{}, err
		}
		return RevealOutcome{Settled: true, Result: ResultWin, Winnings: winnings, Multiplier: mult, Payout: payout}, nil
	}

	return RevealOutcome{Multiplier: mult, Payout: payout}, nil
}

// Cashout settles the session at its current payout.
func (s *Service) Cashout(ctx context.Context, state *State) (RevealOutcome, error) {
	if state.RevealedCount == 0 {
		return RevealOutcome{}, core.New(core.KindInvalidArgument, "reveal at least one tile before cashing out")
	}
	payout := Payout(state.Bet, state.Mines, state.RevealedCount)
	winnings := payout - state.Bet
	if err := s.settle(ctx, state, ResultCashout, winnings, payout); err != nil {
		return RevealOutcome{}, err
	}
	return RevealOutcome{Settled: true, Result: ResultCashout, Winnings: winnings, Payout: payout}, nil
}

// Timeout settles the session with winnings 0: the bet was already
// forfeited as part of start (spec.md §4.5).
func (s *Service) Timeout(ctx context.Context, state *State) error {
	return s.settle(ctx, state, ResultTimeout, 0, 0)
}

func (s *Service) settle(ctx context.Context, state *State, result Result, winnings, payout int64) error {
	s.Sessions.End(state.UserID)

	if payout > 0 {
		if err := s.ledger.Add(ctx, state.UserID, payout, "mines_payout"); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mines.games (id, user_id, bet_amount, mines, revealed_count, result, winnings, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), state.UserID, state.Bet, state.Mines, state.RevealedCount, result, winnings, time.Now().Unix(),
	)
	if err != nil {
		return core.Wrap(fmt.Errorf("record mines result: %w", err))
	}
	return nil
}

// Refund restores bet to userID and drops their session.
func (s *Service) Refund(ctx context.Context, userID string) error {
	state, ok := s.Sessions.End(userID)
	if !ok {
		return nil
	}
	return s.ledger.Add(ctx, userID, state.Bet, "mines_refund")
}

// UserStats aggregates a user's mines history, grounded on
// original_source/plugins/mines/stats_service.py:get_mines_stats.
func (s *Service) UserStats(ctx context.Context, userID string) (UserStats, error) {
	stats := UserStats{UserID: userID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT winnings, bet_amount FROM mines.games WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return stats, core.Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var winnings, bet int64
		if err := rows.Scan(&winnings, &bet); err != nil {
			return stats, core.Wrap(err)
		}
		stats.TotalGames++
		stats.TotalWagered += bet
		stats.NetProfit += winnings
		if winnings > 0 {
			stats.Wins++
		} else if winnings < 0 {
			stats.Losses++
		}
		if winnings > stats.BiggestWin {
			stats.BiggestWin = winnings
		}
		if winnings < stats.BiggestLoss {
			stats.BiggestLoss = winnings
		}
	}
	if err := rows.Err(); err != nil {
		return stats, core.Wrap(err)
	}
	if stats.TotalGames > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalGames)
	}
	return stats, nil
}
