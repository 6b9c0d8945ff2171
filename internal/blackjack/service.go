package blackjack

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

// Service is C5: the blackjack table. It owns the per-channel shoes, the
// session registry enforcing one active game per user, and settlement
// through the ledger.
type Service struct {
	db      *sql.DB
	ledger  *ledger.Service
	shoes   *Manager
	nonce   int
	Sessions *session.Registry[State]
}

// New builds the blackjack service on top of the shared database and
// ledger.
func New(db database.Service, lg *ledger.Service) *Service {
	return &Service{
		db:       db.DB(),
		ledger:   lg,
		shoes:    NewManager(),
		Sessions: session.NewRegistry[State](),
	}
}

// StartGame debits bet from user, deals the opening hands from the
// channel's shoe (reshuffling first if needed, in the same critical
// section per spec.md §5), and either settles immediately on a natural
// or creates a session for the player-turn dialog to continue against.
// reshuffled reports whether the shoe was reshuffled by this call.
func (s *Service) StartGame(ctx context.Context, userID, channelID string, bet int64) (*session.Engine[State], *DealOutcome, bool, error) {
	if bet <= 0 {
		return nil, nil, false, core.New(core.KindInvalidAmount, "bet must be positive")
	}
	if s.Sessions.IsActive(userID) {
		return nil, nil, false, core.New(core.KindAlreadyInGame, "you already have a blackjack game in progress")
	}

	u, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, false, err
	}
	if u.Balance < bet {
		return nil, nil, false, core.New(core.KindInsufficientBalance, "insufficient balance")
	}

	if err := s.ledger.Cost(ctx, userID, bet, "blackjack_bet"); err != nil {
		return nil, nil, false, err
	}

	state := &State{
		UserID:    userID,
		ChannelID: channelID,
		Bet:       bet,
		CreatedAt: time.Now(),
	}

	shoe := s.shoes.ShoeFor(channelID, s.nextSource())
	shoe.Lock()
	reshuffled := shoe.ReshuffleIfNeeded(s.nextSource())
	outcome := Deal(state, shoe)
	shoe.Unlock()

	if outcome.Settled {
		if err := s.settle(ctx, state, outcome.Outcome, outcome.Winnings, false); err != nil {
			return nil, nil, reshuffled, err
		}
		return nil, &outcome, reshuffled, nil
	}

	engine, err := s.Sessions.Start(userID, channelID, state)
	if err != nil {
		// Refund: the debit already happened before this precondition
		// could be checked again under the registry lock.
		_ = s.ledger.Add(ctx, userID, bet, "blackjack_refund")
		return nil, nil, reshuffled, err
	}
	return engine, nil, reshuffled, nil
}

// ShoeFor exposes the per-channel shoe for Hit/Double/Split callers that
// already hold a live session.
func (s *Service) ShoeFor(channelID string) *Shoe {
	return s.shoes.ShoeFor(channelID, s.nextSource())
}

func (s *Service) nextSource() *fairness.Source {
	s.nonce++
	return fairness.NewSource(fairness.GenerateSeed(), fairness.GenerateSeed(), s.nonce)
}

// Settle ends state's session and records the outcome, applying the
// first-game-today bonus exactly once, per the resolved Open Question in
// SPEC_FULL.md. state must be the live session state for its user (the
// bet amount it carries, not a re-fetch, is what gets persisted).
func (s *Service) Settle(ctx context.Context, state *State, outcome Outcome, winnings int64, isSplit bool) error {
	s.Sessions.End(state.UserID)
	return s.settle(ctx, state, outcome, winnings, isSplit)
}

func (s *Service) settle(ctx context.Context, state *State, outcome Outcome, winnings int64, isSplit bool) error {
	winnings, err := s.applyFirstGameBonus(ctx, state.UserID, winnings)
	if err != nil {
		return err
	}

	if winnings > 0 {
		if err := s.ledger.Add(ctx, state.UserID, winnings, "blackjack_win"); err != nil {
			return err
		}
	} else if winnings < 0 {
		// Losses were already taken out of the balance via the initial
		// stake debit; nothing further to subtract here. The persisted
		// row still records the signed amount.
	}

	return s.recordResult(ctx, Result{
		ID:        uuid.NewString(),
		UserID:    state.UserID,
		BetAmount: state.Bet,
		Result:    outcome,
		Winnings:  winnings,
		IsSplit:   isSplit,
		Timestamp: time.Now().Unix(),
	})
}

// applyFirstGameBonus doubles winnings exactly once per user per
// calendar day, on the first settlement with positive winnings. Detected
// via a query against blackjack.games for any row already settled today.
func (s *Service) applyFirstGameBonus(ctx context.Context, userID string, winnings int64) (int64, error) {
	if winnings <= 0 {
		return winnings, nil
	}

	startOfDay := time.Now().Truncate(24 * time.Hour).Unix()
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blackjack.games WHERE user_id = $1 AND timestamp >= $2 AND winnings > 0`,
		userID, startOfDay,
	).Scan(&count)
	if err != nil {
		return winnings, core.Wrap(fmt.Errorf("first game bonus check: %w", err))
	}
	if count == 0 {
		return winnings * 2, nil
	}
	return winnings, nil
}

func (s *Service) recordResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blackjack.games (id, user_id, bet_amount, result, winnings, is_split, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.UserID, r.BetAmount, r.Result, r.Winnings, r.IsSplit, r.Timestamp,
	)
	if err != nil {
		return core.Wrap(fmt.Errorf("record blackjack result: %w", err))
	}
	return nil
}

// Refund restores bet to userID and drops their session, used on process
// shutdown and on mid-game handler failure (spec.md §4.3/§5).
func (s *Service) Refund(ctx context.Context, userID string) error {
	state, ok := s.Sessions.End(userID)
	if !ok {
		return nil
	}
	total := state.Bet + state.SplitBet
	if total <= 0 {
		return nil
	}
	return s.ledger.Add(ctx, userID, total, "blackjack_refund")
}

// UserStats aggregates a user's blackjack history, grounded on
// original_source/plugins/blackjack/game_service.py:get_user_stats.
func (s *Service) UserStats(ctx context.Context, userID string) (UserStats, error) {
	stats := UserStats{UserID: userID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result, winnings, bet_amount FROM blackjack.games WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return stats, core.Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		var winnings, bet int64
		if err := rows.Scan(&result, &winnings, &bet); err != nil {
			return stats, core.Wrap(err)
		}
		stats.TotalGames++
		stats.TotalWagered += bet
		stats.NetProfit += winnings

		switch Outcome(result) {
		case OutcomePush:
			stats.Pushes++
		case OutcomeWin, OutcomeBlackjack:
			stats.Wins++
		default:
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
