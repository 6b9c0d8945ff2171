package blackjack

import "time"

// Outcome enumerates a settled hand's result kind (spec.md §3).
type Outcome string

const (
	OutcomeWin        Outcome = "win"
	OutcomeBlackjack  Outcome = "blackjack"
	OutcomePush       Outcome = "push"
	OutcomeBust       Outcome = "bust"
	OutcomeSurrender  Outcome = "surrender"
	OutcomeTimeout    Outcome = "timeout"
)

// State is C5's in-memory session payload: the per-user game in progress.
// One exists per active blackjack session (session.Registry[State] enforces
// at most one per user).
type State struct {
	UserID     string
	ChannelID  string
	Bet        int64
	SplitBet   int64
	Player     Hand
	Dealer     Hand
	Split      *Hand
	SplitState int // 0 or 1, per spec.md's field name
	RoundIndex int
	Doubled    [2]bool // per-hand: bet has been doubled (spec.md §4.4 step 3 "d")
	CreatedAt  time.Time
}

// Result is C5's persisted row (spec.md §3 Blackjack Result).
type Result struct {
	ID        string
	UserID    string
	BetAmount int64
	Result    Outcome
	Winnings  int64
	IsSplit   bool
	Timestamp int64
}

// UserStats is the supplemented per-user aggregate from SPEC_FULL.md §5,
// grounded on original_source/plugins/blackjack/game_service.py's
// get_user_stats.
type UserStats struct {
	UserID       string
	TotalGames   int
	Wins         int
	Losses       int
	Pushes       int
	WinRate      float64
	TotalWagered int64
	NetProfit    int64
	BiggestWin   int64
	BiggestLoss  int64
}
