package onestroke

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"parlor/internal/core"
	"parlor/internal/database"
	"parlor/internal/fairness"
	"parlor/internal/ledger"
	"parlor/internal/session"
)

// Service is C7: puzzle generation, the WASD move engine, and the
// time-decayed reward payout, wired to the ledger and the shared session
// registry exactly like blackjack and mines.
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

// StartGame generates a fresh puzzle for the chosen difficulty and
// registers the live session. One-stroke carries no entry stake: the
// reward is earned on completion, per spec.md §6.
func (s *Service) StartGame(ctx context.Context, userID, channelID, difficultyName string) (*session.Engine[State], error) {
	cfg, ok := ResolveDifficulty(difficultyName)
	if !ok {
		return nil, core.New(core.KindInvalidArgument, "unknown difficulty: "+difficultyName)
	}
	if s.Sessions.IsActive(userID) {
		return nil, core.New(core.KindAlreadyInGame, "you already have a one-stroke puzzle in progress")
	}

	graph, err := Generate(cfg, s.nextSource())
	if err != nil {
		return nil, core.Wrap(err)
	}
	baseReward := CalculateBaseReward(graph)
	state := NewState(userID, channelID, cfg, graph, baseReward)

	return s.Sessions.Start(userID, channelID, state)
}

// MoveOutcome reports what happened after one WASD move, and whether the
// puzzle is now complete.
type MoveOutcome struct {
	Result    MoveResult
	Completed bool
	Reward    int
}

// Move applies one direction to the live puzzle. On completion it settles
// the session and credits the decayed reward.
func (s *Service) Move(ctx context.Context, state *State, direction byte) (MoveOutcome, error) {
	result := state.Move(direction)
	if result != MoveSuccess {
		return MoveOutcome{Result: result}, nil
	}
	if !state.Complete() {
		return MoveOutcome{Result: MoveSuccess}, nil
	}

	reward := ApplyTimeDecay(state.BaseReward, state.Graph.Rows, state.Graph.Cols, state.ElapsedSeconds())
	if err := s.settle(ctx, state, reward); err != nil {
		return MoveOutcome{}, err
	}
	return MoveOutcome{Result: MoveSuccess, Completed: true, Reward: reward}, nil
}

// Restart regenerates a fresh graph for the same difficulty and resets the
// timer, per session.py's GameManager re-creating a session on request.
func (s *Service) Restart(ctx context.Context, state *State) error {
	graph, err := Generate(state.Difficulty, s.nextSource())
	if err != nil {
		return core.Wrap(err)
	}
	state.Graph = graph
	state.BaseReward = CalculateBaseReward(graph)
	state.Reset()
	return nil
}

// Abandon ends the session without a reward or persisted result.
func (s *Service) Abandon(userID string) {
	s.Sessions.End(userID)
}

func (s *Service) settle(ctx context.Context, state *State, reward int) error {
	s.Sessions.End(state.UserID)

	if reward > 0 {
		if err := s.ledger.Add(ctx, state.UserID, int64(reward), "one_stroke_reward"); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO onestroke.games (id, user_id, difficulty, elapsed_seconds, reward, base_reward, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), state.UserID, state.Difficulty.Key, state.ElapsedSeconds(), reward, state.BaseReward, time.Now().Unix(),
	)
	if err != nil {
		return core.Wrap(fmt.Errorf("record one-stroke result: %w", err))
	}
	return nil
}

// LeaderboardEntry is one row of a per-difficulty best-time ranking.
type LeaderboardEntry struct {
	UserID         string
	ElapsedSeconds float64
	Reward         int
	Timestamp      int64
}

// Leaderboard returns the fastest completions for a difficulty, each
// user's single best time, ties broken by the earlier completion.
func (s *Service) Leaderboard(ctx context.Context, difficultyName string, limit int) ([]LeaderboardEntry, error) {
	cfg, ok := ResolveDifficulty(difficultyName)
	if !ok {
		return nil, core.New(core.KindInvalidArgument, "unknown difficulty: "+difficultyName)
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ON (user_id) user_id, elapsed_seconds, reward, timestamp
		 FROM onestroke.games
		 WHERE difficulty = $1
		 ORDER BY user_id, elapsed_seconds ASC, timestamp ASC`,
		cfg.Key,
	)
	if err != nil {
		return nil, core.Wrap(err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.ElapsedSeconds, &e.Reward, &e.Timestamp); err != nil {
			return nil, core.Wrap(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Wrap(err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ElapsedSeconds != entries[j].ElapsedSeconds {
			return entries[i].ElapsedSeconds < entries[j].ElapsedSeconds
		}
		return entries[i].Timestamp < entries[j].Timestamp
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
