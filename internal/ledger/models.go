// Package ledger implements C1: the monetary ledger. It is the settlement
// layer every game, the red-envelope engine, and the mail dispatcher commit
// through — balances, levels, an append-only transaction log, daily
// idempotency, atomic transfer, and rank queries.
package ledger

// TransactionCategory enumerates the kinds of ledger entries (spec.md §3).
type TransactionCategory string

const (
	CategoryIncome   TransactionCategory = "income"
	CategoryExpense  TransactionCategory = "expense"
	CategoryTransfer TransactionCategory = "transfer"
	CategorySet      TransactionCategory = "set"
)

// User is the ledger's primary record: balance, level, and the last daily
// check-in timestamp. Created on first read with (0, 1, 0).
type User struct {
	UserID     string
	Balance    int64
	Level      int
	LastDaily  int64 // unix seconds
}

// Transaction is one append-only ledger entry, written atomically with the
// balance update it explains.
type Transaction struct {
	ID          int64
	UserID      string
	Category    TransactionCategory
	Amount      int64
	Time        int64
	Description string
}

// Rank reports a user's standing among all ledger users.
type Rank struct {
	Rank                 int
	DistanceToNextRank   int64
	DistanceToNextLevel  int
}

// Stats bundles balance, level, rank, and the last check-in time in one
// call, grounded on original_source/plugins/monetary/ranking_service.py's
// get_user_stats.
type Stats struct {
	UserID                  string
	Balance                 int64
	Level                   int
	Rank                    int
	DistanceToNextRank      int64
	DistanceToNextLevel     int
	LastDaily               int64
}
