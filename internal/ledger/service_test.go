package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"parlor/internal/database"
)

var testDB *sql.DB

func mustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbName, dbUser, dbPwd := "ledger_test", "user", "password"

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:latest",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	host, err := dbContainer.Host(ctx)
	if err != nil {
		return dbContainer.Terminate, err
	}
	port, err := dbContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPwd, host, port.Port(), dbName)
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, "../../migrations"); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}
	if os.Getenv("CI") == "" && !isDockerAvailable() {
		os.Exit(0)
	}

	teardown, err := mustStartPostgresContainer()
	if err != nil {
		os.Exit(0)
	}

	code := m.Run()

	if teardown != nil {
		teardown(context.Background())
	}
	os.Exit(code)
}

type fakeDBService struct{ db *sql.DB }

func (f *fakeDBService) DB() *sql.DB                   { return f.db }
func (f *fakeDBService) Health() map[string]string     { return nil }
func (f *fakeDBService) Close() error                  { return f.db.Close() }

func newTestService(t *testing.T) *Service {
	t.Helper()
	if testDB == nil {
		t.Skip("no test database available")
	}
	if _, err := testDB.Exec(`TRUNCATE ledger.transactions, ledger.users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return New(&fakeDBService{db: testDB})
}

func TestGetUserAutoCreatesDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Balance != 0 || u.Level != 1 || u.LastDaily != 0 {
		t.Fatalf("expected defaults (0,1,0), got %+v", u)
	}
}

func TestAddAndCost(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Add(ctx, "bob", 100, "seed"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	u, err := svc.GetUser(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Balance != 100 {
		t.Fatalf("expected balance 100, got %d", u.Balance)
	}

	if err := svc.Cost(ctx, "bob", 40, "bet"); err != nil {
		t.Fatalf("Cost: %v", err)
	}
	u, err = svc.GetUser(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Balance != 60 {
		t.Fatalf("expected balance 60, got %d", u.Balance)
	}

	txns, err := svc.GetUserTransactions(ctx, "bob", "", 0)
	if err != nil {
		t.Fatalf("GetUserTransactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
}

func TestTransferMovesBothSidesAtomically(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Add(ctx, "carol", 100, "seed"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := svc.Transfer(ctx, "carol", "dave", 30, "gift"); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	carol, err := svc.GetUser(ctx, "carol")
	if err != nil {
		t.Fatalf("GetUser carol: %v", err)
	}
	dave, err := svc.GetUser(ctx, "dave")
	if err != nil {
		t.Fatalf("GetUser dave: %v", err)
	}
	if carol.Balance != 70 {
		t.Fatalf("expected carol balance 70, got %d", carol.Balance)
	}
	if dave.Balance != 30 {
		t.Fatalf("expected dave balance 30, got %d", dave.Balance)
	}
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Transfer(ctx, "eve", "frank", 50, "gift")
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
}

func TestDailyIsOncePerLocalDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Daily(ctx, "grace")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if !first {
		t.Fatal("expected first daily call to advance")
	}

	second, err := svc.Daily(ctx, "grace")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if second {
		t.Fatal("expected second daily call same day to be a no-op")
	}
}

func TestLevelOperations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SetLevel(ctx, "heidi", 5); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := svc.IncreaseLevel(ctx, "heidi", 2); err != nil {
		t.Fatalf("IncreaseLevel: %v", err)
	}
	lvl, err := svc.GetLevel(ctx, "heidi")
	if err != nil {
		t.Fatalf("GetLevel: %v", err)
	}
	if lvl != 7 {
		t.Fatalf("expected level 7, got %d", lvl)
	}

	if err := svc.DecreaseLevel(ctx, "heidi", 100); err != nil {
		t.Fatalf("DecreaseLevel: %v", err)
	}
	lvl, err = svc.GetLevel(ctx, "heidi")
	if err != nil {
		t.Fatalf("GetLevel: %v", err)
	}
	if lvl != 1 {
		t.Fatalf("expected level saturated at 1, got %d", lvl)
	}
}

func TestGetUserRankOrdersByLevelThenBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SetLevel(ctx, "ivan", 3); err != nil {
		t.Fatalf("SetLevel ivan: %v", err)
	}
	if err := svc.Add(ctx, "ivan", 500, "seed"); err != nil {
		t.Fatalf("Add ivan: %v", err)
	}
	if err := svc.SetLevel(ctx, "judy", 3); err != nil {
		t.Fatalf("SetLevel judy: %v", err)
	}
	if err := svc.Add(ctx, "judy", 1000, "seed"); err != nil {
		t.Fatalf("Add judy: %v", err)
	}

	rank, err := svc.GetUserRank(ctx, "ivan")
	if err != nil {
		t.Fatalf("GetUserRank: %v", err)
	}
	if rank.Rank != 2 {
		t.Fatalf("expected ivan to rank 2nd, got %d", rank.Rank)
	}
	if rank.DistanceToNextRank != 500 {
		t.Fatalf("expected distance to next rank 500, got %d", rank.DistanceToNextRank)
	}
}

func TestGetTopUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Add(ctx, "kevin", 10, "seed"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Add(ctx, "laura", 20, "seed"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	top, err := svc.GetTopUsers(ctx, 10)
	if err != nil {
		t.Fatalf("GetTopUsers: %v", err)
	}
	if len(top) < 2 {
		t.Fatalf("expected at least 2 users, got %d", len(top))
	}
	if top[0].Balance < top[1].Balance {
		t.Fatalf("expected descending balance order, got %+v", top)
	}
}
