package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/wbstatus/internal/database"
	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/repository"
)

// PostgresSuite runs the repositories against a real database from DATABASE_URL.
type PostgresSuite struct {
	suite.Suite
	db   *database.DB
	pool *pgxpool.Pool
}

func TestPostgresSuite(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	db, err := database.New(ctx, os.Getenv("DATABASE_URL"), database.Options{MaxConns: 4})
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(ctx))
	s.db = db
	s.pool = db.Pool()
}

func (s *PostgresSuite) TearDownSuite() {
	s.db.Close()
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE task_transactions, tasks, users, board_snapshots")
	s.Require().NoError(err)
}

func (s *PostgresSuite) TestFeedsRoundTrip() {
	ctx := context.Background()
	repo := repository.NewTransactionRepository(s.pool)
	fetchedAt := time.Now().UTC().Truncate(time.Second)

	err := repo.SaveFeeds(ctx, map[int][]domain.RawTransaction{
		1: {domain.RawTransaction(`{"transactionType":"status","dateCreated":"1","newValue":"open"}`)},
		2: nil,
	}, fetchedAt)
	s.Require().NoError(err)

	feeds, err := repo.GetFeeds(ctx, []int{1, 2, 3}, fetchedAt.Add(-time.Minute))
	s.Require().NoError(err)
	s.Len(feeds, 2)
	s.Require().Len(feeds[1], 1)
	s.JSONEq(`{"transactionType":"status","dateCreated":"1","newValue":"open"}`, string(feeds[1][0]))

	stale, err := repo.GetFeeds(ctx, []int{1, 2}, fetchedAt.Add(time.Minute))
	s.Require().NoError(err)
	s.Empty(stale)
}

func (s *PostgresSuite) TestTasksAndUsers() {
	ctx := context.Background()
	now := time.Now().UTC()

	tasks := repository.NewTaskRepository(s.pool)
	s.Require().NoError(tasks.Upsert(ctx, map[int]*domain.Task{
		4: {ID: 4, PHID: "PHID-TASK-4", Title: "Fix", Status: "open", ProjectPHID: []string{"PHID-PROJ-1"}},
	}, now))
	got, err := tasks.GetByIDs(ctx, []int{4}, now.Add(-time.Minute))
	s.Require().NoError(err)
	s.Require().Contains(got, 4)
	s.Equal([]string{"PHID-PROJ-1"}, got[4].ProjectPHID)

	users := repository.NewUserRepository(s.pool)
	s.Require().NoError(users.SaveNames(ctx, map[string]string{"PHID-USER-a": "alice"}, now))
	s.Require().NoError(users.SaveNames(ctx, map[string]string{"PHID-USER-a": "alice2"}, now))
	names, err := users.LookupNames(ctx, []string{"PHID-USER-a", "PHID-USER-b"})
	s.Require().NoError(err)
	s.Equal(map[string]string{"PHID-USER-a": "alice2"}, names)
}

func (s *PostgresSuite) TestSnapshots() {
	ctx := context.Background()
	repo := repository.NewSnapshotRepository(s.pool)
	first := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	s.Require().NoError(repo.Save(ctx, first, domain.Snapshot{"T1": "Backlog"}))
	s.Require().NoError(repo.Save(ctx, second, domain.Snapshot{"T1": "Done", "T2": "Backlog"}))

	snapshot, takenAt, err := repo.GetAt(ctx, second.Add(-time.Hour))
	s.Require().NoError(err)
	s.True(takenAt.Equal(first))
	s.Equal(domain.Snapshot{"T1": "Backlog"}, snapshot)

	snapshot, _, err = repo.GetAt(ctx, second)
	s.Require().NoError(err)
	s.Equal("Done", snapshot["T1"])

	_, _, err = repo.GetAt(ctx, first.Add(-time.Hour))
	s.ErrorIs(err, domain.ErrSnapshotNotFound)
}
