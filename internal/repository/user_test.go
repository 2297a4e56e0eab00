package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/wbstatus/internal/repository"
)

func TestUserRepository_LookupNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := repository.NewUserRepository(mock)

	rows := mock.NewRows([]string{"phid", "user_name"}).
		AddRow("PHID-USER-a", "alice")
	mock.ExpectQuery(`SELECT phid, user_name FROM users WHERE phid IN \(\$1,\$2\)`).
		WithArgs("PHID-USER-a", "PHID-USER-b").
		WillReturnRows(rows)

	names, err := repo.LookupNames(context.Background(), []string{"PHID-USER-a", "PHID-USER-b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PHID-USER-a": "alice"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SaveNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := repository.NewUserRepository(mock)
	fetchedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users \(phid,user_name,fetched_at\) VALUES \(\$1,\$2,\$3\),\(\$4,\$5,\$6\) ON CONFLICT \(phid\)`).
		WithArgs("PHID-USER-a", "alice", fetchedAt, "PHID-USER-b", "bob", fetchedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err = repo.SaveNames(context.Background(), map[string]string{
		"PHID-USER-b": "bob",
		"PHID-USER-a": "alice",
	}, fetchedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
