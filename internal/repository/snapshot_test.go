package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/repository"
)

func TestSnapshotRepository_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := repository.NewSnapshotRepository(mock)
	takenAt := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO board_snapshots \(taken_at,task_name,column_name\) VALUES \(\$1,\$2,\$3\),\(\$4,\$5,\$6\) ON CONFLICT`).
		WithArgs(takenAt, "T1", "In Development", takenAt, "T2", "Done").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err = repo.Save(context.Background(), takenAt, domain.Snapshot{"T2": "Done", "T1": "In Development"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_GetAt(t *testing.T) {
	at := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	takenAt := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	t.Run("Should return the latest snapshot before the instant", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewSnapshotRepository(mock)

		rows := mock.NewRows([]string{"task_name", "column_name", "taken_at"}).
			AddRow("T1", "In Development", takenAt).
			AddRow("T2", "Done", takenAt)
		mock.ExpectQuery(`SELECT task_name, column_name, taken_at FROM board_snapshots WHERE taken_at = \(SELECT MAX\(taken_at\) FROM board_snapshots WHERE taken_at <= \$1\)`).
			WithArgs(at).
			WillReturnRows(rows)

		snapshot, got, err := repo.GetAt(context.Background(), at)
		require.NoError(t, err)
		assert.Equal(t, domain.Snapshot{"T1": "In Development", "T2": "Done"}, snapshot)
		assert.True(t, got.Equal(takenAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should report a missing snapshot", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewSnapshotRepository(mock)

		mock.ExpectQuery(`SELECT (.+) FROM board_snapshots`).
			WithArgs(at).
			WillReturnRows(mock.NewRows([]string{"task_name", "column_name", "taken_at"}))

		_, _, err = repo.GetAt(context.Background(), at)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
