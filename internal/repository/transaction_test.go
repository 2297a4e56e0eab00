package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/repository"
)

func TestTransactionRepository_GetFeeds(t *testing.T) {
	t.Run("Should decode cached feeds", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewTransactionRepository(mock)
		freshAfter := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		rows := mock.NewRows([]string{"task_id", "payload"}).
			AddRow(1, []byte(`[{"transactionType":"reassign","dateCreated":"10"}]`)).
			AddRow(2, []byte(`[]`))
		mock.ExpectQuery(`SELECT task_id, payload FROM task_transactions WHERE task_id IN \(\$1,\$2,\$3\) AND fetched_at >= \$4`).
			WithArgs(1, 2, 3, freshAfter).
			WillReturnRows(rows)

		feeds, err := repo.GetFeeds(context.Background(), []int{1, 2, 3}, freshAfter)
		require.NoError(t, err)
		require.Len(t, feeds, 2)
		require.Len(t, feeds[1], 1)
		assert.JSONEq(t, `{"transactionType":"reassign","dateCreated":"10"}`, string(feeds[1][0]))
		assert.Empty(t, feeds[2])
		_, ok := feeds[3]
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should skip the query for no tasks", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewTransactionRepository(mock)

		feeds, err := repo.GetFeeds(context.Background(), nil, time.Now())
		require.NoError(t, err)
		assert.Empty(t, feeds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should wrap query errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewTransactionRepository(mock)
		boom := errors.New("connection reset")

		mock.ExpectQuery(`SELECT (.+) FROM task_transactions`).
			WithArgs(7, pgxmock.AnyArg()).
			WillReturnError(boom)

		_, err = repo.GetFeeds(context.Background(), []int{7}, time.Now())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_SaveFeeds(t *testing.T) {
	t.Run("Should upsert feeds in task order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewTransactionRepository(mock)
		fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectExec(`INSERT INTO task_transactions \(task_id,payload,fetched_at\) VALUES \(\$1,\$2,\$3\),\(\$4,\$5,\$6\) ON CONFLICT \(task_id\) DO UPDATE`).
			WithArgs(3, []byte(`[]`), fetchedAt, 9, []byte(`[{"a":1}]`), fetchedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))

		err = repo.SaveFeeds(context.Background(), map[int][]domain.RawTransaction{
			9: {domain.RawTransaction(`{"a":1}`)},
			3: nil,
		}, fetchedAt)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should do nothing for an empty feed set", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := repository.NewTransactionRepository(mock)

		require.NoError(t, repo.SaveFeeds(context.Background(), nil, time.Now()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
