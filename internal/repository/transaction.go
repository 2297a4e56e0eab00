package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// TransactionRepository caches raw task transaction feeds.
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetFeeds returns the cached feeds of taskIDs fetched at or after freshAfter.
// Tasks without a fresh entry are absent from the result.
func (r *TransactionRepository) GetFeeds(
	ctx context.Context,
	taskIDs []int,
	freshAfter time.Time,
) (map[int][]domain.RawTransaction, error) {
	feeds := make(map[int][]domain.RawTransaction, len(taskIDs))
	if len(taskIDs) == 0 {
		return feeds, nil
	}

	query, args, err := psql.
		Select("task_id", "payload").
		From("task_transactions").
		Where(sq.Eq{"task_id": taskIDs}).
		Where(sq.GtOrEq{"fetched_at": freshAfter}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetFeeds query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID  int
			payload []byte
		)
		if err := rows.Scan(&taskID, &payload); err != nil {
			return nil, fmt.Errorf("scan task transactions: %w", err)
		}
		var records []domain.RawTransaction
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("decode cached feed of task %d: %w", taskID, err)
		}
		feeds[taskID] = records
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return feeds, nil
}

// SaveFeeds stores feeds, replacing earlier entries of the same tasks.
func (r *TransactionRepository) SaveFeeds(
	ctx context.Context,
	feeds map[int][]domain.RawTransaction,
	fetchedAt time.Time,
) error {
	if len(feeds) == 0 {
		return nil
	}

	taskIDs := make([]int, 0, len(feeds))
	for id := range feeds {
		taskIDs = append(taskIDs, id)
	}
	sort.Ints(taskIDs)

	insert := psql.
		Insert("task_transactions").
		Columns("task_id", "payload", "fetched_at")
	for _, id := range taskIDs {
		records := feeds[id]
		if records == nil {
			records = []domain.RawTransaction{}
		}
		payload, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("encode feed of task %d: %w", id, err)
		}
		insert = insert.Values(id, payload, fetchedAt)
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (task_id) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build SaveFeeds query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save task transactions: %w", err)
	}

	return nil
}
