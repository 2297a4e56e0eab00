package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// SnapshotRepository stores board-column snapshots.
type SnapshotRepository struct {
	db DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save stores a snapshot taken at takenAt. Re-importing the same instant overwrites columns.
func (r *SnapshotRepository) Save(ctx context.Context, takenAt time.Time, snapshot domain.Snapshot) error {
	if len(snapshot) == 0 {
		return nil
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	insert := psql.Insert("board_snapshots").Columns("taken_at", "task_name", "column_name")
	for _, name := range names {
		insert = insert.Values(takenAt, name, snapshot[name])
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (taken_at, task_name) DO UPDATE SET column_name = EXCLUDED.column_name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build Save query for snapshot: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// GetAt returns the latest snapshot taken at or before at, and when it was taken.
// Returns ErrSnapshotNotFound if there is none.
func (r *SnapshotRepository) GetAt(ctx context.Context, at time.Time) (domain.Snapshot, time.Time, error) {
	query, args, err := psql.
		Select("task_name", "column_name", "taken_at").
		From("board_snapshots").
		Where(sq.Expr("taken_at = (SELECT MAX(taken_at) FROM board_snapshots WHERE taken_at <= ?)", at)).
		ToSql()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("build GetAt query for snapshot: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(domain.Snapshot)
	var takenAt time.Time
	for rows.Next() {
		var name, column string
		if err := rows.Scan(&name, &column, &takenAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshot[name] = column
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate rows: %w", err)
	}

	if len(snapshot) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: at or before %s", domain.ErrSnapshotNotFound, at.Format(time.RFC3339))
	}

	return snapshot, takenAt, nil
}
