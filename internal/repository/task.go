package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"task_id", "phid", "title", "status", "owner_phid", "project_phids", "fetched_at",
}

// TaskRepository caches task metadata.
type TaskRepository struct {
	db DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.PHID,
		&task.Title,
		&task.Status,
		&task.OwnerPHID,
		&task.ProjectPHID,
		&task.FetchedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// GetByIDs returns the cached tasks among ids fetched at or after freshAfter.
func (r *TaskRepository) GetByIDs(ctx context.Context, ids []int, freshAfter time.Time) (map[int]*domain.Task, error) {
	tasks := make(map[int]*domain.Task, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}

	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"task_id": ids}).
		Where(sq.GtOrEq{"fetched_at": freshAfter}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDs query for tasks: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks[task.ID] = task
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return tasks, nil
}

// Upsert stores task metadata, replacing earlier entries.
func (r *TaskRepository) Upsert(ctx context.Context, tasks map[int]*domain.Task, fetchedAt time.Time) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]int, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	insert := psql.
		Insert("tasks").
		Columns(taskColumns...)
	for _, id := range ids {
		task := tasks[id]
		projects := task.ProjectPHID
		if projects == nil {
			projects = []string{}
		}
		insert = insert.Values(task.ID, task.PHID, task.Title, task.Status, task.OwnerPHID, projects, fetchedAt)
	}

	query, args, err := insert.
		Suffix(`ON CONFLICT (task_id) DO UPDATE SET
			phid = EXCLUDED.phid,
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			owner_phid = EXCLUDED.owner_phid,
			project_phids = EXCLUDED.project_phids,
			fetched_at = EXCLUDED.fetched_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Upsert query for tasks: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert tasks: %w", err)
	}

	return nil
}
