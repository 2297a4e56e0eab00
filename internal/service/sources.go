package service

import (
	"context"
	"time"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// Tracker is the remote task tracker.
type Tracker interface {
	GetTaskTransactions(ctx context.Context, ids []int) (map[int][]domain.RawTransaction, error)
	QueryTasks(ctx context.Context, ids []int) (map[int]*domain.Task, error)
	QueryProjectTasks(ctx context.Context, projectPHID string) (map[int]*domain.Task, error)
}

// FeedCache stores raw transaction feeds between runs.
type FeedCache interface {
	GetFeeds(ctx context.Context, taskIDs []int, freshAfter time.Time) (map[int][]domain.RawTransaction, error)
	SaveFeeds(ctx context.Context, feeds map[int][]domain.RawTransaction, fetchedAt time.Time) error
}

// TaskCache stores task metadata between runs.
type TaskCache interface {
	GetByIDs(ctx context.Context, ids []int, freshAfter time.Time) (map[int]*domain.Task, error)
	Upsert(ctx context.Context, tasks map[int]*domain.Task, fetchedAt time.Time) error
}

// SnapshotStore returns imported board snapshots.
type SnapshotStore interface {
	GetAt(ctx context.Context, at time.Time) (domain.Snapshot, time.Time, error)
}
