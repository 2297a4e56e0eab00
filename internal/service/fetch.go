package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/metrics"
	"github.com/mtlprog/wbstatus/internal/workboard"
)

// missing returns the ids absent from have, in ascending order.
func missing[V any](ids []int, have map[int]V) []int {
	var out []int
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// loadFeeds returns the transaction feeds of ids, serving fresh entries from the
// cache and fetching the rest from the tracker.
func (s *ReportService) loadFeeds(ctx context.Context, ids []int) (map[int][]domain.RawTransaction, error) {
	now := s.now()
	feeds := make(map[int][]domain.RawTransaction, len(ids))

	if s.feeds != nil && !s.opts.Refresh {
		cached, err := s.feeds.GetFeeds(ctx, ids, now.Add(-s.opts.CacheTTL))
		if err != nil {
			return nil, fmt.Errorf("read cached feeds: %w", err)
		}
		for id, feed := range cached {
			feeds[id] = feed
		}
		s.metrics.AddFeedLookups(metrics.SourceCache, len(cached))
	}

	toFetch := missing(ids, feeds)
	if len(toFetch) == 0 {
		return feeds, nil
	}

	fetched, err := s.tracker.GetTaskTransactions(ctx, toFetch)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	for id, feed := range fetched {
		feeds[id] = feed
	}
	s.metrics.AddFeedLookups(metrics.SourceConduit, len(fetched))

	if s.feeds != nil {
		if err := s.feeds.SaveFeeds(ctx, fetched, now); err != nil {
			slog.Warn("failed to cache transaction feeds", "tasks", len(fetched), "error", err)
		}
	}

	return feeds, nil
}

// loadTasks returns task metadata for ids the same way loadFeeds does.
func (s *ReportService) loadTasks(ctx context.Context, ids []int) (map[int]*domain.Task, error) {
	now := s.now()
	tasks := make(map[int]*domain.Task, len(ids))

	if s.tasks != nil && !s.opts.Refresh {
		cached, err := s.tasks.GetByIDs(ctx, ids, now.Add(-s.opts.CacheTTL))
		if err != nil {
			return nil, fmt.Errorf("read cached tasks: %w", err)
		}
		for id, task := range cached {
			tasks[id] = task
		}
	}

	toFetch := missing(ids, tasks)
	if len(toFetch) == 0 {
		return tasks, nil
	}

	fetched, err := s.tracker.QueryTasks(ctx, toFetch)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	for id, task := range fetched {
		tasks[id] = task
	}

	if s.tasks != nil {
		if err := s.tasks.Upsert(ctx, fetched, now); err != nil {
			slog.Warn("failed to cache tasks", "tasks", len(fetched), "error", err)
		}
	}

	return tasks, nil
}

// candidateTasks decides which tasks a report covers: explicit ids first, then
// the tasks on the imported board snapshots around the interval, then every
// task of the team project.
func (s *ReportService) candidateTasks(ctx context.Context, params ReportParams) ([]int, string, error) {
	if len(params.TaskIDs) > 0 {
		ids := append([]int(nil), params.TaskIDs...)
		sort.Ints(ids)
		return dedupe(ids), "params", nil
	}

	if s.snapshots != nil {
		ids, err := s.snapshotCandidates(ctx, params)
		if err != nil {
			return nil, "", err
		}
		if len(ids) > 0 {
			return ids, "snapshots", nil
		}
	}

	tasks, err := s.tracker.QueryProjectTasks(ctx, s.board.ProjectPHID)
	if err != nil {
		return nil, "", fmt.Errorf("query project tasks: %w", err)
	}
	ids := make([]int, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, "project", nil
}

func dedupe(sorted []int) []int {
	out := make([]int, 0, len(sorted))
	for _, id := range sorted {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}

// snapshotCandidates returns the tasks present on the latest snapshots taken
// at or before the interval start and end. Missing snapshots are skipped.
func (s *ReportService) snapshotCandidates(ctx context.Context, params ReportParams) ([]int, error) {
	var found []domain.Snapshot
	for _, at := range []time.Time{params.Start, params.End} {
		snapshot, takenAt, err := s.snapshots.GetAt(ctx, at)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load board snapshot: %w", err)
		}
		slog.Debug("using board snapshot", "at", at, "taken_at", takenAt, "tasks", len(snapshot))
		found = append(found, snapshot)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return workboard.Candidates(found[0], nil), nil
	default:
		return workboard.Candidates(found[0], found[1]), nil
	}
}
