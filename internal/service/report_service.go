// Package service builds board activity reports from task transaction logs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/identity"
	"github.com/mtlprog/wbstatus/internal/metrics"
	"github.com/mtlprog/wbstatus/internal/normalize"
	"github.com/mtlprog/wbstatus/internal/reducer"
)

// Options tunes caching and parallelism of report builds.
type Options struct {
	// CacheTTL is how long cached feeds and task metadata stay fresh.
	CacheTTL time.Duration
	// Refresh ignores cached entries and refetches everything.
	Refresh bool
	// Workers bounds concurrent task reductions. Zero means GOMAXPROCS.
	Workers int
}

// ReportParams selects the interval and tasks of a report.
type ReportParams struct {
	Start   time.Time
	End     time.Time
	TaskIDs []int
}

func (p ReportParams) validate() error {
	if p.Start.IsZero() || p.End.IsZero() || !p.End.After(p.Start) {
		return fmt.Errorf("%w: [%s, %s)", domain.ErrInvalidInterval,
			p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	return nil
}

// ReportService reconstructs what happened on the board over an interval.
type ReportService struct {
	tracker   Tracker
	feeds     FeedCache
	tasks     TaskCache
	snapshots SnapshotStore
	registry  *identity.Registry
	board     *domain.Board
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
}

// Deps are the collaborators of a ReportService. Caches, snapshots and metrics are optional.
type Deps struct {
	Tracker   Tracker
	Directory identity.Directory
	Feeds     FeedCache
	Tasks     TaskCache
	Snapshots SnapshotStore
	Metrics   *metrics.Metrics
}

// NewReportService creates a new ReportService.
func NewReportService(deps Deps, board *domain.Board, opts Options) (*ReportService, error) {
	registry, err := identity.NewRegistry(deps.Directory, identity.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create identity registry: %w", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &ReportService{
		tracker:   deps.Tracker,
		feeds:     deps.Feeds,
		tasks:     deps.Tasks,
		snapshots: deps.Snapshots,
		registry:  registry,
		board:     board,
		metrics:   deps.Metrics,
		opts:      opts,
		now:       time.Now,
	}, nil
}

// Build produces the report for params.
func (s *ReportService) Build(ctx context.Context, params ReportParams) (report *domain.Report, err error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() { s.metrics.ObserveBuild(time.Since(started), err) }()

	runID := uuid.NewString()
	log := slog.With("run_id", runID)

	ids, source, err := s.candidateTasks(ctx, params)
	if err != nil {
		return nil, err
	}
	log.Info("building report",
		"start", params.Start,
		"end", params.End,
		"tasks", len(ids),
		"task_source", source,
	)

	feeds, err := s.loadFeeds(ctx, ids)
	if err != nil {
		return nil, err
	}
	tasks, err := s.loadTasks(ctx, ids)
	if err != nil {
		return nil, err
	}

	states, err := s.reduceAll(ctx, feeds, params.Start, params.End, s.registry)
	if err != nil {
		return nil, err
	}

	for _, task := range tasks {
		s.registry.Register(task.OwnerPHID)
	}
	if err := s.registry.Resolve(ctx); err != nil {
		return nil, fmt.Errorf("resolve identities: %w", err)
	}

	report = &domain.Report{
		RunID:  runID,
		Start:  params.Start,
		End:    params.End,
		Actors: reducer.GroupByActor(states),
		States: make(map[int]*domain.TaskIntervalState, len(states)),
		Tasks:  tasks,
		Names:  make(map[string]string),
	}
	for i := range states {
		report.States[states[i].TaskID] = &states[i]
		s.collectNames(report.Names, &states[i])
	}
	for _, actor := range report.Actors {
		actor.Name = report.Names[actor.PHID]
	}
	for _, task := range tasks {
		s.addName(report.Names, task.OwnerPHID)
	}
	report.SortActorsByName()

	log.Info("report built",
		"tasks", len(states),
		"actors", len(report.Actors),
		"elapsed", time.Since(started),
	)

	return report, nil
}

// TaskState reconstructs one task over [start, end) and returns it with the
// task's metadata, which is nil when the tracker does not list the task.
// Returns ErrTaskNotFound if the tracker has no log for it.
func (s *ReportService) TaskState(
	ctx context.Context,
	taskID int,
	start, end time.Time,
) (*domain.TaskIntervalState, *domain.Task, error) {
	params := ReportParams{Start: start, End: end, TaskIDs: []int{taskID}}
	if err := params.validate(); err != nil {
		return nil, nil, err
	}

	feeds, err := s.loadFeeds(ctx, params.TaskIDs)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := feeds[taskID]; !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, domain.TaskName(taskID))
	}
	tasks, err := s.loadTasks(ctx, params.TaskIDs)
	if err != nil {
		return nil, nil, err
	}

	// Single-task states carry raw identity references, so nothing is registered.
	states, err := s.reduceAll(ctx, feeds, start, end, nil)
	if err != nil {
		return nil, nil, err
	}
	return &states[0], tasks[taskID], nil
}

// reduceAll normalizes every feed and reduces the tasks in parallel.
// Identities seen while normalizing go to registrar when it is not nil.
// States come back ordered by task id.
func (s *ReportService) reduceAll(
	ctx context.Context,
	feeds map[int][]domain.RawTransaction,
	start, end time.Time,
	registrar normalize.Registrar,
) ([]domain.TaskIntervalState, error) {
	normalizer := normalize.New(s.board.ProjectPHID, registrar)
	logs, err := normalizer.NormalizeFeed(feeds)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(logs))
	for id := range logs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	states := make([]domain.TaskIntervalState, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			state, err := reducer.Reduce(id, logs[id], start, end, s.board.Milestones)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.metrics.AddTasksReduced(len(states))
	return states, nil
}

// collectNames records display names of every identity a state mentions.
func (s *ReportService) collectNames(names map[string]string, state *domain.TaskIntervalState) {
	for _, ref := range state.Actors {
		s.addName(names, ref)
	}
	assignee := state.Field(domain.FieldAssignee)
	s.addName(names, assignee.Start)
	s.addName(names, assignee.End)
}

func (s *ReportService) addName(names map[string]string, ref string) {
	if ref == "" {
		return
	}
	if name, ok := s.registry.NameOf(ref); ok {
		names[ref] = name
	}
}
