// Package reducer reconstructs a task's field values at the boundaries of a report interval
// from its normalized transaction log.
package reducer

import (
	"sort"
	"time"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// Reduce computes the interval state of one task. Events must be in log order.
// Events after end do not affect boundary values or actors, but still count
// for milestone tracking, which spans the whole log.
func Reduce(
	taskID int,
	events []domain.Event,
	start, end time.Time,
	milestones domain.Milestones,
) (domain.TaskIntervalState, error) {
	fields := make(map[domain.Field]*fieldAccumulator, len(domain.TrackedFields))
	for _, f := range domain.TrackedFields {
		fields[f] = &fieldAccumulator{}
	}
	actors := make(map[string]struct{})
	since := make(map[string]time.Time)

	inWindow := true
	for i, event := range events {
		trackMilestones(since, event, milestones)

		if !inWindow {
			continue
		}
		if event.At.After(end) {
			inWindow = false
			continue
		}

		if acc, ok := fields[event.Kind.Field()]; ok {
			acc.observe(event.At, start, event.OldValue, event.NewValue)
		}

		if event.At.After(start) {
			if event.Actor == "" {
				return domain.TaskIntervalState{}, &domain.InvariantViolation{
					TaskID: taskID,
					Index:  i,
					Reason: "authored event has no author",
				}
			}
			actors[event.Actor] = struct{}{}
		}
	}

	state := domain.TaskIntervalState{
		TaskID:         taskID,
		Start:          start,
		End:            end,
		Fields:         make(map[domain.Field]domain.FieldState, len(fields)),
		MilestoneSince: since,
	}
	for f, acc := range fields {
		state.Fields[f] = domain.FieldState{Start: acc.start, End: acc.end}
	}

	if assignee := state.Fields[domain.FieldAssignee].End; assignee != "" {
		actors[assignee] = struct{}{}
	}
	state.Actors = sortedKeys(actors)

	return state, nil
}

// trackMilestones records entries into milestone columns; leaving one clears it.
func trackMilestones(since map[string]time.Time, event domain.Event, milestones domain.Milestones) {
	if event.Kind != domain.EventKindColumnMove {
		return
	}
	for name, column := range milestones {
		if column == "" {
			continue
		}
		switch {
		case event.NewValue == column && event.OldValue != column:
			since[name] = event.At
		case event.OldValue == column && event.NewValue != column:
			delete(since, name)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
