package domain

import (
	"sort"
	"time"
)

// Report is the reconstructed activity of a board over one interval.
type Report struct {
	RunID  string
	Start  time.Time
	End    time.Time
	Actors []*Actor
	States map[int]*TaskIntervalState
	Tasks  map[int]*Task
	Names  map[string]string
}

// State returns the interval state of a task, or nil if it was not part of the report.
func (r *Report) State(taskID int) *TaskIntervalState {
	return r.States[taskID]
}

// Task returns the metadata of a task, or nil if it was not fetched.
func (r *Report) Task(taskID int) *Task {
	return r.Tasks[taskID]
}

// NameOf returns the display name of an identity reference, or the reference itself.
func (r *Report) NameOf(ref string) string {
	if name, ok := r.Names[ref]; ok {
		return name
	}
	return ref
}

// TaskIDs returns the ids of all reduced tasks in ascending order.
func (r *Report) TaskIDs() []int {
	ids := make([]int, 0, len(r.States))
	for id := range r.States {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SortActorsByName orders actors by display name, then by reference.
func (r *Report) SortActorsByName() {
	sort.SliceStable(r.Actors, func(i, j int) bool {
		a, b := r.Actors[i].DisplayName(), r.Actors[j].DisplayName()
		if a != b {
			return a < b
		}
		return r.Actors[i].PHID < r.Actors[j].PHID
	})
}
