package domain

import "time"

// Field names a tracked task field.
type Field string

const (
	FieldColumn   Field = "column"
	FieldStatus   Field = "status"
	FieldAssignee Field = "assignee"
	FieldTitle    Field = "title"
)

// TrackedFields lists the fields reconstructed for every task, in report order.
var TrackedFields = []Field{FieldColumn, FieldStatus, FieldAssignee, FieldTitle}

// FieldState holds a field's value just before the interval start and at its end.
type FieldState struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Changed reports whether the field differs across the interval.
func (f FieldState) Changed() bool {
	return f.Start != f.End
}

// TaskIntervalState is the reconstructed view of one task over [start, end).
type TaskIntervalState struct {
	TaskID         int                  `json:"task_id"`
	Start          time.Time            `json:"start"`
	End            time.Time            `json:"end"`
	Fields         map[Field]FieldState `json:"fields"`
	Actors         []string             `json:"actors"`
	MilestoneSince map[string]time.Time `json:"milestone_since"`
}

// Field returns the state of a tracked field; unknown fields are empty.
func (s *TaskIntervalState) Field(f Field) FieldState {
	return s.Fields[f]
}

// Since returns when the task last entered the named milestone.
func (s *TaskIntervalState) Since(milestone string) (time.Time, bool) {
	at, ok := s.MilestoneSince[milestone]
	return at, ok
}
