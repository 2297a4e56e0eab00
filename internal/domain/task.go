package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Task is the metadata of a tracker task needed to render a report.
type Task struct {
	ID          int
	PHID        string
	Title       string
	Status      string
	OwnerPHID   string
	ProjectPHID []string
	FetchedAt   time.Time
}

// Name returns the task's monogram, e.g. T123.
func (t *Task) Name() string {
	return TaskName(t.ID)
}

// TaskName formats a task id as its monogram.
func TaskName(id int) string {
	return "T" + strconv.Itoa(id)
}

// ParseTaskName converts a monogram like T123 (or a bare number) into a task id.
func ParseTaskName(name string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(name), "T"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTaskName, name)
	}
	return id, nil
}
