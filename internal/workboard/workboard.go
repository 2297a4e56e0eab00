// Package workboard reads board-column membership from saved workboard pages and compares snapshots.
package workboard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mtlprog/wbstatus/internal/domain"
)

const (
	classColumn     = "phui-workpanel-view"
	classColumnName = "phui-action-header-title"
	classTaskName   = "phui-object-item-objname"
)

// Parse extracts task name to column name from a rendered workboard page.
func Parse(r io.Reader) (domain.Snapshot, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse workboard html: %w", err)
	}

	snapshot := make(domain.Snapshot)
	for _, column := range findByClass(doc, classColumn) {
		headers := findByClass(column, classColumnName)
		if len(headers) == 0 {
			continue
		}
		name := firstText(headers[0])
		for _, task := range findByClass(column, classTaskName) {
			if taskName := strings.TrimSpace(textContent(task)); taskName != "" {
				snapshot[taskName] = name
			}
		}
	}
	return snapshot, nil
}

// ParseFile parses a saved workboard page.
func ParseFile(path string) (domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workboard snapshot: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// SnapshotPath returns the file a snapshot taken at t is stored under in dir.
// Snapshots are saved hourly, so t is truncated to the hour in its own location.
func SnapshotPath(dir string, t time.Time) string {
	hour := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	return filepath.Join(dir, "workboard-"+hour.Format("2006-01-02T15MST")+".html")
}

// Diff returns the tasks whose column differs between two snapshots.
func Diff(before, after domain.Snapshot) map[string]domain.ColumnChange {
	diff := make(map[string]domain.ColumnChange)
	for _, name := range taskNames(before, after) {
		change := domain.ColumnChange{Old: before[name], New: after[name]}
		if change.Old != change.New {
			diff[name] = change
		}
	}
	return diff
}

// Candidates returns the ids of every task present in either snapshot, ascending.
// Entries that are not task monograms are skipped.
func Candidates(before, after domain.Snapshot) []int {
	var ids []int
	for _, name := range taskNames(before, after) {
		id, err := domain.ParseTaskName(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func taskNames(snapshots ...domain.Snapshot) []string {
	seen := make(map[string]struct{})
	for _, s := range snapshots {
		for name := range s {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
