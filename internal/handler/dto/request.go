package dto

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// DefaultWindow is the report interval used when the request names no start.
const DefaultWindow = 7 * 24 * time.Hour

// dateLayout accepts plain calendar dates in the board timezone.
const dateLayout = "2006-01-02"

// ReportQuery holds the query parameters of the report endpoints.
type ReportQuery struct {
	Start   time.Time
	End     time.Time
	TaskIDs []int
}

// ParseReportQuery reads start, end and tasks from query.
// A missing end means the start of the current day in loc, or now when an
// explicit start is not before that; a missing start means DefaultWindow
// before end.
func ParseReportQuery(query url.Values, loc *time.Location, now time.Time) (ReportQuery, error) {
	var q ReportQuery

	end, err := parseInstant(query.Get("end"), loc)
	if err != nil {
		return q, fmt.Errorf("%w: end: %v", domain.ErrInvalidInterval, err)
	}
	start, err := parseInstant(query.Get("start"), loc)
	if err != nil {
		return q, fmt.Errorf("%w: start: %v", domain.ErrInvalidInterval, err)
	}

	if end.IsZero() {
		end = defaultEnd(start, loc, now)
	}
	if start.IsZero() {
		start = end.Add(-DefaultWindow)
	}

	ids, err := ParseTaskIDs(query.Get("tasks"))
	if err != nil {
		return q, err
	}

	q.Start, q.End, q.TaskIDs = start, end, ids
	return q, nil
}

func defaultEnd(start time.Time, loc *time.Location, now time.Time) time.Time {
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if start.IsZero() || start.Before(end) {
		return end
	}
	if now.After(start) {
		return now
	}
	return start.Add(DefaultWindow)
}

// ParseTaskIDs parses a comma-separated list of task names like "T1,T2,3".
func ParseTaskIDs(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var ids []int
	for _, name := range strings.Split(list, ",") {
		id, err := domain.ParseTaskName(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseInstant accepts RFC 3339 timestamps or calendar dates. Empty input yields the zero time.
func parseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", value)
	}
	return t, nil
}
