// Package report renders board activity reports as plain text.
package report

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/static"
)

// DateLayout is how dates appear in rendered reports.
const DateLayout = "2006-01-02 15:04"

// dwellMarkers are the milestones worth calling out when a task ends the interval in them.
var dwellMarkers = []struct {
	milestone string
	label     string
}{
	{domain.MilestoneInDev, "in development"},
	{domain.MilestoneFeedback, "awaiting feedback"},
}

// Renderer turns reports into text using the board's column names and timezone.
type Renderer struct {
	board *domain.Board
	loc   *time.Location
	tmpl  *template.Template
}

// New creates a Renderer for board.
func New(board *domain.Board) (*Renderer, error) {
	loc := time.UTC
	if board.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(board.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load report timezone %q: %w", board.Timezone, err)
		}
	}

	tmpl, err := template.New("report").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(static.ReportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	return &Renderer{board: board, loc: loc, tmpl: tmpl}, nil
}

// Render writes the text form of report to w.
func (r *Renderer) Render(w io.Writer, report *domain.Report) error {
	if err := r.tmpl.Execute(w, r.View(report)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// View is the presentation model of a report.
type View struct {
	Start  string      `json:"start"`
	End    string      `json:"end"`
	Actors []ActorView `json:"actors"`
}

// ActorView lists what one person did.
type ActorView struct {
	PHID  string     `json:"phid"`
	Name  string     `json:"name"`
	Tasks []TaskView `json:"tasks"`
}

// TaskView describes the visible changes of one task.
type TaskView struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Changes []string `json:"changes"`
}

// View builds the presentation model of report. Actors keep the report order.
func (r *Renderer) View(report *domain.Report) View {
	view := View{
		Start:  r.formatTime(report.Start),
		End:    r.formatTime(report.End),
		Actors: make([]ActorView, 0, len(report.Actors)),
	}
	for _, actor := range report.Actors {
		av := ActorView{PHID: actor.PHID, Name: actor.DisplayName()}
		for _, id := range actor.TaskIDs {
			state := report.State(id)
			if state == nil {
				continue
			}
			tv := TaskView{Name: domain.TaskName(id), Changes: r.changes(report, state)}
			if task := report.Task(id); task != nil {
				tv.Title = task.Title
			} else if title := state.Field(domain.FieldTitle).End; title != "" {
				tv.Title = title
			}
			av.Tasks = append(av.Tasks, tv)
		}
		view.Actors = append(view.Actors, av)
	}
	return view
}

func (r *Renderer) changes(report *domain.Report, state *domain.TaskIntervalState) []string {
	var out []string

	if column := state.Field(domain.FieldColumn); column.Changed() {
		from, to := r.board.ColumnName(column.Start), r.board.ColumnName(column.End)
		switch {
		case column.Start == "":
			out = append(out, "added to "+to)
		case column.End == "":
			out = append(out, "removed from "+from)
		default:
			out = append(out, fmt.Sprintf("moved from %s to %s", from, to))
		}
	}

	if assignee := state.Field(domain.FieldAssignee); assignee.Changed() {
		switch {
		case assignee.Start == "":
			out = append(out, "assigned to "+report.NameOf(assignee.End))
		case assignee.End == "":
			out = append(out, "unassigned from "+report.NameOf(assignee.Start))
		default:
			out = append(out, fmt.Sprintf("reassigned from %s to %s",
				report.NameOf(assignee.Start), report.NameOf(assignee.End)))
		}
	}

	if status := state.Field(domain.FieldStatus); status.Changed() {
		out = append(out, fmt.Sprintf("status %s -> %s", orNone(status.Start), orNone(status.End)))
	}

	if state.Field(domain.FieldTitle).Changed() {
		out = append(out, "retitled")
	}

	column := state.Field(domain.FieldColumn).End
	for _, marker := range dwellMarkers {
		milestoneColumn := r.board.MilestoneColumn(marker.milestone)
		if milestoneColumn == "" || column != milestoneColumn {
			continue
		}
		since, ok := state.Since(marker.milestone)
		// A re-entry after the window hides the in-window entry time.
		if !ok || since.After(report.End) {
			continue
		}
		out = append(out, fmt.Sprintf("%s since %s (%s)", marker.label, r.formatTime(since), dwell(since, report.End)))
	}

	return out
}

func (r *Renderer) formatTime(t time.Time) string {
	return t.In(r.loc).Format(DateLayout)
}

// dwell formats the whole days between since and end.
func dwell(since, end time.Time) string {
	days := int(end.Sub(since) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
