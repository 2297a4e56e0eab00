package dto

import (
	"time"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/report"
)

// ReportResponse is the JSON form of a report.
type ReportResponse struct {
	RunID  string              `json:"run_id"`
	Start  time.Time           `json:"start"`
	End    time.Time           `json:"end"`
	Actors []ActorResponse     `json:"actors"`
	Tasks  []TaskStateResponse `json:"tasks"`
}

// ActorResponse lists the tasks one identity touched, with readable changes.
type ActorResponse struct {
	PHID  string            `json:"phid"`
	Name  string            `json:"name"`
	Tasks []report.TaskView `json:"tasks"`
}

// TaskStateResponse is the reconstructed state of one task.
type TaskStateResponse struct {
	Task           string                             `json:"task"`
	Title          string                             `json:"title,omitempty"`
	Start          time.Time                          `json:"start"`
	End            time.Time                          `json:"end"`
	Fields         map[domain.Field]domain.FieldState `json:"fields"`
	Actors         []string                           `json:"actors"`
	MilestoneSince map[string]time.Time               `json:"milestone_since"`
}

// NewTaskStateResponse converts an interval state.
func NewTaskStateResponse(state *domain.TaskIntervalState, task *domain.Task) TaskStateResponse {
	resp := TaskStateResponse{
		Task:           domain.TaskName(state.TaskID),
		Start:          state.Start,
		End:            state.End,
		Fields:         state.Fields,
		Actors:         state.Actors,
		MilestoneSince: state.MilestoneSince,
	}
	if task != nil {
		resp.Title = task.Title
	}
	if resp.Actors == nil {
		resp.Actors = []string{}
	}
	return resp
}

// NewReportResponse converts a report, using view for the readable changes.
func NewReportResponse(rep *domain.Report, view report.View) ReportResponse {
	resp := ReportResponse{
		RunID:  rep.RunID,
		Start:  rep.Start,
		End:    rep.End,
		Actors: make([]ActorResponse, 0, len(view.Actors)),
		Tasks:  make([]TaskStateResponse, 0, len(rep.States)),
	}
	for _, actor := range view.Actors {
		tasks := actor.Tasks
		if tasks == nil {
			tasks = []report.TaskView{}
		}
		resp.Actors = append(resp.Actors, ActorResponse{PHID: actor.PHID, Name: actor.Name, Tasks: tasks})
	}
	for _, id := range rep.TaskIDs() {
		resp.Tasks = append(resp.Tasks, NewTaskStateResponse(rep.State(id), rep.Task(id)))
	}
	return resp
}
