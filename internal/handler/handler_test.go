package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/handler"
	"github.com/mtlprog/wbstatus/internal/handler/dto"
	"github.com/mtlprog/wbstatus/internal/metrics"
	"github.com/mtlprog/wbstatus/internal/report"
	"github.com/mtlprog/wbstatus/internal/service"
)

type fakeReporter struct {
	report   *domain.Report
	state    *domain.TaskIntervalState
	task     *domain.Task
	err      error
	params   service.ReportParams
	stateFor int
}

func (f *fakeReporter) Build(_ context.Context, params service.ReportParams) (*domain.Report, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeReporter) TaskState(
	_ context.Context,
	taskID int,
	start, end time.Time,
) (*domain.TaskIntervalState, *domain.Task, error) {
	f.stateFor = taskID
	f.params = service.ReportParams{Start: start, End: end}
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.state, f.task, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type HandlerTestSuite struct {
	suite.Suite
	reporter *fakeReporter
	server   *httptest.Server
	start    time.Time
	end      time.Time
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	s.end = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	state := &domain.TaskIntervalState{
		TaskID: 7,
		Start:  s.start,
		End:    s.end,
		Fields: map[domain.Field]domain.FieldState{
			domain.FieldStatus: {Start: "open", End: "resolved"},
		},
		Actors:         []string{"PHID-USER-a"},
		MilestoneSince: map[string]time.Time{},
	}
	s.reporter = &fakeReporter{
		state: state,
		task:  &domain.Task{ID: 7, Title: "Ship login"},
		report: &domain.Report{
			RunID:  "run-1",
			Start:  s.start,
			End:    s.end,
			Actors: []*domain.Actor{{PHID: "PHID-USER-a", Name: "alice", TaskIDs: []int{7}}},
			States: map[int]*domain.TaskIntervalState{7: state},
			Tasks:  map[int]*domain.Task{7: {ID: 7, Title: "Ship login"}},
			Names:  map[string]string{"PHID-USER-a": "alice"},
		},
	}

	s.server = s.newServer(handler.Config{APIToken: "s3cret", Metrics: metrics.New()})
}

func (s *HandlerTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerTestSuite) newServer(cfg handler.Config) *httptest.Server {
	renderer, err := report.New(&domain.Board{ProjectPHID: "PHID-PROJ-team"})
	s.Require().NoError(err)

	cfg.Reports = s.reporter
	cfg.Renderer = renderer
	h := handler.New(cfg)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func (s *HandlerTestSuite) get(server *httptest.Server, path, token string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *HandlerTestSuite) TestHealthz() {
	resp := s.get(s.server, "/healthz", "")
	s.Equal(http.StatusOK, resp.StatusCode)

	down := s.newServer(handler.Config{DB: fakePinger{err: errors.New("down")}})
	defer down.Close()
	resp = s.get(down, "/healthz", "")
	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func (s *HandlerTestSuite) TestIndexAndMetrics() {
	resp := s.get(s.server, "/", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/html")

	resp = s.get(s.server, "/metrics", "")
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerTestSuite) TestReport_RequiresToken() {
	resp := s.get(s.server, "/api/v1/report", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.get(s.server, "/api/v1/report", "wrong")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerTestSuite) TestReport_JSON() {
	resp := s.get(s.server, "/api/v1/report?start=2024-03-04&end=2024-03-11T00:00:00Z&tasks=T7,8", "s3cret")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.True(s.reporter.params.Start.Equal(s.start))
	s.True(s.reporter.params.End.Equal(s.end))
	s.Equal([]int{7, 8}, s.reporter.params.TaskIDs)

	var body dto.ReportResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("run-1", body.RunID)
	s.Require().Len(body.Actors, 1)
	s.Equal("alice", body.Actors[0].Name)
	s.Require().Len(body.Actors[0].Tasks, 1)
	s.Equal("T7", body.Actors[0].Tasks[0].Name)
	s.Equal([]string{"status open -> resolved"}, body.Actors[0].Tasks[0].Changes)
	s.Require().Len(body.Tasks, 1)
	s.Equal("Ship login", body.Tasks[0].Title)
	s.Equal("resolved", body.Tasks[0].Fields[domain.FieldStatus].End)
}

func (s *HandlerTestSuite) TestReport_Text() {
	resp := s.get(s.server, "/api/v1/report.txt?start=2024-03-04&end=2024-03-11", "s3cret")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/plain")

	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(string(data), "Board activity 2024-03-04 00:00 to 2024-03-11 00:00"))
	s.Contains(string(data), `  T7 "Ship login": status open -> resolved`)
}

func (s *HandlerTestSuite) TestReport_Errors() {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   string
	}{
		{"bad start", "/api/v1/report?start=yesterday", nil, http.StatusBadRequest, "INVALID_INTERVAL"},
		{"bad task", "/api/v1/report?tasks=T1,foo", nil, http.StatusBadRequest, "INVALID_TASK"},
		{"malformed feed", "/api/v1/report", &domain.DataShapeError{Index: 2, Kind: "status", Field: "dateCreated"}, http.StatusBadGateway, "MALFORMED_TRANSACTION"},
		{"invariant", "/api/v1/report", &domain.InvariantViolation{TaskID: 1, Index: 0, Reason: "no author"}, http.StatusBadGateway, "INVARIANT_VIOLATION"},
		{"unexpected", "/api/v1/report", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.reporter.err = tt.err
			resp := s.get(s.server, tt.path, "s3cret")
			s.Equal(tt.status, resp.StatusCode)

			var body dto.ErrorResponse
			s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
			s.Equal(tt.code, body.Error.Code)
		})
	}
}

func (s *HandlerTestSuite) TestTaskState() {
	resp := s.get(s.server, "/api/v1/tasks/T7/state?start=2024-03-04&end=2024-03-11", "s3cret")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(7, s.reporter.stateFor)

	var body dto.TaskStateResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("T7", body.Task)
	s.Equal("Ship login", body.Title)
	s.Equal([]string{"PHID-USER-a"}, body.Actors)

	resp = s.get(s.server, "/api/v1/tasks/nope/state", "s3cret")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	s.reporter.err = domain.ErrTaskNotFound
	resp = s.get(s.server, "/api/v1/tasks/T99/state", "s3cret")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}
