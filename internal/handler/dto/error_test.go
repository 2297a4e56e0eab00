package dto_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mtlprog/wbstatus/internal/conduit"
	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/handler/dto"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid interval", fmt.Errorf("%w: empty", domain.ErrInvalidInterval), http.StatusBadRequest, "INVALID_INTERVAL"},
		{"invalid task", domain.ErrInvalidTaskName, http.StatusBadRequest, "INVALID_TASK"},
		{"task not found", fmt.Errorf("%w: T9", domain.ErrTaskNotFound), http.StatusNotFound, "TASK_NOT_FOUND"},
		{"data shape", &domain.DataShapeError{Index: 2, Kind: "status", Field: "newValue"}, http.StatusBadGateway, "MALFORMED_TRANSACTION"},
		{"invariant", &domain.InvariantViolation{TaskID: 4, Index: 1, Reason: "empty actor"}, http.StatusBadGateway, "INVARIANT_VIOLATION"},
		{"tracker", fmt.Errorf("fetch: %w", &conduit.Error{Method: "maniphest.query", Code: "ERR-CONDUIT-CORE"}), http.StatusBadGateway, "TRACKER_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := dto.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
