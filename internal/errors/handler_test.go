package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(includeStack bool) *ErrorHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorHandler(logger, includeStack)
}

func TestErrorToProblemContextErrors(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/data/sales", nil)

	for _, err := range []error{context.DeadlineExceeded, context.Canceled} {
		problem := h.ErrorToProblem(err, r)
		assert.Equal(t, http.StatusGatewayTimeout, problem.Status)
		assert.Equal(t, TypeTimeout, problem.Type)
	}
}

func TestErrorToProblemAPIError(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/import", nil)

	tests := []struct {
		name       string
		apiErr     *APIError
		wantType   string
		wantStatus int
	}{
		{"validation", ErrValidationFailed, TypeValidation, http.StatusBadRequest},
		{"table not found", ErrTableNotFound, TypeTableNotFound, http.StatusNotFound},
		{"schema not found", ErrSchemaNotFound, TypeSchemaNotFound, http.StatusNotFound},
		{"unsupported format", ErrUnsupportedFormat, TypeUnsupportedFormat, http.StatusBadRequest},
		{"import failed", ErrImportFailed, TypeImportFailed, http.StatusInternalServerError},
		{"export failed", ErrExportFailed, TypeExportFailed, http.StatusInternalServerError},
		{"file too large", ErrFileTooLarge, TypePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"rate limit", ErrRateLimitExceeded, TypeRateLimit, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.apiErr, r)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.apiErr.ErrorCode, problem.Extensions["error_code"])
		})
	}
}

func TestErrorToProblemDetailsPassedThrough(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/import", nil)

	apiErr := NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "bad request", "missing field")
	problem := h.ErrorToProblem(apiErr, r)
	assert.Equal(t, "missing field", problem.Extensions["details"])
}

func TestErrorToProblemStringMatching(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/data/tables", nil)

	tests := []struct {
		err        error
		wantStatus int
		wantType   string
	}{
		{errors.New("table vendas not found"), http.StatusNotFound, TypeNotFound},
		{errors.New("unsupported export format"), http.StatusBadRequest, TypeUnsupportedFormat},
		{errors.New("rate limit exceeded"), http.StatusTooManyRequests, TypeRateLimit},
		{errors.New("version conflict"), http.StatusConflict, TypeConflict},
		{errors.New("payload too large"), http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{errors.New("something broke"), http.StatusInternalServerError, TypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestHandleErrorWritesProblemJSON(t *testing.T) {
	h := newTestHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/data/sales", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, r, ErrTableNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeTableNotFound, body["type"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "/api/data/sales", body["instance"])
}

func TestHandleErrorNilIsNoop(t *testing.T) {
	h := newTestHandler(false)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Empty(t, rec.Body.String())
}

func TestHandlePanicIncludesStackWhenEnabled(t *testing.T) {
	h := newTestHandler(true)
	r := httptest.NewRequest(http.MethodGet, "/api/import", nil)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, r, "boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "boom", body["panic"])
	assert.NotEmpty(t, body["stack"])
}

func TestNotFoundHandler(t *testing.T) {
	h := newTestHandler(false)
	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowedHandler(t *testing.T) {
	h := newTestHandler(false)
	rec := httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/import", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "DELETE")
}

func TestProblemDetailsMarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "bad field", "/api/import").
		WithExtension("error_code", "VALIDATION_FAILED")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeValidation, decoded["type"])
	assert.Equal(t, "bad field", decoded["detail"])
	assert.Equal(t, "VALIDATION_FAILED", decoded["error_code"])
}
