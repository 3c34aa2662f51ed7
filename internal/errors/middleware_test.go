package errors

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware() *ErrorMiddleware {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorMiddleware(NewErrorHandler(logger, false), logger)
}

func TestMiddlewarePassesThroughSuccess(t *testing.T) {
	m := newTestMiddleware()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	m := newTestMiddleware()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data/sales", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
}

func TestMiddlewarePreservesRequestBody(t *testing.T) {
	m := newTestMiddleware()
	var seen string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"table_name":"vendas"}`
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
	req.ContentLength = int64(len(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, body, seen)
}

func TestSanitizeRequestBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(t *testing.T, out string)
	}{
		{
			name: "redacts sensitive fields",
			body: `{"table_name":"vendas","password":"hunter2","api_key":"abc"}`,
			want: func(t *testing.T, out string) {
				assert.NotContains(t, out, "hunter2")
				assert.NotContains(t, out, "abc")
				assert.Contains(t, out, "[REDACTED]")
				assert.Contains(t, out, "vendas")
			},
		},
		{
			name: "non-json passes through",
			body: "plain text payload",
			want: func(t *testing.T, out string) {
				assert.Equal(t, "plain text payload", out)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, sanitizeRequestBody(tt.body))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewErrorHandler(logger, false)

	handler := RecoveryMiddleware(h)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
