package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/datatable"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/store"
)

type fakeReader struct {
	table *datatable.Table
	err   error

	lastTable string
}

func (f *fakeReader) Select(ctx context.Context, table string, filters []store.Filter, orderBy string, desc bool) (*datatable.Table, error) {
	f.lastTable = table
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func newExportHandler(t *testing.T, reader TableReader) (*ExportHandler, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	h := NewExportHandler(reader, exporter.New(logger), dir, logger, apierrors.NewErrorHandler(logger, false))
	return h, dir
}

func exportRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestExportCSV(t *testing.T) {
	reader := &fakeReader{table: salesFixture()}
	h, dir := newExportHandler(t, reader)

	req := exportRequest(t, `{"table_name":"produtos_vendidos","format":"csv"}`)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "produtos_vendidos", reader.lastTable)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["rows_exported"])
	assert.Equal(t, "csv", data["format"])

	raw, err := os.ReadFile(filepath.Join(dir, "produtos_vendidos.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "semana_domingo")
	assert.Contains(t, string(raw), "Centro")
}

func TestExportCustomFilename(t *testing.T) {
	h, dir := newExportHandler(t, &fakeReader{table: salesFixture()})

	req := exportRequest(t, `{"table_name":"produtos_vendidos","format":"json","filename":"weekly.json"}`)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := os.Stat(filepath.Join(dir, "weekly.json"))
	assert.NoError(t, err)
}

func TestExportInvalidFormat(t *testing.T) {
	h, _ := newExportHandler(t, &fakeReader{table: salesFixture()})

	req := exportRequest(t, `{"table_name":"produtos_vendidos","format":"xml"}`)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/validation", problem["type"])
}

func TestExportInvalidTableName(t *testing.T) {
	h, _ := newExportHandler(t, &fakeReader{table: salesFixture()})

	req := exportRequest(t, `{"table_name":"DROP TABLE","format":"csv"}`)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportTableNotFound(t *testing.T) {
	reader := &fakeReader{err: errors.New("no such table: vendas")}
	h, _ := newExportHandler(t, reader)

	req := exportRequest(t, `{"table_name":"vendas","format":"csv"}`)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/data/table-not-found", problem["type"])
}

func TestExportMalformedBody(t *testing.T) {
	h, _ := newExportHandler(t, &fakeReader{table: salesFixture()})

	req := exportRequest(t, `{"table_name":`)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
