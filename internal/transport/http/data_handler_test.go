package http

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

	"salespulse/internal/datatable"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/services"
)

type fakeDataService struct {
	salesTable   *datatable.Table
	refundsTable *datatable.Table
	summary      map[string]any
	units        []string
	squads       []string
	categories   []string
	years        []int
	err          error

	lastSalesFilter  services.SalesFilter
	lastRefundFilter services.RefundFilter
	cacheCleared     bool
}

func (f *fakeDataService) Sales(ctx context.Context, filter services.SalesFilter) (*datatable.Table, error) {
	f.lastSalesFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.salesTable, nil
}

func (f *fakeDataService) Refunds(ctx context.Context, filter services.RefundFilter) (*datatable.Table, error) {
	f.lastRefundFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.refundsTable, nil
}

func (f *fakeDataService) DashboardSummary(ctx context.Context, filter services.RefundFilter) (map[string]any, error) {
	f.lastRefundFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func (f *fakeDataService) AvailableUnits(ctx context.Context) ([]string, error) {
	return f.units, f.err
}

func (f *fakeDataService) AvailableSquads(ctx context.Context) ([]string, error) {
	return f.squads, f.err
}

func (f *fakeDataService) AvailableCategories(ctx context.Context) ([]string, error) {
	return f.categories, f.err
}

func (f *fakeDataService) AvailableYears(ctx context.Context) ([]int, error) {
	return f.years, f.err
}

func (f *fakeDataService) ClearCache() { f.cacheCleared = true }

func newDataHandler(svc DataServiceInterface) *DataHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDataHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
}

func salesFixture() *datatable.Table {
	t := datatable.New("semana_domingo", "unidade", "produtos_vendidos")
	t.AppendRow(datatable.Row{
		"semana_domingo":    datatable.String("2026-08-02"),
		"unidade":           datatable.String("Centro"),
		"produtos_vendidos": datatable.Float(1000),
	})
	t.AppendRow(datatable.Row{
		"semana_domingo":    datatable.String("2026-08-09"),
		"unidade":           datatable.String("Norte"),
		"produtos_vendidos": datatable.Float(500),
	})
	return t
}

func TestGetSummary(t *testing.T) {
	svc := &fakeDataService{summary: map[string]any{
		"produtos_vendidos":   1500.0,
		"indice_cancelamento": 10.0,
	}}
	h := newDataHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/summary?unit=Centro&year=2026&month=8", nil)
	rec := httptest.NewRecorder()
	h.DashboardRoutes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Centro", svc.lastRefundFilter.Unit)
	assert.Equal(t, 2026, svc.lastRefundFilter.Year)
	assert.Equal(t, 8, svc.lastRefundFilter.Month)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, 1500.0, data["produtos_vendidos"])
}

func TestGetSummaryInvalidDate(t *testing.T) {
	h := newDataHandler(&fakeDataService{})

	req := httptest.NewRequest(http.MethodGet, "/summary?start_date=08-02-2026", nil)
	rec := httptest.NewRecorder()
	h.DashboardRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSales(t *testing.T) {
	svc := &fakeDataService{salesTable: salesFixture()}
	h := newDataHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/sales?start_date=2026-08-01&end_date=2026-08-31", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["count"])
	assert.False(t, svc.lastSalesFilter.StartDate.IsZero())
	assert.False(t, svc.lastSalesFilter.EndDate.IsZero())
}

func TestGetSalesInvalidMonth(t *testing.T) {
	h := newDataHandler(&fakeDataService{})

	req := httptest.NewRequest(http.MethodGet, "/sales?month=13", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRefundsKindValidation(t *testing.T) {
	svc := &fakeDataService{refundsTable: datatable.New("data", "valor")}
	h := newDataHandler(svc)

	t.Run("valid kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/refunds?kind=Cancelado", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, services.RefundKindCancelled, svc.lastRefundFilter.Kind)
	})

	t.Run("invalid kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/refunds?kind=Devolvido", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetFilters(t *testing.T) {
	svc := &fakeDataService{
		units:      []string{"Centro", "Norte"},
		squads:     []string{"Alfa"},
		categories: []string{"Atraso"},
		years:      []int{2026, 2025},
	}
	h := newDataHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/filters", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Len(t, data["units"], 2)
	assert.Len(t, data["years"], 2)
}

func TestGetFiltersServiceError(t *testing.T) {
	h := newDataHandler(&fakeDataService{err: errors.New("database gone")})

	req := httptest.NewRequest(http.MethodGet, "/filters", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClearCache(t *testing.T) {
	svc := &fakeDataService{}
	h := newDataHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.cacheCleared)
}
