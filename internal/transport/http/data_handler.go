package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/services"
)

// DataHandler serves dashboard aggregates and record listings with
// RFC 7807 error responses.
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes with proper Chi patterns
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/sales", h.GetSales)
	r.Get("/refunds", h.GetRefunds)
	r.Get("/filters", h.GetFilters)
	r.Delete("/cache", h.ClearCache)

	return r
}

// DashboardRoutes returns the dashboard aggregate routes
func (h *DataHandler) DashboardRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/summary", h.GetSummary)

	return r
}

// GetSummary handles GET /api/dashboard/summary
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	filter, ok := h.parseRefundFilter(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching dashboard summary",
		slog.String("request_id", reqID),
		slog.String("unit", filter.Unit),
		slog.Int("year", filter.Year),
		slog.Int("month", filter.Month),
	)

	summary, err := h.service.DashboardSummary(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build dashboard summary",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetSales handles GET /api/data/sales
func (h *DataHandler) GetSales(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	filter, ok := h.parseSalesFilter(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching sales records",
		slog.String("request_id", reqID),
		slog.String("unit", filter.Unit),
		slog.String("squad", filter.Squad),
	)

	t, err := h.service.Sales(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get sales",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records := t.Records()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
	})
}

// GetRefunds handles GET /api/data/refunds
func (h *DataHandler) GetRefunds(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	filter, ok := h.parseRefundFilter(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching refund records",
		slog.String("request_id", reqID),
		slog.String("kind", filter.Kind),
		slog.String("category", filter.Category),
	)

	t, err := h.service.Refunds(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get refunds",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records := t.Records()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
	})
}

// GetFilters handles GET /api/data/filters, returning the distinct values
// available for dashboard filtering.
func (h *DataHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching available filters",
		slog.String("request_id", reqID),
	)

	units, err := h.service.AvailableUnits(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	squads, err := h.service.AvailableSquads(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	categories, err := h.service.AvailableCategories(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	years, err := h.service.AvailableYears(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"units":      units,
			"squads":     squads,
			"categories": categories,
			"years":      years,
		},
	})
}

// ClearCache handles DELETE /api/data/cache
func (h *DataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "clearing data service cache",
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.service.ClearCache()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// parseSalesFilter builds a SalesFilter from query parameters. On a bad
// parameter it writes the error response and returns ok=false.
func (h *DataHandler) parseSalesFilter(w http.ResponseWriter, r *http.Request) (services.SalesFilter, bool) {
	var f services.SalesFilter
	q := r.URL.Query()

	f.Unit = q.Get("unit")
	f.Squad = q.Get("squad")

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("start_date", "must be a date in YYYY-MM-DD format"))
			return f, false
		}
		f.StartDate = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("end_date", "must be a date in YYYY-MM-DD format"))
			return f, false
		}
		f.EndDate = t
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 2000 || year > 2100 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", "must be a four-digit year"))
			return f, false
		}
		f.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("month", "must be between 1 and 12"))
			return f, false
		}
		f.Month = month
	}

	return f, true
}

// parseRefundFilter builds a RefundFilter from query parameters.
func (h *DataHandler) parseRefundFilter(w http.ResponseWriter, r *http.Request) (services.RefundFilter, bool) {
	var f services.RefundFilter

	sales, ok := h.parseSalesFilter(w, r)
	if !ok {
		return f, false
	}
	f.SalesFilter = sales

	q := r.URL.Query()
	if kind := q.Get("kind"); kind != "" {
		if kind != services.RefundKindCancelled && kind != services.RefundKindRefunded {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind",
				"must be "+services.RefundKindCancelled+" or "+services.RefundKindRefunded))
			return f, false
		}
		f.Kind = kind
	}
	f.Category = q.Get("category")

	return f, true
}
