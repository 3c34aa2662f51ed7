package http

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	custommw "salespulse/internal/middleware"
)

// exportFormatExtensions maps export formats to output file extensions.
var exportFormatExtensions = map[string]string{
	"csv":     ".csv",
	"excel":   ".xlsx",
	"json":    ".json",
	"sql":     ".sql",
	"parquet": ".parquet",
}

// ExportRequest is the POST /api/data/export payload.
type ExportRequest struct {
	TableName   string `json:"table_name" validate:"required,tablename"`
	Format      string `json:"format" validate:"required,oneof=csv excel json sql parquet"`
	Filename    string `json:"filename" validate:"omitempty,filename"`
	IfExists    string `json:"if_exists" validate:"omitempty,oneof=fail replace append"`
	BatchSize   int    `json:"batch_size" validate:"omitempty,gte=1,lte=10000"`
	Compression string `json:"compression" validate:"omitempty,oneof=snappy gzip none"`
	Delimiter   string `json:"delimiter" validate:"omitempty,max=1"`
	Sheet       string `json:"sheet" validate:"omitempty,max=31"`
}

// ExportHandler writes stored tables out as files.
type ExportHandler struct {
	reader       TableReader
	exporter     *exporter.Exporter
	validation   *custommw.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	exportsDir   string
}

// NewExportHandler creates a new export handler
func NewExportHandler(reader TableReader, exp *exporter.Exporter, exportsDir string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		reader:       reader,
		exporter:     exp,
		validation:   custommw.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
		exportsDir:   exportsDir,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/export", h.Export)

	return r
}

// Export handles POST /api/data/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req ExportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "exporting table",
		slog.String("request_id", reqID),
		slog.String("table_name", req.TableName),
		slog.String("format", req.Format),
	)

	t, err := h.reader.Select(r.Context(), req.TableName, nil, "", false)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read table for export",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("table_name", req.TableName),
		)
		if strings.Contains(err.Error(), "no such table") {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"TABLE_NOT_FOUND",
				"Table not found",
				req.TableName,
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = req.TableName + exportFormatExtensions[req.Format]
	}
	path := filepath.Join(h.exportsDir, filename)

	opts := exporter.Options{
		TableName:   req.TableName,
		IfExists:    req.IfExists,
		BatchSize:   req.BatchSize,
		Compression: req.Compression,
		SheetName:   req.Sheet,
	}
	if req.Delimiter != "" {
		opts.Delimiter = []rune(req.Delimiter)[0]
	}

	meta, err := h.exporter.Export(t, path, req.Format, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("table_name", req.TableName),
		)
		h.errorHandler.HandleError(w, r, apierrors.ExportError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   meta,
	})
}
