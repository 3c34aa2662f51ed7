package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/importer"
	"salespulse/internal/pipeline"
)

// supported upload extensions mapped to import dispatch
var uploadExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xlsm": true,
	".json": true,
}

// ImportHandler handles file uploads through the ingestion pipeline and
// persists the surviving rows.
type ImportHandler struct {
	importer      *importer.Importer
	store         RecordWriter
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
	uploadsDir    string
	maxUploadMB   int64
	defaultUpsert bool
}

// NewImportHandler creates a new import handler. store may be nil, in which
// case uploads are processed but never persisted.
func NewImportHandler(imp *importer.Importer, store RecordWriter, uploadsDir string, maxUploadMB int, defaultUpsert bool, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ImportHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &ImportHandler{
		importer:      imp,
		store:         store,
		logger:        logger.With(slog.String("component", "import_handler")),
		errorHandler:  errorHandler,
		uploadsDir:    uploadsDir,
		maxUploadMB:   int64(maxUploadMB),
		defaultUpsert: defaultUpsert,
	}
}

// Routes returns the import routes
func (h *ImportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/upload", h.Upload)

	return r
}

// Upload handles POST /api/data/upload. The multipart form carries the file
// plus optional fields: table_name, sheet, delimiter, mode (insert, upsert
// or none) and conflict_keys (comma-separated, for upsert).
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	maxBytes := h.maxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.logger.WarnContext(r.Context(), "failed to parse upload",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		if strings.Contains(err.Error(), "request body too large") {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"FILE_TOO_LARGE",
				"Uploaded file exceeds the maximum allowed size",
				map[string]interface{}{"max_upload_mb": h.maxUploadMB},
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file part is required"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExtensions[ext] {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"UNSUPPORTED_FORMAT",
			fmt.Sprintf("Unsupported file format %q", ext),
			map[string]interface{}{"supported": []string{".csv", ".xlsx", ".xlsm", ".json"}},
		))
		return
	}

	savedPath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save upload",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("upload", err))
		return
	}

	tableName := r.FormValue("table_name")
	if tableName == "" {
		tableName = importer.TableNameFromPath(header.Filename)
	}

	h.logger.InfoContext(r.Context(), "processing upload",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.String("table_name", tableName),
		slog.Int64("size_bytes", header.Size),
	)

	result, err := h.runImport(savedPath, tableName, ext, r.FormValue("sheet"), r.FormValue("delimiter"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "import failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, apierrors.ImportError(err))
		return
	}

	inserted, persistErr := h.persist(r, tableName, result)
	if persistErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to persist imported rows",
			slog.String("error", persistErr.Error()),
			slog.String("request_id", reqID),
			slog.String("table_name", tableName),
		)
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusInternalServerError,
			"STORAGE_FAILED",
			"Imported rows could not be stored",
			persistErr.Error(),
		))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status":     "success",
		"table_name": tableName,
		"result":     resultResponse(result),
		"stored":     inserted,
	})
}

// saveUpload copies the uploaded file into the uploads directory under a
// timestamped name so repeated uploads never clobber each other.
func (h *ImportHandler) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename))
	path := filepath.Join(h.uploadsDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}

func (h *ImportHandler) runImport(path, tableName, ext, sheet, delimiter string) (*pipeline.Result, error) {
	switch ext {
	case ".xlsx", ".xlsm":
		return h.importer.ImportExcel(path, tableName, sheet)
	case ".json":
		return h.importer.ImportJSON(path, tableName)
	default:
		var delim rune
		if delimiter != "" {
			delim = []rune(delimiter)[0]
		}
		return h.importer.ImportCSV(path, tableName, delim)
	}
}

// persist writes the surviving rows to the record store according to the
// requested mode. Returns the number of rows written.
func (h *ImportHandler) persist(r *http.Request, tableName string, result *pipeline.Result) (int, error) {
	if h.store == nil || result.Output == nil || result.Output.RowCount() == 0 {
		return 0, nil
	}

	mode := r.FormValue("mode")
	if mode == "" {
		if h.defaultUpsert {
			mode = "upsert"
		} else {
			mode = "insert"
		}
	}
	if mode == "none" {
		return 0, nil
	}

	records := result.Output.Records()
	if mode == "upsert" {
		keys := h.conflictKeys(r, tableName)
		if len(keys) == 0 {
			return 0, fmt.Errorf("upsert requires conflict keys for table %s", tableName)
		}
		return h.store.Upsert(r.Context(), tableName, records, keys)
	}
	return h.store.Insert(r.Context(), tableName, records)
}

// conflictKeys resolves upsert keys: an explicit conflict_keys form field
// wins, otherwise the registered schema's primary keys are used.
func (h *ImportHandler) conflictKeys(r *http.Request, tableName string) []string {
	if raw := r.FormValue("conflict_keys"); raw != "" {
		parts := strings.Split(raw, ",")
		keys := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				keys = append(keys, p)
			}
		}
		return keys
	}
	if schema, ok := h.importer.Mapper().Schema(tableName); ok {
		return schema.PrimaryKeys()
	}
	return nil
}

// resultResponse shapes a pipeline result for the JSON response.
func resultResponse(result *pipeline.Result) map[string]interface{} {
	errs := result.Errors
	if len(errs) > 20 {
		errs = errs[:20]
	}
	return map[string]interface{}{
		"status":         string(result.Status),
		"total_rows":     result.TotalRows,
		"processed_rows": result.ProcessedRows,
		"failed_rows":    result.FailedRows,
		"error_count":    len(result.Errors),
		"errors":         errs,
		"warnings":       result.Warnings,
		"duration_ms":    result.Duration.Milliseconds(),
		"metadata":       result.Metadata,
	}
}
