package pipeline

import (
	"time"

	"salespulse/internal/datatable"
)

// Status is the terminal (or in-flight) state of a processing run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPartial    Status = "partial"
)

// ProcessingError captures a single failure recorded during a run. RowIndex
// is nil for step-level and schema-level errors that are not tied to one row.
type ProcessingError struct {
	RowIndex   *int            `json:"row_index"`
	Column     string          `json:"column,omitempty"`
	ErrorType  string          `json:"error_type"`
	Message    string          `json:"error_message"`
	RawValue   datatable.Value `json:"-"`
	Timestamp  time.Time       `json:"timestamp"`
	StackTrace string          `json:"-"`
}

// Error types attached to ProcessingError records.
const (
	ErrorTypeStep       = "ProcessingStepError"
	ErrorTypeRow        = "RowProcessingError"
	ErrorTypeSchema     = "SchemaValidationError"
	ErrorTypeValidation = "ValidationError"
	ErrorTypeConversion = "ConversionError"
	ErrorTypeCritical   = "CriticalError"
)

// Result is the outcome of one Process call.
type Result struct {
	Status        Status
	TotalRows     int
	ProcessedRows int
	FailedRows    int
	Errors        []ProcessingError
	Warnings      []string
	Duration      time.Duration
	Output        *datatable.Table
	Metadata      map[string]any
}

// Succeeded reports whether the run finished without losing rows.
func (r *Result) Succeeded() bool {
	return r.Status == StatusCompleted
}

// HasErrors reports whether any error was recorded during the run.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}
