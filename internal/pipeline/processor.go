package pipeline

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"salespulse/internal/datatable"
)

// StepFunc transforms a table and returns the transformed table or an error.
// Steps must not retain the input table after returning.
type StepFunc func(*datatable.Table) (*datatable.Table, error)

type step struct {
	name string
	fn   StepFunc
}

// Processor runs an ordered list of named steps over a table. A Processor is
// single-run state: errors and warnings accumulate until the next Process
// call resets them. Not safe for concurrent use.
type Processor struct {
	logger *slog.Logger
	steps  []step

	// MaxErrors stops the run once this many errors have been recorded.
	// Zero means unbounded.
	MaxErrors int

	errors   []ProcessingError
	warnings []string
}

// New returns a Processor logging through logger. A nil logger falls back to
// slog.Default.
func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// AddStep appends a named step to the run order.
func (p *Processor) AddStep(name string, fn StepFunc) {
	p.steps = append(p.steps, step{name: name, fn: fn})
}

// RecordError appends an error to the current run. Steps use this to report
// row-level failures without aborting the whole step.
func (p *Processor) RecordError(e ProcessingError) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	p.errors = append(p.errors, e)
}

// RecordRowError is shorthand for recording a row-scoped error.
func (p *Processor) RecordRowError(rowIndex int, column, errorType, message string, raw datatable.Value) {
	idx := rowIndex
	p.RecordError(ProcessingError{
		RowIndex:  &idx,
		Column:    column,
		ErrorType: errorType,
		Message:   message,
		RawValue:  raw,
	})
}

// AddWarning appends a non-fatal observation to the current run.
func (p *Processor) AddWarning(msg string) {
	p.warnings = append(p.warnings, msg)
}

// Errors returns the errors recorded so far in the current run.
func (p *Processor) Errors() []ProcessingError { return p.errors }

// Warnings returns the warnings recorded so far in the current run.
func (p *Processor) Warnings() []string { return p.warnings }

// Process runs every registered step over t in order and returns the
// aggregated result. It never returns an error: step failures are recorded
// in the result, and anything unrecoverable downgrades the result to failed
// with a critical_error metadata entry.
func (p *Processor) Process(t *datatable.Table) (result *Result) {
	start := time.Now()
	p.errors = nil
	p.warnings = nil

	result = &Result{
		Status:   StatusProcessing,
		Metadata: map[string]any{"start_time": start.Format(time.RFC3339)},
	}
	if t != nil {
		result.TotalRows = t.RowCount()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("processing aborted", "panic", r)
			result.Status = StatusFailed
			result.Metadata["critical_error"] = fmt.Sprint(r)
			result.Errors = p.errors
			result.Warnings = p.warnings
		}
		end := time.Now()
		result.Duration = end.Sub(start)
		result.Metadata["end_time"] = end.Format(time.RFC3339)
	}()

	if t == nil {
		t = datatable.New()
	}
	current := t.Clone()

	for _, s := range p.steps {
		p.logger.Debug("running step", "step", s.name, "rows", current.RowCount())

		out, err := p.runStep(s, current)
		if err != nil {
			p.RecordError(ProcessingError{
				ErrorType:  ErrorTypeStep,
				Message:    fmt.Sprintf("step %s: %v", s.name, err),
				StackTrace: stackFor(err),
			})
			p.logger.Error("step failed", "step", s.name, "error", err)
			if p.shouldStop() {
				result.Status = StatusFailed
				result.Metadata["critical_error"] = fmt.Sprintf("step %s: %v", s.name, err)
				break
			}
			continue
		}
		current = out
		result.ProcessedRows = current.RowCount()
	}

	result.Output = current
	result.FailedRows = result.TotalRows - result.ProcessedRows
	if result.FailedRows < 0 {
		result.FailedRows = 0
	}
	result.Errors = p.errors
	result.Warnings = p.warnings

	if result.Status != StatusFailed {
		switch {
		case len(result.Errors) == 0:
			result.Status = StatusCompleted
		case result.ProcessedRows > 0:
			result.Status = StatusPartial
		default:
			result.Status = StatusFailed
		}
	}

	p.logger.Info("processing finished",
		"status", result.Status,
		"total_rows", result.TotalRows,
		"processed_rows", result.ProcessedRows,
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result
}

// runStep executes one step, converting a panic inside the step into an
// ordinary step error so a misbehaving step cannot take down the run.
func (p *Processor) runStep(s step, t *datatable.Table) (out *datatable.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out, err = s.fn(t)
	if err == nil && out == nil {
		out = datatable.New()
	}
	return out, err
}

// ProcessRow runs the registered steps over a single record by wrapping it in
// a one-row table. A failing step records a row-scoped error and the remaining
// steps still run over the record as transformed so far; the record is dropped
// only when the error budget is exhausted or a step emits an empty table.
// rowIndex is used only for error reporting.
func (p *Processor) ProcessRow(row datatable.Row, rowIndex int) (datatable.Row, bool) {
	t := datatable.New()
	t.AppendRow(row)

	for _, s := range p.steps {
		out, err := p.runStep(s, t)
		if err != nil {
			idx := rowIndex
			p.RecordError(ProcessingError{
				RowIndex:  &idx,
				ErrorType: ErrorTypeRow,
				Message:   fmt.Sprintf("step %s: %v", s.name, err),
			})
			if p.shouldStop() {
				return nil, false
			}
			continue
		}
		if out.RowCount() == 0 {
			return nil, false
		}
		t = out
	}
	return t.Row(0), true
}

// ValidateSchema checks t against the expected column types. A missing column
// is a hard error; a type mismatch on present data only produces a warning,
// since conversion steps may still coerce the column later. It reports
// whether no hard errors were found.
func (p *Processor) ValidateSchema(t *datatable.Table, expected map[string]datatable.DataType) bool {
	ok := true
	for col, want := range expected {
		if !t.HasColumn(col) {
			p.RecordError(ProcessingError{
				Column:    col,
				ErrorType: ErrorTypeSchema,
				Message:   fmt.Sprintf("required column %q is missing", col),
			})
			ok = false
			continue
		}
		if got, found := observedType(t, col); found && !typeCompatible(got, want) {
			p.AddWarning(fmt.Sprintf("column %s: expected %s, found %s", col, want, got))
		}
	}
	return ok
}

func (p *Processor) shouldStop() bool {
	return p.MaxErrors > 0 && len(p.errors) >= p.MaxErrors
}

// observedType inspects the first non-null cell of a column and maps its kind
// to the closest declared type.
func observedType(t *datatable.Table, col string) (datatable.DataType, bool) {
	for _, row := range t.Rows() {
		v, ok := row[col]
		if !ok || v.IsNull() {
			continue
		}
		switch v.Kind() {
		case datatable.KindBool:
			return datatable.TypeBoolean, true
		case datatable.KindInt:
			return datatable.TypeInteger, true
		case datatable.KindFloat:
			return datatable.TypeFloat, true
		case datatable.KindDecimal:
			return datatable.TypeDecimal, true
		case datatable.KindTime:
			return datatable.TypeDateTime, true
		case datatable.KindJSON:
			return datatable.TypeJSON, true
		case datatable.KindList:
			return datatable.TypeArray, true
		default:
			return datatable.TypeText, true
		}
	}
	return "", false
}

func typeCompatible(got, want datatable.DataType) bool {
	if got == want {
		return true
	}
	switch want {
	case datatable.TypeText:
		// Everything renders as text.
		return true
	case datatable.TypeFloat, datatable.TypeDecimal:
		return got == datatable.TypeInteger || got == datatable.TypeFloat || got == datatable.TypeDecimal
	case datatable.TypeDate, datatable.TypeTime:
		return got == datatable.TypeDateTime
	case datatable.TypeDateTime:
		return got == datatable.TypeDate
	}
	return got == datatable.TypeText
}

func stackFor(err error) string {
	if err == nil {
		return ""
	}
	return string(debug.Stack())
}
