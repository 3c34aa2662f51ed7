package importer

import (
	"fmt"
	"log/slog"

	"salespulse/internal/convert"
	"salespulse/internal/datatable"
	"salespulse/internal/mapping"
	"salespulse/internal/pipeline"
	"salespulse/internal/validation"
)

// Importer reads source files and runs them through the standard ingestion
// pipeline. One Importer serves one import at a time; run concurrent imports
// on separate instances.
type Importer struct {
	logger    *slog.Logger
	mapper    *mapping.Mapper
	validator *validation.Validator
	converter *convert.Converter

	// MaxErrors is forwarded to the processor of each import. Zero means
	// unbounded tolerance.
	MaxErrors int

	proc *pipeline.Processor
}

// New returns an Importer using the given schema registry. A nil mapper
// starts with an empty registry, meaning cleaned headers pass through
// unmapped.
func New(logger *slog.Logger, mapper *mapping.Mapper) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if mapper == nil {
		mapper = mapping.NewMapper()
	}
	return &Importer{
		logger:    logger,
		mapper:    mapper,
		validator: validation.New(),
		converter: convert.New(),
	}
}

// Mapper returns the schema registry so callers can register schemas.
func (im *Importer) Mapper() *mapping.Mapper { return im.mapper }

// Processor returns the pipeline processor of the most recent import, for
// error summaries and error report export. Nil before the first import.
func (im *Importer) Processor() *pipeline.Processor { return im.proc }

// ImportExcel reads a spreadsheet and processes it. An empty sheet name
// selects the first sheet; an empty tableName derives the name from the file
// base name.
func (im *Importer) ImportExcel(path, tableName, sheet string) (*pipeline.Result, error) {
	t, err := readExcel(path, sheet)
	if err != nil {
		return nil, err
	}
	if tableName == "" {
		tableName = TableNameFromPath(path)
	}
	im.logger.Info("importing spreadsheet", "path", path, "table", tableName, "rows", t.RowCount())
	return im.ImportTable(t, tableName), nil
}

// ImportCSV reads a delimited text file and processes it. A zero delimiter
// triggers auto-detection on the first line.
func (im *Importer) ImportCSV(path, tableName string, delimiter rune) (*pipeline.Result, error) {
	t, detected, err := readCSV(path, delimiter)
	if err != nil {
		return nil, err
	}
	if tableName == "" {
		tableName = TableNameFromPath(path)
	}
	im.logger.Info("importing csv", "path", path, "table", tableName,
		"delimiter", string(detected), "rows", t.RowCount())
	return im.ImportTable(t, tableName), nil
}

// ImportJSON reads a file holding an array of flat objects and processes it.
func (im *Importer) ImportJSON(path, tableName string) (*pipeline.Result, error) {
	t, err := readJSON(path)
	if err != nil {
		return nil, err
	}
	if tableName == "" {
		tableName = TableNameFromPath(path)
	}
	im.logger.Info("importing json", "path", path, "table", tableName, "rows", t.RowCount())
	return im.ImportTable(t, tableName), nil
}

// ImportTable runs an in-memory table through the standard pipeline. This is
// the common tail of every Import* method and is exported for callers that
// already hold tabular data.
func (im *Importer) ImportTable(t *datatable.Table, tableName string) *pipeline.Result {
	proc := pipeline.New(im.logger)
	proc.MaxErrors = im.MaxErrors
	proc.AddStep("clean", im.cleanStep)
	proc.AddStep("map_columns", im.mapStep(tableName))
	proc.AddStep("validate", im.validateStep(tableName, proc))
	proc.AddStep("convert_types", im.convertStep(tableName))
	im.proc = proc

	result := proc.Process(t)
	result.Metadata["table_name"] = tableName
	return result
}

// cleanStep drops fully empty rows and columns and normalizes header names.
func (im *Importer) cleanStep(t *datatable.Table) (*datatable.Table, error) {
	t.DropEmptyRows()
	t.DropEmptyColumns()
	for _, col := range t.Columns() {
		clean := mapping.CleanName(col)
		if clean == col {
			continue
		}
		if err := t.RenameColumn(col, clean); err != nil {
			im.logger.Warn("header rename skipped", "column", col, "error", err)
		}
	}
	return t, nil
}

// mapStep applies the registered column mappings. When no schema is
// registered for the table the stage is skipped and cleaned headers pass
// through verbatim.
func (im *Importer) mapStep(tableName string) pipeline.StepFunc {
	return func(t *datatable.Table) (*datatable.Table, error) {
		schema, ok := im.mapper.Schema(tableName)
		if !ok {
			return t, nil
		}

		targets := make([]string, 0, len(schema.Mappings()))
		for _, m := range schema.Mappings() {
			targets = append(targets, m.CleanTarget())
		}
		out := datatable.New(targets...)
		for _, row := range t.Rows() {
			mapped, err := im.mapper.MapRow(tableName, row)
			if err != nil {
				return nil, fmt.Errorf("map columns: %w", err)
			}
			out.AppendRow(mapped)
		}
		return out, nil
	}
}

// validateStep validates every row against the declared schema types, or
// against types inferred from the stored values when no schema is registered.
// Sanitized values replace originals only for rows whose every column passed;
// failing rows keep their original values and are reported as errors.
func (im *Importer) validateStep(tableName string, proc *pipeline.Processor) pipeline.StepFunc {
	return func(t *datatable.Table) (*datatable.Table, error) {
		types := im.columnTypes(tableName, t)

		warned := map[string]bool{}
		for i, row := range t.Rows() {
			results := im.validator.ValidateRow(row, types)

			rowValid := true
			for col, res := range results {
				if !res.Valid {
					rowValid = false
					for _, msg := range res.Errors {
						proc.RecordRowError(i, col, pipeline.ErrorTypeValidation, msg, row[col])
					}
				}
				for _, w := range res.Warnings {
					if !warned[col+w] {
						warned[col+w] = true
						proc.AddWarning(fmt.Sprintf("column %s: %s", col, w))
					}
				}
			}

			if rowValid {
				for col, res := range results {
					row[col] = res.Sanitized
				}
			} else {
				im.logger.Warn("row failed validation, keeping original values",
					"table", tableName, "row", i)
			}
		}
		return t, nil
	}
}

// convertStep bulk-converts columns with a declared schema type. Without a
// registered schema the stage is a no-op.
func (im *Importer) convertStep(tableName string) pipeline.StepFunc {
	return func(t *datatable.Table) (*datatable.Table, error) {
		schema, ok := im.mapper.Schema(tableName)
		if !ok {
			return t, nil
		}
		if err := im.converter.ConvertTable(t, schema.ColumnTypes()); err != nil {
			return nil, fmt.Errorf("convert types: %w", err)
		}
		return t, nil
	}
}

// columnTypes resolves the {column → type name} map used for validation:
// declared schema types when registered, otherwise types inferred from the
// native storage kind of each column's first typed value.
func (im *Importer) columnTypes(tableName string, t *datatable.Table) map[string]string {
	types := map[string]string{}
	if schema, ok := im.mapper.Schema(tableName); ok {
		for col, dt := range schema.ColumnTypes() {
			types[col] = string(dt)
		}
		return types
	}
	for _, col := range t.Columns() {
		types[col] = string(inferType(t, col))
	}
	return types
}

func inferType(t *datatable.Table, col string) datatable.DataType {
	for _, row := range t.Rows() {
		v, ok := row[col]
		if !ok || v.IsNull() {
			continue
		}
		switch v.Kind() {
		case datatable.KindInt:
			return datatable.TypeInteger
		case datatable.KindFloat, datatable.KindDecimal:
			return datatable.TypeFloat
		case datatable.KindBool:
			return datatable.TypeBoolean
		default:
			return datatable.TypeText
		}
	}
	return datatable.TypeText
}
