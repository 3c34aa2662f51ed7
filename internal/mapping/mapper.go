package mapping

import (
	"errors"
	"fmt"

	"salespulse/internal/datatable"
)

// ErrSchemaNotRegistered reports a mapping request for a table that has no
// registered schema. It is a configuration error, never a per-row one.
var ErrSchemaNotRegistered = errors.New("schema not registered for table")

// Mapper is the schema registry consulted during ingestion. It is populated
// at setup time and read-only afterwards; one Mapper must not be shared
// across concurrent imports.
type Mapper struct {
	schemas map[string]*TableSchema
	global  []Transform
}

// NewMapper creates an empty schema registry.
func NewMapper() *Mapper {
	return &Mapper{schemas: make(map[string]*TableSchema)}
}

// RegisterSchema registers a schema under its table name, replacing any
// earlier registration.
func (m *Mapper) RegisterSchema(schema *TableSchema) *Mapper {
	m.schemas[schema.Table] = schema
	return m
}

// Schema returns the schema registered for a table name.
func (m *Mapper) Schema(table string) (*TableSchema, bool) {
	s, ok := m.schemas[table]
	return s, ok
}

// HasSchema reports whether a schema is registered for the table.
func (m *Mapper) HasSchema(table string) bool {
	_, ok := m.schemas[table]
	return ok
}

// Schemas returns all registered schemas in no particular order.
func (m *Mapper) Schemas() []*TableSchema {
	out := make([]*TableSchema, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, s)
	}
	return out
}

// AddGlobalTransform appends a transformation applied to every mapped value
// across all schemas, before the mapping's own chain.
func (m *Mapper) AddGlobalTransform(t Transform) *Mapper {
	m.global = append(m.global, t)
	return m
}

// MapRow maps one source row into destination shape. Source columns without
// a registered mapping are dropped silently; mapped values go through
// skip-if-empty, default substitution and the transformation chain, and land
// under the mapping's normalized target name.
func (m *Mapper) MapRow(table string, source datatable.Row) (datatable.Row, error) {
	schema, ok := m.schemas[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotRegistered, table)
	}

	mapped := make(datatable.Row)
	for sourceCol, value := range source {
		mapping, ok := schema.Mapping(sourceCol)
		if !ok {
			continue
		}
		if mapping.SkipIfEmpty && value.IsEmpty() {
			continue
		}
		if value.IsNull() || (value.Kind() == datatable.KindString && value.StringValue() == "") {
			value = mapping.Default
		}
		for _, t := range m.global {
			value = t.Apply(value)
		}
		for _, t := range mapping.Transforms {
			value = t.Apply(value)
		}
		mapped[mapping.CleanTarget()] = value
	}
	return mapped, nil
}

// MappingReport is the result of checking a set of source columns against a
// schema's mappings and required columns.
type MappingReport struct {
	Valid              bool     `json:"valid"`
	UnmappedSources    []string `json:"unmapped_sources"`
	MissingRequired    []string `json:"missing_required"`
	MappedCount        int      `json:"mapped_count"`
	TotalSourceColumns int      `json:"total_source_columns"`
}

// ValidateMapping reports which source columns have no mapping and which
// required destination columns no mapping contributes to. Extra unmapped
// source columns do not invalidate the mapping; missing required columns do.
func (m *Mapper) ValidateMapping(table string, sourceColumns []string) (MappingReport, error) {
	schema, ok := m.schemas[table]
	if !ok {
		return MappingReport{}, fmt.Errorf("%w: %s", ErrSchemaNotRegistered, table)
	}

	report := MappingReport{TotalSourceColumns: len(sourceColumns)}

	for _, col := range sourceColumns {
		if _, mapped := schema.Mapping(col); !mapped {
			report.UnmappedSources = append(report.UnmappedSources, col)
		}
	}
	report.MappedCount = len(schema.mappingOrder)

	mappedTargets := make(map[string]bool)
	for _, mp := range schema.Mappings() {
		mappedTargets[mp.Target] = true
		mappedTargets[mp.CleanTarget()] = true
	}
	for _, required := range schema.RequiredColumns() {
		if !mappedTargets[required] {
			report.MissingRequired = append(report.MissingRequired, required)
		}
	}

	report.Valid = len(report.MissingRequired) == 0
	return report, nil
}
