// Package mapping implements declarative column mapping between spreadsheet
// headers and canonical storage columns.
//
// A TableSchema aggregates column definitions (what the destination table
// looks like, including generated DDL), column mappings (how raw source
// headers translate into destination columns, with an ordered transformation
// chain), and index specs. Schemas are built once at setup time, registered
// into a Mapper, and read-only during use.
//
// Mapping a row drops source columns without a registered mapping; unmapped
// data never reaches storage. Referencing a table with no registered schema
// is a configuration error (ErrSchemaNotRegistered), not a per-row error.
package mapping
