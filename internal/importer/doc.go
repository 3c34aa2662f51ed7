// Package importer orchestrates file ingestion: it reads a source file
// (xlsx, CSV or JSON) into a table, assembles the standard processing
// pipeline and returns the processing result.
//
// The step order is fixed: structural cleanup, column mapping (only when a
// schema is registered for the target table), row validation, and declared
// type conversion. Rows failing validation keep their original values and are
// reported as errors; ingestion never drops a row's data at the validation
// stage.
package importer
