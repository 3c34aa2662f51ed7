// Package exporter serializes a processed table to the supported output
// formats: CSV, Excel, JSON, SQL insert scripts and Parquet. Export is
// orthogonal to ingestion and shares only the tabular representation.
//
// Every export returns a metadata map with the absolute path, format,
// timestamp, row and column counts and resulting file size, merged with
// format-specific details. ExportMultiple fans out several named tables into
// one directory with optional zip bundling; the zip archive is written in
// full before any uncompressed original is deleted.
package exporter
