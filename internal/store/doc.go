// Package store is the storage collaborator behind ingestion and the
// dashboard queries. RecordStore is the boundary the importer writes through:
// one batch Insert or Upsert per table per import, never incremental writes.
// SQLStore implements it over database/sql with the pure-Go SQLite driver and
// additionally serves the filtered reads the service layer aggregates over.
package store
