// Package app wires configuration, storage, the ingestion pipeline and the
// HTTP transport into a runnable server with graceful shutdown.
package app
