// Package handlers implements HTTP request handlers for the sales data
// service. It provides a thin layer between HTTP transport and business
// logic: handlers parse requests, delegate to the importer, exporter and
// data services, and translate errors into RFC 7807 responses.
package http
