// Package datatable holds the tabular representation shared by the whole
// ingestion pipeline: an ordered, column-aware Table plus the Value sum type
// that every cell carries.
//
// Value is a closed tagged union (null, bool, int, float, decimal, string,
// time, json, list). Converters and validators switch on Value.Kind() instead
// of reflecting over arbitrary interfaces, so each conversion arm is explicit
// and testable in isolation.
//
// Tables preserve column declaration order. Rows are maps keyed by column
// name; a cell absent from a row reads as the null Value.
package datatable
