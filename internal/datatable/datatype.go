package datatable

import "strings"

// DataType is the semantic type of a destination column.
type DataType string

const (
	TypeText     DataType = "text"
	TypeInteger  DataType = "integer"
	TypeFloat    DataType = "float"
	TypeDecimal  DataType = "decimal"
	TypeBoolean  DataType = "boolean"
	TypeDate     DataType = "date"
	TypeDateTime DataType = "datetime"
	TypeTime     DataType = "time"
	TypeJSON     DataType = "json"
	TypeArray    DataType = "array"
	TypeUUID     DataType = "uuid"
)

// ParseDataType parses a case-insensitive type name.
func ParseDataType(s string) (DataType, bool) {
	dt := DataType(strings.ToLower(strings.TrimSpace(s)))
	switch dt {
	case TypeText, TypeInteger, TypeFloat, TypeDecimal, TypeBoolean,
		TypeDate, TypeDateTime, TypeTime, TypeJSON, TypeArray, TypeUUID:
		return dt, true
	}
	return "", false
}

// SQLType returns the SQL column type used by schema DDL generation.
func (dt DataType) SQLType() string {
	switch dt {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "REAL"
	case TypeDecimal:
		return "DECIMAL(15,2)"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		return "TIMESTAMP"
	case TypeTime:
		return "TIME"
	case TypeJSON:
		return "JSONB"
	case TypeArray:
		return "ARRAY"
	case TypeUUID:
		return "UUID"
	default:
		return "TEXT"
	}
}
