package exporter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"salespulse/internal/datatable"
)

const parquetParallelism = 4

// exportParquet writes the table through the columnar JSON writer. Every
// field is optional; the element type follows the column's native storage
// kind.
func (e *Exporter) exportParquet(t *datatable.Table, path string, opts Options) (map[string]any, error) {
	codec, codecName, err := parquetCodec(opts.Compression)
	if err != nil {
		return nil, err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file writer: %w", err)
	}

	pw, err := writer.NewJSONWriter(parquetSchema(t), fw, parquetParallelism)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec

	for _, row := range t.Rows() {
		record := make(map[string]any, t.ColumnCount())
		for _, col := range t.Columns() {
			v := row[col]
			if v.IsNull() {
				continue
			}
			switch v.Kind() {
			case datatable.KindInt:
				record[col] = v.IntValue()
			case datatable.KindFloat:
				record[col] = v.FloatValue()
			case datatable.KindBool:
				record[col] = v.BoolValue()
			default:
				record[col] = v.Text()
			}
		}
		data, err := json.Marshal(record)
		if err != nil {
			pw.WriteStop()
			fw.Close()
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
		if err := pw.Write(string(data)); err != nil {
			pw.WriteStop()
			fw.Close()
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return map[string]any{
		"success":     true,
		"compression": codecName,
	}, nil
}

func parquetCodec(name string) (parquet.CompressionCodec, string, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return parquet.CompressionCodec_SNAPPY, "snappy", nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, "gzip", nil
	case "none", "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED, "none", nil
	default:
		return 0, "", fmt.Errorf("unsupported parquet compression %q", name)
	}
}

// parquetSchema builds the JSON schema string for the writer from the
// table's columns.
func parquetSchema(t *datatable.Table) string {
	fields := make([]map[string]string, 0, t.ColumnCount())
	for _, col := range t.Columns() {
		tag := fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", col, parquetType(t, col))
		fields = append(fields, map[string]string{"Tag": tag})
	}
	schema := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	data, _ := json.Marshal(schema)
	return string(data)
}

func parquetType(t *datatable.Table, col string) string {
	for _, row := range t.Rows() {
		v := row[col]
		if v.IsNull() {
			continue
		}
		switch v.Kind() {
		case datatable.KindInt:
			return "type=INT64"
		case datatable.KindFloat:
			return "type=DOUBLE"
		case datatable.KindBool:
			return "type=BOOLEAN"
		}
		break
	}
	return "type=BYTE_ARRAY, convertedtype=UTF8"
}
