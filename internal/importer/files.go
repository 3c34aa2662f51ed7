package importer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/datatable"
)

// candidate delimiters in tie-break order: the earliest wins on equal counts.
var csvDelimiters = []rune{',', ';', '\t', '|'}

// TableNameFromPath derives a storage table name from a file path: base name
// without extension, lowercased, spaces replaced by underscores.
func TableNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(strings.ToLower(base), " ", "_")
}

// DetectDelimiter picks the most frequent candidate delimiter in the given
// header line. Ties favor the earlier candidate, so comma wins over
// semicolon.
func DetectDelimiter(line string) rune {
	best := csvDelimiters[0]
	bestCount := strings.Count(line, string(best))
	for _, d := range csvDelimiters[1:] {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readCSV(path string, delimiter rune) (*datatable.Table, rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if delimiter == 0 {
		firstLine, err := br.Peek(4096)
		if err != nil && len(firstLine) == 0 {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		line := string(firstLine)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		delimiter = DetectDelimiter(line)
	}

	r := csv.NewReader(br)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return datatable.New(), delimiter, nil
	}

	headers := records[0]
	t := datatable.New(headers...)
	for _, rec := range records[1:] {
		row := datatable.Row{}
		for i, h := range headers {
			if i < len(rec) {
				row[h] = datatable.String(rec[i])
			} else {
				row[h] = datatable.Null()
			}
		}
		t.AppendRow(row)
	}
	return t, delimiter, nil
}

func readExcel(path, sheet string) (*datatable.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return datatable.New(), nil
	}

	headers := rows[0]
	t := datatable.New(headers...)
	for _, rec := range rows[1:] {
		row := datatable.Row{}
		for i, h := range headers {
			if i < len(rec) {
				row[h] = datatable.String(rec[i])
			} else {
				row[h] = datatable.Null()
			}
		}
		t.AppendRow(row)
	}
	return t, nil
}

func readJSON(path string) (*datatable.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	t := datatable.New()
	for _, rec := range records {
		row := datatable.Row{}
		for k, v := range rec {
			row[k] = datatable.FromNative(v)
		}
		t.AppendRow(row)
	}
	return t, nil
}

// Preview reads up to limit data rows from a file without running the
// pipeline. The header row does not count against the limit.
func (im *Importer) Preview(path string, limit int) (*datatable.Table, error) {
	t, err := im.readAny(path)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || t.RowCount() <= limit {
		return t, nil
	}
	out := datatable.New(t.Columns()...)
	for i := 0; i < limit; i++ {
		out.AppendRow(t.Row(i).Clone())
	}
	return out, nil
}

// FileInfo returns metadata about a source file: name, size, extension and
// modification time, plus the sheet list for spreadsheet formats.
func (im *Importer) FileInfo(path string) (map[string]any, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	info := map[string]any{
		"name":       filepath.Base(path),
		"size_bytes": st.Size(),
		"extension":  ext,
		"modified":   st.ModTime().Format(time.RFC3339),
	}

	if ext == ".xlsx" || ext == ".xlsm" {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		defer f.Close()
		info["sheets"] = f.GetSheetList()
	}
	return info, nil
}

func (im *Importer) readAny(path string) (*datatable.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readExcel(path, "")
	case ".json":
		return readJSON(path)
	case ".csv", ".txt", ".tsv":
		t, _, err := readCSV(path, 0)
		return t, err
	default:
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}
