package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"salespulse/internal/exporter"
	"salespulse/internal/importer"
	"salespulse/internal/mapping"
	"salespulse/internal/pipeline"
	"salespulse/internal/store"
	"salespulse/internal/validation"
)

func main() {
	file := flag.String("file", "", "input file (.csv, .xlsx, .xlsm or .json)")
	table := flag.String("table", "", "destination table name (defaults to the file name)")
	schemaPath := flag.String("schema", "", "schema YAML file or directory of schema files")
	delimiter := flag.String("delimiter", "", "CSV delimiter (auto-detected when empty)")
	sheet := flag.String("sheet", "", "Excel sheet name (first sheet when empty)")
	dbPath := flag.String("db", "", "SQLite database to store into (skip storage when empty)")
	mode := flag.String("mode", "insert", "storage mode: insert, upsert or none")
	out := flag.String("out", "", "write the processed table to this file instead of storing it")
	format := flag.String("format", "", "output format for -out (derived from the extension when empty)")
	preview := flag.Int("preview", 0, "print the first N rows and exit without importing")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := setupLogger(*verbose)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: importer -file <path> [-table name] [-schema path] [-db path]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	fileValidator := validation.NewFileValidator(logger, 0)
	if err := fileValidator.ValidateInputFile(*file); err != nil {
		logger.Error("Invalid input file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mapper := mapping.NewMapper()
	if *schemaPath != "" {
		if err := loadSchemas(mapper, *schemaPath); err != nil {
			logger.Error("Failed to load schemas", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	imp := importer.New(logger, mapper)

	if *preview > 0 {
		if err := printPreview(imp, *file, *preview); err != nil {
			logger.Error("Preview failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	tableName := *table
	if tableName == "" {
		tableName = importer.TableNameFromPath(*file)
	}

	result, err := runImport(imp, *file, tableName, *sheet, *delimiter)
	if err != nil {
		logger.Error("Import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	printSummary(result, tableName)

	if *out != "" {
		exp := exporter.New(logger)
		meta, err := exp.Export(result.Output, *out, *format, exporter.Options{TableName: tableName})
		if err != nil {
			logger.Error("Export failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("Written:    %v (%v bytes)\n", meta["filepath"], meta["file_size"])
	}

	if *dbPath != "" && *mode != "none" && result.Output != nil && result.Output.RowCount() > 0 {
		stored, err := storeResult(logger, *dbPath, tableName, *mode, mapper, result)
		if err != nil {
			logger.Error("Storage failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("Stored:     %d rows into %s\n", stored, *dbPath)
	}

	if result.Status == pipeline.StatusFailed {
		os.Exit(1)
	}
}

func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func loadSchemas(mapper *mapping.Mapper, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat schema path: %w", err)
	}
	if info.IsDir() {
		return mapper.LoadSchemaDir(path)
	}
	return mapper.LoadSchemaFile(path)
}

func runImport(imp *importer.Importer, file, tableName, sheet, delimiter string) (*pipeline.Result, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".xlsx", ".xlsm":
		return imp.ImportExcel(file, tableName, sheet)
	case ".json":
		return imp.ImportJSON(file, tableName)
	default:
		var delim rune
		if delimiter != "" {
			delim = []rune(delimiter)[0]
		}
		return imp.ImportCSV(file, tableName, delim)
	}
}

func printPreview(imp *importer.Importer, file string, limit int) error {
	t, err := imp.Preview(file, limit)
	if err != nil {
		return err
	}
	cols := t.Columns()
	fmt.Println(strings.Join(cols, "\t"))
	for _, rec := range t.Records() {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = fmt.Sprintf("%v", rec[c])
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
	return nil
}

func printSummary(result *pipeline.Result, tableName string) {
	fmt.Printf("Table:      %s\n", tableName)
	fmt.Printf("Status:     %s\n", result.Status)
	fmt.Printf("Rows:       %d total, %d processed, %d failed\n",
		result.TotalRows, result.ProcessedRows, result.FailedRows)
	fmt.Printf("Duration:   %s\n", result.Duration)
	for _, w := range result.Warnings {
		fmt.Printf("Warning:    %s\n", w)
	}
	for i, e := range result.Errors {
		if i == 10 {
			fmt.Printf("... and %d more errors\n", len(result.Errors)-10)
			break
		}
		row := "-"
		if e.RowIndex != nil {
			row = fmt.Sprintf("%d", *e.RowIndex)
		}
		fmt.Printf("Error:      row %s column %q: %s\n", row, e.Column, e.Message)
	}
}

func storeResult(logger *slog.Logger, dbPath, tableName, mode string, mapper *mapping.Mapper, result *pipeline.Result) (int, error) {
	ctx := context.Background()

	sqlStore, err := store.Open(dbPath, logger)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlStore.Close()

	schema, hasSchema := mapper.Schema(tableName)
	if hasSchema {
		if err := sqlStore.EnsureSchema(ctx, schema); err != nil {
			return 0, fmt.Errorf("failed to ensure table: %w", err)
		}
	}

	records := result.Output.Records()
	if mode == "upsert" {
		if !hasSchema {
			return 0, fmt.Errorf("upsert requires a schema with primary keys for table %s", tableName)
		}
		keys := schema.PrimaryKeys()
		if len(keys) == 0 {
			return 0, fmt.Errorf("schema for %s declares no primary keys", tableName)
		}
		return sqlStore.Upsert(ctx, tableName, records, keys)
	}
	return sqlStore.Insert(ctx, tableName, records)
}
