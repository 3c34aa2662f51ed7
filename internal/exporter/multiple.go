package exporter

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"salespulse/internal/datatable"
)

// ExportMultiple writes several named tables into basePath, one file per
// table. With compress set, the exported files are bundled into
// basePath+".zip" and the originals removed afterwards; the archive is
// written completely before any original is deleted, so a mid-archive
// failure leaves every exported file in place.
func (e *Exporter) ExportMultiple(datasets map[string]*datatable.Table, basePath, format string, compress bool, opts Options) (map[string]any, error) {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]any, len(datasets))
	files := make([]string, 0, len(datasets))
	for _, name := range names {
		path := filepath.Join(basePath, name+"."+format)
		o := opts
		if format == "sql" && o.TableName == "" {
			o.TableName = name
		}
		result, err := e.Export(datasets[name], path, format, o)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", name, err)
		}
		results[name] = result
		files = append(files, path)
	}

	if !compress {
		return map[string]any{
			"success":    true,
			"compressed": false,
			"files":      files,
			"datasets":   results,
		}, nil
	}

	zipPath := basePath + ".zip"
	if err := writeZip(zipPath, files); err != nil {
		return nil, err
	}
	for _, path := range files {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("failed to remove archived file", "path", path, "error", err)
		}
	}

	return map[string]any{
		"success":    true,
		"compressed": true,
		"zip_file":   zipPath,
		"datasets":   results,
	}, nil
}

func writeZip(zipPath string, files []string) error {
	zf, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer zf.Close()

	zw := zip.NewWriter(zf)
	for _, path := range files {
		if err := addToZip(zw, path); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addToZip(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for archiving: %w", path, err)
	}
	defer f.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", path, err)
	}
	return nil
}
