package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ingestExtensions are the file types the import pipeline can read.
var ingestExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xlsm": true,
	".json": true,
}

// FileValidator checks ingestion inputs and export destinations before any
// heavy parsing starts.
type FileValidator struct {
	logger  *slog.Logger
	maxSize int64 // bytes; 0 disables the size check
}

// NewFileValidator creates a file validator. A nil logger falls back to
// slog.Default.
func NewFileValidator(logger *slog.Logger, maxSizeMB int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:  logger.With(slog.String("component", "file_validator")),
		maxSize: maxSizeMB * 1024 * 1024,
	}
}

// ValidateInputFile checks that an ingestion input exists, is readable, has
// a supported extension and fits the size limit.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat input file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !ingestExtensions[ext] {
		return fmt.Errorf("unsupported input file type %q (want .csv, .xlsx, .xlsm or .json)", ext)
	}

	// Excel leaves lock files behind while a workbook is open.
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("%s is a temporary Excel lock file", path)
	}

	if v.maxSize > 0 && info.Size() > v.maxSize {
		return fmt.Errorf("input file %s is %d bytes, over the %d byte limit",
			path, info.Size(), v.maxSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("input file %s is not readable: %w", path, err)
	}
	f.Close()

	v.logger.Debug("input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()),
	)
	return nil
}

// ValidateOutputDirectory ensures the export destination exists and is
// writable, creating it when missing.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}

// CountInputFiles counts ingestable files matching the glob pattern under
// dir. Directories and Excel lock files are skipped.
func (v *FileValidator) CountInputFiles(dir, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("failed to list files: %w", err)
	}

	count := 0
	for _, match := range matches {
		if strings.HasPrefix(filepath.Base(match), "~$") {
			continue
		}
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}
