package summarizer

import (
	"fmt"
	"path/filepath"

	"github.com/user/rawkit/pkg/ports"
)

// Writer writes formatted summaries to files.
type Writer struct {
	formatter Formatter
	fs        ports.FileSystem
}

// NewWriter creates a new Writer with the given Formatter.
func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{
		formatter: formatter,
		fs:        fs,
	}
}

// Write formats the summary and writes it to the specified path.
// Creates parent directories if they don't exist.
func (w *Writer) Write(path string, summary *Summary) error {
	content := w.formatter.Format(summary)

	if dir := filepath.Dir(path); dir != "." {
		if err := w.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	if err := w.fs.WriteFile(path, []byte(content)); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
