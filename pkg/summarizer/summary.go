// Package summarizer provides summary generation for batch decode results.
package summarizer

import (
	"time"

	"github.com/user/rawkit/pkg/orchestrator"
)

// Summary contains all data collected during a batch run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Native library the files were decoded with
	Library LibraryInfo

	// Batch settings
	Settings Settings

	// Per-file outcomes, in input order
	Files []FileInfo
}

// LibraryInfo describes the native backend.
type LibraryInfo struct {
	Version      string
	Capabilities string
	Cameras      int
}

// Settings contains the batch configuration.
type Settings struct {
	Format        string
	Workers       int
	Raw2Image     bool
	SubtractBlack bool
}

// Status is the outcome of one file.
type Status string

const (
	StatusDecoded Status = "decoded"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// FileInfo contains the outcome of one input file.
type FileInfo struct {
	Input    string
	Output   string
	Decoder  string
	Width    int
	Height   int
	Status   Status
	Error    string
	Duration time.Duration
}

// Counts returns the number of files per status.
func (s *Summary) Counts() map[Status]int {
	counts := map[Status]int{}
	for _, f := range s.Files {
		counts[f.Status]++
	}
	return counts
}

// TotalDuration sums the decode time of every file.
func (s *Summary) TotalDuration() time.Duration {
	var total time.Duration
	for _, f := range s.Files {
		total += f.Duration
	}
	return total
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithLibrary sets native library information.
func (b *Builder) WithLibrary(version, capabilities string, cameras int) *Builder {
	b.summary.Library = LibraryInfo{
		Version:      version,
		Capabilities: capabilities,
		Cameras:      cameras,
	}
	return b
}

// WithSettings sets batch settings from an orchestrator configuration.
func (b *Builder) WithSettings(cfg orchestrator.Config) *Builder {
	b.summary.Settings = Settings{
		Format:        string(cfg.Format),
		Workers:       cfg.Workers,
		Raw2Image:     cfg.Raw2Image,
		SubtractBlack: cfg.SubtractBlack,
	}
	return b
}

// WithResults appends one FileInfo per batch result.
func (b *Builder) WithResults(results []orchestrator.Result) *Builder {
	for _, r := range results {
		info := FileInfo{
			Input:    r.Input,
			Output:   r.Output,
			Decoder:  r.Decoder.Name,
			Width:    r.Width,
			Height:   r.Height,
			Duration: r.Duration,
			Status:   StatusDecoded,
		}
		switch {
		case r.Err != nil:
			info.Status = StatusFailed
			info.Error = r.Err.Error()
		case r.Skipped:
			info.Status = StatusSkipped
		}
		b.summary.Files = append(b.summary.Files, info)
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
