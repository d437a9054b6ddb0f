package summarizer

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var sb strings.Builder

	sb.WriteString("# Batch Summary\n\n")
	fmt.Fprintf(&sb, "Generated at %s\n\n", s.GeneratedAt.UTC().Format(time.RFC3339))

	sb.WriteString("## Library\n\n")
	fmt.Fprintf(&sb, "| Version | Capabilities | Cameras |\n|---|---|---|\n")
	fmt.Fprintf(&sb, "| %s | %s | %d |\n\n", cell(s.Library.Version), cell(s.Library.Capabilities), s.Library.Cameras)

	sb.WriteString("## Settings\n\n")
	fmt.Fprintf(&sb, "- Format: %s\n", s.Settings.Format)
	fmt.Fprintf(&sb, "- Workers: %d\n", s.Settings.Workers)
	fmt.Fprintf(&sb, "- Unpack: %s\n", unpackName(s.Settings.Raw2Image))
	fmt.Fprintf(&sb, "- Subtract black: %s\n\n", yesNo(s.Settings.SubtractBlack))

	counts := s.Counts()
	sb.WriteString("## Results\n\n")
	fmt.Fprintf(&sb, "%d decoded, %d skipped, %d failed in %s\n\n",
		counts[StatusDecoded], counts[StatusSkipped], counts[StatusFailed], formatDuration(s.TotalDuration()))

	if len(s.Files) == 0 {
		return sb.String()
	}

	sb.WriteString("| File | Status | Size | Decoder | Time | Output |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, file := range s.Files {
		size, decoder, duration, output := "-", "-", "-", "-"
		if file.Status == StatusDecoded {
			size = fmt.Sprintf("%dx%d", file.Width, file.Height)
			duration = formatDuration(file.Duration)
			output = filepath.Base(file.Output)
		}
		if file.Decoder != "" {
			decoder = file.Decoder
		}
		status := string(file.Status)
		if file.Error != "" {
			status += ": " + file.Error
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
			cell(filepath.Base(file.Input)), cell(status), size, cell(decoder), duration, cell(output))
	}
	return sb.String()
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func unpackName(raw2image bool) string {
	if raw2image {
		return "raw2image"
	}
	return "unpack"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}

var _ Formatter = (*MarkdownFormatter)(nil)
