// Package export handles exporting trial records to various formats.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/persona"
)

// Format represents an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

// Exporter defines the interface for exporting trials.
type Exporter interface {
	Export(snap *core.Snapshot, w io.Writer) error
	FileExtension() string
	ContentType() string
}

// GetExporter returns an exporter for the given format.
func GetExporter(format Format) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	case FormatPDF:
		return &PDFExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// GenerateFilename creates a filename for the export.
func GenerateFilename(snap *core.Snapshot, ext string) string {
	title := core.TitleFromCase(snap.Case)
	if title == "" {
		title = snap.ID
	}
	title = strings.TrimSuffix(title, "...")
	if len(title) > 50 {
		title = title[:50]
	}

	// Replace unsafe characters
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		".", "",
	)
	title = replacer.Replace(title)

	timestamp := snap.CreatedAt.Format("20060102")
	return fmt.Sprintf("trial_%s_%s.%s", timestamp, title, ext)
}

// entry is one labelled speech within a round.
type entry struct {
	role    core.Role
	speaker string
	text    string
}

// roundEntries lists a round's speeches in speaking order.
func roundEntries(r core.Round) []entry {
	texts := map[core.Role]string{
		core.RoleProsecutionStrategist: r.ProsecutionStrategy,
		core.RoleProsecutor:            r.ProsecutionArgument,
		core.RoleDefenseStrategist:     r.DefenseStrategy,
		core.RoleDefenseAttorney:       r.DefenseArgument,
	}
	var out []entry
	for _, p := range persona.Advocates() {
		out = append(out, entry{role: p.Role, speaker: p.Name, text: texts[p.Role]})
	}
	return out
}

func isProsecution(role core.Role) bool {
	return role == core.RoleProsecutor || role == core.RoleProsecutionStrategist
}

func stateLabel(s core.State) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// Helper to format duration
func formatDuration(start, end time.Time) string {
	d := end.Sub(start)
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}
