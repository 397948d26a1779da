package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/alienxp03/courtroom/internal/core"
)

// MarkdownExporter exports trials to Markdown format.
type MarkdownExporter struct{}

// Export writes the trial as Markdown.
func (e *MarkdownExporter) Export(snap *core.Snapshot, w io.Writer) error {
	var sb strings.Builder

	title := core.TitleFromCase(snap.Case)
	if title == "" {
		title = "Untitled case"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	// Metadata
	sb.WriteString("## Trial Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", snap.ID))
	sb.WriteString(fmt.Sprintf("- **State:** %s\n", stateLabel(snap.State)))
	sb.WriteString(fmt.Sprintf("- **Rounds:** %d\n", len(snap.Rounds)))
	sb.WriteString(fmt.Sprintf("- **Opened:** %s\n", snap.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	if snap.Verdict != nil {
		sb.WriteString(fmt.Sprintf("- **Ruled:** %s\n", snap.Verdict.RenderedAt.Format("January 2, 2006 at 3:04 PM")))
		sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", formatDuration(snap.CreatedAt, snap.Verdict.RenderedAt)))
	}
	sb.WriteString("\n")

	if snap.Case != "" {
		sb.WriteString("## Case\n\n")
		sb.WriteString(quote(snap.Case))
		sb.WriteString("\n\n")
	}
	if snap.Summary != "" {
		sb.WriteString("## Clerk's Summary\n\n")
		sb.WriteString(snap.Summary)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Proceedings\n\n")
	if len(snap.Rounds) == 0 {
		sb.WriteString("*No rounds recorded.*\n\n")
	}
	for _, r := range snap.Rounds {
		sb.WriteString(fmt.Sprintf("### Round %d\n\n", r.Number))
		for _, en := range roundEntries(r) {
			sb.WriteString(fmt.Sprintf("#### %s\n\n", en.speaker))
			sb.WriteString(en.text)
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}

	if v := snap.Verdict; v != nil {
		sb.WriteString("## Verdict\n\n")
		sb.WriteString(v.Text)
		sb.WriteString("\n\n")

		if c := v.Scorecard; c != nil {
			sb.WriteString("### Scorecard\n\n")
			sb.WriteString("| Side | Score |\n|---|---|\n")
			sb.WriteString(fmt.Sprintf("| Prosecution | %d |\n", c.ProsecutionScore))
			sb.WriteString(fmt.Sprintf("| Defense | %d |\n\n", c.DefenseScore))
			sb.WriteString(fmt.Sprintf("**Agreement:** %s\n\n", c.Agreement))
			sb.WriteString(c.Commentary)
			sb.WriteString("\n\n")
		}
	} else if snap.VerdictReady {
		sb.WriteString("*The court is ready to rule.*\n\n")
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from courtroom*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}

// ContentType returns the MIME type for Markdown.
func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func quote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
