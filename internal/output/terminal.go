// Package output renders trial progress for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/persona"
)

var (
	prosecutionColor = lipgloss.Color("#F87171") // Red
	defenseColor     = lipgloss.Color("#60A5FA") // Blue
	judgeColor       = lipgloss.Color("#FBBF24") // Yellow
	mutedColor       = lipgloss.Color("#9CA3AF") // Gray
	okColor          = lipgloss.Color("#10B981") // Green

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(judgeColor)
	roundStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(prosecutionColor)
	okStyle    = lipgloss.NewStyle().Foreground(okColor)

	verdictBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(judgeColor).
			Padding(1, 2)
)

// Printer writes styled trial output to w.
type Printer struct {
	w     io.Writer
	width int
}

// NewPrinter creates a printer. width bounds wrapped text; zero means 100.
func NewPrinter(w io.Writer, width int) *Printer {
	if width <= 0 {
		width = 100
	}
	return &Printer{w: w, width: width}
}

// Banner prints the case header.
func (p *Printer) Banner(snap core.Snapshot) {
	fmt.Fprintf(p.w, "\n%s\n", titleStyle.Render("⚖️  "+core.TitleFromCase(snap.Case)))
	fmt.Fprintf(p.w, "%s\n\n", mutedStyle.Render("Session "+snap.ID))
}

// Summary prints the clerk's summary.
func (p *Printer) Summary(summary string) {
	fmt.Fprintf(p.w, "%s\n%s\n", p.heading(core.RoleClerk, "Clerk's Summary"), p.body(summary))
}

// Status prints an agent progress line.
func (p *Printer) Status(ev core.StatusEvent) {
	if ev.Message == "" {
		return
	}
	mark := "…"
	if ev.Done {
		mark = okStyle.Render("✓")
	}
	fmt.Fprintf(p.w, "%s %s\n", mark, mutedStyle.Render(ev.Message))
}

// Round prints all four speeches of a round in speaking order.
func (p *Printer) Round(r core.Round) {
	fmt.Fprintf(p.w, "\n%s\n", roundStyle.Render(fmt.Sprintf("%s Round %d %s", strings.Repeat("─", 20), r.Number, strings.Repeat("─", 20))))

	texts := map[core.Role]string{
		core.RoleProsecutionStrategist: r.ProsecutionStrategy,
		core.RoleProsecutor:            r.ProsecutionArgument,
		core.RoleDefenseStrategist:     r.DefenseStrategy,
		core.RoleDefenseAttorney:       r.DefenseArgument,
	}
	for _, per := range persona.Advocates() {
		fmt.Fprintf(p.w, "\n%s\n%s\n", p.heading(per.Role, per.Name), p.body(texts[per.Role]))
	}
}

// Ready notes that the judge has heard enough.
func (p *Printer) Ready() {
	fmt.Fprintf(p.w, "\n%s\n", titleStyle.Render("🧑‍⚖️ The Judge has heard enough evidence to render a verdict."))
}

// Verdict prints the ruling and any scorecard.
func (p *Printer) Verdict(v core.Verdict) {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("FINAL VERDICT"))
	sb.WriteString("\n\n")
	sb.WriteString(v.Text)

	if c := v.Scorecard; c != nil {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("%s %d/100   %s %d/100   agreement: %s\n",
			lipgloss.NewStyle().Foreground(prosecutionColor).Render("Prosecution"), c.ProsecutionScore,
			lipgloss.NewStyle().Foreground(defenseColor).Render("Defense"), c.DefenseScore,
			c.Agreement))
		sb.WriteString(mutedStyle.Render(c.Commentary))
	}

	fmt.Fprintf(p.w, "\n%s\n", verdictBox.Width(p.width).Render(sb.String()))
}

// Roles lists the fixed personas.
func (p *Printer) Roles(personas []persona.Persona) {
	for _, per := range personas {
		fmt.Fprintf(p.w, "%s  %s\n", p.heading(per.Role, per.Name), mutedStyle.Render(string(per.Role)))
		fmt.Fprintf(p.w, "  %s\n", per.Description)
	}
}

// Check prints one line of a credential or health check.
func (p *Printer) Check(name string, ok bool, detail string) {
	mark := okStyle.Render("✓")
	if !ok {
		mark = errorStyle.Render("✗")
	}
	line := fmt.Sprintf("%s %s", mark, name)
	if detail != "" {
		line += " " + mutedStyle.Render(detail)
	}
	fmt.Fprintln(p.w, line)
}

func (p *Printer) heading(role core.Role, text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(roleColor(role)).Render(text)
}

func (p *Printer) body(text string) string {
	if core.IsErrorText(text) {
		return errorStyle.Width(p.width).Render(text)
	}
	return lipgloss.NewStyle().Width(p.width).Render(text)
}

func roleColor(role core.Role) lipgloss.Color {
	switch role {
	case core.RoleProsecutor, core.RoleProsecutionStrategist:
		return prosecutionColor
	case core.RoleDefenseAttorney, core.RoleDefenseStrategist:
		return defenseColor
	case core.RoleJudge:
		return judgeColor
	default:
		return mutedColor
	}
}
