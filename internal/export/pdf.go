package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/alienxp03/courtroom/internal/core"
)

// PDFExporter exports trials to PDF format.
type PDFExporter struct{}

// Export writes the trial as PDF.
func (e *PDFExporter) Export(snap *core.Snapshot, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Exported from courtroom - page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	// Core fonts expect cp1252 bytes.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(e.sanitizeText(s)) }

	pdf.AddPage()

	// Title
	title := core.TitleFromCase(snap.Case)
	if title == "" {
		title = "Untitled case"
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, text(title), "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Trial Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addMetadataRow(pdf, "ID:", snap.ID)
	e.addMetadataRow(pdf, "State:", stateLabel(snap.State))
	e.addMetadataRow(pdf, "Rounds:", fmt.Sprintf("%d", len(snap.Rounds)))
	e.addMetadataRow(pdf, "Opened:", snap.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	if snap.Verdict != nil {
		e.addMetadataRow(pdf, "Ruled:", snap.Verdict.RenderedAt.Format("January 2, 2006 at 3:04 PM"))
		e.addMetadataRow(pdf, "Duration:", formatDuration(snap.CreatedAt, snap.Verdict.RenderedAt))
	}
	pdf.Ln(5)

	if snap.Summary != "" {
		e.addSection(pdf, "Clerk's Summary")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, text(snap.Summary), "", "", false)
		pdf.Ln(5)
	}

	e.addSection(pdf, "Proceedings")
	if len(snap.Rounds) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No rounds recorded.")
		pdf.Ln(6)
	}
	for _, r := range snap.Rounds {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 7, fmt.Sprintf("Round %d", r.Number))
		pdf.Ln(8)

		for _, en := range roundEntries(r) {
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}
			if isProsecution(en.role) {
				pdf.SetFillColor(255, 220, 220) // Light red
			} else {
				pdf.SetFillColor(200, 230, 255) // Light blue
			}
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(0, 7, text(en.speaker), "", 1, "", true, 0, "")

			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)
			pdf.MultiCell(0, 5, text(en.text), "", "", false)
			pdf.Ln(4)
		}
	}

	if v := snap.Verdict; v != nil {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}
		e.addSection(pdf, "Verdict")

		pdf.SetFillColor(255, 240, 200)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, "The Honorable Judge", "", 1, "", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, text(v.Text), "", "", false)
		pdf.Ln(3)

		if c := v.Scorecard; c != nil {
			pdf.SetFont("Arial", "B", 10)
			pdf.Cell(0, 6, "Scorecard")
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 10)
			e.addMetadataRow(pdf, "Prosecution:", fmt.Sprintf("%d / 100", c.ProsecutionScore))
			e.addMetadataRow(pdf, "Defense:", fmt.Sprintf("%d / 100", c.DefenseScore))
			e.addMetadataRow(pdf, "Agreement:", string(c.Agreement))
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(0, 5, text(c.Commentary), "", "", false)
		}
	}

	return pdf.Output(w)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

// ContentType returns the MIME type for PDF.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

func (e *PDFExporter) addSection(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
}

// Helper to add a metadata row
func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, value)
	pdf.Ln(5)
}

// sanitizeText maps common Unicode punctuation onto Latin-1 and drops
// anything else outside it.
func (e *PDFExporter) sanitizeText(text string) string {
	replacer := strings.NewReplacer(
		"\u2018", "'",   // Left single quote
		"\u2019", "'",   // Right single quote
		"\u201C", "\"",  // Left double quote
		"\u201D", "\"",  // Right double quote
		"\u2013", "-",   // En dash
		"\u2014", "--",  // Em dash
		"\u2026", "...", // Ellipsis
		"\u2022", "*",   // Bullet
		"\u00A0", " ",   // Non-breaking space
		core.ErrorMarker, "[!]",
	)
	text = replacer.Replace(text)

	var sb strings.Builder
	for _, r := range text {
		if r < 256 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
