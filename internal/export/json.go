package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/alienxp03/courtroom/internal/core"
)

// JSONExporter exports trials to JSON format.
type JSONExporter struct{}

// ExportData represents the full export structure.
type ExportData struct {
	Session    *core.Snapshot `json:"session"`
	Briefs     core.Briefs    `json:"briefs"`
	ExportedAt time.Time      `json:"exported_at"`
}

// Export writes the trial as JSON.
func (e *JSONExporter) Export(snap *core.Snapshot, w io.Writer) error {
	data := ExportData{
		Session:    snap,
		Briefs:     snap.Briefs(),
		ExportedAt: time.Now().UTC(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return "json"
}

// ContentType returns the MIME type for JSON.
func (e *JSONExporter) ContentType() string {
	return "application/json"
}
