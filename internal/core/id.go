package core

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a short random session identifier.
func GenerateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// TitleFromCase derives a listing title from the first line of the case.
func TitleFromCase(caseText string) string {
	line := strings.TrimSpace(caseText)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	words := strings.Fields(line)
	if len(words) > 8 {
		return strings.Join(words[:8], " ") + "..."
	}
	return strings.Join(words, " ")
}
