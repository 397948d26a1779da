package core

import (
	"fmt"
	"strings"
)

// Agreement is how far the two sides converged during the trial.
type Agreement string

const (
	AgreementLow    Agreement = "low"
	AgreementMedium Agreement = "medium"
	AgreementHigh   Agreement = "high"
)

// Scorecard is the judge's optional structured assessment.
type Scorecard struct {
	ProsecutionScore int       `json:"prosecution_score"`
	DefenseScore     int       `json:"defense_score"`
	Agreement        Agreement `json:"agreement"`
	Commentary       string    `json:"commentary"`
}

// Validate rejects scores outside 0-100, unknown agreement levels and empty
// commentary.
func (s *Scorecard) Validate() error {
	if s.ProsecutionScore < 0 || s.ProsecutionScore > 100 {
		return &ValidationError{Field: "prosecution_score", Message: fmt.Sprintf("%d out of range 0-100", s.ProsecutionScore)}
	}
	if s.DefenseScore < 0 || s.DefenseScore > 100 {
		return &ValidationError{Field: "defense_score", Message: fmt.Sprintf("%d out of range 0-100", s.DefenseScore)}
	}
	switch Agreement(strings.ToLower(string(s.Agreement))) {
	case AgreementLow, AgreementMedium, AgreementHigh:
		s.Agreement = Agreement(strings.ToLower(string(s.Agreement)))
	default:
		return &ValidationError{Field: "agreement", Message: fmt.Sprintf("unknown level %q", s.Agreement)}
	}
	if strings.TrimSpace(s.Commentary) == "" {
		return &ValidationError{Field: "commentary", Message: "empty"}
	}
	return nil
}
