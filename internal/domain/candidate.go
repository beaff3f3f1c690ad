package domain

import (
	"strings"
	"time"
)

// CandidateAffair is an affair proposed by a source before deduplication.
type CandidateAffair struct {
	PoliticianID    string
	Title           string
	Description     string
	Category        Category
	Status          Status
	Involvement     Involvement
	ConfidenceScore int
	ECLI            string
	PourvoiNumber   string
	CaseNumbers     []string
	FactsDate       *time.Time
	VerdictDate     *time.Time
	Sources         []Source
	// StrongEvidence lets the affair skip the draft stage (structured conviction claims).
	StrongEvidence bool
}

// MatchCandidate projects the fields the matcher compares.
func (c CandidateAffair) MatchCandidate() MatchCandidate {
	return MatchCandidate{
		PoliticianID:  c.PoliticianID,
		Title:         c.Title,
		ECLI:          strings.TrimSpace(c.ECLI),
		PourvoiNumber: strings.TrimSpace(c.PourvoiNumber),
		CaseNumbers:   c.CaseNumbers,
		Category:      c.Category,
		VerdictDate:   c.VerdictDate,
	}
}

// ExtractedAffair is what the LLM returns for a block of narrative text.
type ExtractedAffair struct {
	Title       string
	Description string
	Category    Category
	Status      Status
	Involvement Involvement
	FactsDate   *time.Time
	VerdictDate *time.Time
	Confidence  int
	SourceURL   string
	Publisher   string
}
