package domain

import "time"

// Confidence is the tier of a match.
type Confidence string

const (
	ConfidenceCertain  Confidence = "CERTAIN"
	ConfidenceHigh     Confidence = "HIGH"
	ConfidencePossible Confidence = "POSSIBLE"
)

// Blocks reports whether the tier is strong enough to treat two records as one.
func (c Confidence) Blocks() bool {
	return c == ConfidenceCertain || c == ConfidenceHigh
}

// HasBlockingMatch reports whether results contain a CERTAIN or HIGH match.
func HasBlockingMatch(results []MatchResult) bool {
	for _, r := range results {
		if r.Confidence.Blocks() {
			return true
		}
	}
	return false
}

// MatchReason names the pass that produced a match.
type MatchReason string

const (
	MatchByECLI          MatchReason = "ecli"
	MatchByPourvoi       MatchReason = "pourvoi"
	MatchByCaseNumber    MatchReason = "case-number"
	MatchByTitleExact    MatchReason = "title-exact"
	MatchByTitleCategory MatchReason = "title+category"
	MatchByTitlePartial  MatchReason = "title-partial"
	MatchByCategoryDate  MatchReason = "category+date"
)

// MatchCandidate is what callers describe when asking whether a record exists.
type MatchCandidate struct {
	PoliticianID  string
	Title         string
	ECLI          string
	PourvoiNumber string
	CaseNumbers   []string
	Category      Category
	VerdictDate   *time.Time
	// ExcludeID skips the persisted affair the candidate was built from.
	ExcludeID string
}

// CandidateFromAffair turns a persisted affair into a candidate that ignores itself.
func CandidateFromAffair(a Affair) MatchCandidate {
	return MatchCandidate{
		PoliticianID:  a.PoliticianID,
		Title:         a.Title,
		ECLI:          a.ECLI,
		PourvoiNumber: a.PourvoiNumber,
		CaseNumbers:   a.CaseNumbers,
		Category:      a.Category,
		VerdictDate:   a.VerdictDate,
		ExcludeID:     a.ID,
	}
}

// MatchResult links a candidate to one existing affair.
type MatchResult struct {
	AffairID   string
	Confidence Confidence
	Score      float64
	MatchedBy  MatchReason
}

// AffairQuery filters persisted affairs. Empty fields are ignored.
type AffairQuery struct {
	PoliticianID  string
	PourvoiNumber string
	CaseNumbers   []string
	Category      Category
	VerdictFrom   *time.Time
	VerdictTo     *time.Time
	Unverified    bool
	WithSources   bool
	Limit         int
}
