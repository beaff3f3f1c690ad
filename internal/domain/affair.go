package domain

import (
	"strings"
	"time"
)

// ProvisionalMarker prefixes the title of affairs awaiting human verification.
const ProvisionalMarker = "[À VÉRIFIER]"

// Politician owns affairs; only the fields sources need are modelled here.
type Politician struct {
	ID             string
	Slug           string
	FullName       string
	WikidataID     string
	WikipediaTitle string
}

// PoliticianFilter narrows a politician listing. Empty fields are ignored.
type PoliticianFilter struct {
	Slug  string
	Limit int
}

// Affair is one judicial record or controversy tied to exactly one politician.
type Affair struct {
	ID                string
	PoliticianID      string
	Title             string
	Description       string
	Category          Category
	Status            Status
	Involvement       Involvement
	ConfidenceScore   int
	PublicationStatus PublicationStatus
	ECLI              string
	PourvoiNumber     string
	CaseNumbers       []string
	VerdictDate       *time.Time
	FactsDate         *time.Time
	VerifiedAt        *time.Time
	VerifiedBy        string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Sources []Source
	Events  []AffairEvent
}

// SourceTypes returns the distinct source types in first-seen order.
func (a Affair) SourceTypes() []SourceType {
	seen := make(map[SourceType]bool, len(a.Sources))
	var types []SourceType
	for _, s := range a.Sources {
		if seen[s.SourceType] {
			continue
		}
		seen[s.SourceType] = true
		types = append(types, s.SourceType)
	}
	return types
}

// Source is one citation attached to an affair. URL is unique per affair.
type Source struct {
	ID          string
	AffairID    string
	URL         string
	Title       string
	Publisher   string
	SourceType  SourceType
	PublishedAt *time.Time
}

// AffairEvent is a dated timeline entry of an affair.
type AffairEvent struct {
	ID          string
	AffairID    string
	Date        time.Time
	Type        EventType
	Title       string
	Description string
	SourceURL   string
}

// PressArticleLink ties a press article to an affair.
type PressArticleLink struct {
	ArticleID string
	AffairID  string
	Role      string
}

// DismissedDuplicate records that two affairs were reviewed and are distinct.
// AffairIDA is always the lexicographically smaller id.
type DismissedDuplicate struct {
	AffairIDA   string
	AffairIDB   string
	DismissedAt time.Time
}

// NewDismissedDuplicate orders the pair so that it is stored once.
func NewDismissedDuplicate(idA, idB string) DismissedDuplicate {
	a, b := SortedPair(idA, idB)
	return DismissedDuplicate{AffairIDA: a, AffairIDB: b}
}

// SortedPair returns both ids with the smaller one first.
func SortedPair(idA, idB string) (string, string) {
	if idB < idA {
		return idB, idA
	}
	return idA, idB
}

// PairKey is the lookup key of an unordered affair pair.
func PairKey(idA, idB string) string {
	a, b := SortedPair(idA, idB)
	return a + ":" + b
}

// AuditAction enumerates the audited operations.
type AuditAction string

const (
	AuditMerge AuditAction = "MERGE"
)

// AuditLog is an append-only trace of a mutating operation.
type AuditLog struct {
	ID         string
	Action     AuditAction
	EntityType string
	EntityID   string
	Changes    map[string]any
	CreatedAt  time.Time
}

// ClampConfidence bounds a confidence score to [0,100].
func ClampConfidence(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// ProvisionalTitle prefixes title with the verification marker once.
func ProvisionalTitle(title string) string {
	title = strings.TrimSpace(title)
	if strings.HasPrefix(title, ProvisionalMarker) {
		return title
	}
	return ProvisionalMarker + " " + title
}
