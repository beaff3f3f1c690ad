package parser

import (
	"context"
	"fmt"
	"strings"

	"Poligraph/internal/domain"
	"Poligraph/internal/infrastructure/judilibre"
	"Poligraph/internal/scanner"
)

const judilibreDecisionURL = "https://www.courdecassation.fr/decision/"

// DecisionSearcher queries the judicial registry.
type DecisionSearcher interface {
	Search(ctx context.Context, query string) ([]judilibre.Decision, error)
}

// JudilibreScanner maps Cour de cassation decisions naming a politician to candidates.
type JudilibreScanner struct {
	searcher DecisionSearcher
}

// NewJudilibreScanner wires a decision searcher.
func NewJudilibreScanner(searcher DecisionSearcher) *JudilibreScanner {
	return &JudilibreScanner{searcher: searcher}
}

// Name identifies the strategy inside the registry.
func (j *JudilibreScanner) Name() string {
	return "judilibre"
}

// Scan searches decisions by the politician's full name.
func (j *JudilibreScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.CandidateAffair, error) {
	name := strings.TrimSpace(req.Politician.FullName)
	if name == "" {
		return nil, nil
	}
	if j.searcher == nil {
		return nil, fmt.Errorf("judilibre searcher is not configured")
	}

	decisions, err := j.searcher.Search(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search decisions: %w", err)
	}

	candidates := make([]domain.CandidateAffair, 0, len(decisions))
	for _, d := range decisions {
		candidates = append(candidates, candidateFromDecision(req.Politician, d))
	}
	return candidates, nil
}

func candidateFromDecision(p domain.Politician, d judilibre.Decision) domain.CandidateAffair {
	text := d.Summary + " " + strings.Join(d.Themes, " ")
	category := domain.CategoryFromText(text)

	title := fmt.Sprintf("Décision de la Cour de cassation n° %s", d.Number)
	if category != domain.CategoryAutre {
		title = fmt.Sprintf("%s (pourvoi n° %s)", categoryLabel(d), d.Number)
	}

	candidate := domain.CandidateAffair{
		PoliticianID:    p.ID,
		Title:           title,
		Description:     strings.TrimSpace(d.Summary),
		Category:        category,
		Status:          statusFromSolution(d.Chamber, d.Solution),
		Involvement:     domain.InvolvementMentionedOnly,
		ConfidenceScore: 60,
		ECLI:            strings.TrimSpace(d.ECLI),
		PourvoiNumber:   strings.TrimSpace(d.Number),
		CaseNumbers:     d.Numbers,
		Sources: []domain.Source{{
			URL:        judilibreDecisionURL + d.ID,
			Title:      title,
			Publisher:  "Cour de cassation",
			SourceType: domain.SourceJudilibre,
		}},
	}
	if date, ok := d.Date(); ok {
		candidate.VerdictDate = &date
		candidate.Sources[0].PublishedAt = &date
	}
	return candidate
}

func categoryLabel(d judilibre.Decision) string {
	if len(d.Themes) > 0 && strings.TrimSpace(d.Themes[0]) != "" {
		return strings.TrimSpace(d.Themes[0])
	}
	return "Décision de la Cour de cassation"
}

// statusFromSolution reads the outcome of a pourvoi. A rejected criminal
// appeal makes the lower court's conviction final.
func statusFromSolution(chamber, solution string) domain.Status {
	s := strings.ToLower(solution)
	switch {
	case strings.Contains(s, "cassation"):
		return domain.StatusAppelEnCours
	case strings.EqualFold(strings.TrimSpace(chamber), "cr") &&
		(strings.Contains(s, "rejet") || strings.Contains(s, "irrecevabilit") || strings.Contains(s, "non-admission") || strings.Contains(s, "non admission")):
		return domain.StatusCondamnationDefinitive
	default:
		return domain.StatusProcesEnCours
	}
}
