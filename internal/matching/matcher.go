// Package matching links candidate affairs to affairs already persisted for
// the same politician.
//
// Matching is a priority-ranked classifier, not a similarity metric. Passes
// run in a fixed order, judicial identifiers first, and an affair found by an
// earlier pass keeps that pass's reason and score:
//
//  1. ECLI exact match: CERTAIN, 1.0, returns immediately
//  2. pourvoi number: HIGH, 0.95
//  3. case-number overlap: HIGH, 0.80
//  4. normalized title: HIGH 0.85 (equal), HIGH 0.75 (containment and same
//     category), POSSIBLE 0.50 (containment)
//  5. same category and verdict dates at most 30 days apart: POSSIBLE, 0.40
//
// Scores are constants per pass. They order results; they do not compare
// across different candidates.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
)

const (
	scoreECLI          = 1.0
	scorePourvoi       = 0.95
	scoreTitleExact    = 0.85
	scoreCaseNumber    = 0.80
	scoreTitleCategory = 0.75
	scoreTitlePartial  = 0.50
	scoreCategoryDate  = 0.40

	// VerdictWindow bounds the verdict-date distance of the category+date pass.
	VerdictWindow = 30 * 24 * time.Hour
)

// Matcher finds persisted affairs that plausibly describe the same event as a candidate.
// It never writes.
type Matcher struct {
	finder ports.AffairFinder
	logger *slog.Logger
}

var _ ports.AffairMatcher = (*Matcher)(nil)

// NewMatcher wires the read-only affair finder.
func NewMatcher(finder ports.AffairFinder, logger *slog.Logger) *Matcher {
	return &Matcher{finder: finder, logger: logger}
}

// FindMatchingAffairs returns every plausible match ordered by score, highest first.
// No match is an empty result, not an error; storage errors are returned as is.
func (m *Matcher) FindMatchingAffairs(ctx context.Context, candidate domain.MatchCandidate) ([]domain.MatchResult, error) {
	if candidate.ECLI != "" {
		existing, err := m.finder.FindAffairByECLI(ctx, candidate.ECLI)
		switch {
		case err == nil && existing.ID != candidate.ExcludeID:
			m.debug("ecli match", "ecli", candidate.ECLI, "affair", existing.ID)
			return []domain.MatchResult{{
				AffairID:   existing.ID,
				Confidence: domain.ConfidenceCertain,
				Score:      scoreECLI,
				MatchedBy:  domain.MatchByECLI,
			}}, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("find affair by ecli: %w", err)
		}
	}

	if candidate.PoliticianID == "" {
		return nil, nil
	}

	results := newResultSet(candidate.ExcludeID)

	if candidate.PourvoiNumber != "" {
		found, err := m.finder.SearchAffairs(ctx, domain.AffairQuery{
			PoliticianID:  candidate.PoliticianID,
			PourvoiNumber: candidate.PourvoiNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("search by pourvoi: %w", err)
		}
		for _, affair := range found {
			results.add(affair.ID, domain.ConfidenceHigh, scorePourvoi, domain.MatchByPourvoi)
		}
	}

	if numbers := cleanCaseNumbers(candidate.CaseNumbers); len(numbers) > 0 {
		found, err := m.finder.SearchAffairs(ctx, domain.AffairQuery{
			PoliticianID: candidate.PoliticianID,
			CaseNumbers:  numbers,
		})
		if err != nil {
			return nil, fmt.Errorf("search by case numbers: %w", err)
		}
		for _, affair := range found {
			if sharesCaseNumber(numbers, affair.CaseNumbers) {
				results.add(affair.ID, domain.ConfidenceHigh, scoreCaseNumber, domain.MatchByCaseNumber)
			}
		}
	}

	if title := NormalizeTitle(candidate.Title); title != "" {
		found, err := m.finder.SearchAffairs(ctx, domain.AffairQuery{PoliticianID: candidate.PoliticianID})
		if err != nil {
			return nil, fmt.Errorf("search by politician: %w", err)
		}
		for _, affair := range found {
			existing := NormalizeTitle(affair.Title)
			switch {
			case existing == title:
				results.add(affair.ID, domain.ConfidenceHigh, scoreTitleExact, domain.MatchByTitleExact)
			case !titlesOverlap(title, existing):
			case candidate.Category != "" && candidate.Category == affair.Category:
				results.add(affair.ID, domain.ConfidenceHigh, scoreTitleCategory, domain.MatchByTitleCategory)
			default:
				results.add(affair.ID, domain.ConfidencePossible, scoreTitlePartial, domain.MatchByTitlePartial)
			}
		}
	}

	if candidate.Category != "" && candidate.VerdictDate != nil {
		from := candidate.VerdictDate.Add(-VerdictWindow)
		to := candidate.VerdictDate.Add(VerdictWindow)
		found, err := m.finder.SearchAffairs(ctx, domain.AffairQuery{
			PoliticianID: candidate.PoliticianID,
			Category:     candidate.Category,
			VerdictFrom:  &from,
			VerdictTo:    &to,
		})
		if err != nil {
			return nil, fmt.Errorf("search by category and date: %w", err)
		}
		for _, affair := range found {
			results.add(affair.ID, domain.ConfidencePossible, scoreCategoryDate, domain.MatchByCategoryDate)
		}
	}

	ranked := results.sorted()
	m.debug("matched candidate", "politician", candidate.PoliticianID, "title", candidate.Title, "matches", len(ranked))
	return ranked, nil
}

// IsDuplicate reports whether any match is CERTAIN or HIGH.
func (m *Matcher) IsDuplicate(ctx context.Context, candidate domain.MatchCandidate) (bool, error) {
	results, err := m.FindMatchingAffairs(ctx, candidate)
	if err != nil {
		return false, err
	}
	return domain.HasBlockingMatch(results), nil
}

func (m *Matcher) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// resultSet keeps the first result per affair in discovery order.
type resultSet struct {
	exclude string
	seen    map[string]struct{}
	items   []domain.MatchResult
}

func newResultSet(exclude string) *resultSet {
	return &resultSet{exclude: exclude, seen: map[string]struct{}{}}
}

func (r *resultSet) add(affairID string, confidence domain.Confidence, score float64, reason domain.MatchReason) {
	if affairID == r.exclude {
		return
	}
	if _, ok := r.seen[affairID]; ok {
		return
	}
	r.seen[affairID] = struct{}{}
	r.items = append(r.items, domain.MatchResult{
		AffairID:   affairID,
		Confidence: confidence,
		Score:      score,
		MatchedBy:  reason,
	})
}

func (r *resultSet) sorted() []domain.MatchResult {
	sort.SliceStable(r.items, func(i, j int) bool {
		return r.items[i].Score > r.items[j].Score
	})
	return r.items
}
