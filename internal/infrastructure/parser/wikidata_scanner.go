package parser

import (
	"context"
	"fmt"
	"strings"

	"Poligraph/internal/domain"
	"Poligraph/internal/infrastructure/wikidata"
	"Poligraph/internal/scanner"
)

const wikidataEntityURL = "https://www.wikidata.org/wiki/"

// ConvictionLookup reads structured conviction claims for an entity.
type ConvictionLookup interface {
	Convictions(ctx context.Context, qid string) ([]wikidata.Conviction, error)
}

// WikidataScanner turns P1399 claims into definitive-conviction candidates.
type WikidataScanner struct {
	lookup ConvictionLookup
}

// NewWikidataScanner wires a conviction lookup.
func NewWikidataScanner(lookup ConvictionLookup) *WikidataScanner {
	return &WikidataScanner{lookup: lookup}
}

// Name identifies the strategy inside the registry.
func (w *WikidataScanner) Name() string {
	return "wikidata"
}

// Scan returns nothing for politicians without a Wikidata id.
func (w *WikidataScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.CandidateAffair, error) {
	qid := strings.TrimSpace(req.Politician.WikidataID)
	if qid == "" {
		return nil, nil
	}
	if w.lookup == nil {
		return nil, fmt.Errorf("wikidata lookup is not configured")
	}

	convictions, err := w.lookup.Convictions(ctx, qid)
	if err != nil {
		return nil, fmt.Errorf("convictions of %s: %w", qid, err)
	}

	candidates := make([]domain.CandidateAffair, 0, len(convictions))
	for _, c := range convictions {
		label := strings.TrimSpace(c.CrimeLabel)
		if label == "" {
			label = c.CrimeQID
		}
		candidates = append(candidates, domain.CandidateAffair{
			PoliticianID:    req.Politician.ID,
			Title:           "Condamnation pour " + label,
			Category:        domain.CategoryFromText(label),
			Status:          domain.StatusCondamnationDefinitive,
			Involvement:     domain.InvolvementDirect,
			ConfidenceScore: 90,
			VerdictDate:     c.Date,
			StrongEvidence:  true,
			Sources: []domain.Source{{
				URL:        wikidataEntityURL + qid,
				Title:      "Wikidata " + qid,
				Publisher:  "Wikidata",
				SourceType: domain.SourceWikidata,
			}},
		})
	}
	return candidates, nil
}
