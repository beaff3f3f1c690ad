package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Poligraph/internal/domain"
)

// fakeFinder filters an in-memory slice the way the SQL repository filters rows.
type fakeFinder struct {
	affairs []domain.Affair
	err     error
	queries []domain.AffairQuery
}

func (f *fakeFinder) FindAffairByECLI(_ context.Context, ecli string) (domain.Affair, error) {
	if f.err != nil {
		return domain.Affair{}, f.err
	}
	for _, a := range f.affairs {
		if a.ECLI != "" && a.ECLI == ecli {
			return a, nil
		}
	}
	return domain.Affair{}, domain.NotFoundError{Resource: "affair", ID: ecli}
}

func (f *fakeFinder) SearchAffairs(_ context.Context, q domain.AffairQuery) ([]domain.Affair, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Affair
	for _, a := range f.affairs {
		if q.PoliticianID != "" && a.PoliticianID != q.PoliticianID {
			continue
		}
		if q.PourvoiNumber != "" && a.PourvoiNumber != q.PourvoiNumber {
			continue
		}
		if len(q.CaseNumbers) > 0 && !sharesCaseNumber(q.CaseNumbers, a.CaseNumbers) {
			continue
		}
		if q.Category != "" && a.Category != q.Category {
			continue
		}
		if q.VerdictFrom != nil || q.VerdictTo != nil {
			if a.VerdictDate == nil {
				continue
			}
			if q.VerdictFrom != nil && a.VerdictDate.Before(*q.VerdictFrom) {
				continue
			}
			if q.VerdictTo != nil && a.VerdictDate.After(*q.VerdictTo) {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newTestMatcher(affairs ...domain.Affair) (*Matcher, *fakeFinder) {
	finder := &fakeFinder{affairs: affairs}
	return NewMatcher(finder, nil), finder
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "plain", title: "Affaire Bygmalion", want: "affaire bygmalion"},
		{name: "french marker", title: "[À VÉRIFIER] Affaire Bygmalion", want: "affaire bygmalion"},
		{name: "english marker", title: "  [TO VERIFY]   Affaire Bygmalion  ", want: "affaire bygmalion"},
		{name: "marker only", title: "[À VÉRIFIER]", want: ""},
		{name: "inner brackets kept", title: "Affaire [bis]", want: "affaire [bis]"},
		{name: "lowercase marker", title: "[à vérifier] Affaire Bygmalion", want: "affaire bygmalion"},
		{name: "other prefix kept", title: "[Corse] Affaire des paillotes", want: "[corse] affaire des paillotes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.title))
		})
	}
}

func TestFindMatchingAffairs_TitleExactAfterMarker(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{
		ID:           "a1",
		PoliticianID: "p1",
		Title:        "[À VÉRIFIER] Affaire Bygmalion",
		Category:     domain.CategoryFinancementIllegalCampagne,
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID: "p1",
		Title:        "Affaire Bygmalion",
		Category:     domain.CategoryFinancementIllegalCampagne,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchResult{
		AffairID:   "a1",
		Confidence: domain.ConfidenceHigh,
		Score:      0.85,
		MatchedBy:  domain.MatchByTitleExact,
	}, results[0])
}

func TestFindMatchingAffairs_ECLIShortCircuits(t *testing.T) {
	t.Parallel()

	m, finder := newTestMatcher(
		domain.Affair{
			ID:           "a1",
			PoliticianID: "p2",
			Title:        "Something else entirely",
			Category:     domain.CategoryViolence,
			ECLI:         "ECLI:FR:CCASS:2020:CR12345",
		},
		domain.Affair{ID: "a2", PoliticianID: "p1", Title: "Affaire des assistants", PourvoiNumber: "19-87.654"},
	)

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID:  "p1",
		Title:         "Affaire des assistants",
		ECLI:          "ECLI:FR:CCASS:2020:CR12345",
		PourvoiNumber: "19-87.654",
		Category:      domain.CategoryEmploiFictif,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].AffairID)
	assert.Equal(t, domain.ConfidenceCertain, results[0].Confidence)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, domain.MatchByECLI, results[0].MatchedBy)
	assert.Empty(t, finder.queries, "no other pass may run after an ECLI hit")
}

func TestFindMatchingAffairs_UnknownECLIFallsThrough(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{ID: "a1", PoliticianID: "p1", PourvoiNumber: "20-11.111", Title: "Arrêt"})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID:  "p1",
		ECLI:          "ECLI:FR:CCASS:2021:UNKNOWN",
		PourvoiNumber: "20-11.111",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchByPourvoi, results[0].MatchedBy)
	assert.Equal(t, 0.95, results[0].Score)
}

func TestFindMatchingAffairs_EarlierPassWins(t *testing.T) {
	t.Parallel()

	verdict := day(2021, time.March, 1)
	m, _ := newTestMatcher(domain.Affair{
		ID:            "x",
		PoliticianID:  "p1",
		Title:         "Affaire des sondages",
		Category:      domain.CategoryFavoritisme,
		PourvoiNumber: "21-80.001",
		CaseNumbers:   []string{"RG 18/001"},
		VerdictDate:   verdict,
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID:  "p1",
		Title:         "Affaire des sondages",
		Category:      domain.CategoryFavoritisme,
		PourvoiNumber: "21-80.001",
		CaseNumbers:   []string{"RG 18/001"},
		VerdictDate:   verdict,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchByPourvoi, results[0].MatchedBy)
	assert.Equal(t, domain.ConfidenceHigh, results[0].Confidence)
}

func TestFindMatchingAffairs_SortedByScore(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(
		domain.Affair{ID: "date", PoliticianID: "p1", Title: "Autre dossier", Category: domain.CategoryCorruption, VerdictDate: day(2020, time.June, 20)},
		domain.Affair{ID: "partial", PoliticianID: "p1", Title: "Affaire Karachi volet financier", Category: domain.CategoryBlanchiment},
		domain.Affair{ID: "case", PoliticianID: "p1", Title: "Dossier 2", CaseNumbers: []string{"RG 12/345", "RG 12/346"}},
		domain.Affair{ID: "pourvoi", PoliticianID: "p1", Title: "Dossier 3", PourvoiNumber: "19-81.000"},
		domain.Affair{ID: "exact", PoliticianID: "p1", Title: "[À VÉRIFIER] Affaire Karachi"},
	)

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID:  "p1",
		Title:         "Affaire Karachi",
		Category:      domain.CategoryCorruption,
		PourvoiNumber: "19-81.000",
		CaseNumbers:   []string{"RG 12/346"},
		VerdictDate:   day(2020, time.June, 1),
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for i, r := range results {
		ids = append(ids, r.AffairID)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, []string{"pourvoi", "exact", "case", "partial", "date"}, ids)

	byID := map[string]domain.MatchResult{}
	for _, r := range results {
		byID[r.AffairID] = r
	}
	assert.Equal(t, domain.MatchByTitlePartial, byID["partial"].MatchedBy)
	assert.Equal(t, domain.ConfidencePossible, byID["partial"].Confidence)
	assert.Equal(t, domain.MatchByCaseNumber, byID["case"].MatchedBy)
	assert.Equal(t, 0.80, byID["case"].Score)
}

func TestFindMatchingAffairs_TitleContainmentWithCategory(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{
		ID:           "a1",
		PoliticianID: "p1",
		Title:        "Affaire Bettencourt",
		Category:     domain.CategoryFinancementIllegalCampagne,
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID: "p1",
		Title:        "[TO VERIFY] Affaire Bettencourt (procès de Bordeaux)",
		Category:     domain.CategoryFinancementIllegalCampagne,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchByTitleCategory, results[0].MatchedBy)
	assert.Equal(t, domain.ConfidenceHigh, results[0].Confidence)
	assert.Equal(t, 0.75, results[0].Score)
}

func TestFindMatchingAffairs_CategoryAndDateOnly(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{
		ID:           "a1",
		PoliticianID: "p1",
		Title:        "Mise en examen pour corruption",
		Category:     domain.CategoryCorruption,
		VerdictDate:  day(2019, time.October, 1),
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID: "p1",
		Title:        "Affaire de corruption présumée",
		Category:     domain.CategoryCorruption,
		VerdictDate:  day(2019, time.October, 11),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchResult{
		AffairID:   "a1",
		Confidence: domain.ConfidencePossible,
		Score:      0.40,
		MatchedBy:  domain.MatchByCategoryDate,
	}, results[0])
}

func TestFindMatchingAffairs_DateOutsideWindow(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{
		ID:           "a1",
		PoliticianID: "p1",
		Title:        "Condamnation",
		Category:     domain.CategoryCorruption,
		VerdictDate:  day(2019, time.January, 1),
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID: "p1",
		Title:        "Autre chose",
		Category:     domain.CategoryCorruption,
		VerdictDate:  day(2019, time.March, 15),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindMatchingAffairs_PoliticianIsolation(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{
		ID:           "other",
		PoliticianID: "p2",
		Title:        "Affaire des emplois fictifs",
		Category:     domain.CategoryEmploiFictif,
		VerdictDate:  day(2020, time.May, 5),
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID: "p1",
		Title:        "Affaire des emplois fictifs",
		Category:     domain.CategoryEmploiFictif,
		VerdictDate:  day(2020, time.May, 5),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindMatchingAffairs_ExcludesSelf(t *testing.T) {
	t.Parallel()

	self := domain.Affair{
		ID:           "self",
		PoliticianID: "p1",
		Title:        "Affaire Cahuzac",
		Category:     domain.CategoryFraudeFiscale,
		ECLI:         "ECLI:FR:CCASS:2018:CR01",
	}
	m, _ := newTestMatcher(self, domain.Affair{ID: "twin", PoliticianID: "p1", Title: "Affaire Cahuzac"})

	results, err := m.FindMatchingAffairs(context.Background(), domain.CandidateFromAffair(self))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "twin", results[0].AffairID)
	assert.Equal(t, domain.MatchByTitleExact, results[0].MatchedBy)
}

func TestFindMatchingAffairs_PropagatesStorageErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	m, finder := newTestMatcher()
	finder.err = boom

	_, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{PoliticianID: "p1", ECLI: "E"})
	require.ErrorIs(t, err, boom)

	_, err = m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{PoliticianID: "p1", Title: "x"})
	require.ErrorIs(t, err, boom)
}

func TestIsDuplicate(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(
		domain.Affair{ID: "a1", PoliticianID: "p1", Title: "Affaire Fillon"},
		domain.Affair{ID: "a2", PoliticianID: "p1", Title: "Affaire des costumes offerts", Category: domain.CategoryCorruption},
	)

	dup, err := m.IsDuplicate(context.Background(), domain.MatchCandidate{PoliticianID: "p1", Title: "affaire fillon"})
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = m.IsDuplicate(context.Background(), domain.MatchCandidate{PoliticianID: "p1", Title: "Costumes"})
	require.NoError(t, err)
	assert.False(t, dup, "a POSSIBLE match does not block insertion")
}

func TestFindMatchingAffairs_BracketedPrefixIsTitleText(t *testing.T) {
	t.Parallel()

	m, _ := newTestMatcher(domain.Affair{
		ID:           "a1",
		PoliticianID: "p1",
		Title:        "[Corse] Affaire des paillotes",
		Category:     domain.CategoryAutre,
	})

	results, err := m.FindMatchingAffairs(context.Background(), domain.MatchCandidate{
		PoliticianID: "p1",
		Title:        "[Paris] Affaire des paillotes",
		Category:     domain.CategoryAutre,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}
