package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Poligraph/internal/domain"
	"Poligraph/internal/infrastructure/storage"
	"Poligraph/internal/matching"
)

type reconcileFixture struct {
	repo       *storage.Repository
	reconciler *Reconciler
	notifier   *captureNotifier
}

type captureNotifier struct {
	digests []string
}

func (n *captureNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return nil
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "reconcile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(ctx))

	notifier := &captureNotifier{}
	return &reconcileFixture{
		repo:     repo,
		notifier: notifier,
		reconciler: NewReconciler(ReconcilerDeps{
			Store:    repo,
			Matcher:  matching.NewMatcher(repo, nil),
			Notifier: notifier,
		}),
	}
}

func (f *reconcileFixture) politician(t *testing.T, slug string) domain.Politician {
	t.Helper()
	p, err := f.repo.SavePolitician(context.Background(), domain.Politician{Slug: slug, FullName: slug})
	require.NoError(t, err)
	return p
}

func (f *reconcileFixture) affair(t *testing.T, a domain.Affair) domain.Affair {
	t.Helper()
	if a.Category == "" {
		a.Category = domain.CategoryAutre
	}
	if a.Status == "" {
		a.Status = domain.StatusEnquetePreliminaire
	}
	if a.Involvement == "" {
		a.Involvement = domain.InvolvementDirect
	}
	created, err := f.repo.CreateAffair(context.Background(), a)
	require.NoError(t, err)
	return created
}

func pairIDs(dups []PotentialDuplicate) [][2]string {
	out := make([][2]string, 0, len(dups))
	for _, d := range dups {
		out = append(out, [2]string{d.AffairA.ID, d.AffairB.ID})
	}
	return out
}

func TestFindPotentialDuplicatesRanksPairs(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	bygmalion := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "[À VÉRIFIER] Affaire Bygmalion",
		Category: domain.CategoryFinancementIllegalCampagne,
		Sources:  []domain.Source{{URL: "https://fr.wikipedia.org/wiki/Bygmalion", SourceType: domain.SourceWikipedia}}})
	bygmalion2 := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Affaire Bygmalion",
		Category: domain.CategoryFinancementIllegalCampagne,
		Sources:  []domain.Source{{URL: "https://www.wikidata.org/wiki/Q2", SourceType: domain.SourceWikidata}}})
	corruption := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Mise en examen pour corruption",
		Category: domain.CategoryCorruption, VerdictDate: testDate(2020, time.March, 1)})
	corruption2 := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Affaire de corruption présumée",
		Category: domain.CategoryCorruption, VerdictDate: testDate(2020, time.March, 11)})

	dups, err := f.reconciler.FindPotentialDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 2)

	assert.Equal(t, bygmalion.ID, dups[0].AffairA.ID)
	assert.Equal(t, bygmalion2.ID, dups[0].AffairB.ID)
	assert.Equal(t, domain.ConfidenceHigh, dups[0].Confidence)
	assert.Equal(t, domain.MatchByTitleExact, dups[0].MatchedBy)
	assert.InDelta(t, 0.85, dups[0].Score, 1e-9)
	assert.Equal(t, []domain.SourceType{domain.SourceWikipedia}, dups[0].AffairA.SourceTypes)
	assert.Equal(t, []domain.SourceType{domain.SourceWikidata}, dups[0].AffairB.SourceTypes)

	assert.Equal(t, [2]string{corruption.ID, corruption2.ID}, [2]string{dups[1].AffairA.ID, dups[1].AffairB.ID})
	assert.Equal(t, domain.ConfidencePossible, dups[1].Confidence)
	assert.Equal(t, domain.MatchByCategoryDate, dups[1].MatchedBy)
}

func TestFindPotentialDuplicatesIgnoresOtherPoliticiansAndVerified(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p1 := f.politician(t, "p1")
	p2 := f.politician(t, "p2")

	verdict := testDate(2018, time.June, 1)
	f.affair(t, domain.Affair{PoliticianID: p1.ID, Title: "Affaire X", Category: domain.CategoryRecel, VerdictDate: verdict})
	f.affair(t, domain.Affair{PoliticianID: p2.ID, Title: "Affaire X", Category: domain.CategoryRecel, VerdictDate: verdict})

	verified := f.affair(t, domain.Affair{PoliticianID: p1.ID, Title: "Affaire Y", Category: domain.CategoryRecel})
	f.affair(t, domain.Affair{PoliticianID: p1.ID, Title: "Affaire Y", Category: domain.CategoryRecel})
	require.NoError(t, f.repo.VerifyAffair(ctx, verified.ID, "editor"))

	dups, err := f.reconciler.FindPotentialDuplicates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestDismissDuplicateSuppressesPair(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	a := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Affaire Z", PourvoiNumber: "19-84.000"})
	b := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Autre titre", PourvoiNumber: "19-84.000"})

	dups, err := f.reconciler.FindPotentialDuplicates(ctx)
	require.NoError(t, err)
	require.Equal(t, [][2]string{{a.ID, b.ID}}, pairIDs(dups))

	require.NoError(t, f.reconciler.DismissDuplicate(ctx, b.ID, a.ID))
	require.NoError(t, f.reconciler.DismissDuplicate(ctx, a.ID, b.ID))

	dups, err = f.reconciler.FindPotentialDuplicates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dups)

	pairs, err := f.repo.ListDismissedPairs(ctx)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)

	assert.ErrorIs(t, f.reconciler.DismissDuplicate(ctx, a.ID, a.ID), domain.ErrInvalidPair)
}

func TestMergeAffairsMovesDependentsAndBackfills(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	keep := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Keep",
		PourvoiNumber: "20-80.111",
		CaseNumbers:   []string{"K1", "S1"},
		Sources: []domain.Source{
			{URL: "https://example.org/shared", SourceType: domain.SourcePresse},
			{URL: "https://example.org/keep", SourceType: domain.SourcePresse},
		}})
	remove := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Remove",
		ECLI:          "E1",
		PourvoiNumber: "20-80.999",
		CaseNumbers:   []string{"S1", "R1"},
		Sources: []domain.Source{
			{URL: "https://example.org/shared", SourceType: domain.SourceWikipedia},
			{URL: "https://example.org/remove", SourceType: domain.SourceJudilibre},
		},
		Events: []domain.AffairEvent{
			{Date: *testDate(2019, time.January, 1), Type: domain.EventFaits},
			{Date: *testDate(2020, time.January, 1), Type: domain.EventDecision},
		}})
	other := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Other"})

	require.NoError(t, f.repo.LinkPressArticle(ctx, domain.PressArticleLink{ArticleID: "art-shared", AffairID: keep.ID}))
	require.NoError(t, f.repo.LinkPressArticle(ctx, domain.PressArticleLink{ArticleID: "art-shared", AffairID: remove.ID}))
	require.NoError(t, f.repo.LinkPressArticle(ctx, domain.PressArticleLink{ArticleID: "art-remove", AffairID: remove.ID}))
	require.NoError(t, f.reconciler.DismissDuplicate(ctx, remove.ID, other.ID))

	report, err := f.reconciler.MergeAffairs(ctx, keep.ID, remove.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SourcesMoved)
	assert.Equal(t, 1, report.SourcesDropped)
	assert.Equal(t, 2, report.EventsMoved)
	assert.Equal(t, 1, report.PressLinksMoved)
	assert.Equal(t, 1, report.PressLinksDropped)
	assert.True(t, report.BackfilledECLI)
	assert.False(t, report.BackfilledPourvoi)

	got, err := f.repo.GetAffair(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Title)
	assert.Equal(t, "E1", got.ECLI)
	assert.Equal(t, "20-80.111", got.PourvoiNumber)
	assert.ElementsMatch(t, []string{"K1", "S1", "R1"}, got.CaseNumbers)
	assert.Len(t, got.Events, 2)

	urls := map[string]bool{}
	for _, s := range got.Sources {
		urls[s.URL] = true
		assert.Equal(t, keep.ID, s.AffairID)
	}
	assert.Equal(t, map[string]bool{
		"https://example.org/shared": true,
		"https://example.org/keep":   true,
		"https://example.org/remove": true,
	}, urls)

	links, err := f.repo.ListPressLinks(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	_, err = f.repo.GetAffair(ctx, remove.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pairs, err := f.repo.ListDismissedPairs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	logs, err := f.repo.ListAuditLogs(ctx, "Affair", keep.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditMerge, logs[0].Action)
	assert.Equal(t, remove.ID, logs[0].Changes["absorbedId"])
}

func TestMergeAffairsKeepsExistingECLI(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	keep := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Keep", ECLI: "E-KEEP"})
	remove := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Remove", ECLI: "E-REMOVE"})

	report, err := f.reconciler.MergeAffairs(ctx, keep.ID, remove.ID)
	require.NoError(t, err)
	assert.False(t, report.BackfilledECLI)

	got, err := f.repo.GetAffair(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "E-KEEP", got.ECLI)

	// The absorbed ECLI is free again.
	_, err = f.repo.FindAffairByECLI(ctx, "E-REMOVE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMergeAffairsBackfillsECLIScenario(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	a1 := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "a1"})
	a2 := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "a2", ECLI: "E1"})

	_, err := f.reconciler.MergeAffairs(ctx, a1.ID, a2.ID)
	require.NoError(t, err)

	got, err := f.repo.FindAffairByECLI(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, got.ID)
}

func TestMergeAffairsFailuresLeaveStateIntact(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p1 := f.politician(t, "p1")
	p2 := f.politician(t, "p2")

	a := f.affair(t, domain.Affair{PoliticianID: p1.ID, Title: "A",
		Sources: []domain.Source{{URL: "https://example.org/a", SourceType: domain.SourcePresse}}})
	other := f.affair(t, domain.Affair{PoliticianID: p2.ID, Title: "B"})

	_, err := f.reconciler.MergeAffairs(ctx, a.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.reconciler.MergeAffairs(ctx, "missing", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.reconciler.MergeAffairs(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidPair)

	_, err = f.reconciler.MergeAffairs(ctx, a.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidPair)

	got, err := f.repo.GetAffair(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Sources, 1)
	_, err = f.repo.GetAffair(ctx, other.ID)
	require.NoError(t, err)
}

func TestMergeAffairsTwiceFailsFast(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	a := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "A"})
	b := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "B"})

	_, err := f.reconciler.MergeAffairs(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = f.reconciler.MergeAffairs(ctx, a.ID, b.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStatsReflectLiveState(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	a := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Affaire A", PourvoiNumber: "1"})
	b := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Autre", PourvoiNumber: "1"})
	f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Affaire A bis", Category: domain.CategoryViolence})

	stats, err := f.reconciler.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Unverified)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 1, stats.ByConfidence[domain.ConfidenceHigh])
	assert.Equal(t, 1, stats.ByConfidence[domain.ConfidencePossible])
	assert.Zero(t, stats.ByConfidence[domain.ConfidenceCertain])
	assert.Zero(t, stats.Dismissed)

	require.NoError(t, f.reconciler.DismissDuplicate(ctx, a.ID, b.ID))

	stats, err = f.reconciler.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Dismissed)
}

func TestAutoMergeOnlyMergesIdentifierPairs(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	first := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Arrêt 1", PourvoiNumber: "21-81.000"})
	second := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Décision", PourvoiNumber: "21-81.000"})
	third := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Pourvoi rejeté", PourvoiNumber: "21-81.000"})
	titled := f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Affaire Q"})
	f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "affaire q"})

	dry, err := f.reconciler.AutoMerge(ctx, true)
	require.NoError(t, err)
	assert.Len(t, dry.Eligible, 3)
	assert.Zero(t, dry.Merged)

	report, err := f.reconciler.AutoMerge(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Merged)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)

	_, err = f.repo.GetAffair(ctx, first.ID)
	require.NoError(t, err)
	for _, id := range []string{second.ID, third.ID} {
		_, err = f.repo.GetAffair(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	dups, err := f.reconciler.FindPotentialDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, titled.ID, dups[0].AffairA.ID)
	assert.Equal(t, domain.MatchByTitleExact, dups[0].MatchedBy)
}

func TestSweepPublishesDigestOnlyWithPendingPairs(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	p := f.politician(t, "p1")

	f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "Seule"})
	_, err := f.reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.digests)

	f.affair(t, domain.Affair{PoliticianID: p.ID, Title: "[À VÉRIFIER] Seule"})
	stats, err := f.reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	require.Len(t, f.notifier.digests, 1)
	assert.Contains(t, f.notifier.digests[0], "Doublons potentiels: 1")
	assert.Contains(t, f.notifier.digests[0], "title-exact")
}
