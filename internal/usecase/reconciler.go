package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
)

// digestLimit caps how many pairs a sweep digest lists.
const digestLimit = 10

// ReconcilerDeps wires the driven adapters of the reconciler.
type ReconcilerDeps struct {
	Store    ports.ReconcileStore
	Matcher  ports.AffairMatcher
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Reconciler finds duplicate affairs among unverified records and resolves
// them through explicit merge or dismiss calls.
type Reconciler struct {
	store    ports.ReconcileStore
	matcher  ports.AffairMatcher
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewReconciler constructs the reconciliation use case.
func NewReconciler(deps ReconcilerDeps) *Reconciler {
	return &Reconciler{
		store:    deps.Store,
		matcher:  deps.Matcher,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// AffairSummary is the side of a duplicate pair shown to reviewers.
type AffairSummary struct {
	ID          string
	Title       string
	SourceTypes []domain.SourceType
	CreatedAt   time.Time
}

// PotentialDuplicate is a pair the matcher links. AffairA was created first.
type PotentialDuplicate struct {
	AffairA    AffairSummary
	AffairB    AffairSummary
	Confidence domain.Confidence
	MatchedBy  domain.MatchReason
	Score      float64
}

// ReconciliationStats is recomputed on every call.
type ReconciliationStats struct {
	Unverified   int
	Duplicates   int
	ByConfidence map[domain.Confidence]int
	Dismissed    int
}

// MergeReport describes what a merge moved, dropped and backfilled.
type MergeReport struct {
	KeepID            string
	RemoveID          string
	SourcesMoved      int
	SourcesDropped    int
	EventsMoved       int
	PressLinksMoved   int
	PressLinksDropped int
	BackfilledECLI    bool
	BackfilledPourvoi bool
	CaseNumbers       []string
}

// AutoMergeReport summarises an automatic merge pass.
type AutoMergeReport struct {
	DryRun   bool
	Eligible []PotentialDuplicate
	Merged   int
	Skipped  int
	Failed   int
}

// FindPotentialDuplicates compares every undismissed pair of unverified
// affairs of the same politician. Each pair costs one matcher call, so the
// work is quadratic in the per-politician affair count, which stays small.
func (r *Reconciler) FindPotentialDuplicates(ctx context.Context) ([]PotentialDuplicate, error) {
	_, duplicates, err := r.scan(ctx)
	return duplicates, err
}

func (r *Reconciler) scan(ctx context.Context) ([]domain.Affair, []PotentialDuplicate, error) {
	if r.store == nil || r.matcher == nil {
		return nil, nil, fmt.Errorf("reconciler is not configured")
	}

	affairs, err := r.store.SearchAffairs(ctx, domain.AffairQuery{Unverified: true, WithSources: true})
	if err != nil {
		return nil, nil, fmt.Errorf("load unverified affairs: %w", err)
	}

	pairs, err := r.store.ListDismissedPairs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load dismissed pairs: %w", err)
	}
	dismissed := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		dismissed[domain.PairKey(p.AffairIDA, p.AffairIDB)] = true
	}

	var order []string
	groups := map[string][]domain.Affair{}
	for _, a := range affairs {
		if _, ok := groups[a.PoliticianID]; !ok {
			order = append(order, a.PoliticianID)
		}
		groups[a.PoliticianID] = append(groups[a.PoliticianID], a)
	}

	var duplicates []PotentialDuplicate
	for _, politicianID := range order {
		group := groups[politicianID]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if dismissed[domain.PairKey(a.ID, b.ID)] {
					continue
				}

				results, err := r.matcher.FindMatchingAffairs(ctx, domain.CandidateFromAffair(b))
				if err != nil {
					return nil, nil, fmt.Errorf("match affair %s: %w", b.ID, err)
				}
				for _, res := range results {
					if res.AffairID != a.ID {
						continue
					}
					duplicates = append(duplicates, PotentialDuplicate{
						AffairA:    summarize(a),
						AffairB:    summarize(b),
						Confidence: res.Confidence,
						MatchedBy:  res.MatchedBy,
						Score:      res.Score,
					})
					break
				}
			}
		}
	}

	sort.SliceStable(duplicates, func(i, j int) bool {
		return duplicates[i].Score > duplicates[j].Score
	})
	r.debug("duplicate scan done", "unverified", len(affairs), "politicians", len(order), "pairs", len(duplicates))
	return affairs, duplicates, nil
}

func summarize(a domain.Affair) AffairSummary {
	return AffairSummary{
		ID:          a.ID,
		Title:       a.Title,
		SourceTypes: a.SourceTypes(),
		CreatedAt:   a.CreatedAt,
	}
}

// MergeAffairs folds removeID into keepID in one transaction. Titles and
// descriptions are left alone; identifiers are only filled where keep lacks them.
func (r *Reconciler) MergeAffairs(ctx context.Context, keepID, removeID string) (MergeReport, error) {
	report := MergeReport{KeepID: keepID, RemoveID: removeID}
	if r.store == nil {
		return report, fmt.Errorf("reconciler is not configured")
	}
	if keepID == "" || removeID == "" || keepID == removeID {
		return report, domain.ErrInvalidPair
	}

	err := r.store.WithinTx(ctx, func(tx ports.MergeTx) error {
		keep, err := tx.GetAffair(ctx, keepID)
		if err != nil {
			return fmt.Errorf("load affair to keep: %w", err)
		}
		remove, err := tx.GetAffair(ctx, removeID)
		if err != nil {
			return fmt.Errorf("load affair to remove: %w", err)
		}
		if keep.PoliticianID != remove.PoliticianID {
			return fmt.Errorf("%w: affairs belong to different politicians", domain.ErrInvalidPair)
		}

		if err := r.moveSources(ctx, tx, &report); err != nil {
			return err
		}

		moved, err := tx.MoveEvents(ctx, removeID, keepID)
		if err != nil {
			return fmt.Errorf("move events: %w", err)
		}
		report.EventsMoved = int(moved)

		if err := r.movePressLinks(ctx, tx, &report); err != nil {
			return err
		}

		// The loser goes before the backfill: its ECLI is unique.
		if err := tx.DeleteDismissedFor(ctx, removeID); err != nil {
			return fmt.Errorf("delete dismissed pairs: %w", err)
		}
		if err := tx.DeleteAffair(ctx, removeID); err != nil {
			return fmt.Errorf("delete merged affair: %w", err)
		}

		ecli, pourvoi := keep.ECLI, keep.PourvoiNumber
		if ecli == "" && remove.ECLI != "" {
			ecli, report.BackfilledECLI = remove.ECLI, true
		}
		if pourvoi == "" && remove.PourvoiNumber != "" {
			pourvoi, report.BackfilledPourvoi = remove.PourvoiNumber, true
		}
		report.CaseNumbers = unionStrings(keep.CaseNumbers, remove.CaseNumbers)
		if err := tx.UpdateIdentifiers(ctx, keepID, ecli, pourvoi, report.CaseNumbers); err != nil {
			return fmt.Errorf("backfill identifiers: %w", err)
		}

		return tx.AppendAuditLog(ctx, domain.AuditLog{
			Action:     domain.AuditMerge,
			EntityType: "Affair",
			EntityID:   keepID,
			Changes: map[string]any{
				"absorbedId":        removeID,
				"absorbedTitle":     remove.Title,
				"sourcesMoved":      report.SourcesMoved,
				"eventsMoved":       report.EventsMoved,
				"pressLinksMoved":   report.PressLinksMoved,
				"backfilledEcli":    report.BackfilledECLI,
				"backfilledPourvoi": report.BackfilledPourvoi,
			},
		})
	})
	if err != nil {
		return report, fmt.Errorf("merge %s into %s: %w", removeID, keepID, err)
	}

	r.info("affairs merged", "keep", keepID, "remove", removeID,
		"sources_moved", report.SourcesMoved, "events_moved", report.EventsMoved)
	return report, nil
}

func (r *Reconciler) moveSources(ctx context.Context, tx ports.MergeTx, report *MergeReport) error {
	kept, err := tx.ListSources(ctx, report.KeepID)
	if err != nil {
		return fmt.Errorf("list kept sources: %w", err)
	}
	urls := make(map[string]bool, len(kept))
	for _, s := range kept {
		urls[s.URL] = true
	}

	absorbed, err := tx.ListSources(ctx, report.RemoveID)
	if err != nil {
		return fmt.Errorf("list absorbed sources: %w", err)
	}
	for _, s := range absorbed {
		if urls[s.URL] {
			report.SourcesDropped++
			continue
		}
		if err := tx.MoveSource(ctx, s.ID, report.KeepID); err != nil {
			return fmt.Errorf("move source %s: %w", s.URL, err)
		}
		urls[s.URL] = true
		report.SourcesMoved++
	}
	return nil
}

func (r *Reconciler) movePressLinks(ctx context.Context, tx ports.MergeTx, report *MergeReport) error {
	kept, err := tx.ListPressLinks(ctx, report.KeepID)
	if err != nil {
		return fmt.Errorf("list kept press links: %w", err)
	}
	articles := make(map[string]bool, len(kept))
	for _, l := range kept {
		articles[l.ArticleID] = true
	}

	absorbed, err := tx.ListPressLinks(ctx, report.RemoveID)
	if err != nil {
		return fmt.Errorf("list absorbed press links: %w", err)
	}
	for _, l := range absorbed {
		if articles[l.ArticleID] {
			report.PressLinksDropped++
			continue
		}
		if err := tx.MovePressLink(ctx, l, report.KeepID); err != nil {
			return fmt.Errorf("move press link %s: %w", l.ArticleID, err)
		}
		articles[l.ArticleID] = true
		report.PressLinksMoved++
	}
	return nil
}

// DismissDuplicate records that two affairs are distinct. Repeating it is a no-op.
func (r *Reconciler) DismissDuplicate(ctx context.Context, idA, idB string) error {
	if r.store == nil {
		return fmt.Errorf("reconciler is not configured")
	}
	if idA == "" || idB == "" || idA == idB {
		return domain.ErrInvalidPair
	}
	if err := r.store.DismissPair(ctx, domain.NewDismissedDuplicate(idA, idB)); err != nil {
		return fmt.Errorf("dismiss %s: %w", domain.PairKey(idA, idB), err)
	}
	r.info("duplicate dismissed", "pair", domain.PairKey(idA, idB))
	return nil
}

// Stats recomputes the duplicate scan; nothing is cached.
func (r *Reconciler) Stats(ctx context.Context) (ReconciliationStats, error) {
	stats, _, err := r.stats(ctx)
	return stats, err
}

func (r *Reconciler) stats(ctx context.Context) (ReconciliationStats, []PotentialDuplicate, error) {
	affairs, duplicates, err := r.scan(ctx)
	if err != nil {
		return ReconciliationStats{}, nil, err
	}
	dismissed, err := r.store.ListDismissedPairs(ctx)
	if err != nil {
		return ReconciliationStats{}, nil, fmt.Errorf("count dismissed pairs: %w", err)
	}

	stats := ReconciliationStats{
		Unverified: len(affairs),
		Duplicates: len(duplicates),
		ByConfidence: map[domain.Confidence]int{
			domain.ConfidenceCertain:  0,
			domain.ConfidenceHigh:     0,
			domain.ConfidencePossible: 0,
		},
		Dismissed: len(dismissed),
	}
	for _, d := range duplicates {
		stats.ByConfidence[d.Confidence]++
	}
	return stats, duplicates, nil
}

// autoMergeable reports whether a pair shares an identifier that names a
// single court decision. Case numbers can span related proceedings and titles
// are only hints, so those pairs stay for human review.
func autoMergeable(d PotentialDuplicate) bool {
	return d.MatchedBy == domain.MatchByECLI || d.MatchedBy == domain.MatchByPourvoi
}

// AutoMerge merges every pair linked by ECLI or pourvoi number, keeping the
// older affair. Pairs touching an affair already absorbed in this pass are skipped.
func (r *Reconciler) AutoMerge(ctx context.Context, dryRun bool) (AutoMergeReport, error) {
	report := AutoMergeReport{DryRun: dryRun}

	duplicates, err := r.FindPotentialDuplicates(ctx)
	if err != nil {
		return report, err
	}
	for _, d := range duplicates {
		if autoMergeable(d) {
			report.Eligible = append(report.Eligible, d)
		}
	}
	if dryRun {
		return report, nil
	}

	removed := map[string]bool{}
	for _, d := range report.Eligible {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if removed[d.AffairA.ID] || removed[d.AffairB.ID] {
			report.Skipped++
			continue
		}
		if _, err := r.MergeAffairs(ctx, d.AffairA.ID, d.AffairB.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				report.Skipped++
				continue
			}
			report.Failed++
			r.warn("auto merge failed", "keep", d.AffairA.ID, "remove", d.AffairB.ID, "error", err)
			continue
		}
		removed[d.AffairB.ID] = true
		report.Merged++
	}
	return report, nil
}

// Sweep recomputes the stats and publishes a digest when pairs are pending.
func (r *Reconciler) Sweep(ctx context.Context) (ReconciliationStats, error) {
	stats, duplicates, err := r.stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("reconciliation sweep: %w", err)
	}
	r.info("reconciliation sweep", "unverified", stats.Unverified, "duplicates", stats.Duplicates, "dismissed", stats.Dismissed)

	if r.notifier == nil || len(duplicates) == 0 {
		return stats, nil
	}
	if err := r.notifier.PublishDigest(ctx, buildDigestMessage(stats, duplicates)); err != nil {
		return stats, fmt.Errorf("publish digest: %w", err)
	}
	return stats, nil
}

func buildDigestMessage(stats ReconciliationStats, duplicates []PotentialDuplicate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Doublons potentiels: %d (CERTAIN %d, HIGH %d, POSSIBLE %d)\n",
		stats.Duplicates,
		stats.ByConfidence[domain.ConfidenceCertain],
		stats.ByConfidence[domain.ConfidenceHigh],
		stats.ByConfidence[domain.ConfidencePossible])
	fmt.Fprintf(&b, "Affaires non vérifiées: %d, paires écartées: %d\n\n", stats.Unverified, stats.Dismissed)

	for i, d := range duplicates {
		if i == digestLimit {
			fmt.Fprintf(&b, "... et %d autres\n", len(duplicates)-digestLimit)
			break
		}
		fmt.Fprintf(&b, "- [%s %.2f %s]\n  %s (%s)\n  %s (%s)\n",
			d.Confidence, d.Score, d.MatchedBy,
			d.AffairA.Title, d.AffairA.ID,
			d.AffairB.Title, d.AffairB.ID)
	}
	return b.String()
}

func unionStrings(left, right []string) []string {
	seen := make(map[string]bool, len(left)+len(right))
	var out []string
	for _, list := range [][]string{left, right} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (r *Reconciler) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Reconciler) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Reconciler) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
