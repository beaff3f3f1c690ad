package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
)

// DiscoveryDeps wires the driven adapters of a discovery run.
type DiscoveryDeps struct {
	Politicians ports.PoliticianStore
	Affairs     ports.AffairWriter
	Matcher     ports.AffairMatcher
	Source      ports.CandidateSource
	Logger      *slog.Logger
}

// Discovery collects candidate affairs phase by phase and persists the ones
// no existing affair already covers.
type Discovery struct {
	politicians ports.PoliticianStore
	affairs     ports.AffairWriter
	matcher     ports.AffairMatcher
	source      ports.CandidateSource
	logger      *slog.Logger
}

// NewDiscovery constructs the ingestion use case.
func NewDiscovery(deps DiscoveryDeps) *Discovery {
	return &Discovery{
		politicians: deps.Politicians,
		affairs:     deps.Affairs,
		matcher:     deps.Matcher,
		source:      deps.Source,
		logger:      deps.Logger,
	}
}

// DiscoveryOptions narrows a run. Zero values mean every politician and every phase.
type DiscoveryOptions struct {
	PoliticianSlug string
	Limit          int
	DryRun         bool
	Phases         []string
}

// PhaseReport counts what one phase produced.
type PhaseReport struct {
	Phase      string
	Candidates int
	Created    int
	Duplicates int
	Errors     int
}

// DiscoveryReport summarises a run, per phase and in total.
type DiscoveryReport struct {
	DryRun      bool
	Politicians int
	Phases      []PhaseReport
	Candidates  int
	Created     int
	Duplicates  int
	Errors      int
}

func (r *DiscoveryReport) phase(name string) *PhaseReport {
	for i := range r.Phases {
		if r.Phases[i].Phase == name {
			return &r.Phases[i]
		}
	}
	r.Phases = append(r.Phases, PhaseReport{Phase: name})
	return &r.Phases[len(r.Phases)-1]
}

func (r *DiscoveryReport) total() {
	r.Candidates, r.Created, r.Duplicates, r.Errors = 0, 0, 0, 0
	for _, p := range r.Phases {
		r.Candidates += p.Candidates
		r.Created += p.Created
		r.Duplicates += p.Duplicates
		r.Errors += p.Errors
	}
}

// runState remembers, for one run, which phase first admitted a
// politician x category pair. Candidates evaluated before an earlier phase's
// insert is visible to the matcher are caught here.
type runState struct {
	seen map[string]string
}

func crossPhaseKey(politicianID string, category domain.Category) string {
	return politicianID + "|" + string(category)
}

// Run walks politicians, then phases in order, then candidates in source order.
// Source and per-candidate failures are counted and the run continues; only
// listing politicians or a cancelled context stops it.
func (d *Discovery) Run(ctx context.Context, opts DiscoveryOptions) (DiscoveryReport, error) {
	report := DiscoveryReport{DryRun: opts.DryRun}
	if d.politicians == nil || d.source == nil || d.matcher == nil {
		return report, fmt.Errorf("discovery is not configured")
	}
	if d.affairs == nil && !opts.DryRun {
		return report, fmt.Errorf("discovery requires an affair writer outside dry-run")
	}

	politicians, err := d.politicians.ListPoliticians(ctx, domain.PoliticianFilter{
		Slug:  opts.PoliticianSlug,
		Limit: opts.Limit,
	})
	if err != nil {
		return report, fmt.Errorf("list politicians: %w", err)
	}
	report.Politicians = len(politicians)

	phases := opts.Phases
	if len(phases) == 0 {
		phases = d.source.Phases()
	}
	for _, phase := range phases {
		report.phase(phase)
	}
	d.debug("discovery start", "politicians", len(politicians), "phases", phases, "dry_run", opts.DryRun)

	state := &runState{seen: map[string]string{}}
	for _, politician := range politicians {
		for _, phase := range phases {
			if err := ctx.Err(); err != nil {
				report.total()
				return report, err
			}
			d.runPhase(ctx, state, report.phase(phase), politician, opts.DryRun)
		}
	}

	report.total()
	d.info("discovery done",
		"politicians", report.Politicians,
		"candidates", report.Candidates,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"errors", report.Errors)
	return report, nil
}

func (d *Discovery) runPhase(ctx context.Context, state *runState, pr *PhaseReport, politician domain.Politician, dryRun bool) {
	candidates, err := d.source.Collect(ctx, pr.Phase, politician)
	if err != nil {
		pr.Errors++
		d.warn("collect candidates failed", "politician", politician.Slug, "phase", pr.Phase, "error", err)
		return
	}

	for _, candidate := range candidates {
		pr.Candidates++
		if candidate.PoliticianID == "" {
			candidate.PoliticianID = politician.ID
		}

		created, err := d.admit(ctx, state, pr.Phase, candidate, dryRun)
		switch {
		case err != nil:
			pr.Errors++
			d.warn("admit candidate failed", "politician", politician.Slug, "phase", pr.Phase, "title", candidate.Title, "error", err)
		case created:
			pr.Created++
		default:
			pr.Duplicates++
		}
	}
}

// admit is the deduplication gate. It reports whether the candidate was
// (or, in dry-run, would have been) persisted.
func (d *Discovery) admit(ctx context.Context, state *runState, phase string, candidate domain.CandidateAffair, dryRun bool) (bool, error) {
	if candidate.Category == "" {
		candidate.Category = domain.CategoryAutre
	}
	key := crossPhaseKey(candidate.PoliticianID, candidate.Category)
	if owner, ok := state.seen[key]; ok && owner != phase {
		d.debug("skip candidate seen in earlier phase", "title", candidate.Title, "phase", phase, "owner", owner)
		return false, nil
	}

	results, err := d.matcher.FindMatchingAffairs(ctx, candidate.MatchCandidate())
	if err != nil {
		return false, fmt.Errorf("match candidate: %w", err)
	}
	if domain.HasBlockingMatch(results) {
		d.debug("skip duplicate candidate", "title", candidate.Title, "affair", results[0].AffairID, "matched_by", results[0].MatchedBy)
		return false, nil
	}

	if dryRun {
		state.seen[key] = phase
		return true, nil
	}

	if _, err := d.affairs.CreateAffair(ctx, affairFromCandidate(candidate)); err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			// A concurrent run persisted the same ECLI first.
			d.debug("skip candidate on unique collision", "title", candidate.Title, "ecli", candidate.ECLI)
			return false, nil
		}
		return false, fmt.Errorf("create affair: %w", err)
	}
	state.seen[key] = phase
	return true, nil
}

func affairFromCandidate(c domain.CandidateAffair) domain.Affair {
	affair := domain.Affair{
		PoliticianID:      c.PoliticianID,
		Title:             c.Title,
		Description:       c.Description,
		Category:          c.Category,
		Status:            c.Status,
		Involvement:       c.Involvement,
		ConfidenceScore:   domain.ClampConfidence(c.ConfidenceScore),
		PublicationStatus: domain.PublicationPublished,
		ECLI:              c.ECLI,
		PourvoiNumber:     c.PourvoiNumber,
		CaseNumbers:       c.CaseNumbers,
		FactsDate:         c.FactsDate,
		VerdictDate:       c.VerdictDate,
		Sources:           c.Sources,
	}
	if affair.Category == "" {
		affair.Category = domain.CategoryAutre
	}
	if affair.Status == "" {
		affair.Status = domain.StatusEnquetePreliminaire
	}
	if affair.Involvement == "" {
		affair.Involvement = domain.InvolvementMentionedOnly
	}
	if !c.StrongEvidence {
		affair.PublicationStatus = domain.PublicationDraft
		affair.Title = domain.ProvisionalTitle(c.Title)
	}

	var sourceURL string
	if len(c.Sources) > 0 {
		sourceURL = c.Sources[0].URL
	}
	if c.FactsDate != nil {
		affair.Events = append(affair.Events, domain.AffairEvent{
			Date:      *c.FactsDate,
			Type:      domain.EventFaits,
			Title:     "Faits",
			SourceURL: sourceURL,
		})
	}
	if c.VerdictDate != nil {
		ev := domain.AffairEvent{
			Date:      *c.VerdictDate,
			Type:      domain.EventDecision,
			Title:     "Décision",
			SourceURL: sourceURL,
		}
		if affair.Status.IsConviction() {
			ev.Type, ev.Title = domain.EventCondamnation, "Condamnation"
		}
		affair.Events = append(affair.Events, ev)
	}
	return affair
}

func (d *Discovery) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Discovery) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Discovery) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
