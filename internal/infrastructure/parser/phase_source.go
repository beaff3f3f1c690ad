package parser

import (
	"context"
	"fmt"
	"log/slog"

	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
	"Poligraph/internal/scanner"
)

var defaultSourceTypes = map[string]domain.SourceType{
	"wikidata":  domain.SourceWikidata,
	"wikipedia": domain.SourceWikipedia,
	"judilibre": domain.SourceJudilibre,
}

// PhaseSource implements CandidateSource via registered scanner strategies,
// one per configured discovery phase.
type PhaseSource struct {
	registry *scanner.Registry
	phases   []string
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*PhaseSource)(nil)

// NewPhaseSource wires the scanner registry with config-defined phases.
func NewPhaseSource(reg *scanner.Registry, phases []string, log *slog.Logger) *PhaseSource {
	return &PhaseSource{
		registry: reg,
		phases:   phases,
		logger:   log,
	}
}

// Phases returns the configured phase order.
func (s *PhaseSource) Phases() []string {
	return append([]string(nil), s.phases...)
}

// Collect runs the scanner registered for phase against one politician.
func (s *PhaseSource) Collect(ctx context.Context, phase string, politician domain.Politician) ([]domain.CandidateAffair, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(phase)
	if err != nil {
		return nil, &domain.SourceError{Source: phase, Politician: politician.Slug, Err: err}
	}

	results, err := strategy.Scan(ctx, scanner.Request{Politician: politician})
	if err != nil {
		return nil, &domain.SourceError{Source: phase, Politician: politician.Slug, Err: err}
	}

	for i := range results {
		if results[i].PoliticianID == "" {
			results[i].PoliticianID = politician.ID
		}
		for j := range results[i].Sources {
			if results[i].Sources[j].SourceType == "" {
				results[i].Sources[j].SourceType = defaultSourceTypes[phase]
			}
		}
	}
	s.debug("phase produced candidates", "phase", phase, "politician", politician.Slug, "count", len(results))
	return results, nil
}

func (s *PhaseSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
