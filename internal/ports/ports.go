package ports

import (
	"context"
	"time"

	"Poligraph/internal/domain"
)

// AffairFinder is the read-only view of persisted affairs the matcher queries.
type AffairFinder interface {
	// FindAffairByECLI returns domain.ErrNotFound when no affair carries the ECLI.
	FindAffairByECLI(ctx context.Context, ecli string) (domain.Affair, error)
	SearchAffairs(ctx context.Context, query domain.AffairQuery) ([]domain.Affair, error)
}

// AffairMatcher ranks persisted affairs that may describe the same event as a candidate.
type AffairMatcher interface {
	FindMatchingAffairs(ctx context.Context, candidate domain.MatchCandidate) ([]domain.MatchResult, error)
}

// AffairWriter persists newly discovered affairs with their sources and events.
type AffairWriter interface {
	// CreateAffair wraps domain.ErrConstraintViolation when the ECLI already exists.
	CreateAffair(ctx context.Context, affair domain.Affair) (domain.Affair, error)
}

// PoliticianStore lists the politicians discovery runs iterate over.
type PoliticianStore interface {
	ListPoliticians(ctx context.Context, filter domain.PoliticianFilter) ([]domain.Politician, error)
}

// MergeTx is the set of writes a merge performs inside one transaction.
type MergeTx interface {
	GetAffair(ctx context.Context, id string) (domain.Affair, error)
	ListSources(ctx context.Context, affairID string) ([]domain.Source, error)
	MoveSource(ctx context.Context, sourceID, toAffairID string) error
	MoveEvents(ctx context.Context, fromAffairID, toAffairID string) (int64, error)
	ListPressLinks(ctx context.Context, affairID string) ([]domain.PressArticleLink, error)
	MovePressLink(ctx context.Context, link domain.PressArticleLink, toAffairID string) error
	DeleteAffair(ctx context.Context, id string) error
	DeleteDismissedFor(ctx context.Context, affairID string) error
	UpdateIdentifiers(ctx context.Context, affairID, ecli, pourvoiNumber string, caseNumbers []string) error
	AppendAuditLog(ctx context.Context, entry domain.AuditLog) error
}

// ReconcileStore backs the reconciler: reads, dismissals and transactional merges.
type ReconcileStore interface {
	AffairFinder
	ListDismissedPairs(ctx context.Context) ([]domain.DismissedDuplicate, error)
	// DismissPair is an idempotent upsert on the sorted pair.
	DismissPair(ctx context.Context, pair domain.DismissedDuplicate) error
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx MergeTx) error) error
}

// CandidateSource yields candidate affairs for one politician and one discovery phase.
type CandidateSource interface {
	Phases() []string
	Collect(ctx context.Context, phase string, politician domain.Politician) ([]domain.CandidateAffair, error)
}

// AffairExtractor turns narrative text into structured affairs (LLM-backed).
type AffairExtractor interface {
	ExtractAffairs(ctx context.Context, politician domain.Politician, text string) ([]domain.ExtractedAffair, error)
}

// Notifier streams reconciliation digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when sweeps execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
