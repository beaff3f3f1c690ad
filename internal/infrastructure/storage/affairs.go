package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"Poligraph/internal/domain"
)

var affairColumns = []string{
	"a.id", "a.politician_id", "a.title", "a.description", "a.category", "a.status",
	"a.involvement", "a.confidence_score", "a.publication_status", "a.ecli",
	"a.pourvoi_number", "a.verdict_date", "a.facts_date", "a.verified_at",
	"a.verified_by", "a.created_at", "a.updated_at",
}

// reader holds the queries shared by the pool and by open transactions.
type reader struct {
	q  queryer
	sb sq.StatementBuilderType
}

func (r *Repository) reader() reader {
	return reader{q: r.db, sb: r.sb}
}

// FindAffairByECLI looks an affair up by its unique ECLI.
func (r *Repository) FindAffairByECLI(ctx context.Context, ecli string) (domain.Affair, error) {
	ecli = strings.TrimSpace(ecli)
	if ecli == "" {
		return domain.Affair{}, domain.NotFoundError{Resource: "affair"}
	}
	return r.reader().getAffairWhere(ctx, sq.Eq{"a.ecli": ecli}, ecli)
}

// SearchAffairs returns affairs matching every non-empty predicate of query,
// oldest first. Case numbers are always loaded; sources only on request.
func (r *Repository) SearchAffairs(ctx context.Context, query domain.AffairQuery) ([]domain.Affair, error) {
	return r.reader().searchAffairs(ctx, query)
}

// CreateAffair inserts an affair with its case numbers, sources and events atomically.
func (r *Repository) CreateAffair(ctx context.Context, affair domain.Affair) (domain.Affair, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if affair.ID == "" {
		affair.ID = uuid.NewString()
	}
	if affair.PublicationStatus == "" {
		affair.PublicationStatus = domain.PublicationDraft
	}
	affair.ConfidenceScore = domain.ClampConfidence(affair.ConfidenceScore)
	affair.CreatedAt, affair.UpdatedAt = now, now
	affair.CaseNumbers = uniqueStrings(affair.CaseNumbers)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.sb.Insert("affairs").
			Columns("id", "politician_id", "title", "description", "category", "status",
				"involvement", "confidence_score", "publication_status", "ecli", "pourvoi_number",
				"verdict_date", "facts_date", "verified_at", "verified_by", "created_at", "updated_at").
			Values(affair.ID, affair.PoliticianID, affair.Title, affair.Description,
				string(affair.Category), string(affair.Status), string(affair.Involvement),
				affair.ConfidenceScore, string(affair.PublicationStatus), stringArg(affair.ECLI),
				stringArg(affair.PourvoiNumber), timeArg(affair.VerdictDate), timeArg(affair.FactsDate),
				timeArg(affair.VerifiedAt), stringArg(affair.VerifiedBy), formatTime(now), formatTime(now)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert affair: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapWriteErr("insert affair", err)
		}

		ts := &txStore{q: tx, sb: r.sb}
		if err := ts.insertCaseNumbers(ctx, affair.ID, affair.CaseNumbers); err != nil {
			return err
		}

		seenURL := map[string]bool{}
		sources := make([]domain.Source, 0, len(affair.Sources))
		for _, src := range affair.Sources {
			if src.URL == "" || seenURL[src.URL] {
				continue
			}
			seenURL[src.URL] = true
			if src.ID == "" {
				src.ID = uuid.NewString()
			}
			src.AffairID = affair.ID
			if err := ts.insertSource(ctx, src); err != nil {
				return err
			}
			sources = append(sources, src)
		}
		affair.Sources = sources

		for i := range affair.Events {
			ev := &affair.Events[i]
			if ev.ID == "" {
				ev.ID = uuid.NewString()
			}
			ev.AffairID = affair.ID
			if err := ts.insertEvent(ctx, *ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Affair{}, err
	}
	return affair, nil
}

// LinkPressArticle attaches a press article to an affair; relinking is a no-op.
func (r *Repository) LinkPressArticle(ctx context.Context, link domain.PressArticleLink) error {
	role := link.Role
	if role == "" {
		role = "MENTION"
	}
	query, args, err := r.sb.Insert("press_article_affairs").
		Columns("article_id", "affair_id", "role").
		Values(link.ArticleID, link.AffairID, role).
		Suffix("ON CONFLICT (article_id, affair_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build link press article: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapWriteErr("link press article", err)
	}
	return nil
}

// VerifyAffair records a human confirmation, which removes the affair from reconciliation.
func (r *Repository) VerifyAffair(ctx context.Context, id, verifiedBy string) error {
	now := formatTime(time.Now())
	query, args, err := r.sb.Update("affairs").
		Set("verified_at", now).
		Set("verified_by", stringArg(verifiedBy)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build verify affair: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("verify affair: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "affair", ID: id}
	}
	return nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (rd reader) searchAffairs(ctx context.Context, query domain.AffairQuery) ([]domain.Affair, error) {
	builder := rd.sb.Select(affairColumns...).From("affairs a").OrderBy("a.created_at", "a.id")

	if query.PoliticianID != "" {
		builder = builder.Where(sq.Eq{"a.politician_id": query.PoliticianID})
	}
	if query.PourvoiNumber != "" {
		builder = builder.Where(sq.Eq{"a.pourvoi_number": query.PourvoiNumber})
	}
	if numbers := uniqueStrings(query.CaseNumbers); len(numbers) > 0 {
		args := make([]any, len(numbers))
		for i, n := range numbers {
			args[i] = n
		}
		builder = builder.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM affair_case_numbers c WHERE c.affair_id = a.id AND c.case_number IN ("+
				sq.Placeholders(len(numbers))+"))", args...))
	}
	if query.Category != "" {
		builder = builder.Where(sq.Eq{"a.category": string(query.Category)})
	}
	if query.VerdictFrom != nil {
		builder = builder.Where(sq.GtOrEq{"a.verdict_date": formatTime(*query.VerdictFrom)})
	}
	if query.VerdictTo != nil {
		builder = builder.Where(sq.LtOrEq{"a.verdict_date": formatTime(*query.VerdictTo)})
	}
	if query.Unverified {
		builder = builder.Where(sq.Eq{"a.verified_at": nil})
	}
	if query.Limit > 0 {
		builder = builder.Limit(uint64(query.Limit))
	}

	sqlText, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search affairs: %w", err)
	}

	rows, err := rd.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query affairs: %w", err)
	}
	defer rows.Close()

	var affairs []domain.Affair
	for rows.Next() {
		affair, err := scanAffair(rows)
		if err != nil {
			return nil, err
		}
		affairs = append(affairs, affair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if err := rd.loadCaseNumbers(ctx, affairs); err != nil {
		return nil, err
	}
	if query.WithSources {
		if err := rd.loadSources(ctx, affairs); err != nil {
			return nil, err
		}
	}
	return affairs, nil
}

func (rd reader) getAffairWhere(ctx context.Context, pred sq.Sqlizer, label string) (domain.Affair, error) {
	sqlText, args, err := rd.sb.Select(affairColumns...).From("affairs a").Where(pred).ToSql()
	if err != nil {
		return domain.Affair{}, fmt.Errorf("build get affair: %w", err)
	}

	affair, err := scanAffair(rd.q.QueryRowContext(ctx, sqlText, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Affair{}, domain.NotFoundError{Resource: "affair", ID: label}
	}
	if err != nil {
		return domain.Affair{}, err
	}

	affairs := []domain.Affair{affair}
	if err := rd.loadCaseNumbers(ctx, affairs); err != nil {
		return domain.Affair{}, err
	}
	return affairs[0], nil
}

func (rd reader) loadCaseNumbers(ctx context.Context, affairs []domain.Affair) error {
	if len(affairs) == 0 {
		return nil
	}
	index := make(map[string]int, len(affairs))
	ids := make([]string, len(affairs))
	for i, a := range affairs {
		index[a.ID] = i
		ids[i] = a.ID
	}

	sqlText, args, err := rd.sb.Select("affair_id", "case_number").
		From("affair_case_numbers").
		Where(sq.Eq{"affair_id": ids}).
		OrderBy("affair_id", "case_number").
		ToSql()
	if err != nil {
		return fmt.Errorf("build load case numbers: %w", err)
	}
	rows, err := rd.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return fmt.Errorf("query case numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var affairID, number string
		if err := rows.Scan(&affairID, &number); err != nil {
			return fmt.Errorf("scan case number: %w", err)
		}
		if i, ok := index[affairID]; ok {
			affairs[i].CaseNumbers = append(affairs[i].CaseNumbers, number)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration: %w", err)
	}
	return nil
}

func (rd reader) loadSources(ctx context.Context, affairs []domain.Affair) error {
	if len(affairs) == 0 {
		return nil
	}
	index := make(map[string]int, len(affairs))
	ids := make([]string, len(affairs))
	for i, a := range affairs {
		index[a.ID] = i
		ids[i] = a.ID
	}

	sources, err := rd.querySources(ctx, sq.Eq{"affair_id": ids})
	if err != nil {
		return err
	}
	for _, src := range sources {
		if i, ok := index[src.AffairID]; ok {
			affairs[i].Sources = append(affairs[i].Sources, src)
		}
	}
	return nil
}

func (rd reader) querySources(ctx context.Context, pred sq.Sqlizer) ([]domain.Source, error) {
	sqlText, args, err := rd.sb.Select("id", "affair_id", "url", "title", "publisher", "source_type", "published_at").
		From("sources").
		Where(pred).
		OrderBy("affair_id", "url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query sources: %w", err)
	}
	rows, err := rd.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src        domain.Source
			sourceType string
			published  nullTime
		)
		if err := rows.Scan(&src.ID, &src.AffairID, &src.URL, &src.Title, &src.Publisher, &sourceType, &published); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.SourceType = domain.SourceType(sourceType)
		src.PublishedAt = published.ptr()
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAffair(row rowScanner) (domain.Affair, error) {
	var (
		a                                          domain.Affair
		category, status, involvement, pub         string
		ecli, pourvoi, verifiedBy                  sql.NullString
		verdict, facts, verified, created, updated nullTime
	)
	err := row.Scan(&a.ID, &a.PoliticianID, &a.Title, &a.Description, &category, &status,
		&involvement, &a.ConfidenceScore, &pub, &ecli, &pourvoi, &verdict, &facts, &verified,
		&verifiedBy, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Affair{}, err
	}
	if err != nil {
		return domain.Affair{}, fmt.Errorf("scan affair: %w", err)
	}

	a.Category = domain.Category(category)
	a.Status = domain.Status(status)
	a.Involvement = domain.Involvement(involvement)
	a.PublicationStatus = domain.PublicationStatus(pub)
	a.ECLI = ecli.String
	a.PourvoiNumber = pourvoi.String
	a.VerifiedBy = verifiedBy.String
	a.VerdictDate = verdict.ptr()
	a.FactsDate = facts.ptr()
	a.VerifiedAt = verified.ptr()
	a.CreatedAt = created.Time
	a.UpdatedAt = updated.Time
	return a, nil
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
