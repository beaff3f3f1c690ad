package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"Poligraph/internal/domain"
)

// ListPoliticians returns politicians ordered by name, optionally narrowed to one slug.
func (r *Repository) ListPoliticians(ctx context.Context, filter domain.PoliticianFilter) ([]domain.Politician, error) {
	builder := r.sb.Select("id", "slug", "full_name", "wikidata_id", "wikipedia_title").
		From("politicians").
		OrderBy("full_name", "id")
	if filter.Slug != "" {
		builder = builder.Where(sq.Eq{"slug": filter.Slug})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	sqlText, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list politicians: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query politicians: %w", err)
	}
	defer rows.Close()

	var politicians []domain.Politician
	for rows.Next() {
		var p domain.Politician
		var wikidata, wiki sql.NullString
		if err := rows.Scan(&p.ID, &p.Slug, &p.FullName, &wikidata, &wiki); err != nil {
			return nil, fmt.Errorf("scan politician: %w", err)
		}
		p.WikidataID = wikidata.String
		p.WikipediaTitle = wiki.String
		politicians = append(politicians, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return politicians, nil
}

// SavePolitician inserts or refreshes a politician keyed by id.
func (r *Repository) SavePolitician(ctx context.Context, p domain.Politician) (domain.Politician, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	sqlText, args, err := r.sb.Insert("politicians").
		Columns("id", "slug", "full_name", "wikidata_id", "wikipedia_title").
		Values(p.ID, p.Slug, p.FullName, stringArg(p.WikidataID), stringArg(p.WikipediaTitle)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, full_name = excluded.full_name,
			wikidata_id = excluded.wikidata_id, wikipedia_title = excluded.wikipedia_title`).
		ToSql()
	if err != nil {
		return domain.Politician{}, fmt.Errorf("build save politician: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, sqlText, args...); err != nil {
		return domain.Politician{}, wrapWriteErr("save politician", err)
	}
	return p, nil
}
