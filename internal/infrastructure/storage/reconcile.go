package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"Poligraph/internal/domain"
	"Poligraph/internal/ports"
)

// ListDismissedPairs returns every pair a reviewer marked as distinct.
func (r *Repository) ListDismissedPairs(ctx context.Context) ([]domain.DismissedDuplicate, error) {
	sqlText, args, err := r.sb.Select("affair_id_a", "affair_id_b", "dismissed_at").
		From("dismissed_duplicates").
		OrderBy("affair_id_a", "affair_id_b").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list dismissed: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query dismissed: %w", err)
	}
	defer rows.Close()

	var pairs []domain.DismissedDuplicate
	for rows.Next() {
		var (
			pair domain.DismissedDuplicate
			at   nullTime
		)
		if err := rows.Scan(&pair.AffairIDA, &pair.AffairIDB, &at); err != nil {
			return nil, fmt.Errorf("scan dismissed: %w", err)
		}
		pair.DismissedAt = at.Time
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return pairs, nil
}

// DismissPair stores the sorted pair once; repeating it changes nothing.
func (r *Repository) DismissPair(ctx context.Context, pair domain.DismissedDuplicate) error {
	a, b := domain.SortedPair(pair.AffairIDA, pair.AffairIDB)
	sqlText, args, err := r.sb.Insert("dismissed_duplicates").
		Columns("affair_id_a", "affair_id_b", "dismissed_at").
		Values(a, b, formatTime(time.Now())).
		Suffix("ON CONFLICT (affair_id_a, affair_id_b) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build dismiss pair: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("dismiss pair: %w", err)
	}
	return nil
}

// txStore runs merge steps on an open transaction.
type txStore struct {
	q  queryer
	sb sq.StatementBuilderType
}

var _ ports.MergeTx = (*txStore)(nil)

func (t *txStore) reader() reader {
	return reader{q: t.q, sb: t.sb}
}

func (t *txStore) exec(ctx context.Context, op string, builder sq.Sqlizer) (int64, error) {
	sqlText, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}
	res, err := t.q.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, wrapWriteErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n, nil
}

func (t *txStore) GetAffair(ctx context.Context, id string) (domain.Affair, error) {
	return t.reader().getAffairWhere(ctx, sq.Eq{"a.id": id}, id)
}

func (t *txStore) ListSources(ctx context.Context, affairID string) ([]domain.Source, error) {
	return t.reader().querySources(ctx, sq.Eq{"affair_id": affairID})
}

func (t *txStore) MoveSource(ctx context.Context, sourceID, toAffairID string) error {
	_, err := t.exec(ctx, "move source", t.sb.Update("sources").
		Set("affair_id", toAffairID).
		Where(sq.Eq{"id": sourceID}))
	return err
}

func (t *txStore) MoveEvents(ctx context.Context, fromAffairID, toAffairID string) (int64, error) {
	return t.exec(ctx, "move events", t.sb.Update("affair_events").
		Set("affair_id", toAffairID).
		Where(sq.Eq{"affair_id": fromAffairID}))
}

func (t *txStore) ListPressLinks(ctx context.Context, affairID string) ([]domain.PressArticleLink, error) {
	sqlText, args, err := t.sb.Select("article_id", "affair_id", "role").
		From("press_article_affairs").
		Where(sq.Eq{"affair_id": affairID}).
		OrderBy("article_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list press links: %w", err)
	}
	rows, err := t.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query press links: %w", err)
	}
	defer rows.Close()

	var links []domain.PressArticleLink
	for rows.Next() {
		var link domain.PressArticleLink
		if err := rows.Scan(&link.ArticleID, &link.AffairID, &link.Role); err != nil {
			return nil, fmt.Errorf("scan press link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return links, nil
}

func (t *txStore) MovePressLink(ctx context.Context, link domain.PressArticleLink, toAffairID string) error {
	_, err := t.exec(ctx, "move press link", t.sb.Update("press_article_affairs").
		Set("affair_id", toAffairID).
		Where(sq.Eq{"article_id": link.ArticleID, "affair_id": link.AffairID}))
	return err
}

func (t *txStore) DeleteAffair(ctx context.Context, id string) error {
	n, err := t.exec(ctx, "delete affair", t.sb.Delete("affairs").Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundError{Resource: "affair", ID: id}
	}
	return nil
}

func (t *txStore) DeleteDismissedFor(ctx context.Context, affairID string) error {
	_, err := t.exec(ctx, "delete dismissed", t.sb.Delete("dismissed_duplicates").
		Where(sq.Or{sq.Eq{"affair_id_a": affairID}, sq.Eq{"affair_id_b": affairID}}))
	return err
}

// UpdateIdentifiers overwrites ecli and pourvoi number and adds missing case numbers.
func (t *txStore) UpdateIdentifiers(ctx context.Context, affairID, ecli, pourvoiNumber string, caseNumbers []string) error {
	n, err := t.exec(ctx, "update identifiers", t.sb.Update("affairs").
		Set("ecli", stringArg(ecli)).
		Set("pourvoi_number", stringArg(pourvoiNumber)).
		Set("updated_at", formatTime(time.Now())).
		Where(sq.Eq{"id": affairID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundError{Resource: "affair", ID: affairID}
	}
	return t.insertCaseNumbers(ctx, affairID, uniqueStrings(caseNumbers))
}

func (t *txStore) AppendAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	_, err = t.exec(ctx, "insert audit log", t.sb.Insert("audit_logs").
		Columns("id", "action", "entity_type", "entity_id", "changes", "created_at").
		Values(entry.ID, string(entry.Action), entry.EntityType, entry.EntityID, string(changes), formatTime(entry.CreatedAt)))
	return err
}

func (t *txStore) insertCaseNumbers(ctx context.Context, affairID string, numbers []string) error {
	for _, number := range numbers {
		_, err := t.exec(ctx, "insert case number", t.sb.Insert("affair_case_numbers").
			Columns("affair_id", "case_number").
			Values(affairID, number).
			Suffix("ON CONFLICT (affair_id, case_number) DO NOTHING"))
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txStore) insertSource(ctx context.Context, src domain.Source) error {
	_, err := t.exec(ctx, "insert source", t.sb.Insert("sources").
		Columns("id", "affair_id", "url", "title", "publisher", "source_type", "published_at").
		Values(src.ID, src.AffairID, src.URL, src.Title, src.Publisher, string(src.SourceType), timeArg(src.PublishedAt)))
	return err
}

func (t *txStore) insertEvent(ctx context.Context, ev domain.AffairEvent) error {
	_, err := t.exec(ctx, "insert event", t.sb.Insert("affair_events").
		Columns("id", "affair_id", "event_date", "event_type", "title", "description", "source_url").
		Values(ev.ID, ev.AffairID, formatTime(ev.Date), string(ev.Type), ev.Title, ev.Description, stringArg(ev.SourceURL)))
	return err
}

// GetAffair loads one affair with its case numbers, sources and events.
func (r *Repository) GetAffair(ctx context.Context, id string) (domain.Affair, error) {
	rd := r.reader()
	affair, err := rd.getAffairWhere(ctx, sq.Eq{"a.id": id}, id)
	if err != nil {
		return domain.Affair{}, err
	}
	if affair.Sources, err = rd.querySources(ctx, sq.Eq{"affair_id": id}); err != nil {
		return domain.Affair{}, err
	}
	if affair.Events, err = r.ListEvents(ctx, id); err != nil {
		return domain.Affair{}, err
	}
	return affair, nil
}

// ListEvents returns the timeline of an affair in date order.
func (r *Repository) ListEvents(ctx context.Context, affairID string) ([]domain.AffairEvent, error) {
	sqlText, args, err := r.sb.Select("id", "affair_id", "event_date", "event_type", "title", "description", "source_url").
		From("affair_events").
		Where(sq.Eq{"affair_id": affairID}).
		OrderBy("event_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.AffairEvent
	for rows.Next() {
		var (
			ev        domain.AffairEvent
			date      nullTime
			eventType string
			sourceURL sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.AffairID, &date, &eventType, &ev.Title, &ev.Description, &sourceURL); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Date = date.Time
		ev.Type = domain.EventType(eventType)
		ev.SourceURL = sourceURL.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return events, nil
}

// ListPressLinks returns the press articles attached to an affair.
func (r *Repository) ListPressLinks(ctx context.Context, affairID string) ([]domain.PressArticleLink, error) {
	ts := &txStore{q: r.db, sb: r.sb}
	return ts.ListPressLinks(ctx, affairID)
}

// ListAuditLogs returns the audit trail of one entity, oldest first.
func (r *Repository) ListAuditLogs(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	sqlText, args, err := r.sb.Select("id", "action", "entity_type", "entity_id", "changes", "created_at").
		From("audit_logs").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit logs: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLog
	for rows.Next() {
		var (
			entry   domain.AuditLog
			action  string
			changes string
			created nullTime
		)
		if err := rows.Scan(&entry.ID, &action, &entry.EntityType, &entry.EntityID, &changes, &created); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		entry.CreatedAt = created.Time
		if err := json.Unmarshal([]byte(changes), &entry.Changes); err != nil {
			return nil, fmt.Errorf("decode audit changes: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}
