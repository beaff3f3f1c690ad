package storage

// schema runs statement by statement so that both drivers accept it.
// Dates are fixed-width UTC text (see timeLayout) so range predicates compare
// the same way on PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS politicians (
		id              TEXT PRIMARY KEY,
		slug            TEXT NOT NULL UNIQUE,
		full_name       TEXT NOT NULL,
		wikidata_id     TEXT,
		wikipedia_title TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS affairs (
		id                 TEXT PRIMARY KEY,
		politician_id      TEXT NOT NULL REFERENCES politicians(id) ON DELETE CASCADE,
		title              TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		category           TEXT NOT NULL,
		status             TEXT NOT NULL,
		involvement        TEXT NOT NULL,
		confidence_score   INTEGER NOT NULL DEFAULT 0 CHECK (confidence_score BETWEEN 0 AND 100),
		publication_status TEXT NOT NULL DEFAULT 'DRAFT',
		ecli               TEXT UNIQUE,
		pourvoi_number     TEXT,
		verdict_date       TEXT,
		facts_date         TEXT,
		verified_at        TEXT,
		verified_by        TEXT,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_affairs_politician ON affairs(politician_id)`,
	`CREATE INDEX IF NOT EXISTS idx_affairs_pourvoi ON affairs(politician_id, pourvoi_number)`,
	`CREATE INDEX IF NOT EXISTS idx_affairs_category_verdict ON affairs(politician_id, category, verdict_date)`,
	`CREATE INDEX IF NOT EXISTS idx_affairs_unverified ON affairs(verified_at)`,
	`CREATE TABLE IF NOT EXISTS affair_case_numbers (
		affair_id   TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		case_number TEXT NOT NULL,
		PRIMARY KEY (affair_id, case_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_case_numbers_number ON affair_case_numbers(case_number)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id           TEXT PRIMARY KEY,
		affair_id    TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		url          TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		publisher    TEXT NOT NULL DEFAULT '',
		source_type  TEXT NOT NULL,
		published_at TEXT,
		UNIQUE (affair_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS affair_events (
		id          TEXT PRIMARY KEY,
		affair_id   TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		event_date  TEXT NOT NULL,
		event_type  TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		source_url  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_affair_events_affair ON affair_events(affair_id)`,
	`CREATE TABLE IF NOT EXISTS press_article_affairs (
		article_id TEXT NOT NULL,
		affair_id  TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		role       TEXT NOT NULL DEFAULT 'MENTION',
		PRIMARY KEY (article_id, affair_id)
	)`,
	`CREATE TABLE IF NOT EXISTS dismissed_duplicates (
		affair_id_a  TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		affair_id_b  TEXT NOT NULL REFERENCES affairs(id) ON DELETE CASCADE,
		dismissed_at TEXT NOT NULL,
		PRIMARY KEY (affair_id_a, affair_id_b)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		changes     TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id)`,
}
