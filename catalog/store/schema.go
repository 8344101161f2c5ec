package store

// Schema for the API record store. The FTS5 index mirrors the searchable text
// columns of apis through content triggers; search_log records every resolved
// search for offline analysis of coverage gaps.
const Schema = `
CREATE TABLE IF NOT EXISTS apis (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	tldr        TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	doc_url     TEXT NOT NULL DEFAULT '',
	logo        TEXT NOT NULL DEFAULT '',
	embedding   BLOB,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS apis_fts USING fts5(
	id, title, description, tldr,
	content='apis',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS apis_ai AFTER INSERT ON apis BEGIN
	INSERT INTO apis_fts(rowid, id, title, description, tldr)
	VALUES (new.rowid, new.id, new.title, new.description, new.tldr);
END;

CREATE TRIGGER IF NOT EXISTS apis_ad AFTER DELETE ON apis BEGIN
	INSERT INTO apis_fts(apis_fts, rowid, id, title, description, tldr)
	VALUES ('delete', old.rowid, old.id, old.title, old.description, old.tldr);
END;

CREATE TRIGGER IF NOT EXISTS apis_au AFTER UPDATE ON apis BEGIN
	INSERT INTO apis_fts(apis_fts, rowid, id, title, description, tldr)
	VALUES ('delete', old.rowid, old.id, old.title, old.description, old.tldr);
	INSERT INTO apis_fts(rowid, id, title, description, tldr)
	VALUES (new.rowid, new.id, new.title, new.description, new.tldr);
END;

CREATE TABLE IF NOT EXISTS search_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query        TEXT NOT NULL,
	source       TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	transport    TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_log_created ON search_log(created_at);
`
