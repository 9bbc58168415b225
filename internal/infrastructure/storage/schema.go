package storage

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	link TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	snippet TEXT NOT NULL,
	source_type TEXT NOT NULL,
	published_at TEXT,
	search_term TEXT,
	tier INTEGER NOT NULL,
	filter_reason TEXT,
	classification TEXT NOT NULL,
	status TEXT NOT NULL,
	needs_review TEXT NOT NULL,
	reviewed_at TEXT,
	run_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS review_queue (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	run_id TEXT NOT NULL,
	link TEXT,
	dimension TEXT,
	term TEXT,
	frequency INTEGER,
	options TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_log (
	run_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	classifier TEXT NOT NULL,
	summary TEXT NOT NULL
);
`
