package store

// schema 在每次 Open 时执行（幂等）。
//
// snapshots 以 (kind, key, digest) 去重：同一份文档内容只落库一次。
// units 保存层级单位（kraj/okres/obec/okrsek/stat）的元信息，party_results 保存各层级的政党票数。
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	key TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	digest TEXT NOT NULL,
	generated_at TEXT NOT NULL DEFAULT '',
	fetched_at TEXT NOT NULL,
	UNIQUE(kind, key, digest)
);

CREATE TABLE IF NOT EXISTS progress (
	snapshot_id INTEGER NOT NULL,
	level TEXT NOT NULL,
	unit_code TEXT NOT NULL DEFAULT '',
	total_units INTEGER NOT NULL,
	counted_units INTEGER NOT NULL,
	counted_pct REAL NOT NULL,
	voters INTEGER NOT NULL,
	ballots INTEGER NOT NULL,
	valid_votes INTEGER NOT NULL,
	turnout REAL NOT NULL,
	FOREIGN KEY(snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS units (
	snapshot_id INTEGER NOT NULL,
	level TEXT NOT NULL,
	code TEXT NOT NULL,
	parent_code TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	processed INTEGER NOT NULL DEFAULT 0,
	counted_units INTEGER NOT NULL DEFAULT 0,
	total_units INTEGER NOT NULL DEFAULT 0,
	valid_votes INTEGER NOT NULL DEFAULT 0,
	turnout REAL NOT NULL DEFAULT 0,
	FOREIGN KEY(snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS party_results (
	snapshot_id INTEGER NOT NULL,
	level TEXT NOT NULL,
	unit_code TEXT NOT NULL DEFAULT '',
	parent_code TEXT NOT NULL DEFAULT '',
	party_code TEXT NOT NULL,
	party_name TEXT NOT NULL DEFAULT '',
	votes INTEGER NOT NULL,
	percentage REAL,
	FOREIGN KEY(snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS candidates (
	snapshot_id INTEGER NOT NULL,
	party_code TEXT NOT NULL,
	region_code TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL DEFAULT '',
	title_before TEXT NOT NULL DEFAULT '',
	title_after TEXT NOT NULL DEFAULT '',
	pref_votes INTEGER NOT NULL,
	pref_percentage REAL NOT NULL,
	elected INTEGER NOT NULL,
	FOREIGN KEY(snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_party_results_lookup ON party_results(level, unit_code, snapshot_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_kind_key ON snapshots(kind, key, id);
`
