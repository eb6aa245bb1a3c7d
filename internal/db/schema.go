package db

// SchemaSQL is the complete schema for fresh rvault installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use it
// via GetSchemaSQL() so repository code that references a missing column fails
// immediately with "no such column" instead of drifting.
//
// Keep in sync with migrations: a fresh install must be byte-equivalent to an
// old install with every migration applied.
const SchemaSQL = `
-- Projects (top-level research efforts; never hard-deleted)
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	objective TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('active', 'paused', 'completed', 'failed')) DEFAULT 'active',
	priority INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Branches (divergent reasoning lines; 'main' created with the project,
-- parent fixed at creation so lineage stays acyclic by construction)
CREATE TABLE IF NOT EXISTS branches (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_branch_id TEXT,
	hypothesis TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (parent_branch_id) REFERENCES branches(id),
	UNIQUE(project_id, name)
);

-- Hypotheses (statements under investigation on a branch)
CREATE TABLE IF NOT EXISTS hypotheses (
	id TEXT PRIMARY KEY,
	branch_id TEXT NOT NULL,
	statement TEXT NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0.5,
	status TEXT NOT NULL CHECK(status IN ('open', 'accepted', 'rejected', 'archived')) DEFAULT 'open',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (branch_id) REFERENCES branches(id)
);

-- Findings (append-only evidence/event rows; verification may later adjust
-- confidence and tags, nothing else mutates)
CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	branch_id TEXT NOT NULL,
	type TEXT NOT NULL,
	step INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}',
	confidence REAL NOT NULL DEFAULT 1.0,
	source TEXT NOT NULL DEFAULT 'unknown',
	tags TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (branch_id) REFERENCES branches(id)
);

CREATE INDEX IF NOT EXISTS idx_findings_project_branch ON findings(project_id, branch_id);
CREATE INDEX IF NOT EXISTS idx_findings_confidence ON findings(confidence);

-- Artifacts (registered external file references)
CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	branch_id TEXT NOT NULL,
	path TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'file',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (branch_id) REFERENCES branches(id)
);

-- Synthesis links (undirected similarity edges, stored canonically so a pair
-- can exist at most once)
CREATE TABLE IF NOT EXISTS synthesis_links (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	branch_id TEXT NOT NULL,
	from_id TEXT NOT NULL,
	to_id TEXT NOT NULL,
	kind TEXT NOT NULL CHECK(kind IN ('finding', 'artifact')) DEFAULT 'finding',
	score REAL NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (branch_id) REFERENCES branches(id),
	UNIQUE(branch_id, from_id, to_id)
);

-- Verification missions (units of corroboration/refutation work)
CREATE TABLE IF NOT EXISTS verification_missions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	finding_id TEXT NOT NULL,
	mission_type TEXT NOT NULL CHECK(mission_type IN ('SEARCH', 'REFUTE')) DEFAULT 'SEARCH',
	status TEXT NOT NULL CHECK(status IN ('open', 'blocked', 'done', 'cancelled')) DEFAULT 'open',
	note TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (finding_id) REFERENCES findings(id)
);

CREATE INDEX IF NOT EXISTS idx_missions_status ON verification_missions(project_id, status);

-- Watch targets (scheduled re-polls; next_due_at is unix seconds and doubles
-- as the optimistic-concurrency token for pass claims)
CREATE TABLE IF NOT EXISTS watch_targets (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	branch_id TEXT NOT NULL,
	type TEXT NOT NULL CHECK(type IN ('url', 'query')),
	target TEXT NOT NULL,
	interval_seconds INTEGER NOT NULL,
	tags TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('active', 'disabled')) DEFAULT 'active',
	last_checked_at INTEGER,
	next_due_at INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (branch_id) REFERENCES branches(id)
);

-- Results already ingested per watch target, keyed by normalized content hash
CREATE TABLE IF NOT EXISTS watch_seen (
	target_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (target_id, content_hash),
	FOREIGN KEY (target_id) REFERENCES watch_targets(id)
);

-- Telemetry events (append-only stream consumed by the HTTP/SSE boundary;
-- integer ids give stream consumers a resume cursor)
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Search cache (sha256 of the lowercased query, TTL enforced on read)
CREATE TABLE IF NOT EXISTS search_cache (
	query_hash TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	result TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// GetSchemaSQL returns the authoritative schema. Tests use this so their
// in-memory databases cannot drift from production.
func GetSchemaSQL() string {
	return SchemaSQL
}
