package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS local_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS funding_attempts (
	reference         TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	kind              TEXT NOT NULL,
	order_id          TEXT NOT NULL DEFAULT '',
	amount            REAL NOT NULL DEFAULT 0,
	authorization_url TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'pending',
	message           TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_funding_attempts_user_status
	ON funding_attempts(user_id, status);
CREATE INDEX IF NOT EXISTS idx_funding_attempts_created
	ON funding_attempts(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
