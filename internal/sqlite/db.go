package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. It is safe to run on every start.
func (db *DB) RunMigrations() error {
	migration := `
-- Ingested spreadsheets
CREATE TABLE IF NOT EXISTS source_files (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    headers TEXT NOT NULL,
    tick INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Routed work and oversight approvals
CREATE TABLE IF NOT EXISTS actions (
    id TEXT PRIMARY KEY,
    source_file_id TEXT NOT NULL DEFAULT '',
    row_key TEXT NOT NULL DEFAULT '',
    site_code TEXT NOT NULL,
    device_type TEXT NOT NULL DEFAULT '',
    type_of_issue TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('execution', 'approval')),
    assigned_by_role TEXT NOT NULL,
    assigned_by_user_id TEXT NOT NULL DEFAULT '',
    assigned_to_role TEXT NOT NULL,
    assigned_to_user_id TEXT NOT NULL DEFAULT '',
    assigned_to_vendor TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('Pending', 'In Progress', 'Completed')),
    remarks TEXT NOT NULL DEFAULT '',
    photos TEXT NOT NULL DEFAULT '[]',
    origin_row_key TEXT NOT NULL DEFAULT '',
    origin_action_id TEXT NOT NULL DEFAULT '',
    submitted_by_role TEXT NOT NULL DEFAULT '',
    previous_assignees TEXT NOT NULL DEFAULT '[]',
    version INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_actions_site ON actions(site_code);
CREATE INDEX IF NOT EXISTS idx_actions_assigned_to ON actions(assigned_to_role);
CREATE INDEX IF NOT EXISTS idx_actions_assigned_by ON actions(assigned_by_role);
CREATE INDEX IF NOT EXISTS idx_actions_file ON actions(source_file_id);

-- Per-role observation markers
CREATE TABLE IF NOT EXISTS observations (
    subject TEXT NOT NULL,
    role TEXT NOT NULL,
    row_key TEXT NOT NULL DEFAULT '',
    file_id TEXT NOT NULL DEFAULT '',
    site_code TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('', 'Pending', 'Resolved')),
    remarks TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (subject, role)
);
CREATE INDEX IF NOT EXISTS idx_observations_site ON observations(site_code, role);
CREATE INDEX IF NOT EXISTS idx_observations_file ON observations(file_id);

-- Terminal approvals, append only
CREATE TABLE IF NOT EXISTS exclusions (
    file_id TEXT NOT NULL,
    row_key TEXT NOT NULL,
    site_code TEXT NOT NULL,
    approval_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (file_id, row_key, site_code)
);
CREATE INDEX IF NOT EXISTS idx_exclusions_site ON exclusions(site_code);

-- Activity log
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_code TEXT NOT NULL DEFAULT '',
    file_id TEXT NOT NULL DEFAULT '',
    action_id TEXT,
    role TEXT NOT NULL DEFAULT '',
    activity_type TEXT NOT NULL,
    summary TEXT NOT NULL,
    details TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_site_activity ON activity_log(site_code);
CREATE INDEX IF NOT EXISTS idx_action_activity ON activity_log(action_id);
CREATE INDEX IF NOT EXISTS idx_created_at ON activity_log(created_at);
`
	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
