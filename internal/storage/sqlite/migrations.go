package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are stored as decimal strings; timestamps as Unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    paused_from TEXT NOT NULL DEFAULT '',
    current_round INTEGER NOT NULL DEFAULT 0,
    total_contributions TEXT NOT NULL DEFAULT '0',
    contribution_amount TEXT NOT NULL,
    contribution_token TEXT NOT NULL,
    contribution_interval TEXT NOT NULL,
    start_date INTEGER NOT NULL,
    max_members INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    joined_at INTEGER NOT NULL,
    role TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (group_id, member_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payout_schedule (
    group_id TEXT NOT NULL,
    round INTEGER NOT NULL,
    recipient TEXT NOT NULL,
    scheduled_date INTEGER NOT NULL,
    payout_date INTEGER,
    amount TEXT NOT NULL,
    status TEXT NOT NULL,
    PRIMARY KEY (group_id, round),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contributions (
    payment_id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    round INTEGER NOT NULL,
    amount TEXT NOT NULL,
    token TEXT NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_records (
    payment_id TEXT PRIMARY KEY,
    payer TEXT NOT NULL,
    amount TEXT NOT NULL,
    token TEXT NOT NULL,
    group_id TEXT NOT NULL DEFAULT '',
    member_id TEXT NOT NULL DEFAULT '',
    claimed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_groups_status ON groups(status);
CREATE INDEX IF NOT EXISTS idx_group_members_member_id ON group_members(member_id);
CREATE INDEX IF NOT EXISTS idx_contributions_group_round ON contributions(group_id, round);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
