package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init opens the staff database and ensures all tables exist.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to staff database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS activity_records (
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        current_tier INTEGER NOT NULL,
        last_activity_at DATETIME NOT NULL,
        exempted BOOLEAN NOT NULL DEFAULT 0,
        exemption_reason TEXT NOT NULL DEFAULT '',
        PRIMARY KEY (guild_id, user_id)
    );
    CREATE INDEX IF NOT EXISTS idx_activity_last_seen
        ON activity_records (guild_id, last_activity_at);

    CREATE TABLE IF NOT EXISTS suspensions (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        reason TEXT NOT NULL,
        suspended_by TEXT NOT NULL,
        start_at DATETIME NOT NULL,
        end_at DATETIME NOT NULL,
        original_roles TEXT NOT NULL DEFAULT '[]',
        demoted_role TEXT NOT NULL DEFAULT '',
        suspended_tier INTEGER NOT NULL DEFAULT 0,
        is_permanent BOOLEAN NOT NULL DEFAULT 0,
        is_active BOOLEAN NOT NULL DEFAULT 1,
        resolved_at DATETIME,
        cancelled_by TEXT NOT NULL DEFAULT ''
    );
    CREATE INDEX IF NOT EXISTS idx_suspensions_member
        ON suspensions (guild_id, user_id);
    CREATE INDEX IF NOT EXISTS idx_suspensions_due
        ON suspensions (end_at) WHERE is_active = 1;

    CREATE TABLE IF NOT EXISTS promotion_queue (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        from_tier INTEGER NOT NULL,
        to_tier INTEGER NOT NULL,
        tickets_resolved INTEGER NOT NULL,
        support_messages INTEGER NOT NULL,
        hours_clocked_in REAL NOT NULL,
        status TEXT NOT NULL DEFAULT 'pending',
        reviewed_by TEXT NOT NULL DEFAULT '',
        reviewed_at DATETIME,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_promotion_queue_member
        ON promotion_queue (guild_id, user_id);

    CREATE TABLE IF NOT EXISTS promotion_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        from_tier INTEGER NOT NULL,
        to_tier INTEGER NOT NULL,
        reason TEXT NOT NULL,
        auto BOOLEAN NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_promotion_log_member
        ON promotion_log (guild_id, user_id);

    CREATE TABLE IF NOT EXISTS demotion_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        from_tier INTEGER NOT NULL,
        to_tier INTEGER NOT NULL,
        reason TEXT NOT NULL,
        auto BOOLEAN NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_demotion_log_member
        ON demotion_log (guild_id, user_id);`

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create staff tables: %w", err)
	}

	return db, nil
}
