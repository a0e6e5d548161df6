package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// TimeFormat is the layout of every timestamp column. The columns are declared TEXT so the driver
// hands back the stored string instead of converting it to time.Time; the fixed width keeps
// string comparison in chronological order.
const TimeFormat = "2006-01-02 15:04:05.000"

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// WAL lets the API read recordings while the recorder writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &DB{db}
	// Single connection avoids SQLITE_BUSY during concurrent writes.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneRecordings deletes recording sessions (and, through the foreign keys, their samples and
// messages) that started before the retention window.
func (d *DB) PruneRecordings(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC().Format(TimeFormat)
	res, err := d.Exec("DELETE FROM recording_sessions WHERE started_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS recording_sessions (
			id TEXT PRIMARY KEY,
			remote_system TEXT,
			data_port INTEGER,
			started_at TEXT NOT NULL,
			ended_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS pose_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES recording_sessions(id) ON DELETE CASCADE,
			frame INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			head_tracked BOOLEAN,
			head_x REAL, head_y REAL, head_z REAL,
			head_view_x REAL, head_view_y REAL, head_view_z REAL,
			wand_tracked BOOLEAN,
			wand_x REAL, wand_y REAL, wand_z REAL,
			wand_view_x REAL, wand_view_y REAL, wand_view_z REAL,
			buttons INTEGER,
			joystick_h REAL,
			joystick_v REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pose_samples_session ON pose_samples(session_id, frame);`,
		`CREATE TABLE IF NOT EXISTS control_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT REFERENCES recording_sessions(id) ON DELETE CASCADE,
			origin TEXT,
			status TEXT,
			frame INTEGER,
			error_id INTEGER,
			text TEXT,
			received_at TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	return nil
}
