// Package localdb is the SQLite record store used on the device and by the
// command-line importer. It implements the same operations as the Postgres
// store with the schema created on open.
package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claude/liftlog/internal/health"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

var (
	_ session.Store  = (*DB)(nil)
	_ setgraph.Store = (*DB)(nil)
	_ health.Store   = (*DB)(nil)
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS exercises (
	position                INTEGER PRIMARY KEY AUTOINCREMENT,
	id                      TEXT NOT NULL UNIQUE,
	name                    TEXT NOT NULL,
	primary_muscle_groups   TEXT NOT NULL DEFAULT '[]',
	secondary_muscle_groups TEXT NOT NULL DEFAULT '[]',
	equipment               TEXT NOT NULL DEFAULT '',
	location                TEXT NOT NULL DEFAULT '',
	is_custom               INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS templates (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	location_id  TEXT NOT NULL DEFAULT '',
	exercise_ids TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS workouts (
	id           TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	template_id  TEXT
);

CREATE TABLE IF NOT EXISTS workout_sets (
	id          TEXT PRIMARY KEY,
	workout_id  TEXT NOT NULL REFERENCES workouts (id) ON DELETE CASCADE,
	exercise_id TEXT NOT NULL REFERENCES exercises (id),
	reps        INTEGER NOT NULL,
	weight      REAL NOT NULL DEFAULT 0,
	logged_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS workout_sets_exercise_idx ON workout_sets (exercise_id, logged_at);

CREATE TABLE IF NOT EXISTS user_settings (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	rest_timer_seconds INTEGER NOT NULL,
	weight_unit        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS setgraph_mappings (
	setgraph_name TEXT PRIMARY KEY,
	exercise_id   TEXT,
	needs_mapping INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS health_workouts (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	start_time           TEXT NOT NULL,
	end_time             TEXT NOT NULL,
	duration_sec         REAL NOT NULL,
	active_energy_burned REAL NOT NULL DEFAULT 0,
	active_energy_units  TEXT NOT NULL DEFAULT 'kcal'
);

CREATE TABLE IF NOT EXISTS health_metrics (
	time        TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	units       TEXT NOT NULL DEFAULT '',
	qty         REAL NOT NULL,
	PRIMARY KEY (metric_name, time, source)
);

CREATE TABLE IF NOT EXISTS sleep_sessions (
	date        TEXT PRIMARY KEY,
	total_sleep REAL NOT NULL DEFAULT 0,
	core        REAL NOT NULL DEFAULT 0,
	deep        REAL NOT NULL DEFAULT 0,
	rem         REAL NOT NULL DEFAULT 0,
	in_bed      REAL NOT NULL DEFAULT 0,
	sleep_start TEXT,
	sleep_end   TEXT
);
`

// DB is a SQLite-backed record store.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Pass MemoryPath for a throwaway store.
func Open(path string) (*DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	// One connection: an in-memory database is private to its connection,
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{`PRAGMA foreign_keys = ON`, schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating local schema: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks that the database is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, fmt.Errorf("decoding stored list %q: %w", s, err)
	}
	return list, nil
}

// notFound maps sql.ErrNoRows to models.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("querying %s: %w", what, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
