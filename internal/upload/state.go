package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// StateDB tracks which exports have been imported so the same file is not
// imported twice. Imports are not idempotent: every run creates workouts.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS imported_exports (
		hash        TEXT NOT NULL,
		target      TEXT NOT NULL,
		name        TEXT NOT NULL,
		size        INTEGER NOT NULL,
		workouts    INTEGER NOT NULL,
		sets        INTEGER NOT NULL,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (hash, target)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsImported reports whether an export with this hash was already imported
// into target (a server URL or a local database path).
func (s *StateDB) IsImported(hash, target string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM imported_exports WHERE hash = ? AND target = ?`,
		hash, target,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkImported records a finished import.
func (s *StateDB) MarkImported(hash, target, name string, size int64, workouts, sets int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO imported_exports (hash, target, name, size, workouts, sets) VALUES (?, ?, ?, ?, ?, ?)`,
		hash, target, name, size, workouts, sets,
	)
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
