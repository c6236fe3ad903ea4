// Package store persists cracked passwords and search attempts in SQLite.
// The cracked table acts as a potfile: a digest looked up once is answered
// from the database without walking any table again.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Attempt is one recorded search: what was looked for, against which table,
// and whether it was found.
type Attempt struct {
	ID        string
	Digest    string
	TablePath string
	Found     bool
	Password  []byte // filled from the cracked table when found
	Duration  time.Duration
	Timestamp time.Time
}

// Stats summarizes the store contents.
type Stats struct {
	Attempts    int
	Found       int
	Cracked     int
	AvgDuration time.Duration
}

// Store manages the rainbow results database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the results store at path.
func NewStore(path string) (*Store, error) {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: path,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	-- Potfile: every digest ever cracked, keyed by lowercase hex
	CREATE TABLE IF NOT EXISTS cracked (
		hash TEXT PRIMARY KEY,
		password BLOB NOT NULL,
		source TEXT,
		cracked_at DATETIME NOT NULL
	);

	-- Attempt history
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		table_path TEXT,
		found INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_digest ON attempts(digest);
	CREATE INDEX IF NOT EXISTS idx_attempts_timestamp ON attempts(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POTFILE OPERATIONS
// =============================================================================

// RecordCracked stores a cracked digest/password pair. Re-cracking the same
// digest is a no-op; the first recorded password wins.
func (s *Store) RecordCracked(digest string, password []byte, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO cracked (hash, password, source, cracked_at)
		VALUES (?, ?, ?, ?)
	`, digest, password, source, time.Now())

	if err != nil {
		return fmt.Errorf("failed to record cracked password: %w", err)
	}
	return nil
}

// LookupCracked returns the stored password for a digest, if any.
func (s *Store) LookupCracked(digest string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var password []byte
	err := s.db.QueryRow(`SELECT password FROM cracked WHERE hash = ?`, digest).Scan(&password)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up digest: %w", err)
	}
	return password, true, nil
}

// CrackedCount returns the number of potfile entries.
func (s *Store) CrackedCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cracked`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// =============================================================================
// ATTEMPT OPERATIONS
// =============================================================================

// RecordAttempt stores a search attempt.
func (s *Store) RecordAttempt(att *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	if att.Timestamp.IsZero() {
		att.Timestamp = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO attempts (id, digest, table_path, found, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, att.ID, att.Digest, att.TablePath, att.Found, att.Duration.Milliseconds(), att.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// GetHistory retrieves recent attempts, newest first. Found attempts carry
// the cracked password when the potfile still has it.
func (s *Store) GetHistory(limit int) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT a.id, a.digest, a.table_path, a.found, a.duration_ms, a.timestamp, c.password
		FROM attempts a
		LEFT JOIN cracked c ON a.digest = c.hash
		ORDER BY a.timestamp DESC, a.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var att Attempt
		var tablePath sql.NullString
		var durationMs int64
		if err := rows.Scan(&att.ID, &att.Digest, &tablePath, &att.Found,
			&durationMs, &att.Timestamp, &att.Password); err != nil {
			continue
		}
		att.TablePath = tablePath.String
		att.Duration = time.Duration(durationMs) * time.Millisecond
		attempts = append(attempts, att)
	}
	return attempts, rows.Err()
}

// GetStats summarizes attempts and potfile contents.
func (s *Store) GetStats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	var avgMs sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(found), 0), AVG(duration_ms) FROM attempts
	`).Scan(&stats.Attempts, &stats.Found, &avgMs)
	if err != nil {
		return nil, fmt.Errorf("failed to read attempt stats: %w", err)
	}
	if avgMs.Valid {
		stats.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cracked`).Scan(&stats.Cracked); err != nil {
		return nil, fmt.Errorf("failed to read potfile stats: %w", err)
	}

	return &stats, nil
}
