package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const maxBusyTimeoutMs = 5000

// SQLiteStore persists descriptors in a SQLite database file, one row per pool
// in the pool_configs table.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	file string
}

// NewSQLiteStore opens or creates the database at filePath.
func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		file: absPath,
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS pool_configs (
		name TEXT PRIMARY KEY,
		descriptor BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string {
	return s.file
}

// Create implements the Store interface.
func (s *SQLiteStore) Create(desc *Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return closed(desc.Name)
	}

	val, err := desc.Copy().Marshal()
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO pool_configs (name, descriptor, created_at) VALUES (?, ?, ?)`,
		desc.Name, val, desc.Created.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return alreadyExists(desc.Name)
		}
		return fmt.Errorf("insert pool config: %w", err)
	}
	return nil
}

// Get implements the Store interface.
func (s *SQLiteStore) Get(name string) (*Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, closed(name)
	}

	var val []byte
	err := s.db.QueryRow(`SELECT descriptor FROM pool_configs WHERE name = ?`, name).Scan(&val)
	if err == sql.ErrNoRows {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("query pool config: %w", err)
	}

	desc := new(Descriptor)
	if err := desc.Unmarshal(val); err != nil {
		return nil, err
	}
	return desc, nil
}

// Delete implements the Store interface.
func (s *SQLiteStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return closed(name)
	}

	res, err := s.db.Exec(`DELETE FROM pool_configs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete pool config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}

// List implements the Store interface.
func (s *SQLiteStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, closed("")
	}

	rows, err := s.db.Query(`SELECT name FROM pool_configs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list pool configs: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close implements the Store interface.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
