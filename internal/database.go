package internal

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const createLocalStorageSQL = `
CREATE TABLE IF NOT EXISTS local_storage (
	key TEXT PRIMARY KEY,
	value TEXT
)`

// SQLiteKV is the default KVStore, one row per key in the local_storage table
type SQLiteKV struct {
	db *sql.DB
}

// OpenDatabase opens (creating if needed) a SQLite database for read-write use
func OpenDatabase(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := ensureParentDir(path); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps ":memory:" on a single shared connection.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// OpenSQLiteKV opens the database at path and prepares the local_storage table
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "open", Key: path, Err: err}
	}
	kv, err := NewSQLiteKV(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// NewSQLiteKV wraps an already open database
func NewSQLiteKV(db *sql.DB) (*SQLiteKV, error) {
	if _, err := db.Exec(createLocalStorageSQL); err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "open", Err: fmt.Errorf("create table: %w", err)}
	}
	return &SQLiteKV{db: db}, nil
}

// Get returns the value stored under key
func (s *SQLiteKV) Get(key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Backend: BackendSQLite, Op: "get", Key: key, Err: err}
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}

// Set stores value under key, replacing any previous value
func (s *SQLiteKV) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO local_storage (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return &StorageError{Backend: BackendSQLite, Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key
func (s *SQLiteKV) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM local_storage WHERE key = ?", key); err != nil {
		return &StorageError{Backend: BackendSQLite, Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Keys lists every key holding a value
func (s *SQLiteKV) Keys() ([]string, error) {
	pairs, err := QueryLocalStorage(s.db, "%")
	if err != nil {
		return nil, &StorageError{Backend: BackendSQLite, Op: "keys", Err: err}
	}
	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.Key)
	}
	return keys, nil
}

// Close closes the underlying database
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

// QueryLocalStorage queries the local_storage table with a LIKE pattern
func QueryLocalStorage(db *sql.DB, pattern string) ([]KeyValuePair, error) {
	query := "SELECT key, value FROM local_storage WHERE key LIKE ? AND value IS NOT NULL ORDER BY key"
	rows, err := db.Query(query, pattern)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var pairs []KeyValuePair
	for rows.Next() {
		var pair KeyValuePair
		var value sql.NullString
		if err := rows.Scan(&pair.Key, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if value.Valid {
			pair.Value = value.String
			pairs = append(pairs, pair)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return pairs, nil
}

// KeyValuePair represents one row of local_storage
type KeyValuePair struct {
	Key   string
	Value string
}
