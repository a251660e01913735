package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database with the
// local_storage table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// ":memory:" is per connection
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create local_storage table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateTestDB creates an in-memory database seeded with records as the
// browser version of the app wrote them
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	InsertRecord(t, db, "active_session", LegacyActiveSessionJSON)
	InsertRecord(t, db, "chat_history", LegacyChatHistoryJSON)
	InsertRecord(t, db, "app_theme", "nocturnal")
	InsertRecord(t, db, "preferred_religion", "Budismo")

	return db
}

// InsertRecord stores value under key
func InsertRecord(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	insertSQL := "INSERT OR REPLACE INTO local_storage (key, value) VALUES (?, ?)"
	if _, err := db.Exec(insertSQL, key, value); err != nil {
		t.Fatalf("Failed to insert %s: %v", key, err)
	}
}

// ReadRecord returns the value stored under key, or "" when absent
func ReadRecord(t *testing.T, db *sql.DB, key string) string {
	t.Helper()
	var value sql.NullString
	err := db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		t.Fatalf("Failed to read %s: %v", key, err)
	}
	return value.String
}
