// Package database creates the discount schema
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
// Every statement is idempotent.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// TablesExist reports whether the schema is already in place.
func (tc *TableCreator) TablesExist(db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('issued_discounts', 'discount_events')`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return count == 2, nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS issued_discounts (code TEXT PRIMARY KEY, session_id TEXT NOT NULL, fingerprint INTEGER NOT NULL, percent_off INTEGER NOT NULL CHECK (percent_off BETWEEN 1 AND 100), expires_at TIMESTAMP NOT NULL, created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, redeemed_at TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS discount_events (id TEXT PRIMARY KEY, name TEXT NOT NULL, code TEXT NOT NULL, session_id TEXT NOT NULL, remaining_seconds INTEGER, copied BOOLEAN, created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_discount_events_name ON discount_events(name)`,
	`CREATE INDEX IF NOT EXISTS idx_discount_events_code ON discount_events(code)`,
	`CREATE INDEX IF NOT EXISTS idx_issued_discounts_expires_at ON issued_discounts(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_issued_discounts_session_id ON issued_discounts(session_id)`,
}
