// Package testdb opens a throwaway in-memory database with the schema applied.
package testdb

import (
	"testing"

	"github.com/stretchr/testify/require"
	schema "github.com/zurichjs/conference-go/internal/infrastructure/database"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/database"
)

// Open returns a migrated :memory: database closed with the test.
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: ":memory:"}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, schema.NewTableCreator().CreateSchema(db.DB))
	return db
}
