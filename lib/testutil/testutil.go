package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"hackwatch/lib/sqliteutil"
	"hackwatch/lib/telemetry"
)

type DBParams struct {
	Name string
	// the schema to apply to the database
	Schema string
	// if unspecified, it will use `:memory:`
	Path string
}

// SetupDB opens a throwaway sqlite database for a test and makes sure
// telemetry is initialized so instrumented code paths do not blow up.
func SetupDB(t testing.TB, params DBParams) (*sql.DB, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	path := params.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sqliteutil.OpenDB(params.Schema, path)
	if err != nil {
		t.Fatal(err)
	}

	return db, func() {
		db.Close()
		cleanup()
	}
}
