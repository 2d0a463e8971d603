// Package storetest opens the Postgres database used by repository tests.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hrm/internal/store"
)

// EnvURL names the connection string variable. Tests skip when it is unset.
const EnvURL = "HRM_TEST_DATABASE_URL"

// Open connects to the test database and applies migrations.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skip(EnvURL + " not set")
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db.Client
}

var seq atomic.Int64

// Email returns an address no other test run has used.
func Email(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@example.test", prefix, time.Now().UnixNano(), seq.Add(1))
}
