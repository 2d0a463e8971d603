package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/apperr"
)

func TestMapError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "employees_email_key"})
	err := MapError(unique)
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
	assert.Contains(t, err.Error(), "employees_email_key")

	other := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(other), MapError(other))
	assert.NoError(t, MapError(nil))
}

func TestNilWrappers(t *testing.T) {
	var db *DB
	assert.False(t, db.Healthy(context.Background()))
	assert.NoError(t, db.Close())

	var r *Redis
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, r.Close())
}

// openTestDB connects to HRM_TEST_DATABASE_URL and migrates it, or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("HRM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HRM_TEST_DATABASE_URL not set")
	}
	db, err := NewDB(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrateAndInTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	assert.True(t, db.Healthy(ctx))

	boom := errors.New("boom")
	var id int64
	err := InTx(ctx, db.Client, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `INSERT INTO companies (name) VALUES ('rollback-probe') RETURNING id`).Scan(&id); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies WHERE id = $1`, id).Scan(&n))
	assert.Zero(t, n)
}
