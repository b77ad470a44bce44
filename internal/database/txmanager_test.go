package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Connect(Config{
		Driver:           DriverSQLite,
		ConnectionString: filepath.Join(t.TempDir(), "tx.db"),
		ConnMaxLifetime:  time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = db.Exec("CREATE TABLE items (name TEXT NOT NULL UNIQUE)")
	require.NoError(t, err)
	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	return count
}

func insertItem(ctx context.Context, db *sql.DB, name string) error {
	_, err := GetTx(ctx, db).ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", name)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := setupSQLite(t)

	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		assert.IsType(t, &sql.Tx{}, GetTx(ctx, db))
		return insertItem(ctx, db, "a")
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := setupSQLite(t)

	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insertItem(ctx, db, "a"))
		// Duplicate, as a second enqueue of the same record would be.
		return insertItem(ctx, db, "a")
	})

	assert.Error(t, err)
	assert.Zero(t, countItems(t, db))
}

func TestWithTx_ReturnsCallbackError(t *testing.T) {
	db := setupSQLite(t)

	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insertItem(ctx, db, "a"))
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, countItems(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupSQLite(t)
	txManager := NewTxManager(db)

	assert.Panics(t, func() {
		_ = txManager.WithTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, insertItem(ctx, db, "a"))
			panic("boom")
		})
	})
	assert.Zero(t, countItems(t, db))

	// The connection went back to the pool usable.
	require.NoError(t, txManager.WithTx(context.Background(), func(ctx context.Context) error {
		return insertItem(ctx, db, "b")
	}))
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	db := setupSQLite(t)
	txManager := NewTxManager(db)

	err := txManager.WithTx(context.Background(), func(ctx context.Context) error {
		outer := GetTx(ctx, db)
		require.NoError(t, insertItem(ctx, db, "a"))

		require.NoError(t, txManager.WithTx(ctx, func(inner context.Context) error {
			assert.Same(t, outer, GetTx(inner, db))
			return insertItem(inner, db, "b")
		}))
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, countItems(t, db))
}

func TestWithTx_BeginFailure(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.Close())

	called := false
	err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.False(t, called)
}

func TestGetTx_WithoutTransaction(t *testing.T) {
	db := setupSQLite(t)

	assert.Same(t, db, GetTx(context.Background(), db))
}
