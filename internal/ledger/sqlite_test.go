package ledger

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "ledger.db")+"?_foreign_keys=on&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteTestStore)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	open := func() *SQLiteStore {
		db, err := sql.Open("sqlite3", "file:"+path)
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		store, err := NewSQLiteStore(ctx, db)
		require.NoError(t, err)
		return store
	}

	first := open()
	l := New(first, nil)
	require.NoError(t, l.Initialize(ctx, Genesis{Owner: owner, TotalSupply: NewAmount(1_000)}))
	_, err := l.Register(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, l.Transfer(ctx, owner, alice, NewAmount(250)))
	require.NoError(t, first.Close())

	second := open()
	defer second.Close()
	l = New(second, nil)

	balance, err := l.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "250", balance.String())
	require.ErrorIs(t, l.Initialize(ctx, Genesis{Owner: owner, TotalSupply: NewAmount(1)}), ErrAlreadyInitialized)
}

type brokenResult struct{}

func (brokenResult) LastInsertId() (int64, error) { return 0, nil }
func (brokenResult) RowsAffected() (int64, error) { return 0, errors.New("driver: result unavailable") }

func TestRowsAffectedKeepsDriverError(t *testing.T) {
	_, err := rowsAffected(brokenResult{}, "update balance of alice.near")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConcurrentModification)
	require.Contains(t, err.Error(), "update balance of alice.near")
	require.Contains(t, err.Error(), "driver: result unavailable")

	var _ sql.Result = brokenResult{}
}
