package infra

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/ftledger/internal/ledger"
)

// LedgerBackend is an opened ledger store together with the handle it owns.
// At most one of DB and SQLite is set; both are nil for the memory store.
type LedgerBackend struct {
	Store  ledger.Store
	DB     *pgxpool.Pool
	SQLite *sql.DB
	Kind   string
}

// OpenLedger selects the ledger backend: PostgreSQL when databaseURL is set,
// SQLite when sqlitePath is set, memory otherwise. Schemas are applied on
// open.
func OpenLedger(ctx context.Context, databaseURL, sqlitePath string) (LedgerBackend, error) {
	switch {
	case databaseURL != "":
		pool, err := NewPostgresPool(ctx, databaseURL)
		if err != nil {
			return LedgerBackend{}, err
		}
		store := ledger.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return LedgerBackend{}, err
		}
		return LedgerBackend{Store: store, DB: pool, Kind: "postgres"}, nil

	case sqlitePath != "":
		db, err := OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return LedgerBackend{}, err
		}
		store, err := ledger.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return LedgerBackend{}, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return LedgerBackend{Store: store, SQLite: db, Kind: "sqlite"}, nil

	default:
		return LedgerBackend{Store: ledger.NewInMemory(), Kind: "memory"}, nil
	}
}

// Close releases the database handle, if any.
func (b LedgerBackend) Close() error {
	if b.DB != nil {
		b.DB.Close()
	}
	if b.SQLite != nil {
		return b.SQLite.Close()
	}
	return nil
}
