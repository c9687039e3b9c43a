package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLiteStore persists the ledger in a SQLite database. It expects a handle
// limited to one open connection; SQLite allows a single writer anyway.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore applies the schema and returns a store backed by db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Init(ctx context.Context, genesis Genesis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin init: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	res, err := tx.ExecContext(ctx, `INSERT INTO ft_state (id, owner_id, total_supply, metadata)
		VALUES (1, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		genesis.Owner, genesis.TotalSupply.String(), genesis.Metadata)
	if err != nil {
		return fmt.Errorf("insert state: %w", err)
	}
	n, err := rowsAffected(res, "insert state")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyInitialized
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO ft_accounts (account_id, balance) VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET balance = excluded.balance, updated_at = CURRENT_TIMESTAMP`,
		genesis.Owner, genesis.TotalSupply.String()); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) State(ctx context.Context) (State, error) {
	var (
		state  State
		supply string
	)
	err := s.db.QueryRowContext(ctx, `SELECT owner_id, total_supply FROM ft_state WHERE id = 1`).Scan(&state.Owner, &supply)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNotInitialized
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	if state.TotalSupply, err = ParseAmount(supply); err != nil {
		return State{}, fmt.Errorf("stored total supply: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) Metadata(ctx context.Context) ([]byte, error) {
	var metadata []byte
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM ft_state WHERE id = 1`).Scan(&metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return metadata, nil
}

func (s *SQLiteStore) Balance(ctx context.Context, account string) (Amount, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM ft_accounts WHERE account_id = ?`, account).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Amount{}, false, nil
	}
	if err != nil {
		return Amount{}, false, fmt.Errorf("read balance: %w", err)
	}
	balance, err := ParseAmount(raw)
	if err != nil {
		return Amount{}, false, fmt.Errorf("stored balance of %s: %w", account, err)
	}
	return balance, true, nil
}

func (s *SQLiteStore) Register(ctx context.Context, account string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO ft_accounts (account_id, balance) VALUES (?, '0')
		ON CONFLICT(account_id) DO NOTHING`, account)
	if err != nil {
		return false, fmt.Errorf("register %s: %w", account, err)
	}
	n, err := rowsAffected(res, "register "+account)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) Unregister(ctx context.Context, account string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ft_accounts WHERE account_id = ? AND balance = '0'`, account)
	if err != nil {
		return fmt.Errorf("unregister %s: %w", account, err)
	}
	n, err := rowsAffected(res, "unregister "+account)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	_, ok, err := s.Balance(ctx, account)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredAccount, account)
	}
	return fmt.Errorf("%w: %s", ErrNonZeroBalance, account)
}

func (s *SQLiteStore) Commit(ctx context.Context, changes Changeset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	for _, c := range changes.Balances {
		res, err := tx.ExecContext(ctx, `UPDATE ft_accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP
			WHERE account_id = ? AND balance = ?`, c.Next.String(), c.Account, c.Previous.String())
		if err != nil {
			return fmt.Errorf("update balance of %s: %w", c.Account, err)
		}
		n, err := rowsAffected(res, "update balance of "+c.Account)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: %s", ErrConcurrentModification, c.Account)
		}
	}

	if changes.Supply != nil {
		res, err := tx.ExecContext(ctx, `UPDATE ft_state SET total_supply = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = 1 AND total_supply = ?`, changes.Supply.Next.String(), changes.Supply.Previous.String())
		if err != nil {
			return fmt.Errorf("update total supply: %w", err)
		}
		n, err := rowsAffected(res, "update total supply")
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: total supply", ErrConcurrentModification)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Accounts(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account_id, balance FROM ft_accounts ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw string
		)
		if err := rows.Scan(&e.Account, &raw); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if e.Balance, err = ParseAmount(raw); err != nil {
			return nil, fmt.Errorf("stored balance of %s: %w", e.Account, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// rowsAffected keeps a driver failure distinct from a statement that matched
// no row.
func rowsAffected(res sql.Result, what string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", what, err)
	}
	return n, nil
}
