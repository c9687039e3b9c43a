package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/postgres.sql
var postgresSchema string

// PostgresStore persists the ledger in PostgreSQL. Balances are NUMERIC(39,0)
// and cross the wire as decimal text, so no 128-bit value is ever narrowed.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// Init writes the ledger state and the owner's entry in one transaction.
func (s *PostgresStore) Init(ctx context.Context, genesis Genesis) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO ft_state (id, owner_id, total_supply, metadata)
        VALUES (1, $1, $2::text::numeric, $3)
        ON CONFLICT (id) DO NOTHING`, genesis.Owner, genesis.TotalSupply.String(), genesis.Metadata)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyInitialized
	}

	if _, err := tx.Exec(ctx, `INSERT INTO ft_accounts (account_id, balance)
        VALUES ($1, $2::text::numeric)
        ON CONFLICT (account_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()`,
		genesis.Owner, genesis.TotalSupply.String()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// State returns the owner and total supply.
func (s *PostgresStore) State(ctx context.Context) (State, error) {
	var (
		state  State
		supply string
	)
	err := s.db.QueryRow(ctx, `SELECT owner_id, total_supply::text FROM ft_state WHERE id = 1`).Scan(&state.Owner, &supply)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, ErrNotInitialized
		}
		return State{}, err
	}
	if state.TotalSupply, err = ParseAmount(supply); err != nil {
		return State{}, fmt.Errorf("stored total supply: %w", err)
	}
	return state, nil
}

// Metadata returns the metadata bytes stored at construction.
func (s *PostgresStore) Metadata(ctx context.Context) ([]byte, error) {
	var metadata []byte
	if err := s.db.QueryRow(ctx, `SELECT metadata FROM ft_state WHERE id = 1`).Scan(&metadata); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	return metadata, nil
}

// Balance returns the balance of account and whether it is registered.
func (s *PostgresStore) Balance(ctx context.Context, account string) (Amount, bool, error) {
	var raw string
	err := s.db.QueryRow(ctx, `SELECT balance::text FROM ft_accounts WHERE account_id = $1`, account).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Amount{}, false, nil
		}
		return Amount{}, false, err
	}
	balance, err := ParseAmount(raw)
	if err != nil {
		return Amount{}, false, fmt.Errorf("stored balance of %s: %w", account, err)
	}
	return balance, true, nil
}

// Register inserts a zero balance entry unless one exists.
func (s *PostgresStore) Register(ctx context.Context, account string) (bool, error) {
	tag, err := s.db.Exec(ctx, `INSERT INTO ft_accounts (account_id, balance) VALUES ($1, 0)
        ON CONFLICT (account_id) DO NOTHING`, account)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Unregister deletes a zero balance entry.
func (s *PostgresStore) Unregister(ctx context.Context, account string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM ft_accounts WHERE account_id = $1 AND balance = 0`, account)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
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

// Commit applies changes in one transaction. Each row is updated only if it
// still holds the value read during validation.
func (s *PostgresStore) Commit(ctx context.Context, changes Changeset) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, c := range changes.Balances {
		tag, err := tx.Exec(ctx, `UPDATE ft_accounts SET balance = $3::text::numeric, updated_at = now()
            WHERE account_id = $1 AND balance = $2::text::numeric`,
			c.Account, c.Previous.String(), c.Next.String())
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("%w: %s", ErrConcurrentModification, c.Account)
		}
	}

	if changes.Supply != nil {
		tag, err := tx.Exec(ctx, `UPDATE ft_state SET total_supply = $2::text::numeric, updated_at = now()
            WHERE id = 1 AND total_supply = $1::text::numeric`,
			changes.Supply.Previous.String(), changes.Supply.Next.String())
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("%w: total supply", ErrConcurrentModification)
		}
	}

	return tx.Commit(ctx)
}

// Accounts lists every entry ordered by account id.
func (s *PostgresStore) Accounts(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT account_id, balance::text FROM ft_accounts ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw string
		)
		if err := rows.Scan(&e.Account, &raw); err != nil {
			return nil, err
		}
		if e.Balance, err = ParseAmount(raw); err != nil {
			return nil, fmt.Errorf("stored balance of %s: %w", e.Account, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
