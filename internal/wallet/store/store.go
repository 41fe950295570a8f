package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/wallet"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanWallet reads a wallet row from the scanner.
// Expected column order: id, user_id, name, image_url, amount, total_income, total_expenses, created_at, updated_at
func scanWallet(s scanner) (*wallet.Wallet, error) {
	var w wallet.Wallet

	var imageURL sql.NullString

	if err := s.Scan(
		&w.ID, &w.UserID, &w.Name, &imageURL,
		&w.Amount, &w.TotalIncome, &w.TotalExpenses,
		&w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if imageURL.Valid {
		w.ImageURL = &imageURL.String
	}

	return &w, nil
}

const selectWalletColumns = `
	id, user_id, name, image_url, amount, total_income, total_expenses, created_at, updated_at
`

func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (user_id, name, image_url, amount, total_income, total_expenses, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		w.UserID,
		w.Name,
		w.ImageURL,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, wallet.ErrNotFound
		}

		return nil, fmt.Errorf("getting wallet: %w", err)
	}

	return w, nil
}

func (s *Store) ListWallets(ctx context.Context, userID uuid.UUID) ([]*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + `
		FROM wallets
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*wallet.Wallet

	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}

		wallets = append(wallets, w)
	}

	return wallets, rows.Err()
}

func (s *Store) UpdateWallet(ctx context.Context, id uuid.UUID, params wallet.UpdateParams) error {
	query := `
		UPDATE wallets
		SET name = COALESCE($1, name),
		    image_url = COALESCE($2, image_url),
		    updated_at = NOW()
		WHERE id = $3
	`

	res, err := s.db.ExecContext(ctx, query, params.Name, params.ImageURL, id)
	if err != nil {
		return fmt.Errorf("updating wallet: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wallet.ErrNotFound
	}

	return nil
}

// DeleteWallet removes the wallet and all its transactions. Both deletes
// are wrapped in a database transaction.
func (s *Store) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE wallet_id = $1`, id); err != nil {
		return fmt.Errorf("deleting wallet transactions: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wallet.ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// deltaQuery applies a signed amount to the aggregates as one atomic
// increment, so concurrent deltas never lose updates. Overdraft is allowed:
// amount may go negative.
const deltaQuery = `
	UPDATE wallets
	SET amount = amount + $2,
	    total_income = total_income + GREATEST($2, 0),
	    total_expenses = total_expenses + GREATEST(-$2, 0),
	    updated_at = NOW()
	WHERE id = $1
`

func (s *Store) ApplyDelta(ctx context.Context, id uuid.UUID, signedAmount int64) error {
	res, err := s.db.ExecContext(ctx, deltaQuery, id, signedAmount)
	if err != nil {
		return fmt.Errorf("applying wallet delta: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wallet.ErrNotFound
	}

	return nil
}

// Recompute rebuilds the aggregates from the live transaction history and
// returns the reconciled wallet.
func (s *Store) Recompute(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		UPDATE wallets w
		SET total_income = agg.income,
		    total_expenses = agg.expenses,
		    amount = agg.income - agg.expenses,
		    updated_at = NOW()
		FROM (
			SELECT
				COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0) AS income,
				COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0) AS expenses
			FROM transactions
			WHERE wallet_id = $1 AND deleted_at IS NULL
		) agg
		WHERE w.id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("recomputing wallet aggregates: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, wallet.ErrNotFound
	}

	return s.GetWallet(ctx, id)
}
