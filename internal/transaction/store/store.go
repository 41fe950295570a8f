package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/transaction"
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

// scanTransaction reads a transaction row from the scanner.
// Expected column order: id, user_id, wallet_id, amount, type, description,
// raw_description, category, date, receipt_url, created_at, updated_at, deleted_at
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var rawDesc, category, receiptURL sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.WalletID, &tx.Amount, &typeStr,
		&tx.Description, &rawDesc, &category, &tx.Date, &receiptURL,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.RawDescription = rawDesc.String
	tx.Category = category.String

	if receiptURL.Valid {
		tx.ReceiptURL = &receiptURL.String
	}

	return &tx, nil
}

const selectTransactionColumns = `
	id, user_id, wallet_id, amount, type, description, raw_description,
	category, date, receipt_url, created_at, updated_at, deleted_at
`

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE id = $1 AND deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND deleted_at IS NULL`

	args := []any{userID}

	argIdx := 2

	if filter.WalletID != nil {
		query += fmt.Sprintf(" AND wallet_id = $%d", argIdx)

		args = append(args, *filter.WalletID)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

type mutationTx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (transaction.MutationTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning mutation tx: %w", err)
	}

	return &mutationTx{tx: dbTx}, nil
}

func (m *mutationTx) Commit() error   { return m.tx.Commit() }
func (m *mutationTx) Rollback() error { return m.tx.Rollback() }

const insertTransactionQuery = `
	INSERT INTO transactions (user_id, wallet_id, amount, type, description, raw_description, category, date, receipt_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	RETURNING id, created_at, updated_at
`

func insertTransaction(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, tx *transaction.Transaction,
) error {
	err := q.QueryRowContext(ctx, insertTransactionQuery,
		tx.UserID,
		tx.WalletID,
		tx.Amount,
		tx.Type,
		tx.Description,
		tx.RawDescription,
		tx.Category,
		tx.Date,
		tx.ReceiptURL,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (m *mutationTx) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return insertTransaction(ctx, m.tx, tx)
}

func (m *mutationTx) ReplaceTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET wallet_id = $1, amount = $2, type = $3, description = $4,
		    category = $5, date = $6, receipt_url = $7, updated_at = NOW()
		WHERE id = $8 AND deleted_at IS NULL
	`

	res, err := m.tx.ExecContext(ctx, query,
		tx.WalletID,
		tx.Amount,
		tx.Type,
		tx.Description,
		tx.Category,
		tx.Date,
		tx.ReceiptURL,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("replacing transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (m *mutationTx) SoftDeleteTransaction(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	res, err := m.tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// applyWalletDeltaQuery shifts the wallet aggregates in one atomic increment.
// No balance floor: overdraft is allowed.
const applyWalletDeltaQuery = `
	UPDATE wallets
	SET amount = amount + $3,
	    total_income = total_income + GREATEST($3, 0),
	    total_expenses = total_expenses + GREATEST(-$3, 0),
	    updated_at = NOW()
	WHERE id = $1 AND user_id = $2
`

func applyWalletDelta(ctx context.Context, tx *sql.Tx, walletID, userID uuid.UUID, signedAmount int64) error {
	res, err := tx.ExecContext(ctx, applyWalletDeltaQuery, walletID, userID, signedAmount)
	if err != nil {
		return fmt.Errorf("applying wallet delta: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wallet.ErrNotFound
	}

	return nil
}

func (m *mutationTx) ApplyWalletDelta(ctx context.Context, walletID, userID uuid.UUID, signedAmount int64) error {
	return applyWalletDelta(ctx, m.tx, walletID, userID, signedAmount)
}

// importLockKey derives an advisory lock key from the wallet ID so that
// concurrent imports into the same wallet are serialized.
func importLockKey(walletID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(walletID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

func (s *Store) BeginImport(ctx context.Context, walletID uuid.UUID) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(walletID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(ctx context.Context, walletID uuid.UUID, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	type lookupKey struct {
		Date           string
		Amount         int64
		Type           transaction.Type
		RawDescription string
	}

	// Find min/max dates and build the lookup set.
	minDate := params[0].Date
	maxDate := params[0].Date
	keySet := make(map[lookupKey]struct{}, len(params))

	for _, p := range params {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}

		keySet[lookupKey{
			Date:           p.Date.Format(time.DateOnly),
			Amount:         p.Amount,
			Type:           p.Type,
			RawDescription: p.RawDescription,
		}] = struct{}{}
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE wallet_id = $1 AND deleted_at IS NULL AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := itx.tx.QueryContext(ctx, query, walletID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		k := lookupKey{
			Date:           tx.Date.Format(time.DateOnly),
			Amount:         tx.Amount,
			Type:           tx.Type,
			RawDescription: tx.RawDescription,
		}

		_, found := keySet[k]
		if !found {
			continue
		}

		duplicates = append(duplicates, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		if err := insertTransaction(ctx, itx.tx, tx); err != nil {
			return err
		}
	}

	return nil
}

func (itx *importTx) ApplyWalletDelta(ctx context.Context, walletID, userID uuid.UUID, signedAmount int64) error {
	return applyWalletDelta(ctx, itx.tx, walletID, userID, signedAmount)
}
