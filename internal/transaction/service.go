package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/category"
	"github.com/MrJamesThe3rd/spendy/internal/image"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error)

	// Begin opens a mutation transaction: document writes and wallet delta
	// application inside it commit or roll back together.
	Begin(ctx context.Context) (MutationTx, error)

	// BeginImport additionally serializes concurrent imports into the same
	// wallet.
	BeginImport(ctx context.Context, walletID uuid.UUID) (ImportTx, error)
}

// MutationTx covers a single create, update or delete. The wallet aggregate
// write happens inside the same database transaction as the document write,
// so a partial commit cannot leave the wallet out of sync.
type MutationTx interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	ReplaceTransaction(ctx context.Context, tx *Transaction) error
	SoftDeleteTransaction(ctx context.Context, id uuid.UUID) error

	// ApplyWalletDelta atomically shifts the aggregates of the caller's
	// wallet. Returns wallet.ErrNotFound when the wallet does not exist or
	// is owned by someone else.
	ApplyWalletDelta(ctx context.Context, walletID, userID uuid.UUID, signedAmount int64) error

	Commit() error
	Rollback() error
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, walletID uuid.UUID, params []CreateParams) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	ApplyWalletDelta(ctx context.Context, walletID, userID uuid.UUID, signedAmount int64) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo     Repository
	uploader image.Uploader
	folder   string
}

func NewService(repo Repository, uploader image.Uploader, folder string) *Service {
	return &Service{repo: repo, uploader: uploader, folder: folder}
}

type CreateParams struct {
	WalletID       uuid.UUID
	Amount         int64
	Type           Type
	Description    string
	RawDescription string
	Category       string
	Date           time.Time
	Receipt        *image.File
}

type ListFilter struct {
	WalletID  *uuid.UUID
	Type      *Type
	StartDate *time.Time
	EndDate   *time.Time
}

func validate(params CreateParams) error {
	if params.WalletID == uuid.Nil {
		return &ValidationError{Field: "wallet_id", Reason: "required"}
	}

	if params.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}

	if params.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	switch params.Type {
	case TypeIncome, TypeExpense:
	default:
		return &ValidationError{Field: "type", Reason: "must be income or expense"}
	}

	if params.Type == TypeExpense {
		if params.Category == "" {
			return &ValidationError{Field: "category", Reason: "required for expenses"}
		}

		if !category.Valid(params.Category) {
			return &ValidationError{Field: "category", Reason: "unknown category"}
		}
	}

	return nil
}

func signedAmount(t Type, amount int64) int64 {
	if t == TypeExpense {
		return -amount
	}

	return amount
}

// Create validates the transaction, uploads the receipt if one was attached,
// and persists the document together with the wallet delta. Nothing is
// written when validation or the upload fails.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Transaction, error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	tx := &Transaction{
		UserID:         userID,
		WalletID:       params.WalletID,
		Amount:         params.Amount,
		Type:           params.Type,
		Description:    params.Description,
		RawDescription: params.RawDescription,
		Category:       params.Category,
		Date:           params.Date,
	}

	if params.Receipt != nil {
		url, err := s.uploader.Upload(ctx, *params.Receipt, s.folder)
		if err != nil {
			return nil, fmt.Errorf("uploading receipt: %w", err)
		}

		tx.ReceiptURL = &url
	}

	mtx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mutation: %w", err)
	}
	defer mtx.Rollback()

	if err := mtx.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := mtx.ApplyWalletDelta(ctx, tx.WalletID, userID, tx.SignedAmount()); err != nil {
		return nil, fmt.Errorf("apply wallet delta: %w", err)
	}

	if err := mtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutation: %w", err)
	}

	return tx, nil
}

// Update replaces the transaction record in full, reversing the prior delta
// on the prior wallet and applying the new delta on the new wallet. When the
// wallet reference changed both wallets are updated, sequentially, inside
// the same database transaction.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params CreateParams) (*Transaction, error) {
	prior, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := validate(params); err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:             prior.ID,
		UserID:         userID,
		WalletID:       params.WalletID,
		Amount:         params.Amount,
		Type:           params.Type,
		Description:    params.Description,
		RawDescription: params.RawDescription,
		Category:       params.Category,
		Date:           params.Date,
		ReceiptURL:     prior.ReceiptURL,
		CreatedAt:      prior.CreatedAt,
	}

	if params.Receipt != nil {
		url, err := s.uploader.Upload(ctx, *params.Receipt, s.folder)
		if err != nil {
			return nil, fmt.Errorf("uploading receipt: %w", err)
		}

		tx.ReceiptURL = &url
	}

	mtx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mutation: %w", err)
	}
	defer mtx.Rollback()

	if err := mtx.ReplaceTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("replace transaction: %w", err)
	}

	// Reverse then apply. Never net the two: the wallets may differ.
	if err := mtx.ApplyWalletDelta(ctx, prior.WalletID, userID, -prior.SignedAmount()); err != nil {
		return nil, fmt.Errorf("reverse prior wallet delta: %w", err)
	}

	if err := mtx.ApplyWalletDelta(ctx, tx.WalletID, userID, tx.SignedAmount()); err != nil {
		return nil, fmt.Errorf("apply wallet delta: %w", err)
	}

	if err := mtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutation: %w", err)
	}

	return tx, nil
}

// Delete soft-deletes the transaction document and reverses its effect on
// the referenced wallet.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	prior, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	mtx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mutation: %w", err)
	}
	defer mtx.Rollback()

	if err := mtx.SoftDeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := mtx.ApplyWalletDelta(ctx, prior.WalletID, userID, -prior.SignedAmount()); err != nil {
		return fmt.Errorf("reverse wallet delta: %w", err)
	}

	if err := mtx.Commit(); err != nil {
		return fmt.Errorf("commit mutation: %w", err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.UserID != userID {
		return nil, ErrForbidden
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

// ImportBatch inserts statement rows into a wallet. Rows matching an
// existing transaction on (date, amount, type, raw description) are reported
// as conflicts instead of being written; the caller reviews them and
// resubmits through CreateBatch. On success all rows and the summed wallet
// delta commit together.
func (s *Service) ImportBatch(ctx context.Context, userID, walletID uuid.UUID, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	params, err := prepareImport(walletID, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, walletID, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	type dupKey struct {
		Date           string
		Amount         int64
		Type           Type
		RawDescription string
	}

	lookup := make(map[dupKey]*Transaction, len(duplicates))

	for _, d := range duplicates {
		k := dupKey{
			Date:           d.Date.Format(time.DateOnly),
			Amount:         d.Amount,
			Type:           d.Type,
			RawDescription: d.RawDescription,
		}
		lookup[k] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		k := dupKey{
			Date:           p.Date.Format(time.DateOnly),
			Amount:         p.Amount,
			Type:           p.Type,
			RawDescription: p.RawDescription,
		}

		existing, found := lookup[k]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	txs := paramsToTransactions(userID, newParams)
	if err := s.commitImport(ctx, itx, userID, walletID, txs); err != nil {
		return nil, err
	}

	return &ImportResult{Imported: txs}, nil
}

// CreateBatch is the confirm path after conflict review: it writes the given
// rows without duplicate detection.
func (s *Service) CreateBatch(ctx context.Context, userID, walletID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	params, err := prepareImport(walletID, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	txs := paramsToTransactions(userID, params)
	if err := s.commitImport(ctx, itx, userID, walletID, txs); err != nil {
		return nil, err
	}

	return txs, nil
}

func (s *Service) commitImport(ctx context.Context, itx ImportTx, userID, walletID uuid.UUID, txs []*Transaction) error {
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return fmt.Errorf("create transactions: %w", err)
	}

	var delta int64
	for _, tx := range txs {
		delta += tx.SignedAmount()
	}

	if err := itx.ApplyWalletDelta(ctx, walletID, userID, delta); err != nil {
		return fmt.Errorf("apply wallet delta: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	return nil
}

// prepareImport pins every row to the target wallet, defaults the category
// for uncategorized expenses, and validates the result.
func prepareImport(walletID uuid.UUID, params []CreateParams) ([]CreateParams, error) {
	out := make([]CreateParams, len(params))

	for i, p := range params {
		p.WalletID = walletID

		if p.Type == TypeExpense && p.Category == "" {
			p.Category = "others"
		}

		if err := validate(p); err != nil {
			return nil, err
		}

		out[i] = p
	}

	return out, nil
}

func paramsToTransactions(userID uuid.UUID, params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = &Transaction{
			UserID:         userID,
			WalletID:       p.WalletID,
			Amount:         p.Amount,
			Type:           p.Type,
			Description:    p.Description,
			RawDescription: p.RawDescription,
			Category:       p.Category,
			Date:           p.Date,
		}
	}

	return txs
}
