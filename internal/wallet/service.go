package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/image"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=wallet
type Repository interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	ListWallets(ctx context.Context, userID uuid.UUID) ([]*Wallet, error)
	UpdateWallet(ctx context.Context, id uuid.UUID, params UpdateParams) error

	// DeleteWallet removes the wallet and all transactions referencing it
	// in a single database transaction.
	DeleteWallet(ctx context.Context, id uuid.UUID) error

	// ApplyDelta shifts the wallet aggregates by signedAmount in one atomic
	// increment: amount += d, totalIncome += max(d,0), totalExpenses += max(-d,0).
	ApplyDelta(ctx context.Context, id uuid.UUID, signedAmount int64) error

	// Recompute rebuilds the aggregates from the live transaction history.
	Recompute(ctx context.Context, id uuid.UUID) (*Wallet, error)
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
	Name string
	Icon *image.File
}

type UpdateParams struct {
	Name     *string
	ImageURL *string
}

// Create uploads the icon (if any) and persists a wallet with zeroed
// aggregates. A failed upload aborts before any document write.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Wallet, error) {
	if params.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}

	w := &Wallet{
		UserID: userID,
		Name:   params.Name,
	}

	if params.Icon != nil {
		url, err := s.uploader.Upload(ctx, *params.Icon, s.folder)
		if err != nil {
			return nil, fmt.Errorf("uploading wallet icon: %w", err)
		}

		w.ImageURL = &url
	}

	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// Get returns the wallet after verifying ownership.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}

	if w.UserID != userID {
		return nil, ErrForbidden
	}

	return w, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Wallet, error) {
	return s.repo.ListWallets(ctx, userID)
}

// Update changes name and icon only. Aggregate fields are engine-owned and
// cannot be written through here.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, name *string, icon *image.File) (*Wallet, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	if name != nil && *name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	params := UpdateParams{Name: name}

	if icon != nil {
		url, err := s.uploader.Upload(ctx, *icon, s.folder)
		if err != nil {
			return nil, fmt.Errorf("uploading wallet icon: %w", err)
		}

		params.ImageURL = &url
	}

	if err := s.repo.UpdateWallet(ctx, id, params); err != nil {
		return nil, err
	}

	return s.repo.GetWallet(ctx, id)
}

// Delete removes the wallet together with every transaction that references
// it. The two deletes commit or roll back as one.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	return s.repo.DeleteWallet(ctx, id)
}

// Recompute rebuilds the wallet aggregates from the transaction history.
// It is the reconcile path for state corrupted outside this service.
func (s *Service) Recompute(ctx context.Context, userID, id uuid.UUID) (*Wallet, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	return s.repo.Recompute(ctx, id)
}
