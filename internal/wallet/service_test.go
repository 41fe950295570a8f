package wallet_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/spendy/internal/image"
	"github.com/MrJamesThe3rd/spendy/internal/wallet"
)

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, file image.File, folder string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}

	return f.url, nil
}

func TestService_Create(t *testing.T) {
	userID := uuid.New()

	type testCase struct {
		name      string
		params    wallet.CreateParams
		uploader  *fakeUploader
		setupMock func(m *wallet.MockRepository)
		wantErr   bool
		wantURL   string
	}

	tests := []testCase{
		{
			name:     "Success",
			params:   wallet.CreateParams{Name: "Household"},
			uploader: &fakeUploader{},
			setupMock: func(m *wallet.MockRepository) {
				m.EXPECT().
					CreateWallet(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, w *wallet.Wallet) error {
						w.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "WithIcon",
			params: wallet.CreateParams{
				Name: "Travel",
				Icon: &image.File{Name: "icon.png", Reader: strings.NewReader("png bytes")},
			},
			uploader: &fakeUploader{url: "https://cdn.example.com/icon.png"},
			setupMock: func(m *wallet.MockRepository) {
				m.EXPECT().CreateWallet(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantURL: "https://cdn.example.com/icon.png",
		},
		{
			name:     "MissingName",
			params:   wallet.CreateParams{},
			uploader: &fakeUploader{},
			wantErr:  true,
		},
		{
			name: "UploadFailureWritesNothing",
			params: wallet.CreateParams{
				Name: "Travel",
				Icon: &image.File{Name: "icon.png", Reader: strings.NewReader("png bytes")},
			},
			uploader: &fakeUploader{err: image.ErrUpload},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := wallet.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := wallet.NewService(repo, tt.uploader, "wallets")
			got, err := svc.Create(context.Background(), userID, tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, userID, got.UserID)
			assert.Zero(t, got.Amount)
			assert.Zero(t, got.TotalIncome)
			assert.Zero(t, got.TotalExpenses)

			if tt.wantURL != "" {
				require.NotNil(t, got.ImageURL)
				assert.Equal(t, tt.wantURL, *got.ImageURL)
			}
		})
	}
}

func TestService_Get_Ownership(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	owner := uuid.New()
	intruder := uuid.New()
	walletID := uuid.New()

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: owner}, nil).
		Times(2)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	got, err := svc.Get(context.Background(), owner, walletID)
	require.NoError(t, err)
	assert.Equal(t, walletID, got.ID)

	got, err = svc.Get(context.Background(), intruder, walletID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, wallet.ErrForbidden)
}

func TestService_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletID := uuid.New()

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().GetWallet(gomock.Any(), walletID).Return(nil, wallet.ErrNotFound)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	got, err := svc.Get(context.Background(), uuid.New(), walletID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()
	name := "Renamed"

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: userID, Name: "Old"}, nil)
	repo.EXPECT().
		UpdateWallet(gomock.Any(), walletID, wallet.UpdateParams{Name: &name}).
		Return(nil)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: userID, Name: name}, nil)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	got, err := svc.Update(context.Background(), userID, walletID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
}

func TestService_Update_EmptyName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()
	empty := ""

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: userID}, nil)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	got, err := svc.Update(context.Background(), userID, walletID, &empty, nil)
	assert.Nil(t, got)

	var verr *wallet.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: userID}, nil)
	repo.EXPECT().DeleteWallet(gomock.Any(), walletID).Return(nil)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	err := svc.Delete(context.Background(), userID, walletID)
	assert.NoError(t, err)
}

func TestService_Delete_Forbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletID := uuid.New()

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: uuid.New()}, nil)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	err := svc.Delete(context.Background(), uuid.New(), walletID)
	assert.ErrorIs(t, err, wallet.ErrForbidden)
}

func TestService_Recompute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(&wallet.Wallet{ID: walletID, UserID: userID, Amount: 999}, nil)
	repo.EXPECT().
		Recompute(gomock.Any(), walletID).
		Return(&wallet.Wallet{
			ID:            walletID,
			UserID:        userID,
			Amount:        40_00,
			TotalIncome:   100_00,
			TotalExpenses: 60_00,
		}, nil)

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	got, err := svc.Recompute(context.Background(), userID, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(40_00), got.Amount)
	assert.Equal(t, got.TotalIncome-got.TotalExpenses, got.Amount)
}

// deltaRepo is an in-memory Repository whose ApplyDelta mirrors the atomic
// SQL increment, for exercising concurrent aggregate updates.
type deltaRepo struct {
	mu sync.Mutex
	w  wallet.Wallet
}

func (r *deltaRepo) CreateWallet(ctx context.Context, w *wallet.Wallet) error { return nil }

func (r *deltaRepo) GetWallet(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.w

	return &w, nil
}

func (r *deltaRepo) ListWallets(ctx context.Context, userID uuid.UUID) ([]*wallet.Wallet, error) {
	return nil, nil
}

func (r *deltaRepo) UpdateWallet(ctx context.Context, id uuid.UUID, params wallet.UpdateParams) error {
	return nil
}

func (r *deltaRepo) DeleteWallet(ctx context.Context, id uuid.UUID) error { return nil }

func (r *deltaRepo) ApplyDelta(ctx context.Context, id uuid.UUID, signedAmount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.w.Amount += signedAmount
	if signedAmount > 0 {
		r.w.TotalIncome += signedAmount
	} else {
		r.w.TotalExpenses += -signedAmount
	}

	return nil
}

func (r *deltaRepo) Recompute(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	return r.GetWallet(ctx, id)
}

func TestRepository_ApplyDelta_Concurrent(t *testing.T) {
	repo := &deltaRepo{}
	walletID := uuid.New()

	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			delta := int64(100)
			if i%2 == 1 {
				delta = -40
			}

			if err := repo.ApplyDelta(context.Background(), walletID, delta); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	got, err := repo.GetWallet(context.Background(), walletID)
	require.NoError(t, err)

	// 25 deposits of 100 and 25 withdrawals of 40: no lost updates.
	assert.Equal(t, int64(25*100-25*40), got.Amount)
	assert.Equal(t, int64(25*100), got.TotalIncome)
	assert.Equal(t, int64(25*40), got.TotalExpenses)
	assert.Equal(t, got.TotalIncome-got.TotalExpenses, got.Amount)
}

func TestService_Create_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := wallet.NewMockRepository(ctrl)
	repo.EXPECT().CreateWallet(gomock.Any(), gomock.Any()).Return(errors.New("db error"))

	svc := wallet.NewService(repo, &fakeUploader{}, "wallets")

	got, err := svc.Create(context.Background(), uuid.New(), wallet.CreateParams{Name: "x"})
	assert.Nil(t, got)
	assert.Error(t, err)
}
