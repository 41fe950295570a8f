package transaction_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/spendy/internal/image"
	"github.com/MrJamesThe3rd/spendy/internal/transaction"
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
	walletID := uuid.New()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name      string
		params    transaction.CreateParams
		setupMock func(repo *transaction.MockRepository, mtx *transaction.MockMutationTx)
		wantErr   bool
		wantField string
	}

	tests := []testCase{
		{
			name: "IncomeSuccess",
			params: transaction.CreateParams{
				WalletID:    walletID,
				Amount:      250_00,
				Type:        transaction.TypeIncome,
				Description: "Salary",
				Date:        date,
			},
			setupMock: func(repo *transaction.MockRepository, mtx *transaction.MockMutationTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(mtx, nil)
				mtx.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()
						return nil
					})
				mtx.EXPECT().ApplyWalletDelta(gomock.Any(), walletID, userID, int64(250_00)).Return(nil)
				mtx.EXPECT().Commit().Return(nil)
				mtx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "ExpenseDeltaIsNegative",
			params: transaction.CreateParams{
				WalletID:    walletID,
				Amount:      12_50,
				Type:        transaction.TypeExpense,
				Category:    "groceries",
				Description: "Market",
				Date:        date,
			},
			setupMock: func(repo *transaction.MockRepository, mtx *transaction.MockMutationTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(mtx, nil)
				mtx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				mtx.EXPECT().ApplyWalletDelta(gomock.Any(), walletID, userID, int64(-12_50)).Return(nil)
				mtx.EXPECT().Commit().Return(nil)
				mtx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "MissingWallet",
			params: transaction.CreateParams{
				Amount: 1000,
				Type:   transaction.TypeIncome,
				Date:   date,
			},
			wantErr:   true,
			wantField: "wallet_id",
		},
		{
			name: "MissingDate",
			params: transaction.CreateParams{
				WalletID: walletID,
				Amount:   1000,
				Type:     transaction.TypeIncome,
			},
			wantErr:   true,
			wantField: "date",
		},
		{
			name: "ZeroAmount",
			params: transaction.CreateParams{
				WalletID: walletID,
				Amount:   0,
				Type:     transaction.TypeIncome,
				Date:     date,
			},
			wantErr:   true,
			wantField: "amount",
		},
		{
			name: "UnknownType",
			params: transaction.CreateParams{
				WalletID: walletID,
				Amount:   1000,
				Type:     transaction.Type("transfer"),
				Date:     date,
			},
			wantErr:   true,
			wantField: "type",
		},
		{
			name: "ExpenseWithoutCategory",
			params: transaction.CreateParams{
				WalletID: walletID,
				Amount:   1000,
				Type:     transaction.TypeExpense,
				Date:     date,
			},
			wantErr:   true,
			wantField: "category",
		},
		{
			name: "ExpenseWithUnknownCategory",
			params: transaction.CreateParams{
				WalletID: walletID,
				Amount:   1000,
				Type:     transaction.TypeExpense,
				Category: "yachts",
				Date:     date,
			},
			wantErr:   true,
			wantField: "category",
		},
		{
			name: "WalletDeltaFails",
			params: transaction.CreateParams{
				WalletID: walletID,
				Amount:   1000,
				Type:     transaction.TypeIncome,
				Date:     date,
			},
			setupMock: func(repo *transaction.MockRepository, mtx *transaction.MockMutationTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(mtx, nil)
				mtx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				mtx.EXPECT().
					ApplyWalletDelta(gomock.Any(), walletID, userID, int64(1000)).
					Return(errors.New("db error"))
				mtx.EXPECT().Rollback().Return(nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			mtx := transaction.NewMockMutationTx(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo, mtx)
			}

			svc := transaction.NewService(repo, &fakeUploader{}, "receipts")
			got, err := svc.Create(context.Background(), userID, tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				if tt.wantField != "" {
					var verr *transaction.ValidationError
					require.ErrorAs(t, err, &verr)
					assert.Equal(t, tt.wantField, verr.Field)
				}

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, userID, got.UserID)
			assert.Equal(t, walletID, got.WalletID)
		})
	}
}

func TestService_Create_WithReceipt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()

	repo := transaction.NewMockRepository(ctrl)
	mtx := transaction.NewMockMutationTx(ctrl)

	repo.EXPECT().Begin(gomock.Any()).Return(mtx, nil)
	mtx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
	mtx.EXPECT().ApplyWalletDelta(gomock.Any(), walletID, userID, int64(-500)).Return(nil)
	mtx.EXPECT().Commit().Return(nil)
	mtx.EXPECT().Rollback().Return(nil)

	uploader := &fakeUploader{url: "https://cdn.example.com/receipt.jpg"}
	svc := transaction.NewService(repo, uploader, "receipts")

	got, err := svc.Create(context.Background(), userID, transaction.CreateParams{
		WalletID: walletID,
		Amount:   500,
		Type:     transaction.TypeExpense,
		Category: "dining",
		Date:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Receipt:  &image.File{Name: "receipt.jpg", Reader: strings.NewReader("jpeg bytes")},
	})

	require.NoError(t, err)
	require.NotNil(t, got.ReceiptURL)
	assert.Equal(t, "https://cdn.example.com/receipt.jpg", *got.ReceiptURL)
	assert.Equal(t, 1, uploader.calls)
}

func TestService_Create_UploadFailureWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()

	// No expectations on the repository: a failed upload must abort before
	// any document or wallet write.
	repo := transaction.NewMockRepository(ctrl)

	uploader := &fakeUploader{err: image.ErrUpload}
	svc := transaction.NewService(repo, uploader, "receipts")

	got, err := svc.Create(context.Background(), userID, transaction.CreateParams{
		WalletID: uuid.New(),
		Amount:   500,
		Type:     transaction.TypeExpense,
		Category: "dining",
		Date:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Receipt:  &image.File{Name: "receipt.jpg", Reader: strings.NewReader("jpeg bytes")},
	})

	assert.Nil(t, got)
	assert.ErrorIs(t, err, image.ErrUpload)
}

func TestService_Update_CrossWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	txID := uuid.New()
	oldWallet := uuid.New()
	newWallet := uuid.New()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	prior := &transaction.Transaction{
		ID:       txID,
		UserID:   userID,
		WalletID: oldWallet,
		Amount:   1000,
		Type:     transaction.TypeExpense,
		Category: "groceries",
		Date:     date,
	}

	repo := transaction.NewMockRepository(ctrl)
	mtx := transaction.NewMockMutationTx(ctrl)

	repo.EXPECT().GetTransaction(gomock.Any(), txID).Return(prior, nil)
	repo.EXPECT().Begin(gomock.Any()).Return(mtx, nil)
	mtx.EXPECT().ReplaceTransaction(gomock.Any(), gomock.Any()).Return(nil)

	// The prior expense is reversed on the old wallet, the new income lands
	// on the new wallet.
	reverse := mtx.EXPECT().ApplyWalletDelta(gomock.Any(), oldWallet, userID, int64(1000)).Return(nil)
	mtx.EXPECT().ApplyWalletDelta(gomock.Any(), newWallet, userID, int64(3000)).Return(nil).After(reverse)
	mtx.EXPECT().Commit().Return(nil)
	mtx.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	got, err := svc.Update(context.Background(), userID, txID, transaction.CreateParams{
		WalletID: newWallet,
		Amount:   3000,
		Type:     transaction.TypeIncome,
		Date:     date,
	})

	require.NoError(t, err)
	assert.Equal(t, txID, got.ID)
	assert.Equal(t, newWallet, got.WalletID)
	assert.Equal(t, int64(3000), got.Amount)
}

func TestService_Update_Forbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txID := uuid.New()
	owner := uuid.New()
	intruder := uuid.New()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		GetTransaction(gomock.Any(), txID).
		Return(&transaction.Transaction{ID: txID, UserID: owner}, nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	got, err := svc.Update(context.Background(), intruder, txID, transaction.CreateParams{})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, transaction.ErrForbidden)
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	txID := uuid.New()
	walletID := uuid.New()

	prior := &transaction.Transaction{
		ID:       txID,
		UserID:   userID,
		WalletID: walletID,
		Amount:   700,
		Type:     transaction.TypeIncome,
	}

	repo := transaction.NewMockRepository(ctrl)
	mtx := transaction.NewMockMutationTx(ctrl)

	repo.EXPECT().GetTransaction(gomock.Any(), txID).Return(prior, nil)
	repo.EXPECT().Begin(gomock.Any()).Return(mtx, nil)
	mtx.EXPECT().SoftDeleteTransaction(gomock.Any(), txID).Return(nil)
	mtx.EXPECT().ApplyWalletDelta(gomock.Any(), walletID, userID, int64(-700)).Return(nil)
	mtx.EXPECT().Commit().Return(nil)
	mtx.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	err := svc.Delete(context.Background(), userID, txID)
	assert.NoError(t, err)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	filter := transaction.ListFilter{}

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		ListTransactions(gomock.Any(), userID, filter).
		Return([]*transaction.Transaction{
			{ID: uuid.New()},
			{ID: uuid.New()},
		}, nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	got, err := svc.List(context.Background(), userID, filter)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	params := []transaction.CreateParams{
		{
			Amount:         1000,
			Type:           transaction.TypeExpense,
			Description:    "Coffee",
			RawDescription: "COFFEE SHOP",
			Category:       "dining",
			Date:           date,
		},
		{
			Amount:         50_00,
			Type:           transaction.TypeIncome,
			Description:    "Refund",
			RawDescription: "REFUND ACME",
			Date:           date,
		},
	}

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)

	repo.EXPECT().BeginImport(gomock.Any(), walletID).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), walletID, gomock.Any()).Return(nil, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(nil)
	// -10.00 expense plus 50.00 income, summed into one delta.
	itx.EXPECT().ApplyWalletDelta(gomock.Any(), walletID, userID, int64(40_00)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	result, err := svc.ImportBatch(context.Background(), userID, walletID, params)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 2)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)

	for _, tx := range result.Imported {
		assert.Equal(t, walletID, tx.WalletID)
		assert.Equal(t, userID, tx.UserID)
	}
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	params := []transaction.CreateParams{
		{
			Amount:         1000,
			Type:           transaction.TypeExpense,
			Description:    "Coffee",
			RawDescription: "COFFEE SHOP",
			Category:       "dining",
			Date:           date,
		},
		{
			Amount:         2000,
			Type:           transaction.TypeExpense,
			Description:    "Lunch",
			RawDescription: "LUNCH PLACE",
			Category:       "dining",
			Date:           date,
		},
	}

	existing := &transaction.Transaction{
		ID:             uuid.New(),
		WalletID:       walletID,
		Amount:         1000,
		Type:           transaction.TypeExpense,
		RawDescription: "COFFEE SHOP",
		Date:           date,
	}

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)

	repo.EXPECT().BeginImport(gomock.Any(), walletID).Return(itx, nil)
	itx.EXPECT().
		FindDuplicates(gomock.Any(), walletID, gomock.Any()).
		Return([]*transaction.Transaction{existing}, nil)
	// Nothing is written when conflicts are reported.
	itx.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	result, err := svc.ImportBatch(context.Background(), userID, walletID, params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Len(t, result.New, 1)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, "COFFEE SHOP", result.Conflicts[0].Incoming.RawDescription)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	result, err := svc.ImportBatch(context.Background(), uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	walletID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	params := []transaction.CreateParams{
		{
			Amount:         1000,
			Type:           transaction.TypeExpense,
			Description:    "Coffee",
			RawDescription: "COFFEE SHOP",
			Date:           date,
		},
	}

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)

	repo.EXPECT().BeginImport(gomock.Any(), walletID).Return(itx, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().ApplyWalletDelta(gomock.Any(), walletID, userID, int64(-1000)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo, &fakeUploader{}, "receipts")

	txs, err := svc.CreateBatch(context.Background(), userID, walletID, params)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(1000), txs[0].Amount)
	assert.Equal(t, transaction.TypeExpense, txs[0].Type)
	// Uncategorized statement expenses land in the catch-all category.
	assert.Equal(t, "others", txs[0].Category)
}
