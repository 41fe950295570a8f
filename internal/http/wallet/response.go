package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/wallet"
)

type walletResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	ImageURL      *string    `json:"image_url,omitempty"`
	Amount        int64      `json:"amount"`
	TotalIncome   int64      `json:"total_income"`
	TotalExpenses int64      `json:"total_expenses"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func toResponse(w *wallet.Wallet) walletResponse {
	return walletResponse{
		ID:            w.ID,
		Name:          w.Name,
		ImageURL:      w.ImageURL,
		Amount:        w.Amount,
		TotalIncome:   w.TotalIncome,
		TotalExpenses: w.TotalExpenses,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func toResponseList(wallets []*wallet.Wallet) []walletResponse {
	resp := make([]walletResponse, len(wallets))
	for i, w := range wallets {
		resp[i] = toResponse(w)
	}

	return resp
}
