package transaction

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/transaction"
)

type transactionResponse struct {
	ID             uuid.UUID        `json:"id"`
	WalletID       uuid.UUID        `json:"wallet_id"`
	Amount         int64            `json:"amount"`
	Type           transaction.Type `json:"type"`
	Description    string           `json:"description"`
	RawDescription string           `json:"raw_description,omitempty"`
	Category       string           `json:"category,omitempty"`
	Date           time.Time        `json:"date"`
	ReceiptURL     *string          `json:"receipt_url,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:             tx.ID,
		WalletID:       tx.WalletID,
		Amount:         tx.Amount,
		Type:           tx.Type,
		Description:    tx.Description,
		RawDescription: tx.RawDescription,
		Category:       tx.Category,
		Date:           tx.Date,
		ReceiptURL:     tx.ReceiptURL,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
