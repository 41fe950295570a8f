package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the referenced transaction does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrForbidden is returned when the acting user does not own the transaction.
	ErrForbidden = errors.New("transaction does not belong to user")
)

// ValidationError reports a rejected input field. Validation runs before any
// upload or document write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Transaction represents a financial transaction against a wallet.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	WalletID       uuid.UUID
	Amount         int64 // Amount in cents, always positive
	Type           Type
	Description    string
	RawDescription string // Untouched statement text for imported rows
	Category       string // Expense category key, required for expenses
	Date           time.Time
	ReceiptURL     *string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
}

// SignedAmount is the transaction's effect on its wallet balance:
// positive for income, negative for expense.
func (t *Transaction) SignedAmount() int64 {
	if t.Type == TypeExpense {
		return -t.Amount
	}

	return t.Amount
}
