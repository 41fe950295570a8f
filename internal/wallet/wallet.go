package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the referenced wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrForbidden is returned when the acting user does not own the wallet.
	ErrForbidden = errors.New("wallet does not belong to user")
)

// ValidationError reports a rejected input field. No writes happen when
// validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Wallet holds a user's balance aggregates. Amounts are in cents.
//
// Amount, TotalIncome and TotalExpenses are owned by the balance engine:
// they always reflect the signed sum of the wallet's live transactions
// (Amount == TotalIncome - TotalExpenses) and are never written directly
// by profile updates.
type Wallet struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	ImageURL      *string
	Amount        int64
	TotalIncome   int64
	TotalExpenses int64
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
