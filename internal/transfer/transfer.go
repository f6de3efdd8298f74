package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

// DescriptionPrefix marks the description of both legs.
const DescriptionPrefix = "Transferência - "

// Params describes a movement of funds between two accounts of the same user.
type Params struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
	Status        transaction.Status // paid when empty
	DueDate       *time.Time
}

// Transfer is the expense leg on the source account and the income leg on the
// destination account, sharing one transfer id.
type Transfer struct {
	ID      uuid.UUID
	Expense *transaction.Transaction
	Income  *transaction.Transaction
}

// Complete reports whether both legs exist with equal amounts on two
// distinct accounts.
func (t *Transfer) Complete() bool {
	if t.Expense == nil || t.Income == nil {
		return false
	}

	if !t.Expense.Amount.Equal(t.Income.Amount) {
		return false
	}

	if t.Expense.Account == nil || t.Income.Account == nil {
		return false
	}

	return t.Expense.Account.ID != t.Income.Account.ID
}
