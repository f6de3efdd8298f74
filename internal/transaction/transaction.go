package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Status represents the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}

	return false
}

// Unsettled reports whether the status still affects the projected balance.
func (s Status) Unsettled() bool {
	return s == StatusPending || s == StatusOverdue
}

// TransferTag marks both legs of a transfer.
const TransferTag = "transferência"

// Transaction represents a financial transaction.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        Type
	Amount      decimal.Decimal
	Description string
	CategoryID  *uuid.UUID
	Date        time.Time // ledger date, used for aggregation
	DueDate     *time.Time
	PaymentDate *time.Time
	Status      Status
	Tags        []string
	IsRecurring bool
	Recurrence  *Recurrence
	TransferID  *uuid.UUID
	Category    *CategoryRef // Loaded via JOIN
	Account     *AccountRef  // Loaded via JOIN
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryRef is the category summary attached to listed transactions.
type CategoryRef struct {
	ID    uuid.UUID
	Name  string
	Color string
	Icon  string
}

// AccountRef is the single account a transaction is posted against.
type AccountRef struct {
	ID   uuid.UUID
	Name string
}

// Signed returns the amount as it affects an account balance.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}

	return t.Amount
}

// Classify returns the status a transaction presents on the given day.
// Overdue is not always stored: a pending transaction whose due date has
// passed is reported as overdue.
func Classify(tx *Transaction, today time.Time) Status {
	if tx.Status == StatusPending && tx.DueDate != nil && tx.DueDate.Before(today) {
		return StatusOverdue
	}

	return tx.Status
}
