package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeChecking   Type = "checking"
	TypeSavings    Type = "savings"
	TypeCash       Type = "cash"
	TypeInvestment Type = "investment"
	TypeOther      Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeCash, TypeInvestment, TypeOther:
		return true
	}

	return false
}

const DefaultCurrency = "BRL"

// Account is a place money is held. CurrentBalance is maintained by the
// store: initial balance plus the signed sum of paid linked transactions.
type Account struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Type           Type
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Currency       string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Projection is an account with its projected balance.
type Projection struct {
	*Account
	ProjectedBalance decimal.Decimal
}
