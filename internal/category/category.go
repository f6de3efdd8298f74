package category

import (
	"time"

	"github.com/google/uuid"
)

// Type restricts which transactions a category may classify.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
	TypeBoth    Type = "both"
)

func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeBoth:
		return true
	}

	return false
}

// TransferCategoryName is the per-user category every transfer leg is filed under.
const TransferCategoryName = "Transferência"

// Category groups transactions. A category may have one parent.
type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Type      Type
	Color     string
	Icon      string
	ParentID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Accepts reports whether the category can classify a transaction of type t.
func (c *Category) Accepts(t Type) bool {
	return c.Type == TypeBoth || c.Type == t
}

// Eligible returns the categories usable for transactions of type t.
// Subcategories follow their parent's type rather than their own.
func Eligible(cats []*Category, t Type) []*Category {
	byID := make(map[uuid.UUID]*Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	out := make([]*Category, 0, len(cats))

	for _, c := range cats {
		owner := c
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				owner = parent
			}
		}

		if owner.Accepts(t) {
			out = append(out, c)
		}
	}

	return out
}
