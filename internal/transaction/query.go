package transaction

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
)

// ListFilter narrows a transaction listing. Every set field must match.
type ListFilter struct {
	Type       *Type
	Status     *Status  // classified: pending excludes past-due, overdue includes it
	Statuses   []Status // stored status, any of
	CategoryID *uuid.UUID
	AccountID  *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Search     string

	// IDs restricts the listing to the given transactions. The service fills
	// it from AccountID; stores only see the resolved ids.
	IDs []uuid.UUID

	// Today is the reference day for the overdue classification.
	Today time.Time
}

// List returns the transactions matching filter, newest ledger date first,
// each carrying its category and account.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	filter.Search = strings.TrimSpace(filter.Search)
	filter.Today = s.clock.Today()

	if filter.StartDate != nil {
		filter.StartDate = dayPtr(filter.StartDate)
	}

	if filter.EndDate != nil {
		filter.EndDate = dayPtr(filter.EndDate)
	}

	if filter.AccountID != nil {
		ids, err := s.repo.LinkedTransactionIDs(ctx, userID, *filter.AccountID)
		if err != nil {
			return nil, fmt.Errorf("resolving account transactions: %w", err)
		}

		if len(ids) == 0 {
			return []*Transaction{}, nil
		}

		filter.IDs = ids
		filter.AccountID = nil
	}

	txs, err := s.repo.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return txs, nil
}

// SortKey names a column a listing can be re-sorted by.
type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByDueDate     SortKey = "due_date"
	SortByPaymentDate SortKey = "payment_date"
	SortByAmount      SortKey = "amount"
	SortByDescription SortKey = "description"
	SortByCategory    SortKey = "category"
	SortByAccount     SortKey = "account"
	SortByStatus      SortKey = "status"
)

// ParseSortKey validates a sort key received from a client.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)

	switch k {
	case SortByDate, SortByDueDate, SortByPaymentDate, SortByAmount,
		SortByDescription, SortByCategory, SortByAccount, SortByStatus:
		return k, nil
	}

	return "", apperr.Invalid("sort", fmt.Sprintf("unknown sort key %q", s))
}

// Sort orders txs in place by key. Transactions missing the key's value sort
// last in both directions. The sort is stable.
func Sort(txs []*Transaction, key SortKey, desc bool) {
	slices.SortStableFunc(txs, func(a, b *Transaction) int {
		av, aok := sortValue(a, key)
		bv, bok := sortValue(b, key)

		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}

		c := compareValues(av, bv)
		if desc {
			return -c
		}

		return c
	})
}

func sortValue(tx *Transaction, key SortKey) (any, bool) {
	switch key {
	case SortByDate:
		return tx.Date, !tx.Date.IsZero()
	case SortByDueDate:
		if tx.DueDate == nil {
			return nil, false
		}

		return *tx.DueDate, true
	case SortByPaymentDate:
		if tx.PaymentDate == nil {
			return nil, false
		}

		return *tx.PaymentDate, true
	case SortByAmount:
		return tx.Amount, true
	case SortByDescription:
		return strings.ToLower(tx.Description), tx.Description != ""
	case SortByCategory:
		if tx.Category == nil {
			return nil, false
		}

		return strings.ToLower(tx.Category.Name), true
	case SortByAccount:
		if tx.Account == nil {
			return nil, false
		}

		return strings.ToLower(tx.Account.Name), true
	case SortByStatus:
		return string(tx.Status), tx.Status != ""
	}

	return nil, false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		return av.Compare(b.(time.Time))
	case decimal.Decimal:
		return av.Cmp(b.(decimal.Decimal))
	case string:
		return cmp.Compare(av, b.(string))
	}

	return 0
}
