package transaction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

func TestSort(t *testing.T) {
	a := &transaction.Transaction{
		ID: uuid.New(), Description: "Aluguel", Amount: decimal.NewFromInt(1200),
		Date: calendar.Date(2024, time.May, 1), DueDate: day(2024, time.May, 10),
		Category: &transaction.CategoryRef{Name: "Moradia"},
	}
	b := &transaction.Transaction{
		ID: uuid.New(), Description: "bolo", Amount: decimal.RequireFromString("35.5"),
		Date: calendar.Date(2024, time.May, 3),
	}
	c := &transaction.Transaction{
		ID: uuid.New(), Description: "Cinema", Amount: decimal.NewFromInt(60),
		Date: calendar.Date(2024, time.May, 2), DueDate: day(2024, time.May, 2),
		Category: &transaction.CategoryRef{Name: "Lazer"},
	}

	tests := []struct {
		name string
		key  transaction.SortKey
		desc bool
		want []*transaction.Transaction
	}{
		{name: "AmountAsc", key: transaction.SortByAmount, want: []*transaction.Transaction{b, c, a}},
		{name: "AmountDesc", key: transaction.SortByAmount, desc: true, want: []*transaction.Transaction{a, c, b}},
		{name: "DescriptionIgnoresCase", key: transaction.SortByDescription, want: []*transaction.Transaction{a, b, c}},
		{name: "DueDateNullsLastAsc", key: transaction.SortByDueDate, want: []*transaction.Transaction{c, a, b}},
		{name: "DueDateNullsLastDesc", key: transaction.SortByDueDate, desc: true, want: []*transaction.Transaction{a, c, b}},
		{name: "CategoryNullsLastDesc", key: transaction.SortByCategory, desc: true, want: []*transaction.Transaction{a, c, b}},
		{name: "DateDesc", key: transaction.SortByDate, desc: true, want: []*transaction.Transaction{b, c, a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []*transaction.Transaction{a, b, c}
			transaction.Sort(txs, tt.key, tt.desc)
			assert.Equal(t, tt.want, txs)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    transaction.SortKey
		wantErr bool
	}{
		{in: "date", want: transaction.SortByDate},
		{in: "payment_date", want: transaction.SortByPaymentDate},
		{in: "account", want: transaction.SortByAccount},
		{in: "Date", wantErr: true},
		{in: "", wantErr: true},
		{in: "amount; drop table", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := transaction.ParseSortKey(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrValidation)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
