package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transfer"
)

var (
	userID     = uuid.MustParse("8d0f7a4e-0b7c-4a63-9f4b-5d2a3c1e9b10")
	checkingID = uuid.MustParse("0b3f6a52-63f1-4d0c-a1c4-5b6f0e9d7a11")
	savingsID  = uuid.MustParse("f1a9c7d3-2e4b-4f6a-8c1d-3b5e7a9c0d22")
	categoryID = uuid.MustParse("5c2e8b1a-7d3f-4a9e-b6c0-1f4d2a8e9b33")
	today      = calendar.Date(2024, time.June, 15)
)

func userCtx() context.Context {
	return auth.WithUser(context.Background(), userID)
}

func fixedClock() time.Time { return today.Add(9 * time.Hour) }

type fixture struct {
	ledger     *transfer.MockLedger
	categories *transfer.MockCategories
	created    []*transaction.Transaction
}

func newFixture(ctrl *gomock.Controller) *fixture {
	return &fixture{
		ledger:     transfer.NewMockLedger(ctrl),
		categories: transfer.NewMockCategories(ctrl),
	}
}

func (f *fixture) coordinator(opts ...transfer.Option) *transfer.Coordinator {
	return transfer.NewCoordinator(f.ledger, f.categories, append([]transfer.Option{transfer.WithClock(fixedClock)}, opts...)...)
}

func (f *fixture) expectCategory() {
	f.categories.EXPECT().EnsureTransferCategory(gomock.Any()).
		Return(&category.Category{ID: categoryID, Name: category.TransferCategoryName, Type: category.TypeBoth}, nil)
}

// expectCreate records created legs and assigns them fresh ids.
func (f *fixture) expectCreate() *gomock.Call {
	return f.ledger.EXPECT().
		CreateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
			tx.ID = uuid.New()
			f.created = append(f.created, tx)

			return nil
		})
}

func (f *fixture) leg(i int) uuid.UUID {
	return f.created[i].ID
}

func paidParams() transfer.Params {
	return transfer.Params{
		FromAccountID: checkingID,
		ToAccountID:   savingsID,
		Amount:        decimal.NewFromInt(300),
		Date:          calendar.Date(2024, time.June, 14),
		Description:   "Reserva",
	}
}

func TestCoordinator_CreateTransfer_Paid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.expectCategory()

	gomock.InOrder(
		f.expectCreate().Times(1),
		f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(nil),
		f.expectCreate().Times(1),
		f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), savingsID).Return(nil),
	)

	tr, err := f.coordinator().CreateTransfer(userCtx(), paidParams())
	require.NoError(t, err)

	require.Len(t, f.created, 2)
	assert.Equal(t, tr.Expense, f.created[0])
	assert.Equal(t, tr.Income, f.created[1])

	assert.True(t, tr.Complete())

	for _, leg := range []*transaction.Transaction{tr.Expense, tr.Income} {
		assert.Equal(t, tr.ID, *leg.TransferID)
		assert.True(t, decimal.NewFromInt(300).Equal(leg.Amount))
		assert.Equal(t, "Transferência - Reserva", leg.Description)
		assert.Equal(t, []string{transaction.TransferTag}, leg.Tags)
		assert.Equal(t, categoryID, *leg.CategoryID)
		assert.Equal(t, transaction.StatusPaid, leg.Status)
		assert.Equal(t, calendar.Date(2024, time.June, 14), leg.Date)
		assert.Equal(t, calendar.Date(2024, time.June, 14), *leg.PaymentDate)
		assert.Nil(t, leg.DueDate)
	}

	assert.Equal(t, transaction.TypeExpense, tr.Expense.Type)
	assert.Equal(t, transaction.TypeIncome, tr.Income.Type)
	assert.Equal(t, checkingID, tr.Expense.Account.ID)
	assert.Equal(t, savingsID, tr.Income.Account.ID)
}

func TestCoordinator_CreateTransfer_Pending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.expectCategory()
	f.expectCreate().Times(2)
	f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), gomock.Any()).Return(nil).Times(2)

	p := paidParams()
	p.Status = transaction.StatusPending
	p.DueDate = new(calendar.Date(2024, time.July, 1))

	tr, err := f.coordinator().CreateTransfer(userCtx(), p)
	require.NoError(t, err)

	for _, leg := range []*transaction.Transaction{tr.Expense, tr.Income} {
		assert.Equal(t, today, leg.Date)
		assert.Equal(t, calendar.Date(2024, time.July, 1), *leg.DueDate)
		assert.Nil(t, leg.PaymentDate)
		assert.Equal(t, transaction.StatusPending, leg.Status)
	}
}

func TestCoordinator_CreateTransfer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *transfer.Params)
		field  string
	}{
		{name: "SameAccount", mutate: func(p *transfer.Params) { p.ToAccountID = p.FromAccountID }, field: "to_account_id"},
		{name: "MissingSource", mutate: func(p *transfer.Params) { p.FromAccountID = uuid.Nil }, field: ""},
		{name: "MissingAmount", mutate: func(p *transfer.Params) { p.Amount = decimal.Zero }, field: ""},
		{name: "MissingDate", mutate: func(p *transfer.Params) { p.Date = time.Time{} }, field: ""},
		{name: "BlankDescription", mutate: func(p *transfer.Params) { p.Description = "   " }, field: ""},
		{name: "NegativeAmount", mutate: func(p *transfer.Params) { p.Amount = decimal.NewFromInt(-5) }, field: "amount"},
		{
			name:   "PendingWithoutDueDate",
			mutate: func(p *transfer.Params) { p.Status = transaction.StatusPending },
			field:  "due_date",
		},
		{name: "CancelledStatus", mutate: func(p *transfer.Params) { p.Status = transaction.StatusCancelled }, field: "status"},
		{
			name:   "PaidInTheFuture",
			mutate: func(p *transfer.Params) { p.Date = calendar.Date(2024, time.June, 30) },
			field:  "date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No ledger or category expectations: nothing may be written.
			f := newFixture(ctrl)

			p := paidParams()
			tt.mutate(&p)

			tr, err := f.coordinator().CreateTransfer(userCtx(), p)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Nil(t, tr)

			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, f.created)
		})
	}
}

func TestCoordinator_CreateTransfer_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)

	_, err := f.coordinator().CreateTransfer(context.Background(), paidParams())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestCoordinator_CreateTransfer_Failures(t *testing.T) {
	linkErr := errors.New("insert into account_transactions failed")
	insertErr := errors.New("insert into transactions failed")

	type testCase struct {
		name            string
		legacy          bool
		setupMock       func(f *fixture)
		wantErr         error
		wantCompensated *bool
	}

	tests := []testCase{
		{
			name: "SourceLinkFailsDeletesExpense",
			setupMock: func(f *fixture) {
				gomock.InOrder(
					f.expectCreate().Times(1),
					f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(linkErr),
					f.ledger.EXPECT().DeleteTransaction(gomock.Any(), userID, gomock.Any()).
						DoAndReturn(func(_ context.Context, _, id uuid.UUID) error {
							assert.Equal(t, f.leg(0), id)
							return nil
						}),
				)
			},
			wantErr:         apperr.ErrLinkFailure,
			wantCompensated: new(true),
		},
		{
			name:   "LegacySourceLinkFailsDeletesExpense",
			legacy: true,
			setupMock: func(f *fixture) {
				f.expectCreate().Times(1)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(linkErr)
				f.ledger.EXPECT().DeleteTransaction(gomock.Any(), userID, gomock.Any()).Return(nil)
			},
			wantErr:         apperr.ErrLinkFailure,
			wantCompensated: new(true),
		},
		{
			name: "SourceCompensationFails",
			setupMock: func(f *fixture) {
				f.expectCreate().Times(1)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(linkErr)
				f.ledger.EXPECT().DeleteTransaction(gomock.Any(), userID, gomock.Any()).Return(errors.New("conn closed"))
			},
			wantErr:         apperr.ErrLinkFailure,
			wantCompensated: new(false),
		},
		{
			name: "DestinationInsertFailsDeletesExpense",
			setupMock: func(f *fixture) {
				gomock.InOrder(
					f.expectCreate().Times(1),
					f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(nil),
					f.ledger.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(insertErr),
					f.ledger.EXPECT().DeleteTransaction(gomock.Any(), userID, gomock.Any()).
						DoAndReturn(func(_ context.Context, _, id uuid.UUID) error {
							assert.Equal(t, f.leg(0), id)
							return nil
						}),
				)
			},
			wantErr: insertErr,
		},
		{
			name:   "LegacyDestinationInsertFailsKeepsExpense",
			legacy: true,
			setupMock: func(f *fixture) {
				f.expectCreate().Times(1)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(nil)
				f.ledger.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(insertErr)
			},
			wantErr: insertErr,
		},
		{
			name: "DestinationLinkFailsDeletesBothLegs",
			setupMock: func(f *fixture) {
				var deleted []uuid.UUID

				f.expectCreate().Times(2)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(nil)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), savingsID).Return(linkErr)
				f.ledger.EXPECT().DeleteTransaction(gomock.Any(), userID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _, id uuid.UUID) error {
						deleted = append(deleted, id)
						if len(deleted) == 2 {
							assert.Equal(t, []uuid.UUID{f.leg(1), f.leg(0)}, deleted)
						}

						return nil
					}).Times(2)
			},
			wantErr:         apperr.ErrLinkFailure,
			wantCompensated: new(true),
		},
		{
			// The asymmetric behaviour: the destination link failure is
			// reported but neither leg is removed.
			name:   "LegacyDestinationLinkFailsKeepsBothLegs",
			legacy: true,
			setupMock: func(f *fixture) {
				f.expectCreate().Times(2)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), checkingID).Return(nil)
				f.ledger.EXPECT().LinkAccount(gomock.Any(), userID, gomock.Any(), savingsID).Return(linkErr)
			},
			wantErr:         apperr.ErrLinkFailure,
			wantCompensated: new(false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(ctrl)
			f.expectCategory()
			tt.setupMock(f)

			tr, err := f.coordinator(transfer.WithLegacyCompensation(tt.legacy)).CreateTransfer(userCtx(), paidParams())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, tr)

			if tt.wantCompensated != nil {
				var le *apperr.LinkError
				require.ErrorAs(t, err, &le)
				assert.Equal(t, *tt.wantCompensated, le.Compensated)
			}
		})
	}
}

func TestCoordinator_CreateTransfer_CategoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.categories.EXPECT().EnsureTransferCategory(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := f.coordinator().CreateTransfer(userCtx(), paidParams())
	assert.ErrorContains(t, err, "resolving transfer category")
}

func TestCoordinator_Get(t *testing.T) {
	transferID := uuid.New()

	t.Run("BothLegs", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)

		expense := &transaction.Transaction{
			Type: transaction.TypeExpense, Amount: decimal.NewFromInt(300), TransferID: &transferID,
			Account: &transaction.AccountRef{ID: checkingID},
		}
		income := &transaction.Transaction{
			Type: transaction.TypeIncome, Amount: decimal.NewFromInt(300), TransferID: &transferID,
			Account: &transaction.AccountRef{ID: savingsID},
		}

		f.ledger.EXPECT().TransferLegs(gomock.Any(), userID, transferID).
			Return([]*transaction.Transaction{income, expense}, nil)

		tr, err := f.coordinator().Get(userCtx(), transferID)
		require.NoError(t, err)
		assert.Same(t, expense, tr.Expense)
		assert.Same(t, income, tr.Income)
		assert.True(t, tr.Complete())
	})

	t.Run("NotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.ledger.EXPECT().TransferLegs(gomock.Any(), userID, transferID).Return([]*transaction.Transaction{}, nil)

		_, err := f.coordinator().Get(userCtx(), transferID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("IncompleteLegacyTransfer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.ledger.EXPECT().TransferLegs(gomock.Any(), userID, transferID).Return([]*transaction.Transaction{
			{Type: transaction.TypeExpense, Amount: decimal.NewFromInt(300), Account: &transaction.AccountRef{ID: checkingID}},
		}, nil)

		tr, err := f.coordinator().Get(userCtx(), transferID)
		require.NoError(t, err)
		assert.False(t, tr.Complete())
	})
}

func TestCoordinator_Delete(t *testing.T) {
	transferID := uuid.New()

	tests := []struct {
		name    string
		deleted int64
		wantErr error
	}{
		{name: "BothLegs", deleted: 2},
		{name: "Missing", deleted: 0, wantErr: apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(ctrl)
			f.ledger.EXPECT().DeleteTransfer(gomock.Any(), userID, transferID).Return(tt.deleted, nil)

			err := f.coordinator().Delete(userCtx(), transferID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}
