package transaction_test

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
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

var (
	userID = uuid.MustParse("8d0f7a4e-0b7c-4a63-9f4b-5d2a3c1e9b10")
	today  = calendar.Date(2024, time.June, 15)
)

func userCtx() context.Context {
	return auth.WithUser(context.Background(), userID)
}

func fixedClock() time.Time { return today.Add(14 * time.Hour) }

func newService(repo transaction.Repository) *transaction.Service {
	return transaction.NewService(repo, transaction.WithClock(fixedClock))
}

func day(y int, m time.Month, d int) *time.Time {
	t := calendar.Date(y, m, d)
	return &t
}

func TestService_Create(t *testing.T) {
	accountID := uuid.New()
	txID := uuid.New()
	linkErr := errors.New("insert into account_transactions failed")

	type testCase struct {
		name          string
		params        transaction.CreateParams
		setupMock     func(m *transaction.MockRepository)
		wantErr       error
		wantCompensed *bool
	}

	paid := transaction.CreateParams{
		Type:        transaction.TypeExpense,
		Amount:      decimal.NewFromInt(200),
		Description: "Groceries",
		Date:        today,
		Status:      transaction.StatusPaid,
		PaymentDate: &today,
	}

	tests := []testCase{
		{
			name:   "PaidWithoutAccount",
			params: paid,
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "LinkedToAccount",
			params: func() transaction.CreateParams {
				p := paid
				p.AccountID = &accountID
				return p
			}(),
			setupMock: func(m *transaction.MockRepository) {
				gomock.InOrder(
					m.EXPECT().
						CreateTransaction(gomock.Any(), gomock.Any()).
						DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
							tx.ID = txID
							return nil
						}),
					m.EXPECT().LinkAccount(gomock.Any(), userID, txID, accountID).Return(nil),
				)
			},
		},
		{
			name: "PaidWithoutPaymentDate",
			params: transaction.CreateParams{
				Type: transaction.TypeExpense, Amount: decimal.NewFromInt(10), Description: "Coffee",
				Date: today, Status: transaction.StatusPaid,
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "PendingWithoutDueDate",
			params: transaction.CreateParams{
				Type: transaction.TypeExpense, Amount: decimal.NewFromInt(10), Description: "Coffee",
				Date: today, Status: transaction.StatusPending,
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "PaymentDateTooFarAhead",
			params: func() transaction.CreateParams {
				p := paid
				p.PaymentDate = day(2024, time.June, 17)
				return p
			}(),
			wantErr: apperr.ErrValidation,
		},
		{
			name: "PaymentDateTomorrow",
			params: func() transaction.CreateParams {
				p := paid
				p.PaymentDate = day(2024, time.June, 16)
				return p
			}(),
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "ZeroAmount",
			params: func() transaction.CreateParams {
				p := paid
				p.Amount = decimal.Zero
				return p
			}(),
			wantErr: apperr.ErrValidation,
		},
		{
			name: "ShortDescription",
			params: func() transaction.CreateParams {
				p := paid
				p.Description = "  ab "
				return p
			}(),
			wantErr: apperr.ErrValidation,
		},
		{
			name: "RecurringWithoutRule",
			params: func() transaction.CreateParams {
				p := paid
				p.IsRecurring = true
				return p
			}(),
			wantErr: apperr.ErrValidation,
		},
		{
			name: "RecurringZeroInterval",
			params: func() transaction.CreateParams {
				p := paid
				p.IsRecurring = true
				p.Recurrence = &transaction.Recurrence{Frequency: transaction.FrequencyMonthly}
				return p
			}(),
			wantErr: apperr.ErrValidation,
		},
		{
			name: "LinkFailureCompensated",
			params: func() transaction.CreateParams {
				p := paid
				p.AccountID = &accountID
				return p
			}(),
			setupMock: func(m *transaction.MockRepository) {
				gomock.InOrder(
					m.EXPECT().
						CreateTransaction(gomock.Any(), gomock.Any()).
						DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
							tx.ID = txID
							return nil
						}),
					m.EXPECT().LinkAccount(gomock.Any(), userID, txID, accountID).Return(linkErr),
					m.EXPECT().DeleteTransaction(gomock.Any(), userID, txID).Return(nil),
				)
			},
			wantErr:       apperr.ErrLinkFailure,
			wantCompensed: new(true),
		},
		{
			name: "LinkFailureCompensationFails",
			params: func() transaction.CreateParams {
				p := paid
				p.AccountID = &accountID
				return p
			}(),
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						tx.ID = txID
						return nil
					})
				m.EXPECT().LinkAccount(gomock.Any(), userID, txID, accountID).Return(linkErr)
				m.EXPECT().DeleteTransaction(gomock.Any(), userID, txID).Return(errors.New("connection reset"))
			},
			wantErr:       apperr.ErrLinkFailure,
			wantCompensed: new(false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			tx, err := newService(repo).Create(userCtx(), tt.params)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tx)

				if tt.wantCompensed != nil {
					var le *apperr.LinkError
					require.ErrorAs(t, err, &le)
					assert.Equal(t, *tt.wantCompensed, le.Compensated)
					assert.ErrorIs(t, err, linkErr)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, userID, tx.UserID)
			assert.NotNil(t, tx.Tags)
		})
	}
}

func TestService_Create_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)

	_, err := newService(repo).Create(context.Background(), transaction.CreateParams{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestService_Create_NormalizesInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	due := time.Date(2024, time.June, 20, 18, 30, 0, 0, time.UTC)

	tx, err := newService(repo).Create(userCtx(), transaction.CreateParams{
		Type:        transaction.TypeIncome,
		Amount:      decimal.RequireFromString("1500.50"),
		Description: "  Salary  ",
		Date:        time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC),
		DueDate:     &due,
		Tags:        []string{" work ", "", "work", "monthly"},
	})
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusPending, tx.Status)
	assert.Equal(t, "Salary", tx.Description)
	assert.Equal(t, []string{"work", "monthly"}, tx.Tags)
	assert.Equal(t, calendar.Date(2024, time.June, 20), *tx.DueDate)
	assert.Equal(t, today, tx.Date)
	assert.Nil(t, tx.Recurrence)
}

func TestService_Update(t *testing.T) {
	txID := uuid.New()
	accountID := uuid.New()
	transferID := uuid.New()

	stored := func() *transaction.Transaction {
		return &transaction.Transaction{
			ID:          txID,
			UserID:      userID,
			Type:        transaction.TypeExpense,
			Amount:      decimal.NewFromInt(50),
			Description: "Dinner",
			Date:        today,
			Status:      transaction.StatusPaid,
			PaymentDate: &today,
			Tags:        []string{},
		}
	}

	type testCase struct {
		name      string
		params    transaction.UpdateParams
		setupMock func(m *transaction.MockRepository)
		wantErr   error
		check     func(t *testing.T, tx *transaction.Transaction)
	}

	tests := []testCase{
		{
			name:   "ChangeAmount",
			params: transaction.UpdateParams{Amount: new(decimal.NewFromInt(75))},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(stored(), nil)
				m.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, tx *transaction.Transaction) {
				assert.True(t, decimal.NewFromInt(75).Equal(tx.Amount))
			},
		},
		{
			name:   "ReassignAccountUpserts",
			params: transaction.UpdateParams{AccountID: &accountID},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(stored(), nil)
				m.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().UpsertAccountLink(gomock.Any(), userID, txID, accountID).Return(nil)
			},
		},
		{
			name:    "InvalidPatchRejectedBeforeRead",
			params:  transaction.UpdateParams{Amount: new(decimal.NewFromInt(-1))},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "PendingWithoutDueDate",
			params: transaction.UpdateParams{Status: new(transaction.StatusPending)},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(stored(), nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "TransferLegAmountRejected",
			params: transaction.UpdateParams{Amount: new(decimal.NewFromInt(10))},
			setupMock: func(m *transaction.MockRepository) {
				tx := stored()
				tx.TransferID = &transferID
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(tx, nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "TransferLegDescriptionAllowed",
			params: transaction.UpdateParams{Description: new("Transferência - rent share")},
			setupMock: func(m *transaction.MockRepository) {
				tx := stored()
				tx.TransferID = &transferID
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(tx, nil)
				m.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:   "ClearCategory",
			params: transaction.UpdateParams{ClearCategory: true},
			setupMock: func(m *transaction.MockRepository) {
				tx := stored()
				tx.CategoryID = new(uuid.New())
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(tx, nil)
				m.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, tx *transaction.Transaction) {
				assert.Nil(t, tx.CategoryID)
			},
		},
		{
			name:   "NotFound",
			params: transaction.UpdateParams{Description: new("Lunch")},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(nil, apperr.NotFound("transaction"))
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:   "LinkFailure",
			params: transaction.UpdateParams{AccountID: &accountID},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(stored(), nil)
				m.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				m.EXPECT().UpsertAccountLink(gomock.Any(), userID, txID, accountID).Return(errors.New("boom"))
			},
			wantErr: apperr.ErrLinkFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			tx, err := newService(repo).Update(userCtx(), txID, tt.params)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t, tx)
			}
		})
	}
}

func TestService_MarkAsPaid(t *testing.T) {
	txID := uuid.New()

	withStatus := func(status transaction.Status, due *time.Time) *transaction.Transaction {
		return &transaction.Transaction{ID: txID, UserID: userID, Status: status, DueDate: due}
	}

	type testCase struct {
		name        string
		paymentDate *time.Time
		setupMock   func(m *transaction.MockRepository)
		wantErr     error
	}

	tests := []testCase{
		{
			name: "DefaultsToToday",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).
					Return(withStatus(transaction.StatusPending, &today), nil)
				m.EXPECT().MarkAsPaid(gomock.Any(), txID, today).Return(nil)
			},
		},
		{
			name:        "ExplicitDate",
			paymentDate: day(2024, time.June, 10),
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).
					Return(withStatus(transaction.StatusPending, &today), nil)
				m.EXPECT().MarkAsPaid(gomock.Any(), txID, calendar.Date(2024, time.June, 10)).Return(nil)
			},
		},
		{
			name: "OverdueCanBePaid",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).
					Return(withStatus(transaction.StatusPending, day(2024, time.June, 1)), nil)
				m.EXPECT().MarkAsPaid(gomock.Any(), txID, today).Return(nil)
			},
		},
		{
			name: "AlreadyPaid",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).
					Return(withStatus(transaction.StatusPaid, nil), nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "Cancelled",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).
					Return(withStatus(transaction.StatusCancelled, nil), nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:        "FuturePaymentDate",
			paymentDate: day(2024, time.June, 20),
			wantErr:     apperr.ErrValidation,
		},
		{
			name: "ProcedureNotFound",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), userID, txID).
					Return(withStatus(transaction.StatusOverdue, nil), nil)
				m.EXPECT().MarkAsPaid(gomock.Any(), txID, today).Return(apperr.NotFound("transaction"))
			},
			wantErr: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			err := newService(repo).MarkAsPaid(userCtx(), txID, tt.paymentDate)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_MarkManyAsPaid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	okID, paidID := uuid.New(), uuid.New()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().GetTransaction(gomock.Any(), userID, okID).
		Return(&transaction.Transaction{ID: okID, Status: transaction.StatusPending}, nil)
	repo.EXPECT().MarkAsPaid(gomock.Any(), okID, today).Return(nil)
	repo.EXPECT().GetTransaction(gomock.Any(), userID, paidID).
		Return(&transaction.Transaction{ID: paidID, Status: transaction.StatusPaid}, nil)

	paid, err := newService(repo).MarkManyAsPaid(userCtx(), []uuid.UUID{okID, paidID}, nil)

	assert.Equal(t, []uuid.UUID{okID}, paid)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), paidID.String())
}

func TestService_MarkManyAsPaid_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := newService(transaction.NewMockRepository(ctrl)).MarkManyAsPaid(userCtx(), nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_Cancel(t *testing.T) {
	txID := uuid.New()

	tests := []struct {
		name    string
		status  transaction.Status
		wantErr error
	}{
		{name: "Pending", status: transaction.StatusPending},
		{name: "Overdue", status: transaction.StatusOverdue},
		{name: "Paid", status: transaction.StatusPaid, wantErr: apperr.ErrValidation},
		{name: "Cancelled", status: transaction.StatusCancelled, wantErr: apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			repo.EXPECT().GetTransaction(gomock.Any(), userID, txID).
				Return(&transaction.Transaction{ID: txID, Status: tt.status}, nil)

			if tt.wantErr == nil {
				repo.EXPECT().UpdateStatus(gomock.Any(), userID, txID, transaction.StatusCancelled).Return(nil)
			}

			err := newService(repo).Cancel(userCtx(), txID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Delete(t *testing.T) {
	txID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := transaction.NewMockRepository(ctrl)
		repo.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(&transaction.Transaction{ID: txID}, nil)
		repo.EXPECT().DeleteTransaction(gomock.Any(), userID, txID).Return(nil)

		assert.NoError(t, newService(repo).Delete(userCtx(), txID))
	})

	t.Run("TransferLegRejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := transaction.NewMockRepository(ctrl)
		repo.EXPECT().GetTransaction(gomock.Any(), userID, txID).
			Return(&transaction.Transaction{ID: txID, TransferID: new(uuid.New())}, nil)

		assert.ErrorIs(t, newService(repo).Delete(userCtx(), txID), apperr.ErrValidation)
	})
}

func TestService_List(t *testing.T) {
	accountID := uuid.New()

	t.Run("AccountWithoutLinksShortCircuits", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := transaction.NewMockRepository(ctrl)
		repo.EXPECT().LinkedTransactionIDs(gomock.Any(), userID, accountID).Return(nil, nil)

		txs, err := newService(repo).List(userCtx(), transaction.ListFilter{AccountID: &accountID})
		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.NotNil(t, txs)
	})

	t.Run("AccountResolvedToIDs", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ids := []uuid.UUID{uuid.New(), uuid.New()}
		expense := transaction.TypeExpense

		repo := transaction.NewMockRepository(ctrl)
		repo.EXPECT().LinkedTransactionIDs(gomock.Any(), userID, accountID).Return(ids, nil)
		repo.EXPECT().
			ListTransactions(gomock.Any(), userID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, f transaction.ListFilter) ([]*transaction.Transaction, error) {
				assert.Equal(t, ids, f.IDs)
				assert.Nil(t, f.AccountID)
				assert.Equal(t, &expense, f.Type)
				assert.Equal(t, "rent", f.Search)
				assert.Equal(t, today, f.Today)

				return []*transaction.Transaction{{ID: ids[0]}}, nil
			})

		txs, err := newService(repo).List(userCtx(), transaction.ListFilter{
			AccountID: &accountID,
			Type:      &expense,
			Search:    "  rent ",
		})
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})

	t.Run("StoreError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := transaction.NewMockRepository(ctrl)
		repo.EXPECT().ListTransactions(gomock.Any(), userID, gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := newService(repo).List(userCtx(), transaction.ListFilter{})
		assert.ErrorContains(t, err, "listing transactions")
	})
}

func TestService_Occurrences(t *testing.T) {
	tests := []struct {
		name       string
		date       time.Time
		recurrence transaction.Recurrence
		horizon    time.Time
		limit      int
		check      func(t *testing.T, dates []time.Time)
	}{
		{
			name:       "series started in the past lists dates from today",
			date:       calendar.Date(2024, time.January, 31),
			recurrence: transaction.Recurrence{Frequency: transaction.FrequencyMonthly, Interval: 1},
			horizon:    calendar.Date(2024, time.December, 31),
			limit:      3,
			check: func(t *testing.T, dates []time.Time) {
				assert.Equal(t, []time.Time{
					calendar.Date(2024, time.June, 30),
					calendar.Date(2024, time.July, 31),
					calendar.Date(2024, time.August, 31),
				}, dates)
			},
		},
		{
			name:       "today is included",
			date:       calendar.Date(2024, time.June, 13),
			recurrence: transaction.Recurrence{Frequency: transaction.FrequencyDaily, Interval: 1},
			horizon:    calendar.Date(2024, time.December, 31),
			limit:      2,
			check: func(t *testing.T, dates []time.Time) {
				assert.Equal(t, []time.Time{today, calendar.Date(2024, time.June, 16)}, dates)
			},
		},
		{
			name: "end date bounds an unlimited listing",
			date: calendar.Date(2024, time.January, 31),
			recurrence: transaction.Recurrence{
				Frequency: transaction.FrequencyMonthly, Interval: 1, EndDate: day(2024, time.September, 30),
			},
			check: func(t *testing.T, dates []time.Time) {
				assert.Equal(t, []time.Time{
					calendar.Date(2024, time.June, 30),
					calendar.Date(2024, time.July, 31),
					calendar.Date(2024, time.August, 31),
					calendar.Date(2024, time.September, 30),
				}, dates)
			},
		},
		{
			name:       "zero horizon without end date stops one year ahead",
			date:       calendar.Date(2024, time.June, 10),
			recurrence: transaction.Recurrence{Frequency: transaction.FrequencyWeekly, Interval: 1},
			check: func(t *testing.T, dates []time.Time) {
				require.Len(t, dates, 52)
				assert.Equal(t, calendar.Date(2024, time.June, 17), dates[0])
				assert.Equal(t, calendar.Date(2025, time.June, 9), dates[len(dates)-1])
			},
		},
		{
			name:       "series that ended before today is empty",
			date:       calendar.Date(2023, time.January, 5),
			recurrence: transaction.Recurrence{Frequency: transaction.FrequencyMonthly, Interval: 1, EndDate: day(2023, time.December, 5)},
			limit:      12,
			check: func(t *testing.T, dates []time.Time) {
				assert.Empty(t, dates)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			txID := uuid.New()

			repo := transaction.NewMockRepository(ctrl)
			repo.EXPECT().GetTransaction(gomock.Any(), userID, txID).Return(&transaction.Transaction{
				ID:          txID,
				Date:        tt.date,
				IsRecurring: true,
				Recurrence:  &tt.recurrence,
			}, nil)

			dates, err := newService(repo).Occurrences(userCtx(), txID, tt.horizon, tt.limit)
			require.NoError(t, err)

			for _, d := range dates {
				assert.False(t, d.Before(today), "occurrence %s is before today", d.Format(time.DateOnly))
			}

			tt.check(t, dates)
		})
	}
}

func TestService_ImportBatch(t *testing.T) {
	accountID := uuid.New()

	rows := []transaction.CreateParams{
		{
			Type: transaction.TypeExpense, Amount: decimal.RequireFromString("42.90"), Description: "Padaria",
			Date: calendar.Date(2024, time.June, 3), Status: transaction.StatusPaid,
			PaymentDate: day(2024, time.June, 3),
		},
		{
			Type: transaction.TypeIncome, Amount: decimal.NewFromInt(3000), Description: "Salário",
			Date: calendar.Date(2024, time.June, 5), Status: transaction.StatusPaid,
			PaymentDate: day(2024, time.June, 5),
		},
	}

	t.Run("NoConflicts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := transaction.NewMockRepository(ctrl)
		itx := transaction.NewMockImportTx(ctrl)

		repo.EXPECT().
			BeginImport(gomock.Any(), userID, accountID, calendar.Date(2024, time.June, 3), calendar.Date(2024, time.June, 5)).
			Return(itx, nil)
		itx.EXPECT().FindDuplicates(gomock.Any(), rows).Return(nil, nil)
		itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Len(2)).Return(nil)
		itx.EXPECT().Commit().Return(nil)
		itx.EXPECT().Rollback().Return(nil)

		res, err := newService(repo).ImportBatch(userCtx(), accountID, rows)
		require.NoError(t, err)
		assert.Len(t, res.Imported, 2)
		assert.Empty(t, res.Conflicts)
	})

	t.Run("ConflictsStopTheImport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := transaction.NewMockRepository(ctrl)
		itx := transaction.NewMockImportTx(ctrl)

		existing := &transaction.Transaction{
			ID: uuid.New(), Type: transaction.TypeExpense, Amount: decimal.RequireFromString("42.9"),
			Description: "PADARIA", Date: calendar.Date(2024, time.June, 3),
		}

		repo.EXPECT().BeginImport(gomock.Any(), userID, accountID, gomock.Any(), gomock.Any()).Return(itx, nil)
		itx.EXPECT().FindDuplicates(gomock.Any(), rows).Return([]*transaction.Transaction{existing}, nil)
		itx.EXPECT().Rollback().Return(nil)

		res, err := newService(repo).ImportBatch(userCtx(), accountID, rows)
		require.NoError(t, err)
		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, existing, res.Conflicts[0].Existing)
		assert.Equal(t, rows[1:], res.New)
		assert.Empty(t, res.Imported)
	})

	t.Run("InvalidRow", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		bad := append([]transaction.CreateParams{}, rows...)
		bad[1].Amount = decimal.Zero

		_, err := newService(transaction.NewMockRepository(ctrl)).ImportBatch(userCtx(), accountID, bad)
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.ErrorContains(t, err, "row 2")
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		tx   transaction.Transaction
		want transaction.Status
	}{
		{name: "PendingNotDue", tx: transaction.Transaction{Status: transaction.StatusPending, DueDate: &today}, want: transaction.StatusPending},
		{name: "PendingPastDue", tx: transaction.Transaction{Status: transaction.StatusPending, DueDate: day(2024, time.June, 14)}, want: transaction.StatusOverdue},
		{name: "PendingNoDueDate", tx: transaction.Transaction{Status: transaction.StatusPending}, want: transaction.StatusPending},
		{name: "PaidPastDue", tx: transaction.Transaction{Status: transaction.StatusPaid, DueDate: day(2024, time.June, 1)}, want: transaction.StatusPaid},
		{name: "StoredOverdue", tx: transaction.Transaction{Status: transaction.StatusOverdue}, want: transaction.StatusOverdue},
		{name: "Cancelled", tx: transaction.Transaction{Status: transaction.StatusCancelled, DueDate: day(2024, time.June, 1)}, want: transaction.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transaction.Classify(&tt.tx, today))
		})
	}
}
