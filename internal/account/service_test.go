package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

func newService(ctrl *gomock.Controller) (*account.Service, *account.MockRepository, *account.MockTransactionLister) {
	repo := account.NewMockRepository(ctrl)
	txs := account.NewMockTransactionLister(ctrl)

	return account.NewService(repo, account.NewProjector(repo, txs, account.WithFailSoft(true))), repo, txs
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    account.CreateParams
		setupMock func(m *account.MockRepository)
		wantErr   error
		check     func(t *testing.T, a *account.Account)
	}

	tests := []testCase{
		{
			name:   "DefaultsCurrencyAndBalance",
			params: account.CreateParams{Name: " Checking ", Type: account.TypeChecking, InitialBalance: decimal.NewFromInt(1000)},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, a *account.Account) {
				assert.Equal(t, "Checking", a.Name)
				assert.Equal(t, "BRL", a.Currency)
				assert.True(t, a.CurrentBalance.Equal(decimal.NewFromInt(1000)))
				assert.True(t, a.IsActive)
			},
		},
		{
			name:    "NameTooShort",
			params:  account.CreateParams{Name: "C", Type: account.TypeCash},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "UnknownType",
			params:  account.CreateParams{Name: "Wallet", Type: "crypto"},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "BadCurrency",
			params:  account.CreateParams{Name: "Wallet", Type: account.TypeCash, Currency: "reais"},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "DuplicateName",
			params: account.CreateParams{Name: "Wallet", Type: account.TypeCash},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(apperr.Conflict(`account "Wallet" already exists`))
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc, repo, _ := newService(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			a, err := svc.Create(userCtx(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}

func TestService_Update_InitialBalanceRecalculates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo, _ := newService(ctrl)

	id := uuid.New()
	stored := &account.Account{
		ID: id, UserID: userID, Name: "Checking", Type: account.TypeChecking, Currency: "BRL", IsActive: true,
		InitialBalance: decimal.NewFromInt(1000), CurrentBalance: decimal.NewFromInt(800),
	}

	gomock.InOrder(
		repo.EXPECT().GetAccount(gomock.Any(), userID, id).Return(stored, nil),
		repo.EXPECT().UpdateAccount(gomock.Any(), stored).Return(nil),
		repo.EXPECT().RecalculateBalance(gomock.Any(), id).Return(decimal.NewFromInt(1300), nil),
	)

	a, err := svc.Update(userCtx(), id, account.UpdateParams{InitialBalance: new(decimal.NewFromInt(1500))})
	require.NoError(t, err)

	assert.True(t, a.CurrentBalance.Equal(decimal.NewFromInt(1300)))
}

func TestService_Update_NameOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo, _ := newService(ctrl)

	id := uuid.New()

	repo.EXPECT().GetAccount(gomock.Any(), userID, id).Return(&account.Account{
		ID: id, UserID: userID, Name: "Checking", Type: account.TypeChecking, Currency: "BRL",
		InitialBalance: decimal.NewFromInt(10),
	}, nil)
	repo.EXPECT().UpdateAccount(gomock.Any(), gomock.Any()).Return(nil)

	a, err := svc.Update(userCtx(), id, account.UpdateParams{
		Name:           new("Conta corrente"),
		InitialBalance: new(decimal.RequireFromString("10.00")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Conta corrente", a.Name)
}

func TestService_Delete(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name            string
		linked          bool
		wantDeactivated bool
	}{
		{name: "HardDeleteWithoutTransactions", linked: false},
		{name: "SoftDeleteWithTransactions", linked: true, wantDeactivated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc, repo, _ := newService(ctrl)

			repo.EXPECT().GetAccount(gomock.Any(), userID, id).
				Return(&account.Account{ID: id, UserID: userID, IsActive: true}, nil)
			repo.EXPECT().HasTransactions(gomock.Any(), id).Return(tt.linked, nil)

			if tt.linked {
				repo.EXPECT().
					UpdateAccount(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, a *account.Account) error {
						assert.False(t, a.IsActive)
						return nil
					})
			} else {
				repo.EXPECT().DeleteAccount(gomock.Any(), userID, id).Return(nil)
			}

			deactivated, err := svc.Delete(userCtx(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeactivated, deactivated)
		})
	}
}

func TestService_Recalculate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo, _ := newService(ctrl)

	id := uuid.New()

	repo.EXPECT().GetAccount(gomock.Any(), userID, id).Return(&account.Account{ID: id}, nil)
	repo.EXPECT().RecalculateBalance(gomock.Any(), id).Return(decimal.NewFromInt(800), nil)

	balance, err := svc.Recalculate(userCtx(), id)
	require.NoError(t, err)
	assert.Equal(t, "800", balance.String())
}

func TestService_ListWithProjection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo, txs := newService(ctrl)

	checking := &account.Account{ID: uuid.New(), Name: "Checking", CurrentBalance: decimal.NewFromInt(800)}
	savings := &account.Account{ID: uuid.New(), Name: "Savings", CurrentBalance: decimal.NewFromInt(300)}

	repo.EXPECT().ListAccounts(gomock.Any(), userID, false).Return([]*account.Account{checking, savings}, nil)
	txs.EXPECT().List(gomock.Any(), unsettledFilter(checking.ID)).Return([]*transaction.Transaction{
		{Type: transaction.TypeIncome, Amount: decimal.NewFromInt(50), Status: transaction.StatusPending},
	}, nil)
	txs.EXPECT().List(gomock.Any(), unsettledFilter(savings.ID)).Return(nil, errors.New("statement timeout"))

	got, err := svc.ListWithProjection(userCtx(), false)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "850", got[0].ProjectedBalance.String())
	assert.True(t, got[1].ProjectedBalance.IsZero())
}
