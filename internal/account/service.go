package account

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, userID, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]*Account, error)
	UpdateAccount(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, userID, id uuid.UUID) error
	HasTransactions(ctx context.Context, id uuid.UUID) (bool, error)
	RecalculateBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	RecalculateAll(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service struct {
	repo      Repository
	projector *Projector
}

func NewService(repo Repository, projector *Projector) *Service {
	return &Service{repo: repo, projector: projector}
}

type CreateParams struct {
	Name           string
	Type           Type
	InitialBalance decimal.Decimal
	Currency       string
}

type UpdateParams struct {
	Name           *string
	Type           *Type
	InitialBalance *decimal.Decimal
	Currency       *string
	IsActive       *bool
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

func (s *Service) Create(ctx context.Context, params CreateParams) (*Account, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	a := &Account{
		UserID:         userID,
		Name:           strings.TrimSpace(params.Name),
		Type:           params.Type,
		InitialBalance: params.InitialBalance,
		CurrentBalance: params.InitialBalance,
		Currency:       currency,
		IsActive:       true,
	}

	if err := validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.GetAccount(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]*Account, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.ListAccounts(ctx, userID, includeInactive)
}

// ListWithProjection lists accounts with their projected balances under the
// projector's fail-soft policy.
func (s *Service) ListWithProjection(ctx context.Context, includeInactive bool) ([]Projection, error) {
	accounts, err := s.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	out := make([]Projection, 0, len(accounts))

	for _, a := range accounts {
		balance, err := s.projector.project(ctx, a)

		balance, err = s.projector.soften(ctx, a.ID, balance, err)
		if err != nil {
			return nil, fmt.Errorf("projecting account %s: %w", a.Name, err)
		}

		out = append(out, Projection{Account: a, ProjectedBalance: balance})
	}

	return out, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Account, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		a.Name = strings.TrimSpace(*params.Name)
	}

	if params.Type != nil {
		a.Type = *params.Type
	}

	if params.Currency != nil {
		a.Currency = strings.ToUpper(strings.TrimSpace(*params.Currency))
	}

	if params.IsActive != nil {
		a.IsActive = *params.IsActive
	}

	rebalance := params.InitialBalance != nil && !params.InitialBalance.Equal(a.InitialBalance)
	if params.InitialBalance != nil {
		a.InitialBalance = *params.InitialBalance
	}

	if err := validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}

	if rebalance {
		balance, err := s.repo.RecalculateBalance(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("recalculating balance: %w", err)
		}

		a.CurrentBalance = balance
	}

	return a, nil
}

// Delete removes an account without transactions. An account with linked
// transactions is deactivated instead and deactivated reports true.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (deactivated bool, err error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return false, err
	}

	a, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return false, err
	}

	linked, err := s.repo.HasTransactions(ctx, a.ID)
	if err != nil {
		return false, fmt.Errorf("checking account transactions: %w", err)
	}

	if !linked {
		return false, s.repo.DeleteAccount(ctx, userID, a.ID)
	}

	a.IsActive = false
	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return false, err
	}

	return true, nil
}

// Recalculate recomputes current_balance from the account's paid transactions.
func (s *Service) Recalculate(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if _, err := s.repo.GetAccount(ctx, userID, id); err != nil {
		return decimal.Zero, err
	}

	return s.repo.RecalculateBalance(ctx, id)
}

// RecalculateAll recomputes every account of the user and returns how many
// were updated.
func (s *Service) RecalculateAll(ctx context.Context) (int, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return 0, err
	}

	return s.repo.RecalculateAll(ctx, userID)
}

func validate(a *Account) error {
	if n := utf8.RuneCountInString(a.Name); n < 2 || n > 100 {
		return apperr.Invalid("name", "must be between 2 and 100 characters")
	}

	if !a.Type.Valid() {
		return apperr.Invalid("type", "must be checking, savings, cash, investment or other")
	}

	if !currencyRe.MatchString(a.Currency) {
		return apperr.Invalid("currency", "must be a three letter ISO code")
	}

	return nil
}
