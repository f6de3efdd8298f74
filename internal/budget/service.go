package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=budget
type Repository interface {
	CreateBudget(ctx context.Context, b *Budget) error
	GetBudget(ctx context.Context, userID, id uuid.UUID) (*Budget, error)
	ListBudgets(ctx context.Context, userID uuid.UUID) ([]*Budget, error)
	UpdateBudget(ctx context.Context, b *Budget) error
	DeleteBudget(ctx context.Context, userID, id uuid.UUID) error
}

// Expenses lists transactions; the transaction service satisfies it.
type Expenses interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Service struct {
	repo     Repository
	expenses Expenses
	clock    calendar.Clock
}

type Option func(*Service)

func WithClock(clock calendar.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(repo Repository, expenses Expenses, opts ...Option) *Service {
	s := &Service{repo: repo, expenses: expenses, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	CategoryID *uuid.UUID
	Amount     decimal.Decimal
	Period     Period
	StartDate  time.Time
	EndDate    *time.Time
}

type UpdateParams struct {
	CategoryID    *uuid.UUID
	ClearCategory bool
	Amount        *decimal.Decimal
	Period        *Period
	StartDate     *time.Time
	EndDate       *time.Time
	ClearEndDate  bool
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Budget, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	b := &Budget{
		UserID:     userID,
		CategoryID: params.CategoryID,
		Amount:     params.Amount,
		Period:     params.Period,
		StartDate:  calendar.Day(params.StartDate),
	}

	if params.EndDate != nil {
		end := calendar.Day(*params.EndDate)
		b.EndDate = &end
	}

	if err := validate(b, params.StartDate.IsZero()); err != nil {
		return nil, err
	}

	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Budget, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.GetBudget(ctx, userID, id)
}

func (s *Service) List(ctx context.Context) ([]*Budget, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.ListBudgets(ctx, userID)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Budget, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.CategoryID != nil {
		b.CategoryID = params.CategoryID
	}

	if params.ClearCategory {
		b.CategoryID = nil
	}

	if params.Amount != nil {
		b.Amount = *params.Amount
	}

	if params.Period != nil {
		b.Period = *params.Period
	}

	if params.StartDate != nil {
		b.StartDate = calendar.Day(*params.StartDate)
	}

	if params.EndDate != nil {
		end := calendar.Day(*params.EndDate)
		b.EndDate = &end
	}

	if params.ClearEndDate {
		b.EndDate = nil
	}

	if err := validate(b, false); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	return s.repo.DeleteBudget(ctx, userID, id)
}

// Usage computes spent, percentage and days remaining for the budget's
// current window from the user's paid expenses.
func (s *Service) Usage(ctx context.Context, id uuid.UUID) (*Usage, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	u, err := s.usage(ctx, b)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *Service) ListWithUsage(ctx context.Context) ([]WithUsage, error) {
	budgets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]WithUsage, 0, len(budgets))

	for _, b := range budgets {
		u, err := s.usage(ctx, b)
		if err != nil {
			return nil, err
		}

		out = append(out, WithUsage{Budget: b, Usage: u})
	}

	return out, nil
}

func (s *Service) usage(ctx context.Context, b *Budget) (Usage, error) {
	today := s.clock.Today()
	start, end := b.Window(today)

	expense := transaction.TypeExpense
	paid := transaction.StatusPaid

	txs, err := s.expenses.List(ctx, transaction.ListFilter{
		Type:       &expense,
		Status:     &paid,
		CategoryID: b.CategoryID,
		StartDate:  &start,
		EndDate:    &end,
	})
	if err != nil {
		return Usage{}, fmt.Errorf("loading budget expenses: %w", err)
	}

	amounts := make([]decimal.Decimal, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
	}

	return b.usage(today, amounts), nil
}

func validate(b *Budget, missingStart bool) error {
	if !b.Amount.IsPositive() {
		return apperr.Invalid("amount", "must be greater than zero")
	}

	if !b.Period.Valid() {
		return apperr.Invalid("period", "must be monthly, weekly, yearly or custom")
	}

	if missingStart {
		return apperr.Invalid("start_date", "is required")
	}

	if b.Period == PeriodCustom && b.EndDate == nil {
		return apperr.Invalid("end_date", "is required for custom budgets")
	}

	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return apperr.Invalid("end_date", "must not be before start_date")
	}

	return nil
}
