package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=ledger_mock.go -package=transfer
type Ledger interface {
	CreateTransaction(ctx context.Context, tx *transaction.Transaction) error
	LinkAccount(ctx context.Context, userID, transactionID, accountID uuid.UUID) error
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
	TransferLegs(ctx context.Context, userID, transferID uuid.UUID) ([]*transaction.Transaction, error)
	DeleteTransfer(ctx context.Context, userID, transferID uuid.UUID) (int64, error)
}

type Categories interface {
	EnsureTransferCategory(ctx context.Context) (*category.Category, error)
}

// Coordinator creates and removes transfers. The store offers no transaction
// spanning the four writes of a transfer, so failures are undone by
// compensating deletes.
type Coordinator struct {
	ledger     Ledger
	categories Categories
	clock      calendar.Clock
	legacy     bool
	newID      func() uuid.UUID
}

type Option func(*Coordinator)

func WithClock(clock calendar.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithLegacyCompensation only undoes a failed source leg link. A failure on
// the destination leg leaves both rows in place.
func WithLegacyCompensation(enabled bool) Option {
	return func(c *Coordinator) { c.legacy = enabled }
}

func NewCoordinator(ledger Ledger, categories Categories, opts ...Option) *Coordinator {
	c := &Coordinator{ledger: ledger, categories: categories, clock: time.Now, newID: uuid.New}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Coordinator) validate(p *Params) error {
	if p.FromAccountID == uuid.Nil || p.ToAccountID == uuid.Nil || p.Amount.IsZero() ||
		p.Date.IsZero() || strings.TrimSpace(p.Description) == "" {
		return apperr.Invalid("", "from_account_id, to_account_id, amount, date and description are required")
	}

	if p.FromAccountID == p.ToAccountID {
		return apperr.Invalid("to_account_id", "source and destination accounts must differ")
	}

	if !p.Amount.IsPositive() {
		return apperr.Invalid("amount", "must be greater than zero")
	}

	if p.Status == "" {
		p.Status = transaction.StatusPaid
	}

	switch p.Status {
	case transaction.StatusPaid:
		if calendar.Day(p.Date).After(c.clock.Today().AddDate(0, 0, 1)) {
			return apperr.Invalid("date", "a paid transfer cannot be more than one day in the future")
		}
	case transaction.StatusPending:
		if p.DueDate == nil {
			return apperr.Invalid("due_date", "is required for pending transfers")
		}
	default:
		return apperr.Invalid("status", "must be paid or pending")
	}

	if utf8.RuneCountInString(DescriptionPrefix+strings.TrimSpace(p.Description)) > 200 {
		return apperr.Invalid("description", "is too long")
	}

	return nil
}

// leg builds one side of the transfer. Paid transfers are dated and settled on
// the supplied date; pending ones are dated today and due on DueDate.
func (c *Coordinator) leg(userID, transferID, categoryID uuid.UUID, t transaction.Type, p Params) *transaction.Transaction {
	tx := &transaction.Transaction{
		UserID:      userID,
		Type:        t,
		Amount:      p.Amount,
		Description: DescriptionPrefix + strings.TrimSpace(p.Description),
		CategoryID:  &categoryID,
		Status:      p.Status,
		Tags:        []string{transaction.TransferTag},
		TransferID:  &transferID,
	}

	if p.Status == transaction.StatusPaid {
		date := calendar.Day(p.Date)
		tx.Date = date
		tx.PaymentDate = &date
	} else {
		due := calendar.Day(*p.DueDate)
		tx.Date = c.clock.Today()
		tx.DueDate = &due
	}

	return tx
}

// CreateTransfer writes the expense leg and its link, then the income leg and
// its link. Either both legs exist afterwards or an error is returned; in
// legacy mode a destination failure is returned with the rows left in place.
func (c *Coordinator) CreateTransfer(ctx context.Context, p Params) (*Transfer, error) {
	if err := c.validate(&p); err != nil {
		return nil, err
	}

	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	transferID := c.newID()

	cat, err := c.categories.EnsureTransferCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving transfer category: %w", err)
	}

	expense := c.leg(userID, transferID, cat.ID, transaction.TypeExpense, p)
	if err := c.ledger.CreateTransaction(ctx, expense); err != nil {
		return nil, fmt.Errorf("creating expense leg: %w", err)
	}

	if err := c.ledger.LinkAccount(ctx, userID, expense.ID, p.FromAccountID); err != nil {
		return nil, c.undo(ctx, userID, &apperr.LinkError{Err: err}, expense.ID)
	}

	income := c.leg(userID, transferID, cat.ID, transaction.TypeIncome, p)
	if err := c.ledger.CreateTransaction(ctx, income); err != nil {
		err = fmt.Errorf("creating income leg: %w", err)
		if c.legacy {
			return nil, err
		}

		return nil, c.undo(ctx, userID, err, expense.ID)
	}

	if err := c.ledger.LinkAccount(ctx, userID, income.ID, p.ToAccountID); err != nil {
		if c.legacy {
			slog.WarnContext(ctx, "transfer left incomplete", "transfer_id", transferID, "error", err)
			return nil, &apperr.LinkError{Err: err}
		}

		return nil, c.undo(ctx, userID, &apperr.LinkError{Err: err}, income.ID, expense.ID)
	}

	expense.Account = &transaction.AccountRef{ID: p.FromAccountID}
	income.Account = &transaction.AccountRef{ID: p.ToAccountID}

	return &Transfer{ID: transferID, Expense: expense, Income: income}, nil
}

// undo deletes the given legs in order. A LinkError cause is marked
// compensated when every delete succeeded.
func (c *Coordinator) undo(ctx context.Context, userID uuid.UUID, cause error, ids ...uuid.UUID) error {
	var le *apperr.LinkError

	isLink := errors.As(cause, &le)

	for _, id := range ids {
		if err := c.ledger.DeleteTransaction(ctx, userID, id); err != nil {
			slog.ErrorContext(ctx, "compensating delete failed", "transaction_id", id, "error", err)

			if isLink {
				le.Err = errors.Join(le.Err, err)
				return le
			}

			return errors.Join(cause, err)
		}
	}

	if isLink {
		le.Compensated = true
	}

	return cause
}

// Get returns the legs sharing transferID.
func (c *Coordinator) Get(ctx context.Context, transferID uuid.UUID) (*Transfer, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	legs, err := c.ledger.TransferLegs(ctx, userID, transferID)
	if err != nil {
		return nil, err
	}

	if len(legs) == 0 {
		return nil, apperr.NotFound("transfer")
	}

	t := &Transfer{ID: transferID}

	for _, leg := range legs {
		switch leg.Type {
		case transaction.TypeExpense:
			t.Expense = leg
		case transaction.TypeIncome:
			t.Income = leg
		}
	}

	return t, nil
}

// Delete removes both legs. Account balances follow through the store
// triggers on the account links.
func (c *Coordinator) Delete(ctx context.Context, transferID uuid.UUID) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	n, err := c.ledger.DeleteTransfer(ctx, userID, transferID)
	if err != nil {
		return err
	}

	if n == 0 {
		return apperr.NotFound("transfer")
	}

	return nil
}
