package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

//go:generate mockgen -source=balance.go -destination=balance_mock.go -package=account
type TransactionLister interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

// Projector computes projected balances. It never writes current_balance.
type Projector struct {
	repo     Repository
	txs      TransactionLister
	failSoft bool
}

type ProjectorOption func(*Projector)

// WithFailSoft makes ProjectOrZero report a zero balance instead of an error
// when the projection cannot be computed.
func WithFailSoft(enabled bool) ProjectorOption {
	return func(p *Projector) { p.failSoft = enabled }
}

func NewProjector(repo Repository, txs TransactionLister, opts ...ProjectorOption) *Projector {
	p := &Projector{repo: repo, txs: txs}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Project returns current_balance plus pending and overdue income minus
// pending and overdue expenses linked to the account.
func (p *Projector) Project(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	acc, err := p.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading account balance: %w", err)
	}

	return p.project(ctx, acc)
}

func (p *Projector) project(ctx context.Context, acc *Account) (decimal.Decimal, error) {
	unsettled, err := p.txs.List(ctx, transaction.ListFilter{
		AccountID: &acc.ID,
		Statuses:  []transaction.Status{transaction.StatusPending, transaction.StatusOverdue},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading unsettled transactions: %w", err)
	}

	var pendingIncome, pendingExpense decimal.Decimal

	for _, tx := range unsettled {
		switch tx.Type {
		case transaction.TypeIncome:
			pendingIncome = pendingIncome.Add(tx.Amount)
		case transaction.TypeExpense:
			pendingExpense = pendingExpense.Add(tx.Amount)
		}
	}

	return acc.CurrentBalance.Add(pendingIncome).Sub(pendingExpense), nil
}

// ProjectOrZero is the list-rendering read path. With fail-soft enabled a
// failed projection is logged and reported as zero; otherwise it behaves like
// Project. Authentication failures are always returned.
func (p *Projector) ProjectOrZero(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	balance, err := p.Project(ctx, accountID)

	return p.soften(ctx, accountID, balance, err)
}

func (p *Projector) soften(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal, err error) (decimal.Decimal, error) {
	if err == nil || !p.failSoft || errors.Is(err, apperr.ErrUnauthenticated) {
		return balance, err
	}

	slog.WarnContext(ctx, "projected balance unavailable, reporting zero", "account_id", accountID, "error", err)

	return decimal.Zero, nil
}
