package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectAccountColumns = `
	id, user_id, name, type, initial_balance, current_balance, currency, is_active, created_at, updated_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*account.Account, error) {
	var a account.Account

	var typeStr string

	if err := s.Scan(
		&a.ID, &a.UserID, &a.Name, &typeStr, &a.InitialBalance, &a.CurrentBalance,
		&a.Currency, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	a.Type = account.Type(typeStr)

	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (user_id, name, type, initial_balance, current_balance, currency, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		a.UserID, a.Name, a.Type, a.InitialBalance, a.CurrentBalance, a.Currency, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict(fmt.Sprintf("account %q already exists", a.Name))
		}

		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("account")
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE user_id = $1`
	if !includeInactive {
		query += ` AND is_active`
	}

	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*account.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateAccount writes the editable fields. current_balance is left to the
// store procedures.
func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, type = $2, initial_balance = $3, currency = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		a.Name, a.Type, a.InitialBalance, a.Currency, a.IsActive, a.ID, a.UserID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("account")
		}

		if database.IsUniqueViolation(err) {
			return apperr.Conflict(fmt.Sprintf("account %q already exists", a.Name))
		}

		return fmt.Errorf("updating account: %w", err)
	}

	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	if n == 0 {
		return apperr.NotFound("account")
	}

	return nil
}

func (s *Store) HasTransactions(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM account_transactions WHERE account_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking account transactions: %w", err)
	}

	return exists, nil
}

func (s *Store) RecalculateBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal

	if err := s.db.QueryRowContext(ctx, `SELECT recalculate_account_balance($1)`, id).Scan(&balance); err != nil {
		if database.IsNoDataFound(err) {
			return decimal.Zero, apperr.NotFound("account")
		}

		return decimal.Zero, fmt.Errorf("calling recalculate_account_balance: %w", err)
	}

	return balance, nil
}

func (s *Store) RecalculateAll(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int

	if err := s.db.QueryRowContext(ctx, `SELECT recalculate_all_account_balances($1)`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("calling recalculate_all_account_balances: %w", err)
	}

	return n, nil
}
