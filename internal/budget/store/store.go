package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectBudgetColumns = `id, user_id, category_id, amount, period, start_date, end_date, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (*budget.Budget, error) {
	var b budget.Budget

	var period string

	if err := s.Scan(
		&b.ID, &b.UserID, &b.CategoryID, &b.Amount, &period, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.Period = budget.Period(period)

	return &b, nil
}

func (s *Store) CreateBudget(ctx context.Context, b *budget.Budget) error {
	query := `
		INSERT INTO budgets (user_id, category_id, amount, period, start_date, end_date)
		SELECT $1::uuid, $2::uuid, $3::numeric, $4::text, $5::date, $6::date
		WHERE $2::uuid IS NULL OR EXISTS (SELECT 1 FROM categories WHERE id = $2::uuid AND user_id = $1::uuid)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		b.UserID, b.CategoryID, b.Amount, b.Period, b.StartDate, b.EndDate,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsForeignKeyViolation(err) {
			return apperr.Invalid("category_id", "category does not exist")
		}

		return fmt.Errorf("creating budget: %w", err)
	}

	return nil
}

func (s *Store) GetBudget(ctx context.Context, userID, id uuid.UUID) (*budget.Budget, error) {
	query := `SELECT ` + selectBudgetColumns + ` FROM budgets WHERE id = $1 AND user_id = $2`

	b, err := scanBudget(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("budget")
		}

		return nil, fmt.Errorf("getting budget: %w", err)
	}

	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, userID uuid.UUID) ([]*budget.Budget, error) {
	query := `SELECT ` + selectBudgetColumns + ` FROM budgets WHERE user_id = $1 ORDER BY start_date DESC, created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	defer rows.Close()

	budgets := []*budget.Budget{}

	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}

		budgets = append(budgets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget rows: %w", err)
	}

	return budgets, nil
}

// UpdateBudget rewrites the budget. A new category must belong to the
// budget's user.
func (s *Store) UpdateBudget(ctx context.Context, b *budget.Budget) error {
	if b.CategoryID != nil {
		var owned bool

		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`, *b.CategoryID, b.UserID,
		).Scan(&owned)
		if err != nil {
			return fmt.Errorf("checking category: %w", err)
		}

		if !owned {
			return apperr.Invalid("category_id", "category does not exist")
		}
	}

	query := `
		UPDATE budgets
		SET category_id = $1, amount = $2, period = $3, start_date = $4, end_date = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		b.CategoryID, b.Amount, b.Period, b.StartDate, b.EndDate, b.ID, b.UserID,
	).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("budget")
		}

		if database.IsForeignKeyViolation(err) {
			return apperr.Invalid("category_id", "category does not exist")
		}

		return fmt.Errorf("updating budget: %w", err)
	}

	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("budget")
	}

	return nil
}
