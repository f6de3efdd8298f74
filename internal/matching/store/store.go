package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/database"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, userID uuid.UUID, description string) (*uuid.UUID, error) {
	query := `
		SELECT category_id
		FROM category_rules
		WHERE user_id = $1 AND strpos(lower($2), lower(raw_pattern)) > 0
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var categoryID uuid.UUID

	err := s.db.QueryRowContext(ctx, query, userID, description).Scan(&categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding match: %w", err)
	}

	return &categoryID, nil
}

// SaveRule inserts the rule or repoints an existing pattern. The category must
// belong to the rule's user.
func (s *Store) SaveRule(ctx context.Context, r *matching.Rule) error {
	query := `
		INSERT INTO category_rules (user_id, raw_pattern, category_id)
		SELECT $1::uuid, $2::text, c.id FROM categories c WHERE c.id = $3 AND c.user_id = $1::uuid
		ON CONFLICT (user_id, raw_pattern) DO UPDATE SET category_id = EXCLUDED.category_id
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, r.UserID, r.Pattern, r.CategoryID).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsForeignKeyViolation(err) {
			return apperr.Invalid("category_id", "category does not exist")
		}

		return fmt.Errorf("saving rule: %w", err)
	}

	return nil
}

func (s *Store) ListRules(ctx context.Context, userID uuid.UUID) ([]*matching.Rule, error) {
	query := `
		SELECT id, user_id, raw_pattern, category_id, created_at
		FROM category_rules
		WHERE user_id = $1
		ORDER BY raw_pattern
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	rules := []*matching.Rule{}

	for rows.Next() {
		var r matching.Rule
		if err := rows.Scan(&r.ID, &r.UserID, &r.Pattern, &r.CategoryID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}

		rules = append(rules, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return rules, nil
}

func (s *Store) DeleteRule(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("rule")
	}

	return nil
}
