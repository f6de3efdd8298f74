package matching

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
)

// Rule files transactions whose description contains Pattern under CategoryID.
type Rule struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Pattern    string
	CategoryID uuid.UUID
	CreatedAt  time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindMatch(ctx context.Context, userID uuid.UUID, description string) (*uuid.UUID, error)
	SaveRule(ctx context.Context, r *Rule) error
	ListRules(ctx context.Context, userID uuid.UUID) ([]*Rule, error)
	DeleteRule(ctx context.Context, userID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the category of the longest rule pattern contained in
// description, ignoring case. It returns nil when no rule matches.
func (s *Service) Suggest(ctx context.Context, description string) (*uuid.UUID, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, nil
	}

	return s.repo.FindMatch(ctx, userID, description)
}

// Learn remembers that descriptions containing pattern belong to categoryID.
// Learning an existing pattern again moves it to the new category.
func (s *Service) Learn(ctx context.Context, pattern string, categoryID uuid.UUID) (*Rule, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	pattern = strings.TrimSpace(pattern)
	if utf8.RuneCountInString(pattern) < 2 {
		return nil, apperr.Invalid("pattern", "must have at least 2 characters")
	}

	if categoryID == uuid.Nil {
		return nil, apperr.Invalid("category_id", "is required")
	}

	r := &Rule{UserID: userID, Pattern: pattern, CategoryID: categoryID}
	if err := s.repo.SaveRule(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) List(ctx context.Context) ([]*Rule, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.ListRules(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	return s.repo.DeleteRule(ctx, userID, id)
}
