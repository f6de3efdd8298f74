package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, userID, id uuid.UUID) (*Category, error)
	FindCategoryByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const (
	transferColor = "#6B7280"
	transferIcon  = "arrow-left-right"
)

type CreateParams struct {
	Name     string
	Type     Type
	Color    string
	Icon     string
	ParentID *uuid.UUID
}

// UpdateParams holds the fields to change; nil fields are left untouched.
// ClearParent detaches the category from its parent.
type UpdateParams struct {
	Name        *string
	Type        *Type
	Color       *string
	Icon        *string
	ParentID    *uuid.UUID
	ClearParent bool
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Category, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	c := &Category{
		UserID:   userID,
		Name:     strings.TrimSpace(params.Name),
		Type:     params.Type,
		Color:    params.Color,
		Icon:     params.Icon,
		ParentID: params.ParentID,
	}

	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.checkParent(ctx, c); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.GetCategory(ctx, userID, id)
}

// List returns the user's categories. When t is set only the categories
// eligible for that transaction type are returned.
func (s *Service) List(ctx context.Context, t *Type) ([]*Category, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	cats, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	if t == nil {
		return cats, nil
	}

	return Eligible(cats, *t), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousType := c.Type

	if params.Name != nil {
		c.Name = strings.TrimSpace(*params.Name)
	}

	if params.Type != nil {
		c.Type = *params.Type
	}

	if params.Color != nil {
		c.Color = *params.Color
	}

	if params.Icon != nil {
		c.Icon = *params.Icon
	}

	if params.ParentID != nil {
		c.ParentID = params.ParentID
	}

	if params.ClearParent {
		c.ParentID = nil
	}

	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.checkParent(ctx, c); err != nil {
		return nil, err
	}

	if c.Type != previousType {
		if err := s.checkChildren(ctx, c); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return err
	}

	return s.repo.DeleteCategory(ctx, userID, id)
}

// EnsureTransferCategory returns the user's transfer category, creating it on
// first use.
func (s *Service) EnsureTransferCategory(ctx context.Context) (*Category, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.FindCategoryByName(ctx, userID, TransferCategoryName)
	if err == nil {
		return s.asTransferCategory(ctx, userID, c)
	}

	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("resolving transfer category: %w", err)
	}

	c = &Category{
		UserID: userID,
		Name:   TransferCategoryName,
		Type:   TypeBoth,
		Color:  transferColor,
		Icon:   transferIcon,
	}

	err = s.repo.CreateCategory(ctx, c)
	if errors.Is(err, apperr.ErrConflict) {
		// Created concurrently by another request.
		if c, err = s.repo.FindCategoryByName(ctx, userID, TransferCategoryName); err != nil {
			return nil, fmt.Errorf("resolving transfer category: %w", err)
		}

		return s.asTransferCategory(ctx, userID, c)
	}

	if err != nil {
		return nil, fmt.Errorf("creating transfer category: %w", err)
	}

	return c, nil
}

// asTransferCategory widens a user category that already carries the transfer
// name to type both, so it can tag the income and the expense leg. A parent
// that is not of type both is detached.
func (s *Service) asTransferCategory(ctx context.Context, userID uuid.UUID, c *Category) (*Category, error) {
	if c.Type == TypeBoth {
		return c, nil
	}

	c.Type = TypeBoth

	if c.ParentID != nil {
		parent, err := s.repo.GetCategory(ctx, userID, *c.ParentID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("loading parent category: %w", err)
		}

		if err != nil || parent.Type != TypeBoth {
			c.ParentID = nil
		}
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("widening transfer category: %w", err)
	}

	slog.InfoContext(ctx, "transfer category widened to type both", "category_id", c.ID)

	return c, nil
}

func validate(c *Category) error {
	if n := utf8.RuneCountInString(c.Name); n < 2 || n > 50 {
		return apperr.Invalid("name", "must be between 2 and 50 characters")
	}

	if !c.Type.Valid() {
		return apperr.Invalid("type", "must be income, expense or both")
	}

	if !colorPattern.MatchString(c.Color) {
		return apperr.Invalid("color", "must be a hex color like #RRGGBB")
	}

	return nil
}

// checkParent enforces the parent rules: the parent must exist, may not be the
// category itself or one of its direct children, and must share the type or
// be of type both.
func (s *Service) checkParent(ctx context.Context, c *Category) error {
	if c.ParentID == nil {
		return nil
	}

	if c.ID != uuid.Nil && *c.ParentID == c.ID {
		return apperr.Invalid("parent_category_id", "a category cannot be its own parent")
	}

	parent, err := s.repo.GetCategory(ctx, c.UserID, *c.ParentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Invalid("parent_category_id", "parent category not found")
	}

	if err != nil {
		return fmt.Errorf("loading parent category: %w", err)
	}

	if c.ID != uuid.Nil && parent.ParentID != nil && *parent.ParentID == c.ID {
		return apperr.Invalid("parent_category_id", "parent category is a subcategory of this category")
	}

	if parent.Type != c.Type && parent.Type != TypeBoth {
		return apperr.Invalid("parent_category_id", "parent category must have the same type or be of type both")
	}

	return nil
}

// checkChildren rejects a type change that would leave a subcategory under a
// parent of a different type.
func (s *Service) checkChildren(ctx context.Context, c *Category) error {
	if c.Type == TypeBoth {
		return nil
	}

	cats, err := s.repo.ListCategories(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("loading subcategories: %w", err)
	}

	for _, child := range cats {
		if child.ParentID != nil && *child.ParentID == c.ID && child.Type != c.Type {
			return apperr.Invalid("type", fmt.Sprintf("subcategory %q has type %s", child.Name, child.Type))
		}
	}

	return nil
}
