package category_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
)

var userID = uuid.MustParse("8d0f7a4e-0b7c-4a63-9f4b-5d2a3c1e9b10")

func userCtx() context.Context {
	return auth.WithUser(context.Background(), userID)
}

func TestService_Create(t *testing.T) {
	parentID := uuid.New()

	type testCase struct {
		name      string
		params    category.CreateParams
		setupMock func(m *category.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			params: category.CreateParams{Name: "Food", Type: category.TypeExpense, Color: "#FF0000"},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					CreateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *category.Category) error {
						c.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name:    "NameTooShort",
			params:  category.CreateParams{Name: "F", Type: category.TypeExpense, Color: "#FF0000"},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "BadColor",
			params:  category.CreateParams{Name: "Food", Type: category.TypeExpense, Color: "red"},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "BadType",
			params:  category.CreateParams{Name: "Food", Type: "transfer", Color: "#FF0000"},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "ParentOfBothType",
			params: category.CreateParams{
				Name: "Groceries", Type: category.TypeExpense, Color: "#00FF00", ParentID: &parentID,
			},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					GetCategory(gomock.Any(), userID, parentID).
					Return(&category.Category{ID: parentID, Type: category.TypeBoth}, nil)
				m.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "ParentTypeMismatch",
			params: category.CreateParams{
				Name: "Salary bonus", Type: category.TypeIncome, Color: "#00FF00", ParentID: &parentID,
			},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					GetCategory(gomock.Any(), userID, parentID).
					Return(&category.Category{ID: parentID, Type: category.TypeExpense}, nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "ParentMissing",
			params: category.CreateParams{
				Name: "Groceries", Type: category.TypeExpense, Color: "#00FF00", ParentID: &parentID,
			},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					GetCategory(gomock.Any(), userID, parentID).
					Return(nil, apperr.NotFound("category"))
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "DuplicateName",
			params: category.CreateParams{Name: "Food", Type: category.TypeExpense, Color: "#FF0000"},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					CreateCategory(gomock.Any(), gomock.Any()).
					Return(apperr.Conflict("category \"Food\" already exists"))
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := category.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := category.NewService(repo)
			got, err := svc.Create(userCtx(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, userID, got.UserID)
		})
	}
}

func TestService_Create_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := category.NewService(category.NewMockRepository(ctrl))

	_, err := svc.Create(context.Background(), category.CreateParams{Name: "Food"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestService_Update_SelfParent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := category.NewMockRepository(ctrl)
	repo.EXPECT().
		GetCategory(gomock.Any(), userID, id).
		Return(&category.Category{ID: id, UserID: userID, Name: "Food", Type: category.TypeExpense, Color: "#FF0000"}, nil)

	svc := category.NewService(repo)

	_, err := svc.Update(userCtx(), id, category.UpdateParams{ParentID: &id})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_Update_ChildAsParent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	childID := uuid.New()
	repo := category.NewMockRepository(ctrl)
	repo.EXPECT().
		GetCategory(gomock.Any(), userID, id).
		Return(&category.Category{ID: id, UserID: userID, Name: "Food", Type: category.TypeExpense, Color: "#FF0000"}, nil)
	repo.EXPECT().
		GetCategory(gomock.Any(), userID, childID).
		Return(&category.Category{ID: childID, Type: category.TypeExpense, ParentID: &id}, nil)

	svc := category.NewService(repo)

	_, err := svc.Update(userCtx(), id, category.UpdateParams{ParentID: &childID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_Update_TypeChange(t *testing.T) {
	id := uuid.New()

	food := func() *category.Category {
		return &category.Category{ID: id, UserID: userID, Name: "Food", Type: category.TypeExpense, Color: "#FF0000"}
	}

	tests := []struct {
		name      string
		newType   category.Type
		setupMock func(m *category.MockRepository)
		wantErr   error
	}{
		{
			name:    "SubcategoryOfOldType",
			newType: category.TypeIncome,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().ListCategories(gomock.Any(), userID).Return([]*category.Category{
					food(),
					{ID: uuid.New(), Name: "Restaurants", Type: category.TypeExpense, ParentID: &id},
				}, nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "CompatibleSubcategories",
			newType: category.TypeIncome,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().ListCategories(gomock.Any(), userID).Return([]*category.Category{
					food(),
					{ID: uuid.New(), Name: "Cashback", Type: category.TypeIncome, ParentID: &id},
					{ID: uuid.New(), Name: "Rent", Type: category.TypeExpense},
				}, nil)
				m.EXPECT().UpdateCategory(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:    "WidenedToBoth",
			newType: category.TypeBoth,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().UpdateCategory(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:    "SameType",
			newType: category.TypeExpense,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().UpdateCategory(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := category.NewMockRepository(ctrl)
			repo.EXPECT().GetCategory(gomock.Any(), userID, id).Return(food(), nil)
			tt.setupMock(repo)

			got, err := category.NewService(repo).Update(userCtx(), id, category.UpdateParams{Type: &tt.newType})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				var ve *apperr.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "type", ve.Field)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.newType, got.Type)
		})
	}
}

func TestService_EnsureTransferCategory(t *testing.T) {
	existing := &category.Category{ID: uuid.New(), Name: category.TransferCategoryName, Type: category.TypeBoth}

	type testCase struct {
		name      string
		setupMock func(m *category.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Existing",
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					FindCategoryByName(gomock.Any(), userID, category.TransferCategoryName).
					Return(existing, nil)
			},
		},
		{
			name: "CreatedLazily",
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					FindCategoryByName(gomock.Any(), userID, category.TransferCategoryName).
					Return(nil, apperr.NotFound("category"))
				m.EXPECT().
					CreateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *category.Category) error {
						assert.Equal(t, category.TypeBoth, c.Type)
						c.ID = existing.ID
						return nil
					})
			},
		},
		{
			name: "CreatedConcurrently",
			setupMock: func(m *category.MockRepository) {
				gomock.InOrder(
					m.EXPECT().
						FindCategoryByName(gomock.Any(), userID, category.TransferCategoryName).
						Return(nil, apperr.NotFound("category")),
					m.EXPECT().
						CreateCategory(gomock.Any(), gomock.Any()).
						Return(apperr.Conflict("exists")),
					m.EXPECT().
						FindCategoryByName(gomock.Any(), userID, category.TransferCategoryName).
						Return(existing, nil),
				)
			},
		},
		{
			name: "ExistingWithNarrowType",
			setupMock: func(m *category.MockRepository) {
				parentID := uuid.New()
				m.EXPECT().
					FindCategoryByName(gomock.Any(), userID, category.TransferCategoryName).
					Return(&category.Category{
						ID: existing.ID, UserID: userID, Name: category.TransferCategoryName,
						Type: category.TypeExpense, ParentID: &parentID,
					}, nil)
				m.EXPECT().
					GetCategory(gomock.Any(), userID, parentID).
					Return(&category.Category{ID: parentID, Type: category.TypeExpense}, nil)
				m.EXPECT().
					UpdateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *category.Category) error {
						assert.Equal(t, category.TypeBoth, c.Type)
						assert.Nil(t, c.ParentID)
						return nil
					})
			},
		},
		{
			name: "StoreError",
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					FindCategoryByName(gomock.Any(), userID, category.TransferCategoryName).
					Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := category.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := category.NewService(repo).EnsureTransferCategory(userCtx())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, existing.ID, got.ID)
			assert.Equal(t, category.TypeBoth, got.Type)
		})
	}
}

func TestEligible(t *testing.T) {
	income := &category.Category{ID: uuid.New(), Name: "Salary", Type: category.TypeIncome}
	expense := &category.Category{ID: uuid.New(), Name: "Food", Type: category.TypeExpense}
	both := &category.Category{ID: uuid.New(), Name: "Transfer", Type: category.TypeBoth}
	// Subcategory stored as income under an expense parent follows the parent.
	sub := &category.Category{ID: uuid.New(), Name: "Snacks", Type: category.TypeIncome, ParentID: &expense.ID}

	cats := []*category.Category{income, expense, both, sub}

	assert.Equal(t, []*category.Category{expense, both, sub}, category.Eligible(cats, category.TypeExpense))
	assert.Equal(t, []*category.Category{income, both}, category.Eligible(cats, category.TypeIncome))
}
