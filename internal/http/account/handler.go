package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
)

type Handler struct {
	svc       *account.Service
	projector *account.Projector
}

func NewHandler(svc *account.Service, projector *account.Projector) *Handler {
	return &Handler{svc: svc, projector: projector}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/recalculate", h.recalculateAll)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/balance", h.balance)
	r.Post("/{id}/recalculate", h.recalculate)
}

type accountResponse struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Type             account.Type     `json:"type"`
	InitialBalance   decimal.Decimal  `json:"initial_balance"`
	CurrentBalance   decimal.Decimal  `json:"current_balance"`
	ProjectedBalance *decimal.Decimal `json:"projected_balance,omitempty"`
	Currency         string           `json:"currency"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func toResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		InitialBalance: a.InitialBalance,
		CurrentBalance: a.CurrentBalance,
		Currency:       a.Currency,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type createAccountRequest struct {
	Name           string          `json:"name"`
	Type           account.Type    `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	a, err := h.svc.Create(r.Context(), account.CreateParams{
		Name:           req.Name,
		Type:           req.Type,
		InitialBalance: req.InitialBalance,
		Currency:       req.Currency,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(a))
}

// list returns accounts with their projected balance. Inactive accounts are
// included with ?include_inactive=true.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	projections, err := h.svc.ListWithProjection(r.Context(), includeInactive)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]accountResponse, len(projections))
	for i, p := range projections {
		resp[i] = toResponse(p.Account)
		resp[i].ProjectedBalance = &p.ProjectedBalance
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(a))
}

type updateAccountRequest struct {
	Name           *string          `json:"name"`
	Type           *account.Type    `json:"type"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
	Currency       *string          `json:"currency"`
	IsActive       *bool            `json:"is_active"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateAccountRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	a, err := h.svc.Update(r.Context(), id, account.UpdateParams{
		Name:           req.Name,
		Type:           req.Type,
		InitialBalance: req.InitialBalance,
		Currency:       req.Currency,
		IsActive:       req.IsActive,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(a))
}

type deleteResponse struct {
	Deactivated bool `json:"deactivated"`
}

// delete deactivates accounts that still carry transactions and removes
// the others.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	deactivated, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, deleteResponse{Deactivated: deactivated})
}

type balanceResponse struct {
	AccountID        uuid.UUID       `json:"account_id"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	projected, err := h.projector.Project(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, balanceResponse{AccountID: id, ProjectedBalance: projected})
}

type recalculateResponse struct {
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	balance, err := h.svc.Recalculate(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, recalculateResponse{CurrentBalance: balance})
}

type recalculateAllResponse struct {
	Updated int `json:"updated"`
}

func (h *Handler) recalculateAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RecalculateAll(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, recalculateAllResponse{Updated: n})
}
