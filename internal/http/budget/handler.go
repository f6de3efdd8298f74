package budget

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
)

type Handler struct {
	svc *budget.Service
}

func NewHandler(svc *budget.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/usage", h.usage)
}

type budgetResponse struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID *uuid.UUID      `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Period     budget.Period   `json:"period"`
	StartDate  string          `json:"start_date"`
	EndDate    *string         `json:"end_date,omitempty"`
	Usage      *usageResponse  `json:"usage,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type usageResponse struct {
	WindowStart   string          `json:"window_start"`
	WindowEnd     string          `json:"window_end"`
	Spent         decimal.Decimal `json:"spent"`
	Percentage    decimal.Decimal `json:"percentage"`
	DaysRemaining int             `json:"days_remaining"`
}

func toResponse(b *budget.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Amount:     b.Amount,
		Period:     b.Period,
		StartDate:  render.FormatDate(b.StartDate),
		EndDate:    render.FormatOptionalDate(b.EndDate),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toUsageResponse(u budget.Usage) *usageResponse {
	return &usageResponse{
		WindowStart:   render.FormatDate(u.Start),
		WindowEnd:     render.FormatDate(u.End),
		Spent:         u.Spent,
		Percentage:    u.Percentage.Round(2),
		DaysRemaining: u.DaysRemaining,
	}
}

type createBudgetRequest struct {
	CategoryID *string         `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Period     budget.Period   `json:"period"`
	StartDate  string          `json:"start_date"`
	EndDate    *string         `json:"end_date"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := budget.CreateParams{Amount: req.Amount, Period: req.Period}

	var err error

	if req.StartDate != "" {
		if params.StartDate, err = render.ParseDate("start_date", req.StartDate); err != nil {
			render.Error(w, r, err)
			return
		}
	}

	if params.EndDate, err = render.ParseOptionalDate("end_date", req.EndDate); err != nil {
		render.Error(w, r, err)
		return
	}

	if params.CategoryID, err = render.ParseOptionalID("category_id", req.CategoryID); err != nil {
		render.Error(w, r, err)
		return
	}

	b, err := h.svc.Create(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(b))
}

// list returns every budget with its usage over the current window.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.svc.ListWithUsage(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		resp[i] = toResponse(b.Budget)
		resp[i].Usage = toUsageResponse(b.Usage)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(b))
}

type updateBudgetRequest struct {
	CategoryID    *string          `json:"category_id"`
	ClearCategory bool             `json:"clear_category"`
	Amount        *decimal.Decimal `json:"amount"`
	Period        *budget.Period   `json:"period"`
	StartDate     *string          `json:"start_date"`
	EndDate       *string          `json:"end_date"`
	ClearEndDate  bool             `json:"clear_end_date"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateBudgetRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := budget.UpdateParams{
		ClearCategory: req.ClearCategory,
		Amount:        req.Amount,
		Period:        req.Period,
		ClearEndDate:  req.ClearEndDate,
	}

	if params.CategoryID, err = render.ParseOptionalID("category_id", req.CategoryID); err != nil {
		render.Error(w, r, err)
		return
	}

	if params.StartDate, err = render.ParseOptionalDate("start_date", req.StartDate); err != nil {
		render.Error(w, r, err)
		return
	}

	if params.EndDate, err = render.ParseOptionalDate("end_date", req.EndDate); err != nil {
		render.Error(w, r, err)
		return
	}

	b, err := h.svc.Update(r.Context(), id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	u, err := h.svc.Usage(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toUsageResponse(*u))
}
