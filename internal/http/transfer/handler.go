package transfer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
	httptx "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transfer"
)

type Handler struct {
	coord *transfer.Coordinator
	clock calendar.Clock
}

func NewHandler(coord *transfer.Coordinator, clock calendar.Clock) *Handler {
	return &Handler{coord: coord, clock: clock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

type transferResponse struct {
	ID       uuid.UUID        `json:"id"`
	Expense  *httptx.Response `json:"expense,omitempty"`
	Income   *httptx.Response `json:"income,omitempty"`
	Complete bool             `json:"complete"`
}

func (h *Handler) toResponse(t *transfer.Transfer) transferResponse {
	today := h.clock.Today()
	resp := transferResponse{ID: t.ID, Complete: t.Complete()}

	if t.Expense != nil {
		resp.Expense = new(httptx.ToResponse(t.Expense, today))
	}

	if t.Income != nil {
		resp.Income = new(httptx.ToResponse(t.Income, today))
	}

	return resp
}

type createTransferRequest struct {
	FromAccountID uuid.UUID          `json:"from_account_id"`
	ToAccountID   uuid.UUID          `json:"to_account_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Date          string             `json:"date"`
	Description   string             `json:"description"`
	Status        transaction.Status `json:"status"`
	DueDate       *string            `json:"due_date"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := transfer.Params{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		Status:        req.Status,
	}

	if req.Date != "" {
		date, err := render.ParseDate("date", req.Date)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		params.Date = date
	}

	dueDate, err := render.ParseOptionalDate("due_date", req.DueDate)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	params.DueDate = dueDate

	t, err := h.coord.CreateTransfer(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, h.toResponse(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	t, err := h.coord.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, h.toResponse(t))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.coord.Delete(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
