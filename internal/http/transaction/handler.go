package transaction

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

const defaultOccurrenceLimit = 12

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/pay", h.payMany)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/pay", h.pay)
	r.Post("/{id}/cancel", h.cancel)
	r.Get("/{id}/occurrences", h.occurrences)
}

type createTransactionRequest struct {
	Type        transaction.Type        `json:"type"`
	Amount      decimal.Decimal         `json:"amount"`
	Description string                  `json:"description"`
	CategoryID  *string                 `json:"category_id"`
	Date        string                  `json:"date"`
	DueDate     *string                 `json:"due_date"`
	PaymentDate *string                 `json:"payment_date"`
	Status      transaction.Status      `json:"status"`
	Tags        []string                `json:"tags"`
	IsRecurring bool                    `json:"is_recurring"`
	Recurrence  *transaction.Recurrence `json:"recurrence_config"`
	AccountID   *string                 `json:"account_id"`
}

func (req createTransactionRequest) params() (transaction.CreateParams, error) {
	p := transaction.CreateParams{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      req.Status,
		Tags:        req.Tags,
		IsRecurring: req.IsRecurring,
		Recurrence:  req.Recurrence,
	}

	var err error

	if p.Date, err = render.ParseDate("date", req.Date); err != nil {
		return p, err
	}

	if p.DueDate, err = render.ParseOptionalDate("due_date", req.DueDate); err != nil {
		return p, err
	}

	if p.PaymentDate, err = render.ParseOptionalDate("payment_date", req.PaymentDate); err != nil {
		return p, err
	}

	if p.CategoryID, err = render.ParseOptionalID("category_id", req.CategoryID); err != nil {
		return p, err
	}

	if p.AccountID, err = render.ParseOptionalID("account_id", req.AccountID); err != nil {
		return p, err
	}

	return p, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params, err := req.params()
	if err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, ToResponse(tx, h.svc.Today()))
}

// list accepts type, status, category_id, account_id, start_date, end_date,
// search, sort and order query parameters.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	if s := q.Get("sort"); s != "" {
		key, err := transaction.ParseSortKey(s)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		transaction.Sort(txs, key, q.Get("order") != "asc")
	}

	render.JSON(w, http.StatusOK, ToResponseList(txs, h.svc.Today()))
}

// ParseFilter reads listing filters from the query string.
func ParseFilter(r *http.Request) (transaction.ListFilter, error) {
	q := r.URL.Query()
	filter := transaction.ListFilter{Search: q.Get("search")}

	if s := q.Get("type"); s != "" {
		t := transaction.Type(s)
		if !t.Valid() {
			return filter, apperr.Invalid("type", "must be income or expense")
		}

		filter.Type = &t
	}

	if s := q.Get("status"); s != "" {
		st := transaction.Status(s)
		if !st.Valid() {
			return filter, apperr.Invalid("status", "must be pending, paid, overdue or cancelled")
		}

		filter.Status = &st
	}

	var err error

	if filter.CategoryID, err = render.ParseOptionalID("category_id", new(q.Get("category_id"))); err != nil {
		return filter, err
	}

	if filter.AccountID, err = render.ParseOptionalID("account_id", new(q.Get("account_id"))); err != nil {
		return filter, err
	}

	if filter.StartDate, err = render.ParseOptionalDate("start_date", new(q.Get("start_date"))); err != nil {
		return filter, err
	}

	if filter.EndDate, err = render.ParseOptionalDate("end_date", new(q.Get("end_date"))); err != nil {
		return filter, err
	}

	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx, h.svc.Today()))
}

type updateTransactionRequest struct {
	Type          *transaction.Type       `json:"type"`
	Amount        *decimal.Decimal        `json:"amount"`
	Description   *string                 `json:"description"`
	CategoryID    *string                 `json:"category_id"`
	ClearCategory bool                    `json:"clear_category"`
	Date          *string                 `json:"date"`
	DueDate       *string                 `json:"due_date"`
	PaymentDate   *string                 `json:"payment_date"`
	Status        *transaction.Status     `json:"status"`
	Tags          []string                `json:"tags"`
	IsRecurring   *bool                   `json:"is_recurring"`
	Recurrence    *transaction.Recurrence `json:"recurrence_config"`
	AccountID     *string                 `json:"account_id"`
}

func (req updateTransactionRequest) params() (transaction.UpdateParams, error) {
	p := transaction.UpdateParams{
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		ClearCategory: req.ClearCategory,
		Status:        req.Status,
		Tags:          req.Tags,
		IsRecurring:   req.IsRecurring,
		Recurrence:    req.Recurrence,
	}

	var err error

	if p.Date, err = render.ParseOptionalDate("date", req.Date); err != nil {
		return p, err
	}

	if p.DueDate, err = render.ParseOptionalDate("due_date", req.DueDate); err != nil {
		return p, err
	}

	if p.PaymentDate, err = render.ParseOptionalDate("payment_date", req.PaymentDate); err != nil {
		return p, err
	}

	if p.CategoryID, err = render.ParseOptionalID("category_id", req.CategoryID); err != nil {
		return p, err
	}

	if p.AccountID, err = render.ParseOptionalID("account_id", req.AccountID); err != nil {
		return p, err
	}

	return p, nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params, err := req.params()
	if err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Update(r.Context(), id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx, h.svc.Today()))
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

type payRequest struct {
	PaymentDate *string `json:"payment_date"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req payRequest
	if r.ContentLength != 0 {
		if err := render.Decode(r, &req); err != nil {
			render.Error(w, r, err)
			return
		}
	}

	paymentDate, err := render.ParseOptionalDate("payment_date", req.PaymentDate)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.MarkAsPaid(r.Context(), id, paymentDate); err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx, h.svc.Today()))
}

type payManyRequest struct {
	IDs         []uuid.UUID `json:"ids"`
	PaymentDate *string     `json:"payment_date"`
}

type payManyResponse struct {
	Paid   []uuid.UUID `json:"paid"`
	Failed string      `json:"failed,omitempty"`
}

func (h *Handler) payMany(w http.ResponseWriter, r *http.Request) {
	var req payManyRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	paymentDate, err := render.ParseOptionalDate("payment_date", req.PaymentDate)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	paid, err := h.svc.MarkManyAsPaid(r.Context(), req.IDs, paymentDate)
	if err != nil && len(paid) == 0 {
		render.Error(w, r, err)
		return
	}

	resp := payManyResponse{Paid: paid}
	if err != nil {
		resp.Failed = err.Error()
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// occurrences lists the dates of a recurring transaction from today up to the
// "until" date (default one year ahead), at most "limit" entries.
func (h *Handler) occurrences(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	q := r.URL.Query()

	horizon := calendar.AddYears(h.svc.Today(), 1)
	if s := q.Get("until"); s != "" {
		if horizon, err = render.ParseDate("until", s); err != nil {
			render.Error(w, r, err)
			return
		}
	}

	limit := defaultOccurrenceLimit
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 {
			render.Error(w, r, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
	}

	dates, err := h.svc.Occurrences(r.Context(), id, horizon, limit)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]string, len(dates))
	for i, d := range dates {
		resp[i] = d.Format(time.DateOnly)
	}

	render.JSON(w, http.StatusOK, resp)
}
