package category

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
)

type Handler struct {
	svc *category.Service
}

func NewHandler(svc *category.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type categoryResponse struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Type      category.Type `json:"type"`
	Color     string        `json:"color"`
	Icon      string        `json:"icon,omitempty"`
	ParentID  *uuid.UUID    `json:"parent_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toResponse(c *category.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.Type,
		Color:     c.Color,
		Icon:      c.Icon,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type createCategoryRequest struct {
	Name     string        `json:"name"`
	Type     category.Type `json:"type"`
	Color    string        `json:"color"`
	Icon     string        `json:"icon"`
	ParentID *string       `json:"parent_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	parentID, err := render.ParseOptionalID("parent_id", req.ParentID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	c, err := h.svc.Create(r.Context(), category.CreateParams{
		Name:     req.Name,
		Type:     req.Type,
		Color:    req.Color,
		Icon:     req.Icon,
		ParentID: parentID,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(c))
}

// list accepts ?type=income|expense to return only the categories a
// transaction of that type may use.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var t *category.Type

	if s := r.URL.Query().Get("type"); s != "" {
		ct := category.Type(s)
		if ct != category.TypeIncome && ct != category.TypeExpense {
			render.Error(w, r, apperr.Invalid("type", "must be income or expense"))
			return
		}

		t = &ct
	}

	cats, err := h.svc.List(r.Context(), t)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = toResponse(c)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(c))
}

type updateCategoryRequest struct {
	Name        *string        `json:"name"`
	Type        *category.Type `json:"type"`
	Color       *string        `json:"color"`
	Icon        *string        `json:"icon"`
	ParentID    *string        `json:"parent_id"`
	ClearParent bool           `json:"clear_parent"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.URLID(r, "id")
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateCategoryRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	parentID, err := render.ParseOptionalID("parent_id", req.ParentID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	c, err := h.svc.Update(r.Context(), id, category.UpdateParams{
		Name:        req.Name,
		Type:        req.Type,
		Color:       req.Color,
		Icon:        req.Icon,
		ParentID:    parentID,
		ClearParent: req.ClearParent,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(c))
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
