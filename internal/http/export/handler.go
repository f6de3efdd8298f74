package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/export"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
	httptx "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transaction"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc   *export.Service
	clock calendar.Clock
}

func NewHandler(svc *export.Service, clock calendar.Clock) *Handler {
	return &Handler{svc: svc, clock: clock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/transactions.xlsx", h.transactions)
}

// transactions streams the listing selected by the transaction list filters
// as an XLSX download.
func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	filter, err := httptx.ParseFilter(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var buf bytes.Buffer

	n, err := h.svc.WriteXLSX(r.Context(), filter, &buf)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(filter, h.clock.Today())))
	w.Header().Set("X-Row-Count", fmt.Sprint(n))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}
