package importcsv

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/apperr"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
	httptx "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
	clock     calendar.Clock
}

func NewHandler(importSvc *importer.Service, clock calendar.Clock) *Handler {
	return &Handler{importSvc: importSvc, clock: clock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importStatement)
}

type importSuccessResponse struct {
	Imported     int               `json:"imported"`
	Transactions []httptx.Response `json:"transactions"`
}

type rowDTO struct {
	Type        transaction.Type `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
}

type conflictDTO struct {
	Incoming rowDTO          `json:"incoming"`
	Existing httptx.Response `json:"existing"`
}

type importConflictResponse struct {
	New       []rowDTO      `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

// importStatement takes a multipart form with "file", "account_id", an
// optional "format" (default csv) and "force". Without force, rows that
// duplicate recorded transactions abort the import with 409 and are listed
// for review; resubmitting with force=true imports every row.
func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		render.Error(w, r, apperr.Invalid("file", "failed to parse form: "+err.Error()))
		return
	}

	accountID, err := uuid.Parse(r.FormValue("account_id"))
	if err != nil {
		render.Error(w, r, apperr.Invalid("account_id", "must be a UUID"))
		return
	}

	format := importer.FormatCSV
	if f := r.FormValue("format"); f != "" {
		format = importer.Format(f)
	}

	force := false
	if s := r.FormValue("force"); s != "" {
		if force, err = strconv.ParseBool(s); err != nil {
			render.Error(w, r, apperr.Invalid("force", "must be a boolean"))
			return
		}
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		render.Error(w, r, apperr.Invalid("file", "is required"))
		return
	}
	defer file.Close()

	result, err := h.importSvc.Import(r.Context(), format, accountID, file, force)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	today := h.clock.Today()

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]rowDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}

		for _, p := range result.New {
			resp.New = append(resp.New, toRowDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toRowDTO(c.Incoming),
				Existing: httptx.ToResponse(c.Existing, today),
			})
		}

		render.JSON(w, http.StatusConflict, resp)

		return
	}

	render.JSON(w, http.StatusCreated, importSuccessResponse{
		Imported:     len(result.Imported),
		Transactions: httptx.ToResponseList(result.Imported, today),
	})
}

func toRowDTO(p transaction.CreateParams) rowDTO {
	return rowDTO{
		Type:        p.Type,
		Amount:      p.Amount,
		Description: p.Description,
		Date:        render.FormatDate(p.Date),
		CategoryID:  p.CategoryID,
	}
}
