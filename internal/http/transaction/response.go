package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/render"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

type Response struct {
	ID              uuid.UUID               `json:"id"`
	Type            transaction.Type        `json:"type"`
	Amount          decimal.Decimal         `json:"amount"`
	Description     string                  `json:"description"`
	Date            string                  `json:"date"`
	DueDate         *string                 `json:"due_date,omitempty"`
	PaymentDate     *string                 `json:"payment_date,omitempty"`
	Status          transaction.Status      `json:"status"`
	EffectiveStatus transaction.Status      `json:"effective_status"`
	Tags            []string                `json:"tags"`
	IsRecurring     bool                    `json:"is_recurring"`
	Recurrence      *transaction.Recurrence `json:"recurrence_config,omitempty"`
	TransferID      *uuid.UUID              `json:"transfer_id,omitempty"`
	Category        *categoryResponse       `json:"category,omitempty"`
	Account         *accountResponse        `json:"account,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

type categoryResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
	Icon  string    `json:"icon,omitempty"`
}

type accountResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ToResponse renders tx, classifying its status against today.
func ToResponse(tx *transaction.Transaction, today time.Time) Response {
	resp := Response{
		ID:              tx.ID,
		Type:            tx.Type,
		Amount:          tx.Amount,
		Description:     tx.Description,
		Date:            render.FormatDate(tx.Date),
		DueDate:         render.FormatOptionalDate(tx.DueDate),
		PaymentDate:     render.FormatOptionalDate(tx.PaymentDate),
		Status:          tx.Status,
		EffectiveStatus: transaction.Classify(tx, today),
		Tags:            tx.Tags,
		IsRecurring:     tx.IsRecurring,
		Recurrence:      tx.Recurrence,
		TransferID:      tx.TransferID,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}

	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	if tx.Category != nil {
		resp.Category = &categoryResponse{
			ID:    tx.Category.ID,
			Name:  tx.Category.Name,
			Color: tx.Category.Color,
			Icon:  tx.Category.Icon,
		}
	}

	if tx.Account != nil {
		resp.Account = &accountResponse{ID: tx.Account.ID, Name: tx.Account.Name}
	}

	return resp
}

func ToResponseList(txs []*transaction.Transaction, today time.Time) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx, today)
	}

	return resp
}
