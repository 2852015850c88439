package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/sale"
)

type saleResponse struct {
	ID            uuid.UUID          `json:"id"`
	Number        string             `json:"number"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod sale.PaymentMethod `json:"payment_method"`
	PaymentStatus sale.PaymentStatus `json:"payment_status"`
	Date          time.Time          `json:"date"`
	Notes         string             `json:"notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
}

func toResponse(s *sale.Sale) saleResponse {
	return saleResponse{
		ID:            s.ID,
		Number:        s.Number,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		PaymentStatus: s.PaymentStatus,
		Date:          s.Date,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toResponseList(sales []*sale.Sale) []saleResponse {
	resp := make([]saleResponse, len(sales))
	for i, s := range sales {
		resp[i] = toResponse(s)
	}

	return resp
}
