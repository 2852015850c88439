package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/ledger"
)

type lineResponse struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type entryResponse struct {
	ID        uuid.UUID       `json:"id"`
	Date      time.Time       `json:"date"`
	Memo      string          `json:"memo"`
	Reference string          `json:"reference,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Lines     []lineResponse  `json:"lines"`
	CreatedAt time.Time       `json:"created_at"`
}

type balanceResponse struct {
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

func toEntryResponse(e *ledger.Entry) entryResponse {
	lines := make([]lineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = lineResponse{
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}

	return entryResponse{
		ID:        e.ID,
		Date:      e.Date,
		Memo:      e.Memo,
		Reference: e.Reference,
		Total:     e.Total(),
		Lines:     lines,
		CreatedAt: e.CreatedAt,
	}
}
