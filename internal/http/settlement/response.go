package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/sale"
	"github.com/MrJamesThe3rd/colmado/internal/settlement"
)

type settlementResponse struct {
	ID                  uuid.UUID         `json:"id"`
	SettlementDate      time.Time         `json:"settlement_date"`
	PeriodStart         time.Time         `json:"period_start"`
	PeriodEnd           time.Time         `json:"period_end"`
	GrossAmount         decimal.Decimal   `json:"gross_amount"`
	CommissionRate      decimal.Decimal   `json:"commission_rate"`
	CommissionAmount    decimal.Decimal   `json:"commission_amount"`
	RetentionRate       decimal.Decimal   `json:"retention_rate"`
	RetentionAmount     decimal.Decimal   `json:"retention_amount"`
	NetDeposit          decimal.Decimal   `json:"net_deposit"`
	BankAccount         string            `json:"bank_account"`
	DepositReference    string            `json:"deposit_reference,omitempty"`
	SaleIDs             []uuid.UUID       `json:"sale_ids"`
	Status              settlement.Status `json:"status"`
	JournalEntryID      *uuid.UUID        `json:"journal_entry_id,omitempty"`
	RetentionRecordedAt *time.Time        `json:"retention_recorded_at,omitempty"`
	CreatedBy           string            `json:"created_by,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

type candidateResponse struct {
	ID            uuid.UUID          `json:"id"`
	Number        string             `json:"number"`
	Date          time.Time          `json:"date"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod sale.PaymentMethod `json:"payment_method"`
}

type repostResponse struct {
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

func toResponse(s *settlement.CardSettlement) settlementResponse {
	ids := s.SaleIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}

	return settlementResponse{
		ID:                  s.ID,
		SettlementDate:      s.SettlementDate,
		PeriodStart:         s.PeriodStart,
		PeriodEnd:           s.PeriodEnd,
		GrossAmount:         s.GrossAmount,
		CommissionRate:      s.CommissionRate,
		CommissionAmount:    s.CommissionAmount,
		RetentionRate:       s.RetentionRate,
		RetentionAmount:     s.RetentionAmount,
		NetDeposit:          s.NetDeposit,
		BankAccount:         s.BankAccount,
		DepositReference:    s.DepositReference,
		SaleIDs:             ids,
		Status:              s.Status,
		JournalEntryID:      s.JournalEntryID,
		RetentionRecordedAt: s.RetentionRecordedAt,
		CreatedBy:           s.CreatedBy,
		CreatedAt:           s.CreatedAt,
	}
}

func toResponseList(list []*settlement.CardSettlement) []settlementResponse {
	resp := make([]settlementResponse, len(list))
	for i, s := range list {
		resp[i] = toResponse(s)
	}

	return resp
}

func toCandidateList(sales []*sale.Sale) []candidateResponse {
	resp := make([]candidateResponse, len(sales))
	for i, s := range sales {
		resp[i] = candidateResponse{
			ID:            s.ID,
			Number:        s.Number,
			Date:          s.Date,
			Total:         s.Total,
			PaymentMethod: s.PaymentMethod,
		}
	}

	return resp
}
