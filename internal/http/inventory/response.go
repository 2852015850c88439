package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/inventory"
)

type productResponse struct {
	ID              uuid.UUID        `json:"id"`
	SKU             string           `json:"sku"`
	Name            string           `json:"name"`
	CurrentStock    int              `json:"current_stock"`
	ReorderPoint    int              `json:"reorder_point"`
	LowStock        bool             `json:"low_stock"`
	LastCost        decimal.Decimal  `json:"last_cost"`
	CostTaxRate     *decimal.Decimal `json:"cost_tax_rate,omitempty"`
	LastStockUpdate *time.Time       `json:"last_stock_update,omitempty"`
}

type movementResponse struct {
	ID             uuid.UUID              `json:"id"`
	ProductID      uuid.UUID              `json:"product_id"`
	Type           inventory.MovementType `json:"type"`
	Quantity       int                    `json:"quantity"`
	Date           time.Time              `json:"date"`
	UnitCost       *decimal.Decimal       `json:"unit_cost,omitempty"`
	TotalCost      *decimal.Decimal       `json:"total_cost,omitempty"`
	ReferenceID    *uuid.UUID             `json:"reference_id,omitempty"`
	Reason         inventory.Reason       `json:"reason,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	JournalEntryID *uuid.UUID             `json:"journal_entry_id,omitempty"`
	CreatedBy      string                 `json:"created_by,omitempty"`
}

type kardexLineResponse struct {
	movementResponse
	Balance int `json:"balance"`
}

type kardexResponse struct {
	Product productResponse      `json:"product"`
	Lines   []kardexLineResponse `json:"lines"`
}

func toProductResponse(p *inventory.Product) productResponse {
	return productResponse{
		ID:              p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		CurrentStock:    p.CurrentStock,
		ReorderPoint:    p.ReorderPoint,
		LowStock:        p.LowStock(),
		LastCost:        p.LastCost,
		CostTaxRate:     p.CostTaxRate,
		LastStockUpdate: p.LastStockUpdate,
	}
}

func toMovementResponse(m *inventory.Movement) movementResponse {
	return movementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		Type:           m.Type,
		Quantity:       m.Quantity,
		Date:           m.Date,
		UnitCost:       m.UnitCost,
		TotalCost:      m.TotalCost,
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		Notes:          m.Notes,
		JournalEntryID: m.JournalEntryID,
		CreatedBy:      m.CreatedBy,
	}
}

func toKardexResponse(k *inventory.Kardex) kardexResponse {
	lines := make([]kardexLineResponse, len(k.Lines))
	for i, l := range k.Lines {
		lines[i] = kardexLineResponse{movementResponse: toMovementResponse(l.Movement), Balance: l.Balance}
	}

	return kardexResponse{Product: toProductResponse(k.Product), Lines: lines}
}
