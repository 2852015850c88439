package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("product not found")
	ErrValidation = errors.New("invalid stock operation")
	// ErrNoDifference rejects an adjustment whose count equals current stock.
	ErrNoDifference = fmt.Errorf("%w: physical count matches current stock", ErrValidation)
)

// DefaultTaxRate applies to lots of products without a stored cost tax rate.
var DefaultTaxRate = decimal.RequireFromString("0.18")

type Product struct {
	ID              uuid.UUID
	SKU             string
	Name            string
	CurrentStock    int
	ReorderPoint    int
	LastCost        decimal.Decimal
	CostTaxRate     *decimal.Decimal
	LastStockUpdate *time.Time
	CreatedAt       time.Time
}

func (p *Product) LowStock() bool {
	return p.CurrentStock <= p.ReorderPoint
}

func (p *Product) TaxRate() decimal.Decimal {
	if p.CostTaxRate == nil {
		return DefaultTaxRate
	}

	return *p.CostTaxRate
}

type LotSource string

const (
	SourcePurchase   LotSource = "purchase"
	SourceAdjustment LotSource = "adjustment"
)

// Lot is a FIFO cost layer.
type Lot struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	Remaining   int
	UnitCost    decimal.Decimal
	TaxRate     decimal.Decimal
	Source      LotSource
	ReferenceID *uuid.UUID
	ReceivedAt  time.Time
	CreatedAt   time.Time
}

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// Reason explains a count adjustment.
type Reason string

const (
	ReasonPhysicalCount  Reason = "physical_count"
	ReasonDamage         Reason = "damage"
	ReasonTheft          Reason = "theft"
	ReasonExpiration     Reason = "expiration"
	ReasonReturnSupplier Reason = "return_supplier"
	ReasonFound          Reason = "found"
	ReasonCorrection     Reason = "correction"
	ReasonOther          Reason = "other"
)

var Reasons = []Reason{
	ReasonPhysicalCount, ReasonDamage, ReasonTheft, ReasonExpiration,
	ReasonReturnSupplier, ReasonFound, ReasonCorrection, ReasonOther,
}

func (r Reason) Valid() bool {
	for _, v := range Reasons {
		if r == v {
			return true
		}
	}

	return false
}

// Movement is an append-only stock audit record. Quantity is the signed delta.
type Movement struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	Type           MovementType
	Quantity       int
	Date           time.Time
	UnitCost       *decimal.Decimal
	TotalCost      *decimal.Decimal
	ReferenceID    *uuid.UUID
	Reason         Reason
	Notes          string
	JournalEntryID *uuid.UUID
	CreatedBy      string
	CreatedAt      time.Time
}

// Delta is the signed effect on stock. In and out movements count by type
// whatever sign was stored.
func (m *Movement) Delta() int {
	q := m.Quantity
	if q < 0 {
		q = -q
	}

	switch m.Type {
	case MovementIn:
		return q
	case MovementOut:
		return -q
	default:
		return m.Quantity
	}
}

type KardexLine struct {
	Movement *Movement
	Balance  int
}

// Kardex is a product's movement history, newest first, with the stock
// balance after each movement.
type Kardex struct {
	Product *Product
	Lines   []KardexLine
}
