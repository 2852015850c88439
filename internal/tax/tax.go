package tax

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalid = errors.New("invalid retention")

// SourceType identifies the document a retention was withheld on.
type SourceType string

const (
	SourceCardSettlement SourceType = "card_settlement"
)

// Retention is an ITBIS amount withheld by a third party on our behalf.
type Retention struct {
	ID         uuid.UUID
	Date       time.Time
	Amount     decimal.Decimal
	SourceType SourceType
	SourceID   uuid.UUID
	CreatedAt  time.Time
}

// PeriodTotal aggregates retentions for one calendar month.
type PeriodTotal struct {
	Period time.Time
	Count  int
	Amount decimal.Decimal
}
