package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("settlement not found")
	ErrValidation     = errors.New("invalid settlement")
	ErrAlreadySettled = errors.New("sale already included in a settlement")
)

// MismatchError reports a deposit that does not match the selected sales.
type MismatchError struct {
	Gross    decimal.Decimal
	Selected decimal.Decimal
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("gross amount %s does not match selected sales total %s",
		e.Gross.StringFixed(2), e.Selected.StringFixed(2))
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrValidation
}

type Status string

const (
	StatusReconciled Status = "reconciled"
)

// CardSettlement ties a set of paid card sales to one bank deposit.
type CardSettlement struct {
	ID                  uuid.UUID
	SettlementDate      time.Time
	PeriodStart         time.Time
	PeriodEnd           time.Time
	GrossAmount         decimal.Decimal
	CommissionRate      decimal.Decimal
	CommissionAmount    decimal.Decimal
	RetentionRate       decimal.Decimal
	RetentionAmount     decimal.Decimal
	NetDeposit          decimal.Decimal
	BankAccount         string
	DepositReference    string
	SaleIDs             []uuid.UUID
	Status              Status
	JournalEntryID      *uuid.UUID
	RetentionRecordedAt *time.Time
	CreatedBy           string
	CreatedAt           time.Time
}

// Pending reports whether a secondary accounting step is still missing.
func (s *CardSettlement) Pending() bool {
	return s.JournalEntryID == nil || (s.RetentionRecordedAt == nil && s.RetentionAmount.IsPositive())
}

// Amounts is the result of applying the processor rates to a gross deposit.
type Amounts struct {
	Commission decimal.Decimal
	Retention  decimal.Decimal
	Net        decimal.Decimal
}

// Compute applies the rates without intermediate rounding. Net is always
// gross minus commission minus retention.
func Compute(gross, commissionRate, retentionRate decimal.Decimal) Amounts {
	commission := gross.Mul(commissionRate)
	retention := gross.Mul(retentionRate)

	return Amounts{
		Commission: commission,
		Retention:  retention,
		Net:        gross.Sub(commission).Sub(retention),
	}
}
