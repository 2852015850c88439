package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("journal entry not found")
	ErrUnbalanced = errors.New("journal entry is not balanced")
	ErrInvalid    = errors.New("invalid journal entry")
)

// Entry is a double-entry journal record.
type Entry struct {
	ID        uuid.UUID
	Date      time.Time
	Memo      string
	Reference string
	// SourceKey identifies the business event the entry records. At most one
	// entry exists per non-empty key.
	SourceKey string
	Lines     []Line
	CreatedAt time.Time
}

// Line debits or credits one account. Exactly one side is non-zero.
type Line struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Total returns the debit total, which equals the credit total for a valid entry.
func (e *Entry) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}

	return total
}

// Debit builds a debit line.
func Debit(account string, amount decimal.Decimal, description string) Line {
	return Line{AccountCode: account, Description: description, Debit: amount, Credit: decimal.Zero}
}

// Credit builds a credit line.
func Credit(account string, amount decimal.Decimal, description string) Line {
	return Line{AccountCode: account, Description: description, Debit: decimal.Zero, Credit: amount}
}

// AccountBalance is one trial-balance row.
type AccountBalance struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Balance is debit minus credit.
func (b AccountBalance) Balance() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}
