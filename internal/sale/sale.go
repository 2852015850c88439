package sale

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("sale not found")
	ErrImmutable = errors.New("paid sales cannot be modified")
	ErrInvalid   = errors.New("invalid sale")
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// CardMethods are the methods settled through a card processor.
var CardMethods = []PaymentMethod{MethodCreditCard, MethodDebitCard}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodBankTransfer:
		return true
	}

	return false
}

// PaymentStatus is the collection state of a sale.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusPending PaymentStatus = "pending"
)

// Sale is a point-of-sale ticket.
type Sale struct {
	ID            uuid.UUID
	Number        string
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Date          time.Time
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (s *Sale) Paid() bool {
	return s.PaymentStatus == StatusPaid
}
