package inventory

import (
	"github.com/shopspring/decimal"
)

// UnitCost picks the cost for valuing a quantity. lots must be ordered oldest
// first. The oldest lot with stock wins, then the newest lot, then fallback.
func UnitCost(lots []*Lot, fallback decimal.Decimal) decimal.Decimal {
	for _, l := range lots {
		if l.Remaining > 0 {
			return l.UnitCost
		}
	}

	if len(lots) > 0 {
		return lots[len(lots)-1].UnitCost
	}

	return fallback
}

// Consumption is the outcome of drawing units from FIFO lots.
type Consumption struct {
	// Touched lots have had Remaining decremented.
	Touched []*Lot
	// Cost is the value of the allocated units at their lot costs.
	Cost decimal.Decimal
	// Unallocated units could not be drawn from any lot.
	Unallocated int
}

// Consume draws qty units oldest first, mutating Remaining on the lots.
func Consume(lots []*Lot, qty int) Consumption {
	c := Consumption{Cost: decimal.Zero}

	for _, l := range lots {
		if qty == 0 {
			break
		}

		if l.Remaining <= 0 {
			continue
		}

		take := min(l.Remaining, qty)
		l.Remaining -= take
		qty -= take

		c.Touched = append(c.Touched, l)
		c.Cost = c.Cost.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(take))))
	}

	c.Unallocated = qty

	return c
}

// Balances walks movements newest first back from the current stock.
func Balances(current int, movements []*Movement) []KardexLine {
	lines := make([]KardexLine, len(movements))
	balance := current

	for i, m := range movements {
		lines[i] = KardexLine{Movement: m, Balance: balance}
		balance -= m.Delta()
	}

	return lines
}
