package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MrJamesThe3rd/colmado/internal/money"
)

const dbTimeout = 5 * time.Second

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders an amount with two decimals and thousands separators.
func FormatMoney(d decimal.Decimal) string {
	f, _ := money.Round(d).Float64()
	return printer.Sprintf("%.2f", f)
}

// FormatRate renders a fraction as a percentage, e.g. 0.038 as 3.8%.
func FormatRate(d decimal.Decimal) string {
	return d.Shift(2).String() + "%"
}

func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
