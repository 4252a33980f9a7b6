// Package pricing computes purchase-order line and order amounts.
//
// All results keep full decimal precision. Rounding to two places is a
// display concern and only happens through Round and FormatAmount, never
// before aggregation.
package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayPlaces is the number of decimal places shown to users.
const DisplayPlaces = 2

// Line is the pricing input of one order line.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal // percent, 0-100
}

// LineAmounts holds the derived amounts of one line.
type LineAmounts struct {
	Subtotal  decimal.Decimal // quantity × unit price
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Totals holds the derived amounts of a whole order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeLine returns tax_amount = q×p×r/100 and total = q×p + tax_amount.
func ComputeLine(quantity, unitPrice, taxRate decimal.Decimal) LineAmounts {
	subtotal := quantity.Mul(unitPrice)
	tax := subtotal.Mul(taxRate).Shift(-2)
	return LineAmounts{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// Compute is ComputeLine for a Line value.
func (l Line) Compute() LineAmounts {
	return ComputeLine(l.Quantity, l.UnitPrice, l.TaxRate)
}

// ComputeTotals sums the unrounded line amounts of an order.
func ComputeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, l := range lines {
		amounts := l.Compute()
		subtotal = subtotal.Add(amounts.Subtotal)
		tax = tax.Add(amounts.TaxAmount)
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Round rounds an amount for display.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders an amount with digit grouping and two decimals, e.g. 1,180.00.
func FormatAmount(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", Round(d).InexactFloat64())
}
