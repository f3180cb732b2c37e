// Package ledger holds the arithmetic of the application: receipt totals and
// the income/expense report.
package ledger

import (
	"github.com/shopspring/decimal"

	"payflow/models"
)

var hundred = decimal.NewFromInt(100)

type ReceiptTotals struct {
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// PriceItems sets LineTotal on every item and returns the receipt totals.
// Negative quantities are clamped to zero.
//
//	line_total = quantity * unit_price * (1 + tax_rate/100)
func PriceItems(items []models.ReceiptItem) ReceiptTotals {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero

	for i := range items {
		if items[i].Quantity < 0 {
			items[i].Quantity = 0
		}
		base := decimal.NewFromInt(items[i].Quantity).Mul(safeDecimal(items[i].UnitPrice))
		tax := base.Mul(safeDecimal(items[i].TaxRate)).Div(hundred)

		items[i].LineTotal = base.Add(tax).InexactFloat64()
		subtotal = subtotal.Add(base)
		taxTotal = taxTotal.Add(tax)
	}

	return ReceiptTotals{
		Subtotal:   subtotal,
		TaxTotal:   taxTotal,
		GrandTotal: subtotal.Add(taxTotal),
	}
}

// Apply copies the totals onto r.
func (t ReceiptTotals) Apply(r *models.Receipt) {
	r.Subtotal = t.Subtotal.InexactFloat64()
	r.TaxTotal = t.TaxTotal.InexactFloat64()
	r.GrandTotal = t.GrandTotal.InexactFloat64()
}
