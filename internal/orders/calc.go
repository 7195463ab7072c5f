package orders

import (
	"github.com/shopspring/decimal"

	"github.com/stockflow-io/stockflow/internal/shared"
)

// RecomputeTotals derives item and order totals from the items. Every
// monetary value is rounded half-up to 2 decimal places at each step, so
// repeated calls without item changes are idempotent and results are
// reproducible.
func (o *Order) RecomputeTotals() {
	var subtotal, tax, itemsTotal decimal.Decimal
	for i := range o.Items {
		item := &o.Items[i]
		item.Subtotal = shared.Round2(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
		item.DiscountAmount = shared.Percent(item.Subtotal, item.DiscountPct)
		afterDiscount := shared.Round2(item.Subtotal.Sub(item.DiscountAmount))
		item.TaxAmount = shared.Percent(afterDiscount, item.TaxRatePct)
		item.Total = shared.Round2(afterDiscount.Add(item.TaxAmount))

		subtotal = subtotal.Add(item.Subtotal)
		tax = tax.Add(item.TaxAmount)
		itemsTotal = itemsTotal.Add(item.Total)
	}

	// Subtotal is gross of item discounts; the grand total builds on the item
	// totals so line discounts are never counted twice.
	o.Totals.Subtotal = shared.Round2(subtotal)
	o.Totals.Discount = shared.Percent(o.Totals.Subtotal, o.DiscountPct)
	o.Totals.Tax = shared.Round2(tax)
	o.Totals.Shipping = shared.Round2(o.ShippingCost)
	o.Totals.Total = shared.Round2(shared.Round2(itemsTotal).Sub(o.Totals.Discount).Add(o.Totals.Shipping))
}

// derivePaymentStatus maps the paid amount onto the payment state.
func derivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return PaymentPending
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}
