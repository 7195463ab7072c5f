package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRecomputeTotalsItemDiscountAndTax(t *testing.T) {
	// qty=10, unitPrice=100, discount=10%, taxRate=5%:
	// subtotal=1000, discount=100, afterDiscount=900, tax=45, total=945.
	order := &Order{
		Items: []OrderItem{{
			ID:          uuid.New(),
			Quantity:    10,
			UnitPrice:   dec("100"),
			DiscountPct: dec("10"),
			TaxRatePct:  dec("5"),
		}},
	}
	order.RecomputeTotals()

	item := order.Items[0]
	assert.Equal(t, "1000.00", item.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", item.DiscountAmount.StringFixed(2))
	assert.Equal(t, "45.00", item.TaxAmount.StringFixed(2))
	assert.Equal(t, "945.00", item.Total.StringFixed(2))

	assert.Equal(t, "1000.00", order.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", order.Totals.Discount.StringFixed(2))
	assert.Equal(t, "45.00", order.Totals.Tax.StringFixed(2))
	assert.Equal(t, "945.00", order.Totals.Total.StringFixed(2))
}

func TestRecomputeTotalsGlobalDiscountAndShipping(t *testing.T) {
	order := &Order{
		DiscountPct:  dec("10"),
		ShippingCost: dec("25.50"),
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: dec("200"), TaxRatePct: dec("5")},
			{Quantity: 1, UnitPrice: dec("600")},
		},
	}
	order.RecomputeTotals()

	// subtotal = 400 + 600 = 1000; global discount = 100;
	// items total = 420 + 600 = 1020; total = 1020 - 100 + 25.50 = 945.50.
	assert.Equal(t, "1000.00", order.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", order.Totals.Discount.StringFixed(2))
	assert.Equal(t, "20.00", order.Totals.Tax.StringFixed(2))
	assert.Equal(t, "25.50", order.Totals.Shipping.StringFixed(2))
	assert.Equal(t, "945.50", order.Totals.Total.StringFixed(2))
}

func TestRecomputeTotalsRoundsEachStep(t *testing.T) {
	// 3 * 33.335 = 100.005 → 100.01 at the subtotal step, and the discount is
	// computed from the already-rounded subtotal.
	order := &Order{
		Items: []OrderItem{{
			Quantity:    3,
			UnitPrice:   dec("33.335"),
			DiscountPct: dec("50"),
		}},
	}
	order.RecomputeTotals()

	item := order.Items[0]
	assert.Equal(t, "100.01", item.Subtotal.StringFixed(2))
	assert.Equal(t, "50.01", item.DiscountAmount.StringFixed(2))
	assert.Equal(t, "50.00", item.Total.StringFixed(2))
}

func TestRecomputeTotalsIdempotent(t *testing.T) {
	order := &Order{
		DiscountPct:  dec("5"),
		ShippingCost: dec("10"),
		Items: []OrderItem{
			{Quantity: 7, UnitPrice: dec("19.99"), DiscountPct: dec("2.5"), TaxRatePct: dec("7")},
			{Quantity: 3, UnitPrice: dec("4.45"), TaxRatePct: dec("21")},
		},
	}
	order.RecomputeTotals()
	first := order.Totals
	firstItems := append([]OrderItem(nil), order.Items...)

	order.RecomputeTotals()
	require.Equal(t, first, order.Totals)
	require.Equal(t, firstItems, order.Items)
}

func TestDerivePaymentStatus(t *testing.T) {
	total := dec("1000")

	assert.Equal(t, PaymentPending, derivePaymentStatus(decimal.Zero, total))
	assert.Equal(t, PaymentPartial, derivePaymentStatus(dec("600"), total))
	assert.Equal(t, PaymentPaid, derivePaymentStatus(dec("1000"), total))
	assert.Equal(t, PaymentPaid, derivePaymentStatus(dec("1000.01"), total))
}
