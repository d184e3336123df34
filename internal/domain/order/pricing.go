package order

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the 16% IVA charged by the reference register.
var DefaultTaxRate = decimal.RequireFromString("0.16")

// currencyPlaces is the rounding precision of every stored amount.
const currencyPlaces = 2

// maxQuantity is the largest quantity a line column can hold.
const maxQuantity = math.MaxInt32

// maxAmount bounds every stored amount: NUMERIC(14,2) holds values below
// 10^12.
var maxAmount = decimal.New(1, 12)

// Totals holds the derived amounts of a cart or order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute prices a cart. Line amounts are summed exactly and rounded only
// once at the subtotal, so per-line rounding never compounds.
// Tax is round(subtotal × taxRate) and Total is Subtotal + Tax.
func Compute(lines []CartLine, taxRate decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, &InvalidCartError{Reason: "cart is empty"}
	}

	sum := decimal.Zero
	for i, l := range lines {
		if l.Quantity < 1 {
			return Totals{}, &InvalidCartError{Line: i + 1, ProductID: l.ProductID, Reason: "quantity must be at least 1"}
		}
		if l.Quantity > maxQuantity {
			return Totals{}, &InvalidCartError{Line: i + 1, ProductID: l.ProductID, Reason: "quantity exceeds 2147483647"}
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, &InvalidCartError{Line: i + 1, ProductID: l.ProductID, Reason: "unit price must not be negative"}
		}
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	subtotal := sum.Round(currencyPlaces)
	tax := subtotal.Mul(taxRate).Round(currencyPlaces)
	total := subtotal.Add(tax)
	if subtotal.GreaterThanOrEqual(maxAmount) || total.GreaterThanOrEqual(maxAmount) {
		return Totals{}, &InvalidCartError{Reason: "order total exceeds 999999999999.99"}
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
	}, nil
}
