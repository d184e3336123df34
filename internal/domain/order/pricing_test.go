package order

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		lines        []CartLine
		taxRate      decimal.Decimal
		wantSubtotal decimal.Decimal
		wantTax      decimal.Decimal
		wantTotal    decimal.Decimal
	}{
		{
			name:         "single burger line",
			lines:        []CartLine{{ProductID: "1", UnitPrice: d("85.00"), Quantity: 2}},
			taxRate:      DefaultTaxRate,
			wantSubtotal: d("170.00"),
			wantTax:      d("27.20"),
			wantTotal:    d("197.20"),
		},
		{
			name: "mixed lines",
			lines: []CartLine{
				{ProductID: "1", UnitPrice: d("85.00"), Quantity: 1},
				{ProductID: "7", UnitPrice: d("25.00"), Quantity: 3},
				{ProductID: "13", UnitPrice: d("40.00"), Quantity: 1},
			},
			taxRate:      DefaultTaxRate,
			wantSubtotal: d("200.00"),
			wantTax:      d("32.00"),
			wantTotal:    d("232.00"),
		},
		{
			name:         "tax rounded to cents",
			lines:        []CartLine{{ProductID: "1", UnitPrice: d("10.03"), Quantity: 1}},
			taxRate:      DefaultTaxRate,
			wantSubtotal: d("10.03"),
			wantTax:      d("1.60"),
			wantTotal:    d("11.63"),
		},
		{
			name:         "tax rounds half away from zero",
			lines:        []CartLine{{ProductID: "1", UnitPrice: d("0.05"), Quantity: 1}},
			taxRate:      d("0.10"),
			wantSubtotal: d("0.05"),
			wantTax:      d("0.01"),
			wantTotal:    d("0.06"),
		},
		{
			name: "subtotal rounded once not per line",
			lines: []CartLine{
				{ProductID: "a", UnitPrice: d("0.005"), Quantity: 1},
				{ProductID: "b", UnitPrice: d("0.005"), Quantity: 1},
			},
			taxRate:      decimal.Zero,
			wantSubtotal: d("0.01"),
			wantTax:      d("0"),
			wantTotal:    d("0.01"),
		},
		{
			name:         "free item",
			lines:        []CartLine{{ProductID: "x", UnitPrice: decimal.Zero, Quantity: 4}},
			taxRate:      DefaultTaxRate,
			wantSubtotal: d("0"),
			wantTax:      d("0"),
			wantTotal:    d("0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.lines, tt.taxRate)
			require.NoError(t, err)
			assert.True(t, tt.wantSubtotal.Equal(got.Subtotal), "subtotal: got %s, want %s", got.Subtotal, tt.wantSubtotal)
			assert.True(t, tt.wantTax.Equal(got.Tax), "tax: got %s, want %s", got.Tax, tt.wantTax)
			assert.True(t, tt.wantTotal.Equal(got.Total), "total: got %s, want %s", got.Total, tt.wantTotal)
		})
	}
}

func TestCompute_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		lines    []CartLine
		wantLine int
	}{
		{name: "empty cart", lines: nil, wantLine: 0},
		{
			name: "zero quantity",
			lines: []CartLine{
				{ProductID: "1", UnitPrice: d("10"), Quantity: 1},
				{ProductID: "2", UnitPrice: d("10"), Quantity: 0},
			},
			wantLine: 2,
		},
		{
			name:     "negative quantity",
			lines:    []CartLine{{ProductID: "1", UnitPrice: d("10"), Quantity: -3}},
			wantLine: 1,
		},
		{
			name:     "negative price",
			lines:    []CartLine{{ProductID: "1", UnitPrice: d("-0.01"), Quantity: 1}},
			wantLine: 1,
		},
		{
			name: "quantity above int32",
			lines: []CartLine{
				{ProductID: "1", UnitPrice: d("1"), Quantity: 1},
				{ProductID: "2", UnitPrice: d("1"), Quantity: math.MaxInt32 + 1},
			},
			wantLine: 2,
		},
		{
			name:     "subtotal out of column range",
			lines:    []CartLine{{ProductID: "1", UnitPrice: d("1000000000000"), Quantity: 1}},
			wantLine: 0,
		},
		{
			name:     "tax pushes total out of range",
			lines:    []CartLine{{ProductID: "1", UnitPrice: d("900000000000"), Quantity: 1}},
			wantLine: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.lines, DefaultTaxRate)

			var icErr *InvalidCartError
			require.ErrorAs(t, err, &icErr)
			assert.Equal(t, tt.wantLine, icErr.Line)
		})
	}
}

func cartFromCents(cents []int64, qtys []int) []CartLine {
	n := min(len(cents), len(qtys))
	lines := make([]CartLine, n)
	for i := range n {
		lines[i] = CartLine{
			ProductID: "p",
			UnitPrice: decimal.New(cents[i], -2),
			Quantity:  qtys[i],
		}
	}
	return lines
}

func TestCompute_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("pricing is deterministic", prop.ForAll(
		func(cents []int64, qtys []int) bool {
			lines := cartFromCents(cents, qtys)
			first, err1 := Compute(lines, DefaultTaxRate)
			second, err2 := Compute(lines, DefaultTaxRate)
			if err1 != nil || err2 != nil {
				return len(lines) == 0 && err1 != nil && err2 != nil
			}
			return first.Subtotal.Equal(second.Subtotal) &&
				first.Tax.Equal(second.Tax) &&
				first.Total.Equal(second.Total)
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.IntRange(1, 50)),
	))

	properties.Property("total equals subtotal plus tax", prop.ForAll(
		func(cents []int64, qtys []int) bool {
			lines := cartFromCents(cents, qtys)
			if len(lines) == 0 {
				return true
			}
			got, err := Compute(lines, DefaultTaxRate)
			if err != nil {
				return false
			}
			return got.Total.Equal(got.Subtotal.Add(got.Tax))
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.IntRange(1, 50)),
	))

	properties.Property("subtotal is the exact sum of line amounts", prop.ForAll(
		func(cents []int64, qtys []int) bool {
			lines := cartFromCents(cents, qtys)
			if len(lines) == 0 {
				return true
			}
			var sum int64
			for i, l := range lines {
				sum += cents[i] * int64(l.Quantity)
			}
			got, err := Compute(lines, DefaultTaxRate)
			if err != nil {
				return false
			}
			return got.Subtotal.Equal(decimal.New(sum, -2)) &&
				got.Tax.Equal(decimal.New(sum, -2).Mul(DefaultTaxRate).Round(2))
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.IntRange(1, 50)),
	))

	properties.TestingRun(t)
}
