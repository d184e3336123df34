// Package wire encodes and decodes the JSON representations of domain types
// shared by the HTTP API, the catalog seed file and the sales export.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// encodeMoney writes d as a JSON number with two decimals. Amounts with
// more significant places, such as fractional unit prices, keep them.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	if d.Equal(d.Round(moneyPlaces)) {
		e.Num(jx.Num(d.StringFixed(moneyPlaces)))
		return
	}
	e.Num(jx.Num(d.String()))
}

// decodeDecimal reads a JSON number or numeric string exactly, without a
// round trip through float64.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	default:
		return decimal.Zero, errors.Errorf("expected number, got %s", d.Next())
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", raw)
	}
	return v, nil
}
