package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/order"
)

// EncodeOrder writes o with its lines.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("operatorId")
	e.Str(o.OperatorID)
	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal)
	e.FieldStart("tax")
	encodeMoney(e, o.Tax)
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range o.Lines {
		encodeLine(e, l)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l order.Line) {
	e.ObjStart()
	e.FieldStart("position")
	e.Int(l.Position)
	e.FieldStart("productId")
	e.Str(l.ProductID)
	e.FieldStart("name")
	e.Str(l.Name)
	e.FieldStart("category")
	e.Str(l.Category)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unitPrice")
	encodeMoney(e, l.UnitPrice)
	e.FieldStart("amount")
	encodeMoney(e, l.Amount())
	if len(l.Modifiers) > 0 {
		e.FieldStart("modifiers")
		l.Modifiers.Encode(e)
	}
	e.ObjEnd()
}

// EncodeTotals writes the priced totals of a cart together with the rate
// they were computed with.
func EncodeTotals(e *jx.Encoder, t order.Totals, taxRate string) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeMoney(e, t.Subtotal)
	e.FieldStart("tax")
	encodeMoney(e, t.Tax)
	e.FieldStart("total")
	encodeMoney(e, t.Total)
	e.FieldStart("taxRate")
	e.Num(jx.Num(taxRate))
	e.ObjEnd()
}

// DecodeCommitRequest reads a checkout request:
//
//	{"lines": [...], "paymentMethod": "cash", "operatorId": "op-1"}
func DecodeCommitRequest(d *jx.Decoder) (order.CommitRequest, error) {
	var req order.CommitRequest
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "lines":
			req.Lines, err = decodeCartLines(d)
		case "paymentMethod":
			req.PaymentMethod, err = d.Str()
		case "operatorId":
			req.OperatorID, err = d.Str()
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	}); err != nil {
		return order.CommitRequest{}, errors.Wrap(err, "decode commit request")
	}
	return req, nil
}

// DecodePreviewRequest reads the cart lines of a pricing preview:
//
//	{"lines": [...]}
func DecodePreviewRequest(d *jx.Decoder) ([]order.CartLine, error) {
	var lines []order.CartLine
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "lines" {
			return d.Skip()
		}
		var err error
		lines, err = decodeCartLines(d)
		return fieldErr(key, err)
	}); err != nil {
		return nil, errors.Wrap(err, "decode preview request")
	}
	return lines, nil
}

func decodeCartLines(d *jx.Decoder) ([]order.CartLine, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var lines []order.CartLine
	err := d.Arr(func(d *jx.Decoder) error {
		l, err := decodeCartLine(d)
		if err != nil {
			return errors.Wrapf(err, "line %d", len(lines)+1)
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

func decodeCartLine(d *jx.Decoder) (order.CartLine, error) {
	var l order.CartLine
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			l.ProductID, err = d.Str()
		case "name":
			l.Name, err = d.Str()
		case "category":
			l.Category, err = d.Str()
		case "unitPrice":
			l.UnitPrice, err = decodeDecimal(d)
		case "quantity":
			l.Quantity, err = d.Int()
		case "modifiers":
			err = l.Modifiers.Decode(d)
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	return l, err
}

// fieldErr annotates a decoding error with the JSON field it occurred in.
func fieldErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "field %q", key)
}
