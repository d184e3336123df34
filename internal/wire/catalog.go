package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/product"
)

// Catalog is the content of a catalog seed file.
type Catalog struct {
	Products       []product.Product
	ModifierGroups []product.ModifierGroup
}

// EncodeProducts writes a product listing.
func EncodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("category")
		e.Str(p.Category)
		e.FieldStart("price")
		encodeMoney(e, p.Price)
		e.FieldStart("available")
		e.Bool(p.Available)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// EncodeModifierGroups writes the modifier groups with their options.
func EncodeModifierGroups(e *jx.Encoder, groups []product.ModifierGroup) {
	e.ArrStart()
	for _, g := range groups {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(g.ID)
		e.FieldStart("name")
		e.Str(g.Name)
		e.FieldStart("kind")
		e.Str(string(g.Kind))
		e.FieldStart("options")
		e.ArrStart()
		for _, o := range g.Options {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(o.ID)
			e.FieldStart("label")
			e.Str(o.Label)
			e.FieldStart("priceDelta")
			encodeMoney(e, o.PriceDelta)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeCatalog parses a catalog seed file. Products are available unless
// the file says otherwise.
func DecodeCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "products":
			err = d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product %d", len(c.Products)+1)
				}
				c.Products = append(c.Products, p)
				return nil
			})
		case "modifier_groups":
			err = d.Arr(func(d *jx.Decoder) error {
				g, err := decodeModifierGroup(d)
				if err != nil {
					return errors.Wrapf(err, "modifier group %d", len(c.ModifierGroups)+1)
				}
				c.ModifierGroups = append(c.ModifierGroups, g)
				return nil
			})
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &c, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	p := product.Product{Available: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "available":
			p.Available, err = d.Bool()
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	if err != nil {
		return p, err
	}
	if p.ID == "" {
		return p, errors.New("missing id")
	}
	if p.Price.IsNegative() {
		return p, errors.Errorf("negative price %s", p.Price)
	}
	return p, nil
}

func decodeModifierGroup(d *jx.Decoder) (product.ModifierGroup, error) {
	var g product.ModifierGroup
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			g.ID, err = d.Str()
		case "name":
			g.Name, err = d.Str()
		case "kind":
			var kind string
			kind, err = d.Str()
			g.Kind = product.SelectionKind(kind)
		case "options":
			err = d.Arr(func(d *jx.Decoder) error {
				o, err := decodeOption(d)
				if err != nil {
					return err
				}
				g.Options = append(g.Options, o)
				return nil
			})
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	if err != nil {
		return g, err
	}
	if g.ID == "" {
		return g, errors.New("missing id")
	}
	if !g.Kind.Valid() {
		return g, errors.Errorf("group %q: unknown kind %q", g.ID, g.Kind)
	}
	return g, nil
}

func decodeOption(d *jx.Decoder) (product.Option, error) {
	var o product.Option
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "label":
			o.Label, err = d.Str()
		case "price_delta":
			o.PriceDelta, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	return o, err
}
