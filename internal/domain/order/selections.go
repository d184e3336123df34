package order

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/product"
)

// Selections maps a modifier group id to the option ids chosen in it.
type Selections map[string][]string

// validate checks s against the catalog modifier groups keyed by id.
// It returns a human-readable reason, or "" when s is valid.
func (s Selections) validate(groups map[string]product.ModifierGroup) string {
	for _, groupID := range s.groupIDs() {
		options := s[groupID]
		g, ok := groups[groupID]
		if !ok {
			return fmt.Sprintf("unknown modifier group %q", groupID)
		}
		if g.Kind == product.SingleChoice && len(options) > 1 {
			return fmt.Sprintf("modifier group %q accepts a single option, got %d", g.Name, len(options))
		}
		seen := make(map[string]struct{}, len(options))
		for _, id := range options {
			if _, ok := g.Option(id); !ok {
				return fmt.Sprintf("unknown option %q in modifier group %q", id, g.Name)
			}
			if _, dup := seen[id]; dup {
				return fmt.Sprintf("option %q selected twice in modifier group %q", id, g.Name)
			}
			seen[id] = struct{}{}
		}
	}
	return ""
}

// groupIDs returns the group ids of s in sorted order.
func (s Selections) groupIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Encode writes s as a JSON object of group id to option id array. Keys are
// sorted so the stored form is stable. Empty groups are dropped.
func (s Selections) Encode(e *jx.Encoder) {
	e.ObjStart()
	for _, id := range s.groupIDs() {
		if len(s[id]) == 0 {
			continue
		}
		e.FieldStart(id)
		e.ArrStart()
		for _, opt := range s[id] {
			e.Str(opt)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// Decode reads s from a JSON object of group id to option id array.
func (s *Selections) Decode(d *jx.Decoder) error {
	if d.Next() == jx.Null {
		*s = nil
		return d.Null()
	}
	out := Selections{}
	if err := d.Obj(func(d *jx.Decoder, group string) error {
		var options []string
		if err := d.Arr(func(d *jx.Decoder) error {
			opt, err := d.Str()
			if err != nil {
				return err
			}
			options = append(options, opt)
			return nil
		}); err != nil {
			return errors.Wrapf(err, "group %q", group)
		}
		if len(options) > 0 {
			out[group] = options
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "decode modifier selections")
	}
	if len(out) == 0 {
		out = nil
	}
	*s = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Selections) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Selections) UnmarshalJSON(data []byte) error {
	return s.Decode(jx.DecodeBytes(data))
}
