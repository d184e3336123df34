package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item that can be rung up at the register.
type Product struct {
	ID        string
	Name      string
	Category  string
	Price     decimal.Decimal
	Available bool
}

// SelectionKind controls how many options of a modifier group a cart line
// may carry.
type SelectionKind string

const (
	// SingleChoice groups accept at most one option (size, doneness).
	SingleChoice SelectionKind = "single"
	// MultiChoice groups accept any number of distinct options (extras).
	MultiChoice SelectionKind = "multi"
)

// Valid reports whether k is a known selection kind.
func (k SelectionKind) Valid() bool {
	return k == SingleChoice || k == MultiChoice
}

// ModifierGroup is a named set of customization options offered for products.
type ModifierGroup struct {
	ID      string
	Name    string
	Kind    SelectionKind
	Options []Option
}

// Option is a single choice inside a modifier group. PriceDelta is carried
// for display only and never changes order totals.
type Option struct {
	ID         string
	Label      string
	PriceDelta decimal.Decimal
}

// Option returns the option with the given id.
func (g ModifierGroup) Option(id string) (Option, bool) {
	for _, o := range g.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Repository defines read operations for the product catalog. The catalog is
// owned by the back-office; the order engine only reads snapshots from it.
type Repository interface {
	ListAvailable(ctx context.Context) ([]Product, error)
	ListModifierGroups(ctx context.Context) ([]ModifierGroup, error)
}
