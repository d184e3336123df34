package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a product selection handed over by the cart session at
// checkout. UnitPrice is the catalog price captured when the line was built.
type CartLine struct {
	ProductID string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
	Modifiers Selections
}

// Order is an immutable sales record produced by committing a cart.
// Subtotal, Tax and Total are stored as computed at commit time.
type Order struct {
	ID            string
	Number        string
	Lines         []Line
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod string
	OperatorID    string
	CreatedAt     time.Time
}

// Line is a committed order line with its price snapshot.
type Line struct {
	OrderID   string
	Position  int
	ProductID string
	Name      string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
	Modifiers Selections
}

// Amount returns quantity × unit price without rounding.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Window is a half-open [From, Until) interval on order creation time.
// A zero bound leaves that side open.
type Window struct {
	From  time.Time
	Until time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists o with all of its lines in a single transaction. The
	// order number is drawn from the durable counter of day inside that
	// transaction and written to o.Number only after the commit succeeds.
	// It returns ErrNumberConflict when the number is already taken.
	Create(ctx context.Context, o *Order, day Date) error
	// Get returns a single order with its lines, or a *NotFoundError.
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders created inside w with their lines, newest first.
	List(ctx context.Context, w Window) ([]Order, error)
}
