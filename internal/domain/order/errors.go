package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNumberConflict is returned by repositories when the generated order
// number collides with an existing one. The service regenerates and retries
// a bounded number of times.
var ErrNumberConflict = errors.New("order number already exists")

// InvalidCartError indicates the submitted cart failed validation. No
// storage mutation happens for an invalid cart.
type InvalidCartError struct {
	// Line is the 1-based position of the offending line, or 0 when the
	// problem concerns the cart as a whole.
	Line      int
	ProductID string
	Reason    string
}

func (e *InvalidCartError) Error() string {
	if e.Line == 0 {
		return "invalid cart: " + e.Reason
	}
	return fmt.Sprintf("invalid cart line %d (product %s): %s", e.Line, e.ProductID, e.Reason)
}

// InvalidRangeError indicates a date filter whose start is after its end.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

// PersistenceError wraps a storage failure. A failed commit never leaves a
// partial order behind.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates an order lookup by identifier found nothing.
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}
