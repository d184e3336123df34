package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/report"
)

const (
	nextNumberSQL = `INSERT INTO order_counters (day, value) VALUES (?, 1)
		ON CONFLICT (day) DO UPDATE SET value = order_counters.value + 1
		RETURNING value`

	insertOrderSQL = `INSERT INTO orders
		(id, order_number, subtotal, tax, total, payment_method, operator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertLineSQL = `INSERT INTO order_lines
		(order_id, position, product_id, name, category, quantity, unit_price, modifiers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectOrdersSQL = `SELECT o.id, o.order_number, o.subtotal, o.tax, o.total,
		o.payment_method, o.operator_id, o.created_at,
		l.position, l.product_id, l.name, l.category, l.quantity, l.unit_price, l.modifiers
		FROM orders o JOIN order_lines l ON l.order_id = o.id`

	getOrderSQL = selectOrdersSQL + `
		WHERE o.id = ?
		ORDER BY l.position`

	listOrdersSQL = selectOrdersSQL + `
		WHERE o.created_at >= ? AND o.created_at < ?
		ORDER BY o.created_at DESC, o.order_number DESC, l.position`

	// Prices are decimal text, so quantities are summed per distinct price
	// and revenue is multiplied out exactly in Go. With a single max()
	// aggregate, SQLite takes the bare name and category from the newest
	// line of each group.
	productSalesSQL = `SELECT l.product_id, l.unit_price, SUM(l.quantity), MAX(o.created_at),
		l.name, l.category
		FROM orders o JOIN order_lines l ON l.order_id = o.id
		WHERE o.created_at >= ? AND o.created_at < ?
		GROUP BY l.product_id, l.unit_price`

	orderTotalsSQL = `SELECT created_at, total FROM orders
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at`
)

// Bounds used for open sides of a window. Every stored timestamp sorts
// between them.
const (
	minTime = "0000"
	maxTime = "9999"
)

var (
	_ order.Repository   = (*OrderRepository)(nil)
	_ report.OrderReader = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by SQLite.
type OrderRepository struct {
	db *DB
}

// NewOrderRepository returns an OrderRepository that uses the given handle.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists o and its lines in one transaction, drawing the order
// number from the day's counter inside it.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, day order.Date) error {
	number, err := r.create(ctx, o, day)
	if err != nil {
		if isUniqueViolation(err, "orders.order_number") {
			// The rolled back transaction left the counter on the taken
			// number. Step past it so the retry draws a fresh one.
			if _, skipErr := r.db.write.ExecContext(ctx, nextNumberSQL, day.String()); skipErr != nil {
				return fmt.Errorf("skipping order number for %s: %w", day, skipErr)
			}
			return fmt.Errorf("creating order %q: %w", o.ID, order.ErrNumberConflict)
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	o.Number = number
	return nil
}

func (r *OrderRepository) create(ctx context.Context, o *order.Order, day order.Date) (_ string, err error) {
	tx, err := r.db.write.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seq int64
	if err = tx.QueryRowContext(ctx, nextNumberSQL, day.String()).Scan(&seq); err != nil {
		return "", errors.Wrap(err, "next order number")
	}
	number := order.FormatNumber(day, seq)

	if _, err = tx.ExecContext(ctx, insertOrderSQL,
		o.ID, number, o.Subtotal, o.Tax, o.Total,
		o.PaymentMethod, o.OperatorID, formatTime(o.CreatedAt),
	); err != nil {
		return "", errors.Wrap(err, "insert order")
	}

	for _, l := range o.Lines {
		mods, mErr := encodeModifiers(l.Modifiers)
		if mErr != nil {
			return "", mErr
		}
		if _, err = tx.ExecContext(ctx, insertLineSQL,
			o.ID, l.Position, l.ProductID, l.Name, l.Category,
			l.Quantity, l.UnitPrice, mods,
		); err != nil {
			return "", errors.Wrapf(err, "insert line %d", l.Position)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return number, nil
}

// Get returns a single order with its lines.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.db.read.QueryContext(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	if len(orders) == 0 {
		return nil, &order.NotFoundError{OrderID: id}
	}
	return &orders[0], nil
}

// List returns orders created inside w with their lines, newest first.
// Orders and lines come from one statement so they share a snapshot.
func (r *OrderRepository) List(ctx context.Context, w order.Window) ([]order.Order, error) {
	from, until := windowBounds(w)
	rows, err := r.db.read.QueryContext(ctx, listOrdersSQL, from, until)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// ProductSales sums quantity and revenue per product over the lines of
// orders created inside w.
func (r *OrderRepository) ProductSales(ctx context.Context, w order.Window) ([]report.ProductSales, error) {
	from, until := windowBounds(w)
	rows, err := r.db.read.QueryContext(ctx, productSalesSQL, from, until)
	if err != nil {
		return nil, fmt.Errorf("aggregating product sales: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type aggregate struct {
		report.ProductSales
		newest string
	}
	var (
		byID = make(map[string]*aggregate)
		ids  []string
	)
	for rows.Next() {
		var (
			id, newest, name, category string
			price                      decimal.Decimal
			qty                        int64
		)
		if err := rows.Scan(&id, &price, &qty, &newest, &name, &category); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		p, ok := byID[id]
		if !ok {
			p = &aggregate{ProductSales: report.ProductSales{ProductID: id, TotalRevenue: decimal.Zero}}
			byID[id] = p
			ids = append(ids, id)
		}
		p.TotalQuantity += qty
		p.TotalRevenue = p.TotalRevenue.Add(price.Mul(decimal.NewFromInt(qty)))
		if newest > p.newest {
			p.newest, p.Name, p.Category = newest, name, category
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregating product sales: %w", err)
	}

	out := make([]report.ProductSales, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id].ProductSales)
	}
	return out, nil
}

// OrderTotals returns the creation time and total of every order created
// inside w, oldest first.
func (r *OrderRepository) OrderTotals(ctx context.Context, w order.Window) ([]report.OrderTotal, error) {
	from, until := windowBounds(w)
	rows, err := r.db.read.QueryContext(ctx, orderTotalsSQL, from, until)
	if err != nil {
		return nil, fmt.Errorf("listing order totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []report.OrderTotal
	for rows.Next() {
		var (
			t         report.OrderTotal
			createdAt string
		)
		if err := rows.Scan(&createdAt, &t.Total); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing order totals: %w", err)
	}
	return out, nil
}

func windowBounds(w order.Window) (from, until string) {
	from, until = minTime, maxTime
	if !w.From.IsZero() {
		from = formatTime(w.From)
	}
	if !w.Until.IsZero() {
		until = formatTime(w.Until)
	}
	return from, until
}

// collectOrders folds joined order/line rows into orders. Rows of one order
// must be adjacent.
func collectOrders(rows *sql.Rows) ([]order.Order, error) {
	defer func() { _ = rows.Close() }()

	var orders []order.Order
	for rows.Next() {
		var (
			o         order.Order
			l         order.Line
			createdAt string
			mods      sql.NullString
		)
		if err := rows.Scan(
			&o.ID, &o.Number, &o.Subtotal, &o.Tax, &o.Total,
			&o.PaymentMethod, &o.OperatorID, &createdAt,
			&l.Position, &l.ProductID, &l.Name, &l.Category, &l.Quantity, &l.UnitPrice, &mods,
		); err != nil {
			return nil, errors.Wrap(err, "scan")
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			ts, err := parseTime(createdAt)
			if err != nil {
				return nil, err
			}
			o.CreatedAt = ts
			orders = append(orders, o)
		}

		if mods.Valid {
			if err := l.Modifiers.UnmarshalJSON([]byte(mods.String)); err != nil {
				return nil, errors.Wrapf(err, "line %d of order %s", l.Position, o.ID)
			}
		}
		l.OrderID = o.ID
		cur := &orders[len(orders)-1]
		cur.Lines = append(cur.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate")
	}
	return orders, nil
}

func encodeModifiers(s order.Selections) (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "encode modifiers")
	}
	return string(data), nil
}
