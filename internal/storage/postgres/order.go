package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/report"
)

const (
	nextNumberSQL = `INSERT INTO order_counters (day, value) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = order_counters.value + 1
		RETURNING value`

	insertOrderSQL = `INSERT INTO orders
		(id, order_number, subtotal, tax, total, payment_method, operator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertLineSQL = `INSERT INTO order_lines
		(order_id, position, product_id, name, category, quantity, unit_price, modifiers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectOrdersSQL = `SELECT o.id, o.order_number, o.subtotal, o.tax, o.total,
		o.payment_method, o.operator_id, o.created_at,
		l.position, l.product_id, l.name, l.category, l.quantity, l.unit_price, l.modifiers
		FROM orders o JOIN order_lines l ON l.order_id = o.id`

	getOrderSQL = selectOrdersSQL + `
		WHERE o.id = $1
		ORDER BY l.position`

	listOrdersSQL = selectOrdersSQL + `
		WHERE ($1::timestamptz IS NULL OR o.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR o.created_at < $2)
		ORDER BY o.created_at DESC, o.order_number DESC, l.position`

	productSalesSQL = `SELECT l.product_id,
		(array_agg(l.name ORDER BY o.created_at DESC))[1],
		(array_agg(l.category ORDER BY o.created_at DESC))[1],
		SUM(l.quantity)::bigint,
		SUM(l.quantity * l.unit_price)
		FROM orders o JOIN order_lines l ON l.order_id = o.id
		WHERE ($1::timestamptz IS NULL OR o.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR o.created_at < $2)
		GROUP BY l.product_id`

	orderTotalsSQL = `SELECT created_at, total FROM orders
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at`

	orderNumberConstraint = "orders_order_number_key"
)

var (
	_ order.Repository   = (*OrderRepository)(nil)
	_ report.OrderReader = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists o and its lines in one transaction. The counter upsert
// row-locks the day, so concurrent commits draw distinct numbers.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, day order.Date) error {
	var number string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, nextNumberSQL, day.Time()).Scan(&seq); err != nil {
			return errors.Wrap(err, "next order number")
		}
		number = order.FormatNumber(day, seq)

		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, number, o.Subtotal, o.Tax, o.Total,
			o.PaymentMethod, o.OperatorID, o.CreatedAt,
		); err != nil {
			return errors.Wrap(err, "insert order")
		}

		batch := &pgx.Batch{}
		for _, l := range o.Lines {
			mods, err := encodeModifiers(l.Modifiers)
			if err != nil {
				return err
			}
			batch.Queue(insertLineSQL,
				o.ID, l.Position, l.ProductID, l.Name, l.Category,
				l.Quantity, l.UnitPrice, mods,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert lines")
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			// The rolled back transaction left the counter on the taken
			// number. Step past it so the retry draws a fresh one.
			if _, skipErr := r.pool.Exec(ctx, nextNumberSQL, day.Time()); skipErr != nil {
				return fmt.Errorf("skipping order number for %s: %w", day, skipErr)
			}
			return fmt.Errorf("creating order %q: %w", o.ID, order.ErrNumberConflict)
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	o.Number = number
	return nil
}

// Get returns a single order with its lines.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
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
	rows, err := r.pool.Query(ctx, listOrdersSQL, nullTime(w.From), nullTime(w.Until))
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
	rows, err := r.pool.Query(ctx, productSalesSQL, nullTime(w.From), nullTime(w.Until))
	if err != nil {
		return nil, fmt.Errorf("aggregating product sales: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.ProductSales, error) {
		var ps report.ProductSales
		err := row.Scan(&ps.ProductID, &ps.Name, &ps.Category, &ps.TotalQuantity, &ps.TotalRevenue)
		return ps, err
	})
	if err != nil {
		return nil, fmt.Errorf("aggregating product sales: %w", err)
	}
	return out, nil
}

// OrderTotals returns the creation time and total of every order created
// inside w, oldest first.
func (r *OrderRepository) OrderTotals(ctx context.Context, w order.Window) ([]report.OrderTotal, error) {
	rows, err := r.pool.Query(ctx, orderTotalsSQL, nullTime(w.From), nullTime(w.Until))
	if err != nil {
		return nil, fmt.Errorf("listing order totals: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.OrderTotal, error) {
		var t report.OrderTotal
		err := row.Scan(&t.CreatedAt, &t.Total)
		t.CreatedAt = t.CreatedAt.UTC()
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing order totals: %w", err)
	}
	return out, nil
}

// collectOrders folds joined order/line rows into orders. Rows of one order
// must be adjacent.
func collectOrders(rows pgx.Rows) ([]order.Order, error) {
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var (
			o    order.Order
			l    order.Line
			mods []byte
		)
		if err := rows.Scan(
			&o.ID, &o.Number, &o.Subtotal, &o.Tax, &o.Total,
			&o.PaymentMethod, &o.OperatorID, &o.CreatedAt,
			&l.Position, &l.ProductID, &l.Name, &l.Category, &l.Quantity, &l.UnitPrice, &mods,
		); err != nil {
			return nil, errors.Wrap(err, "scan")
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			o.CreatedAt = o.CreatedAt.UTC()
			orders = append(orders, o)
		}
		if mods != nil {
			if err := l.Modifiers.UnmarshalJSON(mods); err != nil {
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

func encodeModifiers(s order.Selections) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "encode modifiers")
	}
	return data, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
