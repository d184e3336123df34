package report

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/product"
)

// OrderReader is the read side of the order repository. Rankings and the
// daily series use the aggregate reads so that no report has to load order
// lines it does not return.
type OrderReader interface {
	// List returns orders created inside w with their lines, newest first.
	List(ctx context.Context, w order.Window) ([]order.Order, error)
	// ProductSales sums quantity and revenue per product over the lines of
	// orders created inside w, in no particular order. Name and category
	// come from the newest sale of each product.
	ProductSales(ctx context.Context, w order.Window) ([]ProductSales, error)
	// OrderTotals returns the creation time and total of every order
	// created inside w.
	OrderTotals(ctx context.Context, w order.Window) ([]OrderTotal, error)
}

// CatalogReader lists the products currently offered for sale.
type CatalogReader interface {
	ListAvailable(ctx context.Context) ([]product.Product, error)
}

// Engine answers report queries over the order history.
type Engine struct {
	orders  OrderReader
	catalog CatalogReader
	loc     *time.Location
	tracer  trace.Tracer
}

// NewEngine creates a report Engine. Day boundaries are evaluated in loc;
// a nil loc means time.Local. A nil tp disables tracing.
func NewEngine(orders OrderReader, catalog CatalogReader, loc *time.Location, tp trace.TracerProvider) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	return &Engine{
		orders:  orders,
		catalog: catalog,
		loc:     loc,
		tracer:  tp.Tracer("github.com/xenking/pos-order-engine/internal/domain/report"),
	}
}

// ListSales returns every order created within r, newest first, with its
// summary statistics.
func (e *Engine) ListSales(ctx context.Context, r order.DateRange) (*Sales, error) {
	ctx, span := e.start(ctx, "report.ListSales", r)
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, err
	}
	orders, err := e.orders.List(ctx, r.Window(e.loc))
	if err != nil {
		return nil, &order.PersistenceError{Op: "list orders", Err: err}
	}

	totals := make([]OrderTotal, len(orders))
	for i, o := range orders {
		totals[i] = OrderTotal{CreatedAt: o.CreatedAt, Total: o.Total}
	}
	return &Sales{Orders: orders, Summary: summarize(totals)}, nil
}

// TopProducts ranks products sold within r by quantity, best first. Only
// products with at least one matching sale are ranked. Ties are broken by
// product id ascending. A non-positive limit means DefaultLimit.
func (e *Engine) TopProducts(ctx context.Context, r order.DateRange, limit int) ([]ProductSales, error) {
	ctx, span := e.start(ctx, "report.TopProducts", r)
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, err
	}
	sold, err := e.productSales(ctx, r)
	if err != nil {
		return nil, err
	}
	return topProducts(sold, limit), nil
}

// BottomProducts ranks every available catalog product by quantity sold
// within r, worst first. Products without sales appear with zero totals.
// Ties are broken by product id ascending. A non-positive limit means
// DefaultLimit.
func (e *Engine) BottomProducts(ctx context.Context, r order.DateRange, limit int) ([]ProductSales, error) {
	ctx, span := e.start(ctx, "report.BottomProducts", r)
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, err
	}

	var (
		sold     []ProductSales
		products []product.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sold, err = e.productSales(gctx, r)
		return err
	})
	g.Go(func() (err error) {
		products, err = e.available(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bottomProducts(sold, products, limit), nil
}

// DailySales groups orders created within r by calendar day, ascending.
// Days without orders are omitted.
func (e *Engine) DailySales(ctx context.Context, r order.DateRange) ([]DailySales, error) {
	ctx, span := e.start(ctx, "report.DailySales", r)
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, err
	}
	totals, err := e.orderTotals(ctx, r)
	if err != nil {
		return nil, err
	}
	return dailySales(totals, e.loc), nil
}

// Dashboard computes the summary, the top and bottom DefaultLimit products
// and the daily series for r. The order totals, the product aggregate and
// the catalog are read concurrently.
func (e *Engine) Dashboard(ctx context.Context, r order.DateRange) (*Dashboard, error) {
	ctx, span := e.start(ctx, "report.Dashboard", r)
	defer span.End()

	if err := r.Validate(); err != nil {
		return nil, err
	}

	var (
		totals   []OrderTotal
		sold     []ProductSales
		products []product.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = e.orderTotals(gctx, r)
		return err
	})
	g.Go(func() (err error) {
		sold, err = e.productSales(gctx, r)
		return err
	})
	g.Go(func() (err error) {
		products, err = e.available(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dashboard{
		Summary: summarize(totals),
		Top:     topProducts(sold, DefaultLimit),
		Bottom:  bottomProducts(sold, products, DefaultLimit),
		Daily:   dailySales(totals, e.loc),
	}, nil
}

func (e *Engine) start(ctx context.Context, name string, r order.DateRange) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("pos.range.start", formatBound(r.Start)),
		attribute.String("pos.range.end", formatBound(r.End)),
	))
}

func formatBound(d order.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func (e *Engine) productSales(ctx context.Context, r order.DateRange) ([]ProductSales, error) {
	rows, err := e.orders.ProductSales(ctx, r.Window(e.loc))
	if err != nil {
		return nil, &order.PersistenceError{Op: "aggregate product sales", Err: err}
	}
	return rows, nil
}

func (e *Engine) orderTotals(ctx context.Context, r order.DateRange) ([]OrderTotal, error) {
	totals, err := e.orders.OrderTotals(ctx, r.Window(e.loc))
	if err != nil {
		return nil, &order.PersistenceError{Op: "list order totals", Err: err}
	}
	return totals, nil
}

func (e *Engine) available(ctx context.Context) ([]product.Product, error) {
	products, err := e.catalog.ListAvailable(ctx)
	if err != nil {
		return nil, &order.PersistenceError{Op: "list products", Err: err}
	}
	return products, nil
}

func summarize(totals []OrderTotal) Summary {
	s := Summary{
		TotalSales:    decimal.Zero,
		OrderCount:    len(totals),
		AverageTicket: decimal.Zero,
	}
	for _, t := range totals {
		s.TotalSales = s.TotalSales.Add(t.Total)
	}
	if s.OrderCount > 0 {
		s.AverageTicket = s.TotalSales.Div(decimal.NewFromInt(int64(s.OrderCount))).Round(2)
	}
	return s
}

func topProducts(sold []ProductSales, limit int) []ProductSales {
	out := slices.Clone(sold)
	slices.SortFunc(out, func(a, b ProductSales) int {
		if c := cmp.Compare(b.TotalQuantity, a.TotalQuantity); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return truncate(out, limit)
}

func bottomProducts(sold []ProductSales, products []product.Product, limit int) []ProductSales {
	byID := make(map[string]ProductSales, len(sold))
	for _, ps := range sold {
		byID[ps.ProductID] = ps
	}

	out := make([]ProductSales, 0, len(products))
	for _, p := range products {
		ps := ProductSales{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     p.Category,
			TotalRevenue: decimal.Zero,
		}
		if s, ok := byID[p.ID]; ok {
			ps.TotalQuantity = s.TotalQuantity
			ps.TotalRevenue = s.TotalRevenue
		}
		out = append(out, ps)
	}
	slices.SortFunc(out, func(a, b ProductSales) int {
		if c := cmp.Compare(a.TotalQuantity, b.TotalQuantity); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return truncate(out, limit)
}

func dailySales(totals []OrderTotal, loc *time.Location) []DailySales {
	byDay := make(map[order.Date]*DailySales)
	for _, o := range totals {
		day := order.DateOf(o.CreatedAt, loc)
		ds, ok := byDay[day]
		if !ok {
			ds = &DailySales{Date: day, TotalSales: decimal.Zero}
			byDay[day] = ds
		}
		ds.OrderCount++
		ds.TotalSales = ds.TotalSales.Add(o.Total)
	}

	out := make([]DailySales, 0, len(byDay))
	for _, ds := range byDay {
		out = append(out, *ds)
	}
	slices.SortFunc(out, func(a, b DailySales) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

func truncate(rows []ProductSales, limit int) []ProductSales {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
