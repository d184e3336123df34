package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/pos-order-engine/internal/domain/product"
)

const instrumentationName = "github.com/xenking/pos-order-engine/internal/domain/order"

// DefaultMaxAttempts bounds how many times a commit regenerates its order
// number after a collision.
const DefaultMaxAttempts = 3

// Config holds the pricing and numbering parameters of the Service.
type Config struct {
	// TaxRate is the fraction of the subtotal charged as tax.
	TaxRate decimal.Decimal
	// Location defines the business day used for order numbers.
	Location *time.Location
	// MaxAttempts bounds commit attempts on order number collisions.
	MaxAttempts int
}

// CommitRequest is a checkout request from a cart session.
type CommitRequest struct {
	Lines         []CartLine
	PaymentMethod string
	OperatorID    string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMeterProvider sets the meter provider for commit metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for commit spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// Service turns carts into committed orders.
type Service struct {
	catalog product.Repository
	orders  Repository
	cfg     Config
	now     func() time.Time

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	committed      metric.Int64Counter
	failures       metric.Int64Counter
	totals         metric.Float64Histogram
}

// NewService creates an order Service. Zero config values fall back to
// DefaultTaxRate, time.Local and DefaultMaxAttempts.
func NewService(catalog product.Repository, orders Repository, cfg Config, opts ...Option) (*Service, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.TaxRate.IsNegative() {
		return nil, errors.Errorf("tax rate %s is negative", cfg.TaxRate)
	}

	s := &Service{
		catalog:        catalog,
		orders:         orders,
		cfg:            cfg,
		now:            time.Now,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.committed, err = meter.Int64Counter("pos.orders.committed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "committed counter")
	}
	if s.failures, err = meter.Int64Counter("pos.orders.commit_failures",
		metric.WithDescription("Commit attempts that failed"),
	); err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}
	if s.totals, err = meter.Float64Histogram("pos.orders.total",
		metric.WithDescription("Order totals including tax"),
	); err != nil {
		return nil, errors.Wrap(err, "totals histogram")
	}

	return s, nil
}

// TaxRate returns the configured tax rate.
func (s *Service) TaxRate() decimal.Decimal {
	return s.cfg.TaxRate
}

// Preview prices a cart without persisting anything.
func (s *Service) Preview(lines []CartLine) (Totals, error) {
	return Compute(lines, s.cfg.TaxRate)
}

// Commit validates the cart, prices it and persists the order with all of
// its lines atomically. Validation errors are returned as *InvalidCartError
// before any storage is touched; storage failures as *PersistenceError.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Commit",
		trace.WithAttributes(attribute.Int("pos.cart.lines", len(req.Lines))),
	)
	defer span.End()

	o, err := s.commit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.failures.Add(ctx, 1)
		return nil, err
	}

	span.SetAttributes(attribute.String("pos.order.number", o.Number))
	s.committed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", o.PaymentMethod)))
	s.totals.Record(ctx, o.Total.InexactFloat64())
	return o, nil
}

func (s *Service) commit(ctx context.Context, req CommitRequest) (*Order, error) {
	lg := zctx.From(ctx)

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return nil, &InvalidCartError{Reason: "payment method required"}
	}
	operatorID := strings.TrimSpace(req.OperatorID)
	if operatorID == "" {
		return nil, &InvalidCartError{Reason: "operator id required"}
	}

	totals, err := Compute(req.Lines, s.cfg.TaxRate)
	if err != nil {
		return nil, err
	}
	if err := s.validateModifiers(ctx, req.Lines); err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:            uuid.NewString(),
		Lines:         make([]Line, len(req.Lines)),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: paymentMethod,
		OperatorID:    operatorID,
		// Storage keeps microseconds; truncate so re-reads compare equal.
		CreatedAt: now.UTC().Truncate(time.Microsecond),
	}
	for i, l := range req.Lines {
		mods := l.Modifiers
		if len(mods) == 0 {
			mods = nil
		}
		o.Lines[i] = Line{
			OrderID:   o.ID,
			Position:  i + 1,
			ProductID: l.ProductID,
			Name:      l.Name,
			Category:  l.Category,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Modifiers: mods,
		}
	}

	day := DateOf(now, s.cfg.Location)
	for attempt := 1; ; attempt++ {
		err := s.orders.Create(ctx, o, day)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNumberConflict) && attempt < s.cfg.MaxAttempts {
			lg.Warn("Order number collision, retrying",
				zap.String("order_id", o.ID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		lg.Error("Commit order failed",
			zap.String("order_id", o.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return nil, &PersistenceError{Op: "create order", Err: err}
	}

	lg.Info("Order committed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("total", o.Total.StringFixed(currencyPlaces)),
		zap.Int("lines", len(o.Lines)),
	)
	return o, nil
}

// validateModifiers checks every line's selections against the catalog
// modifier groups. The catalog is only consulted when some line carries
// selections.
func (s *Service) validateModifiers(ctx context.Context, lines []CartLine) error {
	needed := false
	for _, l := range lines {
		if len(l.Modifiers) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	list, err := s.catalog.ListModifierGroups(ctx)
	if err != nil {
		return &PersistenceError{Op: "load modifier groups", Err: err}
	}
	groups := make(map[string]product.ModifierGroup, len(list))
	for _, g := range list {
		groups[g.ID] = g
	}

	for i, l := range lines {
		if reason := l.Modifiers.validate(groups); reason != "" {
			return &InvalidCartError{Line: i + 1, ProductID: l.ProductID, Reason: reason}
		}
	}
	return nil
}

// Get returns a committed order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, nf
		}
		return nil, &PersistenceError{Op: "get order", Err: err}
	}
	return o, nil
}
