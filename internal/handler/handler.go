// Package handler exposes the order service, the report engine and the
// catalog over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-order-engine/internal/domain/auth"
	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/product"
	"github.com/xenking/pos-order-engine/internal/domain/report"
)

// maxBodySize bounds request bodies; a register cart is a few kilobytes.
const maxBodySize = 1 << 20

// OrderService commits and reads orders.
type OrderService interface {
	Commit(ctx context.Context, req order.CommitRequest) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	Preview(lines []order.CartLine) (order.Totals, error)
	TaxRate() decimal.Decimal
}

// ReportEngine answers the report queries.
type ReportEngine interface {
	ListSales(ctx context.Context, r order.DateRange) (*report.Sales, error)
	TopProducts(ctx context.Context, r order.DateRange, limit int) ([]report.ProductSales, error)
	BottomProducts(ctx context.Context, r order.DateRange, limit int) ([]report.ProductSales, error)
	DailySales(ctx context.Context, r order.DateRange) ([]report.DailySales, error)
	Dashboard(ctx context.Context, r order.DateRange) (*report.Dashboard, error)
}

// Handler serves the /api routes.
type Handler struct {
	orders   OrderService
	reports  ReportEngine
	products product.Repository
	auth     *Authenticator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders OrderService,
	reports ReportEngine,
	products product.Repository,
	authenticator *Authenticator,
) *Handler {
	return &Handler{
		orders:   orders,
		reports:  reports,
		products: products,
		auth:     authenticator,
	}
}

// Routes registers the API on r. Order routes need the create_order scope,
// report routes the read_reports scope. Reading a single order is allowed
// with either. The catalog is public.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/modifiers", h.ListModifierGroups)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Require(auth.ScopeCreateOrder))
		r.Post("/orders", h.CommitOrder)
		r.Post("/orders/preview", h.PreviewOrder)
	})
	r.With(h.auth.Require(auth.ScopeCreateOrder, auth.ScopeReadReports)).
		Get("/orders/{id}", h.GetOrder)

	r.Route("/reports", func(r chi.Router) {
		r.Use(h.auth.Require(auth.ScopeReadReports))
		r.Get("/sales", h.ListSales)
		r.Get("/top-products", h.TopProducts)
		r.Get("/bottom-products", h.BottomProducts)
		r.Get("/daily-sales", h.DailySales)
		r.Get("/dashboard", h.Dashboard)
	})
}

// Router returns a chi router serving the API under prefix, with
// middlewares applied to every route of the router.
func (h *Handler) Router(prefix string, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Route(prefix, h.Routes)
	return r
}

// readBody reads a bounded request body and returns a decoder over it.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return jx.DecodeBytes(data), nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
