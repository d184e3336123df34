package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/wire"
)

// ListSales handles GET /reports/sales.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sales, err := h.reports.ListSales(r.Context(), rng)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeSales(e, sales)
	})
}

// TopProducts handles GET /reports/top-products.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	rng, limit, err := parseRankQuery(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	rows, err := h.reports.TopProducts(r.Context(), rng, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeProductSales(e, rows)
	})
}

// BottomProducts handles GET /reports/bottom-products.
func (h *Handler) BottomProducts(w http.ResponseWriter, r *http.Request) {
	rng, limit, err := parseRankQuery(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	rows, err := h.reports.BottomProducts(r.Context(), rng, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeProductSales(e, rows)
	})
}

// DailySales handles GET /reports/daily-sales.
func (h *Handler) DailySales(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	rows, err := h.reports.DailySales(r.Context(), rng)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDailySales(e, rows)
	})
}

// Dashboard handles GET /reports/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	d, err := h.reports.Dashboard(r.Context(), rng)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDashboard(e, d)
	})
}

// parseRange reads the optional start and end query parameters. Ordering of
// the bounds is checked by the report engine.
func parseRange(r *http.Request) (order.DateRange, error) {
	var (
		rng order.DateRange
		q   = r.URL.Query()
	)
	for _, p := range []struct {
		name string
		dst  *order.Date
	}{
		{"start", &rng.Start},
		{"end", &rng.End},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		d, err := order.ParseDate(v)
		if err != nil {
			return order.DateRange{}, badRequest(errors.Wrapf(err, "query parameter %s", p.name))
		}
		*p.dst = d
	}
	return rng, nil
}

// parseRankQuery reads the date range and the optional positive limit. An
// absent limit is returned as 0, which selects the default.
func parseRankQuery(r *http.Request) (order.DateRange, int, error) {
	rng, err := parseRange(r)
	if err != nil {
		return rng, 0, err
	}
	v := r.URL.Query().Get("limit")
	if v == "" {
		return rng, 0, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 {
		return rng, 0, badRequest(errors.Errorf("query parameter limit: %q is not a positive integer", v))
	}
	return rng, limit, nil
}
