package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/wire"
)

// CommitOrder handles POST /orders: the checkout of a cart session.
func (h *Handler) CommitOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		fail(w, r, badRequest(err))
		return
	}
	req, err := wire.DecodeCommitRequest(d)
	if err != nil {
		fail(w, r, badRequest(err))
		return
	}

	o, err := h.orders.Commit(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+o.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		wire.EncodeOrder(e, o)
	})
}

// PreviewOrder handles POST /orders/preview: prices a cart without
// committing it.
func (h *Handler) PreviewOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		fail(w, r, badRequest(err))
		return
	}
	lines, err := wire.DecodePreviewRequest(d)
	if err != nil {
		fail(w, r, badRequest(err))
		return
	}

	totals, err := h.orders.Preview(lines)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeTotals(e, totals, h.orders.TaxRate().String())
	})
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeOrder(e, o)
	})
}
