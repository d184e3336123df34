package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/wire"
)

// ListProducts handles GET /products: the products the register can sell.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAvailable(r.Context())
	if err != nil {
		fail(w, r, &order.PersistenceError{Op: "list products", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeProducts(e, products)
	})
}

// ListModifierGroups handles GET /modifiers.
func (h *Handler) ListModifierGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.products.ListModifierGroups(r.Context())
	if err != nil {
		fail(w, r, &order.PersistenceError{Op: "list modifier groups", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeModifierGroups(e, groups)
	})
}
