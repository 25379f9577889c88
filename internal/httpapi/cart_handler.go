package httpapi

import (
	"net/http"

	"grocer-be/internal/cart"
	"grocer-be/internal/coupon"
	"grocer-be/internal/identity"

	"github.com/go-chi/chi/v5"
)

type cartResponse struct {
	Lines  []*cart.LineView `json:"lines"`
	Totals cart.Totals      `json:"totals"`
	Coupon *coupon.Coupon   `json:"coupon,omitempty"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

type applyCouponResponse struct {
	Coupon *coupon.Coupon `json:"coupon"`
	Totals cart.Totals    `json:"totals"`
}

func ownerFrom(r *http.Request) string {
	id, _ := identity.UserIDFrom(r.Context())
	return id
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	lines, err := h.cart.ListCart(r.Context(), owner)
	if err != nil {
		handleError(w, r, err)
		return
	}

	applied := h.cart.AppliedCoupon(owner)
	respondJSON(w, r, http.StatusOK, cartResponse{
		Lines:  lines,
		Totals: cart.ComputeTotals(lines, applied),
		Coupon: applied,
	})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	line, err := h.cart.AddItem(r.Context(), ownerFrom(r), req.ProductID, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, line)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), ownerFrom(r), req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]bool{"updated": updated})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cart.RemoveItem(r.Context(), chi.URLParam(r, "id"), ownerFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.cart.ClearCart(r.Context(), ownerFrom(r))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]bool{"cleared": cleared})
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerFrom(r)
	c, err := h.cart.ApplyCoupon(r.Context(), owner, req.Code)
	if err != nil {
		handleError(w, r, err)
		return
	}

	totals, err := h.cart.Totals(r.Context(), owner)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, applyCouponResponse{Coupon: c, Totals: totals})
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveCoupon(ownerFrom(r))
	w.WriteHeader(http.StatusNoContent)
}
