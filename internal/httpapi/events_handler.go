package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"grocer-be/internal/cart"
	"grocer-be/internal/logger"

	"go.uber.org/zap"
)

// cartEvents streams the caller's cart as server-sent events, one event per
// refresh. Headers go out with the first event so a watch that fails to
// start still gets a JSON error.
func (h *Handler) cartEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("method", "cartEvents"),
	)

	owner := ownerFrom(r)
	rc := http.NewResponseController(w)
	started := false

	send := func(lines []*cart.LineView) {
		applied := h.cart.AppliedCoupon(owner)
		payload, err := json.Marshal(cartResponse{
			Lines:  lines,
			Totals: cart.ComputeTotals(lines, applied),
			Coupon: applied,
		})
		if err != nil {
			log.Warn("failed to encode cart event", zap.Error(err))
			return
		}

		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}

		if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", payload); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			log.Debug("flush failed", zap.Error(err))
		}
	}

	err := h.cart.Watch(r.Context(), owner, send)
	if err == nil {
		return
	}
	if !started {
		handleError(w, r, err)
		return
	}

	log.Warn("cart watch ended", zap.Error(err))
	fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
	_ = rc.Flush()
}
