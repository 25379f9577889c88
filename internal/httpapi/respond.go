package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"grocer-be/internal/address"
	"grocer-be/internal/cart"
	"grocer-be/internal/identity"
	"grocer-be/internal/logger"
	"grocer-be/internal/permission"
	"grocer-be/internal/product"

	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromCtx(r.Context()).Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError maps domain errors to HTTP responses. Anything unknown is a
// 500 and is logged.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidCoupon *cart.InvalidCouponError
		minPurchase   *cart.MinimumPurchaseNotMetError
		missingField  *address.MissingFieldError
	)

	switch {
	case errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrSessionExpired):
		respondError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, identity.ErrEmailExists):
		respondError(w, r, http.StatusConflict, "email_exists", err.Error())
	case errors.Is(err, identity.ErrEmailRequired),
		errors.Is(err, identity.ErrPasswordTooShort),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrProductRequired),
		errors.Is(err, cart.ErrCouponCodeRequired),
		errors.Is(err, address.ErrInvalidAddressID),
		errors.Is(err, permission.ErrUnknownKind),
		errors.Is(err, permission.ErrUnknownStatus):
		respondError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &missingField):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    "missing_field",
			Details: map[string]string{"field": missingField.Field},
		})
	case errors.Is(err, product.ErrProductNotFound):
		respondError(w, r, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, address.ErrAddressNotFound):
		respondError(w, r, http.StatusNotFound, "address_not_found", err.Error())
	case errors.As(err, &invalidCoupon):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_coupon", invalidCoupon.Reason)
	case errors.As(err, &minPurchase):
		respondJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "minimum_purchase_not_met",
			Details: map[string]float64{
				"required": minPurchase.Required,
				"actual":   minPurchase.Actual,
			},
		})
	case errors.Is(err, cart.ErrDataUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, "cart_unavailable", "cart is temporarily unavailable")
	case errors.Is(err, cart.ErrNoChangeFeed):
		respondError(w, r, http.StatusServiceUnavailable, "events_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
