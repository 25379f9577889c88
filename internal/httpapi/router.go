package httpapi

import (
	"net/http"
	"time"

	"grocer-be/internal/address"
	"grocer-be/internal/cart"
	"grocer-be/internal/category"
	"grocer-be/internal/identity"
	"grocer-be/internal/kvstore"
	"grocer-be/internal/logger"
	"grocer-be/internal/middleware"
	"grocer-be/internal/product"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Identity   identity.Service
	Products   product.Service
	Categories category.Service
	Cart       cart.Service
	Addresses  address.Service
	// Preferences holds per-device permission policy.
	Preferences *kvstore.RedisStore
	Limiter     *middleware.RateLimiter

	RequestTimeout time.Duration
}

type Handler struct {
	identity   identity.Service
	products   product.Service
	categories category.Service
	cart       cart.Service
	addresses  address.Service
	prefs      *kvstore.RedisStore
	now        func() time.Time
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		identity:   d.Identity,
		products:   d.Products,
		categories: d.Categories,
		cart:       d.Cart,
		addresses:  d.Addresses,
		prefs:      d.Preferences,
		now:        time.Now,
	}

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.Auth(d.Identity))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.Get("/health", h.health)

	// streams stay open for as long as the client listens
	r.With(middleware.RequireUser).Get("/cart/events", h.cartEvents)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(timeout))

		r.Post("/auth/signup", h.signUp)
		r.Post("/auth/signin", h.signIn)
		r.Post("/auth/signout", h.signOut)

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)

		r.Post("/permissions/evaluate", h.evaluatePermissions)
		r.Post("/permissions/request", h.requestPermissions)
		r.Post("/permissions/seen", h.markPermissionsSeen)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/cart", h.getCart)
			r.Post("/cart", h.addItem)
			r.Delete("/cart", h.clearCart)
			r.Patch("/cart/items/{id}", h.updateQuantity)
			r.Delete("/cart/items/{id}", h.removeItem)
			r.Post("/cart/coupon", h.applyCoupon)
			r.Delete("/cart/coupon", h.removeCoupon)

			r.Get("/addresses", h.listAddresses)
			r.Post("/addresses", h.createAddress)
			r.Get("/addresses/{id}", h.getAddress)
			r.Put("/addresses/{id}", h.updateAddress)
			r.Delete("/addresses/{id}", h.deleteAddress)
			r.Post("/addresses/{id}/default", h.setDefaultAddress)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Ready(r.Context()); err != nil {
		respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "cart": err.Error()})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
