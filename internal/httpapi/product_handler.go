package httpapi

import (
	"net/http"
	"strconv"

	"grocer-be/internal/product"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := product.ListOptions{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	for name, dst := range map[string]*int{"limit": &opts.Limit, "page": &opts.Page} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, "invalid_request", name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	products, err := h.products.List(r.Context(), opts)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, categories)
}
