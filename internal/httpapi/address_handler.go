package httpapi

import (
	"net/http"

	"grocer-be/internal/address"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.addresses.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, list)
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	a, err := h.addresses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a)
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var in address.AddressInput
	if !decodeJSON(w, r, &in) {
		return
	}

	a, err := h.addresses.Create(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, a)
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var in address.AddressInput
	if !decodeJSON(w, r, &in) {
		return
	}

	a, err := h.addresses.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.addresses.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.addresses.SetDefaultAddress(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
