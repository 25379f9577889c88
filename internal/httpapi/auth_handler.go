package httpapi

import (
	"net/http"
	"time"

	"grocer-be/internal/identity"
	"grocer-be/internal/middleware"
)

type signUpRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
}

type signInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{ID: u.ID.String(), Email: u.Email, FullName: u.FullName}
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identity.SignUp(r.Context(), identity.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, r, http.StatusOK, signInResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      toUserResponse(res.User),
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFrom(r); token != "" {
		if err := h.identity.SignOut(r.Context(), token); err != nil {
			handleError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
