package api

import (
	"net/http"
	"time"

	"casedesk.app/server/internal/core"
	"casedesk.app/server/internal/store"
)

// userView is the public projection of an account.
type userView struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func newUserView(u *store.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name}
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), core.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la création du compte")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Compte créé avec succès",
		"user":    newUserView(user),
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	sess, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la connexion")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      newUserView(sess.User),
	})
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), id); err != nil {
		h.fail(w, r, err, "Erreur lors de la déconnexion")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Déconnexion réussie"})
}

func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	user, err := h.auth.CurrentUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la récupération de la session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      newUserView(user),
		"expiresAt": id.ExpiresAt,
	})
}
