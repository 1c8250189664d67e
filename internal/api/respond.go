package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"casedesk.app/server/internal/core"
)

const sessionCookieName = "casedesk_session"

const maxBodyBytes = 1 << 20

var (
	errInvalidBody  = errors.New("Corps de requête invalide")
	errBodyTooLarge = errors.New("Corps de requête trop volumineux")
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	response := map[string]any{
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

// decodeBody reads a JSON object of at most maxBodyBytes into target. An empty body
// leaves target untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errInvalidBody
	}
	return nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeError(w, status, err.Error(), nil)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// sessionToken prefers the Authorization header and falls back to the session cookie.
func sessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// parseLimit reads an optional positive integer query parameter.
func parseLimit(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil, errors.New("La limite doit être un entier positif")
	}
	return &n, nil
}

// mapError picks the status and display message for err. fallback is shown for
// unclassified failures.
func mapError(err error, fallback string) (int, string) {
	var domainErr *core.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case core.KindValidation, core.KindDuplicateEmail:
			return http.StatusBadRequest, domainErr.Message
		case core.KindUnauthorized, core.KindInvalidCredentials:
			return http.StatusUnauthorized, domainErr.Message
		case core.KindNotFound:
			return http.StatusNotFound, domainErr.Message
		}
	}
	return http.StatusInternalServerError, fallback
}

// fail writes the response for a service error. Internal details only leave the
// process in development.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, message := mapError(err, fallback)
	if status < http.StatusInternalServerError {
		writeError(w, status, message, nil)
		return
	}

	h.logger.Error(fallback,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	var details any
	if h.opts.Development {
		details = fmt.Sprint(err)
	}
	writeError(w, status, message, details)
}
