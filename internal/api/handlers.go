package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"casedesk.app/server/internal/core"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Development  bool
	CookieSecure bool
}

type APIHandler struct {
	auth        *core.AuthService
	cases       *core.CaseService
	messages    *core.MessageService
	attachments *core.AttachmentService
	db          Pinger
	logger      *zap.Logger
	opts        Options
}

func NewAPIHandler(authService *core.AuthService, caseService *core.CaseService, messageService *core.MessageService,
	attachmentService *core.AttachmentService, db Pinger, logger *zap.Logger, opts Options) *APIHandler {
	return &APIHandler{
		auth:        authService,
		cases:       caseService,
		messages:    messageService,
		attachments: attachmentService,
		db:          db,
		logger:      logger,
		opts:        opts,
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *APIHandler) ListCasesHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	cases, err := h.cases.ListCases(r.Context(), id.UserID, core.ListCasesInput{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la récupération des dossiers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

type CreateCaseRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Status      *string `json:"status"`
}

func (h *APIHandler) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())

	var req CreateCaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	c, err := h.cases.CreateCase(r.Context(), id.UserID, core.CreateCaseInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la création du dossier")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"case": c})
}

func (h *APIHandler) GetCaseHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	caseID := chi.URLParam(r, "caseID")

	details, err := h.cases.GetCase(r.Context(), id.UserID, caseID)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la récupération du dossier")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"case": details})
}

// UpdateCaseRequest fields left out, or sent as null, are not changed.
type UpdateCaseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Status      *string `json:"status"`
}

func (h *APIHandler) UpdateCaseHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	caseID := chi.URLParam(r, "caseID")

	var req UpdateCaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	c, err := h.cases.UpdateCase(r.Context(), id.UserID, caseID, core.UpdateCaseInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la mise à jour du dossier")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"case": c})
}

func (h *APIHandler) DeleteCaseHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	caseID := chi.URLParam(r, "caseID")

	if err := h.cases.DeleteCase(r.Context(), id.UserID, caseID); err != nil {
		h.fail(w, r, err, "Erreur lors de la suppression du dossier")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Dossier supprimé"})
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	caseID := chi.URLParam(r, "caseID")

	var req PostMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	msg, err := h.messages.PostMessage(r.Context(), id.UserID, caseID, req.Content)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de l'envoi du message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	caseID := chi.URLParam(r, "caseID")

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	messages, err := h.messages.ListMessages(r.Context(), id.UserID, caseID, limit)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la récupération des messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
