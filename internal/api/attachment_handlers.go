package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"casedesk.app/server/internal/core"
)

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	docs, err := h.attachments.ListDocuments(r.Context(), id.UserID, chi.URLParam(r, "caseID"))
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la récupération des documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type CreateDocumentRequest struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	SizeBytes int64  `json:"sizeBytes"`
}

func (h *APIHandler) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())

	var req CreateDocumentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	doc, err := h.attachments.AddDocument(r.Context(), id.UserID, chi.URLParam(r, "caseID"), core.DocumentInput{
		Name:      req.Name,
		MediaType: req.MediaType,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de l'ajout du document")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"document": doc})
}

func (h *APIHandler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	tasks, err := h.attachments.ListTasks(r.Context(), id.UserID, chi.URLParam(r, "caseID"))
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la récupération des tâches")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (h *APIHandler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())

	var req CreateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	task, err := h.attachments.AddTask(r.Context(), id.UserID, chi.URLParam(r, "caseID"), core.TaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la création de la tâche")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

type UpdateTaskRequest struct {
	Completed *bool `json:"completed"`
}

func (h *APIHandler) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())

	var req UpdateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Completed == nil {
		writeError(w, http.StatusBadRequest, "Le champ completed est requis", nil)
		return
	}
	task, err := h.attachments.SetTaskCompleted(r.Context(), id.UserID, chi.URLParam(r, "caseID"), chi.URLParam(r, "taskID"), *req.Completed)
	if err != nil {
		h.fail(w, r, err, "Erreur lors de la mise à jour de la tâche")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}
