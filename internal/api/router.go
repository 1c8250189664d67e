package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", apiHandler.HealthHandler)
		r.Get("/ready", apiHandler.ReadyHandler)
		r.Post("/auth/register", apiHandler.RegisterHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.AuthMiddleware)

			r.Post("/auth/logout", apiHandler.LogoutHandler)
			r.Get("/auth/session", apiHandler.SessionHandler)

			// Case routes
			r.Get("/cases", apiHandler.ListCasesHandler)
			r.Post("/cases", apiHandler.CreateCaseHandler)
			r.Route("/cases/{caseID}", func(r chi.Router) {
				r.Get("/", apiHandler.GetCaseHandler)
				r.Patch("/", apiHandler.UpdateCaseHandler)
				r.Delete("/", apiHandler.DeleteCaseHandler)

				r.Post("/messages", apiHandler.PostMessageHandler)
				r.Get("/messages", apiHandler.ListMessagesHandler)

				r.Get("/documents", apiHandler.ListDocumentsHandler)
				r.Post("/documents", apiHandler.CreateDocumentHandler)

				r.Get("/tasks", apiHandler.ListTasksHandler)
				r.Post("/tasks", apiHandler.CreateTaskHandler)
				r.Patch("/tasks/{taskID}", apiHandler.UpdateTaskHandler)
			})
		})
	})

	return r
}
