package api

import (
	"log"
	"net/http"

	"github.com/dimas1q/quick-estimate/internal/api/middleware"
	"github.com/dimas1q/quick-estimate/internal/auth"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandlers.Register)
	mux.HandleFunc("POST /api/auth/login", authHandlers.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandlers.Logout)
	mux.HandleFunc("POST /api/auth/refresh", authHandlers.Refresh)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/auth/me", authHandlers.Me)

	// Estimates
	protected.HandleFunc("GET /api/estimates", handlers.ListEstimates)
	protected.HandleFunc("POST /api/estimates", handlers.CreateEstimate)
	protected.HandleFunc("GET /api/estimates/{id}", handlers.GetEstimate)
	protected.HandleFunc("PUT /api/estimates/{id}", handlers.UpdateEstimate)
	protected.HandleFunc("DELETE /api/estimates/{id}", handlers.DeleteEstimate)
	protected.HandleFunc("PUT /api/estimates/{id}/favorite", handlers.SetFavorite)

	// Versions
	protected.HandleFunc("GET /api/estimates/{id}/versions", handlers.ListVersions)
	protected.HandleFunc("GET /api/estimates/{id}/versions/{version}", handlers.GetVersion)
	protected.HandleFunc("POST /api/estimates/{id}/versions/{version}/restore", handlers.RestoreVersion)
	protected.HandleFunc("DELETE /api/estimates/{id}/versions/{version}", handlers.DeleteVersion)

	// Change logs
	protected.HandleFunc("GET /api/estimates/{id}/logs", handlers.ListEstimateLogs)

	// Notes
	protected.HandleFunc("GET /api/estimates/{id}/notes", handlers.ListNotes)
	protected.HandleFunc("POST /api/estimates/{id}/notes", handlers.AddNote)
	protected.HandleFunc("PUT /api/notes/{id}", handlers.UpdateNote)
	protected.HandleFunc("DELETE /api/notes/{id}", handlers.DeleteNote)

	// Clients
	protected.HandleFunc("GET /api/clients", handlers.ListClients)
	protected.HandleFunc("POST /api/clients", handlers.CreateClient)
	protected.HandleFunc("GET /api/clients/{id}", handlers.GetClient)
	protected.HandleFunc("PUT /api/clients/{id}", handlers.UpdateClient)
	protected.HandleFunc("DELETE /api/clients/{id}", handlers.DeleteClient)
	protected.HandleFunc("GET /api/clients/{id}/logs", handlers.ListClientLogs)

	mux.Handle("/api/", middleware.AuthMiddleware(jwtService)(protected))

	return withLogging(mux)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Println("[API]", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
