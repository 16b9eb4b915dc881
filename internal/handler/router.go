package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// RouterConfig holds the services and settings the HTTP API is built from.
type RouterConfig struct {
	Auth   *service.AuthService
	Tokens *service.TokenService
	Tasks  *service.TaskService
	Log    *slog.Logger

	// ExposeErrors adds the underlying error to 500 responses. Never set in production.
	ExposeErrors bool

	AuthRateRPS   float64
	AuthRateBurst int
}

// NewRouter builds the HTTP API. ctx bounds background work such as rate
// limiter cleanup.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	rs := responder{log: cfg.Log, exposeErrors: cfg.ExposeErrors}
	authHandler := NewAuthHandler(cfg.Auth, rs)
	taskHandler := NewTaskHandler(cfg.Tasks, rs)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.Recoverer(cfg.Log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(ctx, cfg.AuthRateRPS, cfg.AuthRateBurst))
			r.Post("/auth/register", authHandler.HandleRegister)
			r.Post("/auth/login", authHandler.HandleLogin)
			r.Post("/auth/token", authHandler.HandleToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Tokens, cfg.Log))
			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/auth/me", authHandler.HandleMe)

			r.Get("/tasks", taskHandler.HandleList)
			r.Post("/tasks", taskHandler.HandleCreate)
			r.Get("/tasks/trashed", taskHandler.HandleTrashed)
			r.Post("/tasks/trashed", taskHandler.HandleTrashed)
			r.Get("/tasks/{id}", taskHandler.HandleGet)
			r.Put("/tasks/{id}", taskHandler.HandleUpdate)
			r.Delete("/tasks/{id}", taskHandler.HandleDelete)
			r.Post("/tasks/{id}/restore", taskHandler.HandleRestore)
		})
	})

	return r
}
