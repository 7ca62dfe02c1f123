package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the pieces of server config the router needs.
type RouterConfig struct {
	BackendAPIKey      string
	CorsAllowedOrigins string
	WebhookSecret      string
}

// NewRouter builds the HTTP routing table. The /v1 API is gated on the
// backend API key and the n8n callback group on the shared webhook secret;
// either gate is skipped when its credential is unset (local development).
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		allowedOrigins = strings.Split(cfg.CorsAllowedOrigins, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	// n8n workflow callbacks
	r.Route("/webhooks/n8n", func(r chi.Router) {
		if cfg.WebhookSecret != "" {
			r.Use(WebhookSecretAuth(cfg.WebhookSecret))
		}
		r.Post("/location-image", h.HandleLocationImageWebhook)
		r.Post("/bible-image", h.HandleBibleImageWebhook)
		r.Post("/scene-video", h.HandleSceneVideoWebhook)
	})

	// Backend API
	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.CreateProject)
			r.Get("/", h.ListProjects)
			r.Get("/{id}", h.GetProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Get("/{id}/status", h.GetProjectStatus)
			r.Post("/{id}/scenes", h.CreateScene)
		})

		r.Post("/scenes/{id}/shots", h.CreateShot)
		r.Post("/shots/{id}/video", h.GenerateShotVideo)
		r.Post("/locations/{id}/image", h.GenerateLocationImage)

		r.Route("/bible", func(r chi.Router) {
			r.Post("/variants", h.CreateBibleVariant)
			r.Post("/reset", h.BibleReset)
			r.Post("/cleanup", h.BibleCleanup)
		})

		r.Get("/models", h.ListModels)
	})

	return r
}
