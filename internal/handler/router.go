package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zoneportal/backend/internal/config"
	"github.com/zoneportal/backend/internal/handler/chatkit"
	middlewarePkg "github.com/zoneportal/backend/internal/middleware"
	"github.com/zoneportal/backend/pkg/utils"
)

// Options collects what the router needs beyond the issuer itself.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	Secrets        config.SecretSource
	MaxBodyBytes   int64
}

// NewRouter wires HTTP routes to core services.
func NewRouter(issuer chatkit.SessionIssuer, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	chatkitHandler := chatkit.New(issuer, opts.Secrets, opts.MaxBodyBytes)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Session issuance for the ask-agent widget
		chatkitHandler.RegisterRoutes(api)
	})

	return r
}
