package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许前端站点跨域调用 API。origins 为空或包含 "*" 时放行所有来源。
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization", "X-Request-Id"},
		OptionsSuccessStatus: http.StatusNoContent,
		MaxAge:               300,
	})
}
