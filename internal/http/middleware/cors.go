package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/promptdesk/internal/config"
)

// CORS handles Cross-Origin Resource Sharing for browser clients of the API.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
		ExposedHeaders:   []string{traceHeader, requestIDHeader},
	})

	return c.Handler
}
