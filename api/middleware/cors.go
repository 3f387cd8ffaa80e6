package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the configured allowed origin policy.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type", "Idempotency-Key", "X-Requested-With",
			HeaderActorID, HeaderActorRole, HeaderBusinessID, requestIDHeader,
		},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
