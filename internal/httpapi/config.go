package httpapi

import (
	"net/http"

	"github.com/go-chi/cors"
)

const defaultMaxBodyBytes int64 = 1 << 20

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// corsMiddleware returns nil when CORS is disabled.
func corsMiddleware() func(http.Handler) http.Handler {
	if !corsEnabled {
		return nil
	}
	opts := cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}
