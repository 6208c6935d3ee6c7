package broker

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// CORSOptions mirrors the CORS flags spec.md §6 enumerates under the CLI's
// external-collaborator surface. It is adapted from buffkit's
// secure/middleware.go security-header middleware, generalized from a
// fixed Buffalo CSP policy to the caller-configurable CORS headers an SSE
// endpoint actually needs (browsers opening EventSource connections across
// origins).
type CORSOptions struct {
	AllowOrigin      string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials bool
	MaxAge           int
}

// CORSMiddleware returns a mux.MiddlewareFunc applying the configured CORS
// headers to every response, including preflight OPTIONS requests.
func CORSMiddleware(opts CORSOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.AllowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", opts.AllowOrigin)
			}
			if opts.AllowMethods != "" {
				w.Header().Set("Access-Control-Allow-Methods", opts.AllowMethods)
			}
			if opts.AllowHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", opts.AllowHeaders)
			}
			if opts.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if opts.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
