package api

import (
	"net/http"
)

// CORS answers cross-origin requests from the configured storefront origins.
type CORS struct {
	allowedOrigins map[string]struct{}
	allowAll       bool
}

// NewCORS creates a CORS handler. "*" allows every origin; an empty list allows none.
func NewCORS(allowedOrigins []string) *CORS {
	c := &CORS{allowedOrigins: make(map[string]struct{})}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			c.allowAll = true
		}
		c.allowedOrigins[origin] = struct{}{}
	}
	return c
}

// Allowed reports whether the request's Origin may access the API.
// Requests without an Origin header are same-origin and always allowed.
func (c *CORS) Allowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || c.allowAll {
		return true
	}
	_, ok := c.allowedOrigins[origin]
	return ok
}

// Handler sets CORS headers and short-circuits preflight requests.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && c.Allowed(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
			w.Header().Set("Access-Control-Max-Age", "3600")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
