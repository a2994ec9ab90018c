package middleware

import (
	"crypto/subtle"
	"net/http"
)

// HeaderServiceKey carries the shared key of service-to-service callers.
const HeaderServiceKey = "X-API-Key"

// ServiceKey returns middleware that requires the static service key in the
// X-API-Key header. An unset key disables the guarded routes with 503.
func ServiceKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, http.StatusServiceUnavailable, "service key not configured")
				return
			}

			got := r.Header.Get(HeaderServiceKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
