package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
)

// CronSecretMiddleware gates scheduler-only endpoints behind the
// x-cron-secret header. With no CRON_SECRET configured the gate is open,
// which keeps local development friction-free.
func CronSecretMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := os.Getenv("CRON_SECRET")
		if secret != "" {
			got := r.Header.Get("x-cron-secret")
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "Unauthorized"}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
