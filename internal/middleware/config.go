package middleware

import (
	"net/http"

	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/ctxkeys"
)

// Config puts the sanitized configuration on the request context. Secrets,
// processor keys and the database connection string are not included.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	public := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithConfig(r.Context(), public)))
		})
	}
}
