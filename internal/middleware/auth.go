package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/pawcare/internal/ctxkeys"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/service"
)

// AuthMiddleware resolves the bearer token (or auth cookie) into a session on
// the request context. Requests without a valid token continue anonymously.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := authService.Session(r.Context(), token)
			if err != nil {
				slog.Debug("ignoring invalid session token", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Session(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Sign in required.")
			return
		}
		next(w, r)
	}
}

// RequireAdmin allows admins holding flag. Anonymous callers get 401,
// everyone else 403.
func RequireAdmin(flag model.AdminFlags) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := ctxkeys.Session(r.Context())
			if session == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Sign in required.")
				return
			}
			if !session.Can(flag) {
				slog.Warn("admin access denied", "user_id", session.UserID, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "forbidden", "Administrator access required.")
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	cookie, err := r.Cookie(service.AuthCookieName)
	if err == nil {
		return cookie.Value
	}
	return ""
}
