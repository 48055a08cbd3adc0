package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/http/response"
	"github.com/dashkit/admin-dashboard/internal/security"
	"github.com/dashkit/admin-dashboard/internal/service"
)

type contextKey string

const (
	identityContextKey contextKey = "identity"
	tokenContextKey    contextKey = "session_token"
)

// SessionToken reads the session token from the cookie, falling back to a
// bearer Authorization header.
func SessionToken(r *http.Request) string {
	if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
		return raw
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireSession admits a request only when its token passes both the
// signature and the session store check. Rejections are 401. Faults in the
// verifier and panics in the protected handler are logged and surface as a
// bare 500.
func RequireSession(verifier service.SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := SessionToken(r)
			if raw == "" {
				response.Error(w, r, response.CodeUnauthorized, "missing session token", nil)
				return
			}
			v, err := verifySafely(r.Context(), verifier, raw)
			if err != nil {
				logger.ErrorContext(r.Context(), "session verification failed",
					"path", r.URL.Path,
					"error", err.Error(),
				)
				response.Internal(w, r)
				return
			}
			if !v.Valid() {
				response.Error(w, r, response.CodeUnauthorized, "invalid session", nil)
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey, v.Identity)
			ctx = context.WithValue(ctx, tokenContextKey, raw)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "protected handler panic",
					"path", r.URL.Path,
					"user_id", v.Identity.UserID,
					"panic", fmt.Sprint(rec),
				)
				response.Internal(w, r)
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifySafely(ctx context.Context, verifier service.SessionVerifier, raw string) (v service.Verification, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec}
		}
	}()
	return verifier.Verify(ctx, raw)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(domain.Identity)
	return id, ok
}

func TokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(tokenContextKey).(string)
	return raw
}
