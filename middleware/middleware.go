package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"
	"workhub-manager/server/services"
)

// TokenCookie carries the session token.
const TokenCookie = "token"

type contextKey string

const identityKey contextKey = "identity"

// IdentityResolver turns a session token into the caller's identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (models.Identity, error)
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the identity attached by ProtectRoute or OptionalIdentity.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}

// tokenFrom reads the session cookie, falling back to a bearer header.
func tokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func ProtectRoute(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFrom(r)
			if token == "" {
				logging.Logger.Warnf("Event ID: AUTH_TOKEN_MISSING, Description: No session token for %s %s", r.Method, r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Not authorized. Try login again.")
				return
			}

			identity, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil {
				if services.KindOf(err) == services.KindUnauthorized {
					logging.Logger.Warnf("Event ID: AUTH_TOKEN_REJECTED, Description: Token rejected for %s %s: %v", r.Method, r.URL.Path, err)
					writeError(w, http.StatusUnauthorized, err.Error())
					return
				}
				logging.Logger.Errorf("Event ID: AUTH_RESOLVE_FAILED, Description: Failed to resolve identity: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalIdentity attaches the caller's identity when a valid token is
// present and lets the request through either way.
func OptionalIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := tokenFrom(r); token != "" {
				if identity, err := resolver.ResolveIdentity(r.Context(), token); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsAdminRoute must run after ProtectRoute.
func IsAdminRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok || !identity.IsAdmin {
			logging.Logger.Warnf("Event ID: ADMIN_ACCESS_DENIED, Description: Non-admin request to %s %s", r.Method, r.URL.Path)
			writeError(w, http.StatusForbidden, "Not authorized as admin. Try login as admin.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func EnableCORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.Logger.Errorf("Event ID: PANIC_RECOVERED, Description: Panic serving %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": message})
}
