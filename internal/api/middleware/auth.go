package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/auth/token"
	"github.com/xcellar/xcellar/internal/repository"
)

// UserGuard authenticates requests with a bearer access token and loads the
// claims into the request context.
func UserGuard(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := resolveClaims(w, r, tokens)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithUserClaims(r.Context(), claims)))
		})
	}
}

// CourierGuard additionally requires the courier account type.
func CourierGuard(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := resolveClaims(w, r, tokens)
			if !ok {
				return
			}
			if claims.UserType != repository.UserTypeCourier {
				writeForbidden(w, "courier account required")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithUserClaims(r.Context(), claims)))
		})
	}
}

// OptionalUserGuard loads claims when a valid token is present but lets
// anonymous requests through. Used by endpoints open to both.
func OptionalUserGuard(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r.Header.Get("Authorization"))
			if raw != "" && tokens != nil {
				if claims, err := tokens.ParseOfType(raw, token.TypeAccess); err == nil {
					if userID, perr := strconv.ParseInt(claims.Subject, 10, 64); perr == nil {
						ctx := requestctx.WithUserClaims(r.Context(), requestctx.UserClaims{
							UserID:   userID,
							UserType: claims.UserType,
							Email:    claims.Email,
						})
						r = r.WithContext(ctx)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ServerTokenGuard protects operator endpoints with a static shared token
// carried in the Authorization header.
func ServerTokenGuard(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				writeUnauthorized(w, "operator access not configured")
				return
			}
			presented := extractBearer(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				writeUnauthorized(w, "invalid operator token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AutomationGuard protects the inbound workflow webhook with the shared
// automation token (X-Webhook-Token header or bearer).
func AutomationGuard(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				writeUnauthorized(w, "automation access not configured")
				return
			}
			presented := strings.TrimSpace(r.Header.Get("X-Webhook-Token"))
			if presented == "" {
				presented = extractBearer(r.Header.Get("Authorization"))
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				writeUnauthorized(w, "invalid webhook token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveClaims(w http.ResponseWriter, r *http.Request, tokens *token.Manager) (requestctx.UserClaims, bool) {
	if tokens == nil {
		writeUnauthorized(w, "auth unavailable")
		return requestctx.UserClaims{}, false
	}
	raw := extractBearer(r.Header.Get("Authorization"))
	if raw == "" {
		writeUnauthorized(w, "missing authorization header")
		return requestctx.UserClaims{}, false
	}
	claims, err := tokens.ParseOfType(raw, token.TypeAccess)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return requestctx.UserClaims{}, false
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		writeUnauthorized(w, "invalid token subject")
		return requestctx.UserClaims{}, false
	}
	return requestctx.UserClaims{
		UserID:   userID,
		UserType: claims.UserType,
		Email:    claims.Email,
	}, true
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return trimmed
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
