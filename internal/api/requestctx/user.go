// Package requestctx carries per-request identity and locale through the
// context so handlers stay free of header parsing.
package requestctx

import "context"

// UserClaims is the authenticated identity a guard resolved for the request.
type UserClaims struct {
	UserID   int64
	UserType string
	Email    string
}

type contextKey string

const userContextKey contextKey = "xcellar-user"

// I18nKey stores the negotiated language in the context.
type I18nKey struct{}

// WithLanguage attaches the language tag for downstream translation.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, I18nKey{}, lang)
}

// GetLanguage returns the negotiated language, defaulting to en-US.
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return "en-US"
	}
	if lang, ok := ctx.Value(I18nKey{}).(string); ok {
		return lang
	}
	return "en-US"
}

// WithUserClaims attaches the authenticated identity to the context.
func WithUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

// UserFromContext fetches the identity, zero value when unauthenticated.
func UserFromContext(ctx context.Context) UserClaims {
	if ctx == nil {
		return UserClaims{}
	}
	claims, _ := ctx.Value(userContextKey).(UserClaims)
	return claims
}
