package middleware

import (
	"net/http"
	"time"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/support/i18n"
	"golang.org/x/text/language"
)

// I18n middleware detects the user's preferred language and stores it in the context
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check query param first
			lang := r.URL.Query().Get("lang")

			// Then check header
			if lang == "" {
				// Check custom header first (from frontend interceptor)
				lang = r.Header.Get("X-I18N-Lang")
			}

			if lang == "" {
				// Then check cookie
				if cookie, err := r.Cookie("i18next"); err == nil {
					lang = cookie.Value
				}
			}

			if lang == "" {
				// Finally check Accept-Language
				accept := r.Header.Get("Accept-Language")
				tags, _, err := language.ParseAcceptLanguage(accept)
				if err == nil && len(tags) > 0 {
					lang = tags[0].String()
				}
			}

			// Tag normalization and the default fallback are the
			// manager's job; the raw value goes into the context as-is.
			if lang == "" {
				lang = "en-US"
			}

			ctx := requestctx.WithLanguage(r.Context(), lang)

			// Set cookie if query param was present to persist selection
			if r.URL.Query().Get("lang") != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     "i18next",
					Value:    lang,
					Path:     "/",
					Expires:  time.Now().Add(365 * 24 * time.Hour),
					HttpOnly: false, // Allow JS access for i18next
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
