package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey is the context key holding the negotiated locale.
var LocaleKey = localeContextKey{}

// supportedLocales drives prompt language hints. The first entry doubles as
// the matcher fallback.
var supportedLocales = []language.Tag{
	language.English,
	language.Indonesian,
	language.Spanish,
	language.Japanese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Locale negotiates the request locale from X-Locale and Accept-Language
// and stores it in the context.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	prefs := []string{}
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		prefs = append(prefs, v)
	}
	if v := strings.TrimSpace(r.Header.Get("Accept-Language")); v != "" {
		prefs = append(prefs, v)
	}
	if len(prefs) == 0 {
		if fallback != "" {
			return fallback
		}
		return "en"
	}
	tag, _ := language.MatchStrings(localeMatcher, prefs...)
	base, _ := tag.Base()
	if base.String() == "und" {
		if fallback != "" {
			return fallback
		}
		return "en"
	}
	return base.String()
}

// LocaleFromContext returns the negotiated locale, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return "en"
}
