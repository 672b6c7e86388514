package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

const (
	sessionCookieName = "tienda_session"
	sessionHeader     = "X-Session-Id"

	// Anonymous carts are scoped to the browser session. The cookie
	// outlives the token TTLs so a cart survives a re-login.
	sessionCookieMaxAge = 60 * 60 * 24 * 30
)

// Session assigns every request a storefront session identifier. The cart
// and the checkout wizard key their state on it. An existing identifier is
// taken from the X-Session-Id header or the session cookie; otherwise a
// fresh one is minted and echoed back on both.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionIDFromRequest(r)
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(sessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"session_id": sessionID})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionIDFromRequest(r *http.Request) string {
	if header := r.Header.Get(sessionHeader); header != "" {
		if _, err := uuid.Parse(header); err == nil {
			return header
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}
	return ""
}
