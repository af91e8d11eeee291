package middleware

import (
	"net/http"
	"strings"

	"attendance-tracker/backend/internal/platform/httpx"
	"attendance-tracker/backend/internal/security"
)

const bearerPrefix = "bearer "

// AccessTokenCookie is the cookie login sets when cookies are enabled.
const AccessTokenCookie = "access_token"

// Authenticate validates the access token from the Authorization header or the access_token cookie
// and sets user_id, role and token_id in the request context. Requests without a valid token get 401.
func Authenticate(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				httpx.Error(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			principal, err := tokens.ValidateAccess(token)
			if err != nil {
				httpx.Error(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ctx := WithIdentity(r.Context(), principal.UserID, principal.Role, principal.TokenID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the Bearer token, falling back to the access_token cookie, or "".
func TokenFromRequest(r *http.Request) string {
	if t := extractBearer(r.Header.Get("Authorization")); t != "" {
		return t
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
