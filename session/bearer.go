package session

import (
	"errors"
	"net/http"
	"strings"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// CookieName is the cookie Firebase Hosting forwards to backends. The web app stores the
	// ID token in it so page loads and websocket upgrades carry the session too.
	CookieName = "__session"
)

var (
	errMissingToken               = errors.New("no id token in request")
	errInvalidAuthorizationHeader = errors.New("invalid Authorization header")
)

// tokenFromRequest prefers the Authorization header and falls back to the session cookie.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get(authorizationHeader); header != "" {
		if !strings.HasPrefix(header, bearerPrefix) {
			return "", errInvalidAuthorizationHeader
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			return "", errInvalidAuthorizationHeader
		}
		return token, nil
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", errMissingToken
}
