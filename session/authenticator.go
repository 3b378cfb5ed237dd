package session

import (
	"context"
	"errors"
	"net/http"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is implemented by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Authenticator turns requests into identities.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator returns an Authenticator that checks tokens with verifier.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Identify returns the identity behind the request's ID token. A request without a token, or
// with a token that is malformed, expired or revoked, has no session: both return values are nil.
// An error means the token could not be checked at all and the caller should treat the auth
// state as not ready yet.
func (a *Authenticator) Identify(r *http.Request) (*Identity, error) {
	idToken, err := tokenFromRequest(r)
	if errors.Is(err, errMissingToken) {
		return nil, nil
	}
	if err != nil {
		log.Printf("rejecting credentials for %s: %v", r.URL.Path, err)
		return nil, nil
	}

	token, err := a.verifier.VerifyIDToken(r.Context(), idToken)
	if err != nil {
		if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) || auth.IsIDTokenRevoked(err) || auth.IsUserDisabled(err) {
			log.Printf("rejecting id token for %s: %v", r.URL.Path, err)
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.AuthNotReady, "session.Identify", "still checking your sign-in", err)
	}
	return identityFromToken(token), nil
}
