// Package session works out who is making a request and what role they play in the marketplace.
//
// The identity comes from a Firebase ID token. The role is derived from profile documents,
// host profile first, and a guest profile is created the first time an unknown user signs in.
package session

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// Identity is the signed-in user as reported by the auth provider.
type Identity struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL,omitempty"`
}

// identityFromToken reads the standard Firebase claims off a verified token.
func identityFromToken(token *auth.Token) *Identity {
	id := &Identity{UserID: token.UID}
	id.Email, _ = token.Claims["email"].(string)
	id.EmailVerified, _ = token.Claims["email_verified"].(bool)
	id.DisplayName, _ = token.Claims["name"].(string)
	id.PhotoURL, _ = token.Claims["picture"].(string)
	return id
}

// SplitName splits a display name on its first space. Anything after the first space is the
// last name.
func SplitName(displayName string) (first, last string) {
	displayName = strings.TrimSpace(displayName)
	first, last, _ = strings.Cut(displayName, " ")
	return first, strings.TrimSpace(last)
}

type ctxKey int

const (
	identityKey ctxKey = iota
	resolutionKey
)

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// WithResolution stores a resolved role on the context.
func WithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, resolutionKey, res)
}

// ResolutionFrom returns the resolution stored by WithResolution.
func ResolutionFrom(ctx context.Context) (Resolution, bool) {
	res, ok := ctx.Value(resolutionKey).(Resolution)
	return res, ok
}
