// Package adminsession keeps the admin portal's login state. An admin session is only a flag and
// a login time; it expires a fixed duration after login and is independent of the Firebase user
// session.
package adminsession

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	log "bookingserver/cloudlog"

	"github.com/c-pro/geche"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CookieName carries the opaque session token.
const CookieName = "adminSession"

// SessionTTL is the fixed admin session window, counted from login.
const SessionTTL = 24 * time.Hour

var (
	// ErrNoSession is returned for unknown or logged-out tokens.
	ErrNoSession = errors.New("no admin session")
	// ErrExpired is returned, once, for a session older than SessionTTL. The session is gone afterwards.
	ErrExpired = errors.New("admin session expired")
	// ErrBadCredentials is returned for a wrong email or password.
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrLoginDisabled is returned when no admin password is configured.
	ErrLoginDisabled = errors.New("admin login is not configured")
)

// Session is the admin trust context.
type Session struct {
	IsAdmin   bool      `json:"isAdmin"`
	LoginTime time.Time `json:"loginTime"`
}

// ExpiresAt is the end of the session.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.LoginTime.Add(ttl)
}

// Checker is everything the admin guard needs.
type Checker interface {
	// Check returns the session behind token. An expired session is cleared and ErrExpired returned.
	Check(token string) (Session, error)
}

// Credentials is the single configured admin account.
type Credentials struct {
	Email        string
	PasswordHash string
}

// Store holds sessions in memory, keyed by token.
type Store struct {
	creds    Credentials
	ttl      time.Duration
	sessions geche.Geche[string, Session]
	now      func() time.Time
}

// NewStore returns a Store whose sessions last SessionTTL. Entries are evicted from memory some
// time after that; the expiry decision itself is made in Check.
func NewStore(ctx context.Context, creds Credentials) *Store {
	return &Store{
		creds:    creds,
		ttl:      SessionTTL,
		sessions: geche.NewMapTTLCache[string, Session](ctx, 2*SessionTTL, time.Minute),
		now:      time.Now,
	}
}

// TTL is the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Check implements Checker.
func (s *Store) Check(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	sess, err := s.sessions.Get(token)
	if err != nil {
		return Session{}, ErrNoSession
	}
	if s.now().Sub(sess.LoginTime) > s.ttl {
		s.Clear(token)
		return Session{}, ErrExpired
	}
	return sess, nil
}

// Put stores a session under token.
func (s *Store) Put(token string, sess Session) {
	s.sessions.Set(token, sess)
}

// Clear removes the session behind token.
func (s *Store) Clear(token string) {
	_ = s.sessions.Del(token)
}

// Login checks the credentials and starts a session, returning its token.
func (s *Store) Login(email, password string) (string, Session, error) {
	if s.creds.PasswordHash == "" {
		return "", Session{}, ErrLoginDisabled
	}
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(strings.ToLower(s.creds.Email)),
	) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(s.creds.PasswordHash), []byte(password))
	if !emailOK || passwordErr != nil {
		log.Printf("admin login rejected for %q", email)
		return "", Session{}, ErrBadCredentials
	}

	token := uuid.NewString()
	sess := Session{IsAdmin: true, LoginTime: s.now()}
	s.Put(token, sess)
	return token, sess, nil
}

// TokenFrom reads the session token cookie.
func TokenFrom(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetCookie hands the token to the browser.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ExpiredCookie is the cookie that removes the token from the browser.
func ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie removes the token from the browser.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, ExpiredCookie())
}

type ctxKey struct{}

// WithSession stores the checked session on the context.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok
}
