package adminsession

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T, now *time.Time) *Store {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := NewStore(ctx, Credentials{Email: "admin@example.com", PasswordHash: string(hash)})
	s.now = func() time.Time { return *now }
	return s
}

func TestLogin(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, &now)

	cases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "wrong password", email: "admin@example.com", password: "guess", wantErr: ErrBadCredentials},
		{name: "wrong email", email: "someone@example.com", password: "s3cret", wantErr: ErrBadCredentials},
		{name: "email is case insensitive", email: " Admin@Example.com ", password: "s3cret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, sess, err := s.Login(tc.email, tc.password)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.True(t, sess.IsAdmin)
			assert.Equal(t, now, sess.LoginTime)

			checked, err := s.Check(token)
			require.NoError(t, err)
			assert.Equal(t, sess, checked)
		})
	}
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	s := NewStore(context.Background(), Credentials{Email: "admin@example.com"})
	_, _, err := s.Login("admin@example.com", "")
	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestSessionWindowIsOneDay(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, &now)
	assert.Equal(t, 24*time.Hour, s.TTL())

	token, sess, err := s.Login("admin@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), sess.ExpiresAt(s.TTL()))

	now = now.Add(24*time.Hour + time.Second)
	_, err = s.Check(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCheckExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, &now)

	cases := []struct {
		name    string
		age     time.Duration
		isAdmin bool
		wantErr error
	}{
		{name: "fresh", age: time.Hour, isAdmin: true},
		{name: "exactly at the window", age: 24 * time.Hour, isAdmin: true},
		{name: "25 hours old", age: 25 * time.Hour, isAdmin: true, wantErr: ErrExpired},
		{name: "25 hours old without flag", age: 25 * time.Hour, isAdmin: false, wantErr: ErrExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.Put(tc.name, Session{IsAdmin: tc.isAdmin, LoginTime: now.Add(-tc.age)})
			_, err := s.Check(tc.name)
			assert.ErrorIs(t, err, tc.wantErr)
			if tc.wantErr == ErrExpired {
				_, err = s.Check(tc.name)
				assert.ErrorIs(t, err, ErrNoSession)
			}
		})
	}

	_, err := s.Check("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "tok", time.Hour, true)
	ClearCookie(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, -1, cookies[1].MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	assert.Empty(t, TokenFrom(r))
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
	assert.Equal(t, "tok", TokenFrom(r))
}
