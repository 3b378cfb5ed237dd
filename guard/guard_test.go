package guard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"bookingserver/adminsession"
	"bookingserver/apperr"
	"bookingserver/collections"
	"bookingserver/fieldcodes"
	"bookingserver/session"
	testutils "bookingserver/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeIdentifier struct {
	id  *session.Identity
	err error
}

func (f fakeIdentifier) Identify(r *http.Request) (*session.Identity, error) {
	return f.id, f.err
}

func signedIn(uid string) fakeIdentifier {
	return fakeIdentifier{id: &session.Identity{UserID: uid, Email: uid + "@example.com", DisplayName: "Ana Cruz", EmailVerified: true}}
}

// reached records what the protected handler saw.
type reached struct {
	called bool
	id     *session.Identity
	res    session.Resolution
	hasRes bool
}

func (h *reached) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.id, _ = session.IdentityFrom(r.Context())
	h.res, h.hasRes = session.ResolutionFrom(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(g Guard, r *http.Request) (*httptest.ResponseRecorder, *reached) {
	h := &reached{}
	rec := httptest.NewRecorder()
	Protect(g, h).ServeHTTP(rec, r)
	return rec, h
}

func newResolver(t *testing.T, store *testutils.MemStore) *session.Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return session.NewResolver(ctx, store, time.Minute)
}

func hostStore(uid string) *testutils.MemStore {
	store := testutils.NewMemStore()
	store.HostProfiles[uid] = &collections.Profile{UID: uid, Role: fieldcodes.HostRole, FirstName: "Hana"}
	return store
}

func TestGuestGuard(t *testing.T) {
	t.Run("host visiting bookings goes to the dashboard", func(t *testing.T) {
		g := &Guest{Auth: signedIn("H1"), Roles: newResolver(t, hostStore("H1"))}

		rec, h := serve(g, httptest.NewRequest(http.MethodGet, "/bookings", nil))

		assert.False(t, h.called)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, HostDashboardPath, rec.Header().Get("Location"))
	})

	t.Run("new user is let in and gets a guest profile", func(t *testing.T) {
		store := testutils.NewMemStore()
		g := &Guest{Auth: signedIn("G1"), Roles: newResolver(t, store)}

		rec, h := serve(g, httptest.NewRequest(http.MethodGet, "/favorites", nil))

		require.True(t, h.called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "G1", h.id.UserID)
		require.True(t, h.hasRes)
		assert.Equal(t, session.RoleUnclassified, h.res.Role)
		profile, ok := store.GuestProfiles["G1"]
		require.True(t, ok)
		assert.Equal(t, "Ana", profile.FirstName)
		assert.Equal(t, "Cruz", profile.LastName)
	})

	t.Run("existing guest is let in", func(t *testing.T) {
		store := testutils.NewMemStore()
		store.GuestProfiles["G2"] = &collections.Profile{UID: "G2", Role: fieldcodes.GuestRole}
		g := &Guest{Auth: signedIn("G2"), Roles: newResolver(t, store)}

		_, h := serve(g, httptest.NewRequest(http.MethodGet, "/wallet", nil))

		require.True(t, h.called)
		assert.Equal(t, session.RoleGuest, h.res.Role)
	})

	t.Run("signed out user keeps the booking draft", func(t *testing.T) {
		g := &Guest{Auth: fakeIdentifier{}, Roles: newResolver(t, testutils.NewMemStore())}
		target := "/book/L1?listingId=L1&checkIn=2026-11-01&checkOut=2026-11-03&guests=2"

		rec, h := serve(g, httptest.NewRequest(http.MethodGet, target, nil))

		assert.False(t, h.called)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login?redirect="+url.QueryEscape(target), rec.Header().Get("Location"))

		var draft *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == DraftCookie {
				draft = c
			}
		}
		require.NotNil(t, draft)
		raw, err := url.QueryUnescape(draft.Value)
		require.NoError(t, err)
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)
		assert.Equal(t, "L1", values.Get("listingId"))
		assert.Equal(t, "2026-11-01", values.Get("checkIn"))
		assert.Equal(t, "2026-11-03", values.Get("checkOut"))
		assert.Equal(t, "2", values.Get("guests"))
	})

	t.Run("resolver failure shows an error", func(t *testing.T) {
		store := testutils.NewMemStore()
		store.Fail["HostProfile"] = apperr.E(apperr.TransientFetch, "test", "unavailable")
		g := &Guest{Auth: signedIn("G3"), Roles: newResolver(t, store)}

		rec, h := serve(g, httptest.NewRequest(http.MethodGet, "/favorites", nil))

		assert.False(t, h.called)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("api callers get a status instead of a page redirect", func(t *testing.T) {
		g := &Guest{Auth: signedIn("H1"), Roles: newResolver(t, hostStore("H1"))}

		rec, _ := serve(g, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, HostDashboardPath, body["redirect"])
	})
}

func TestHostGuard(t *testing.T) {
	cases := []struct {
		name     string
		uid      string
		path     string
		store    *testutils.MemStore
		allowed  bool
		location string
	}{
		{name: "host on dashboard", uid: "H1", path: "/host/dashboard", store: hostStore("H1"), allowed: true},
		{name: "guest on dashboard", uid: "G1", path: "/host/dashboard", store: testutils.NewMemStore(), location: HostOnboardingPath},
		{name: "guest on onboarding", uid: "G1", path: "/host/onboarding", store: testutils.NewMemStore(), allowed: true},
		{name: "guest on onboarding step", uid: "G1", path: "/host/onboarding/step-2", store: testutils.NewMemStore(), allowed: true},
		{name: "guest on register", uid: "G1", path: "/host/register", store: testutils.NewMemStore(), allowed: true},
		{name: "guest on verify email", uid: "G1", path: "/host/verify-email", store: testutils.NewMemStore(), allowed: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &Host{Auth: signedIn(tc.uid), Roles: newResolver(t, tc.store)}

			rec, h := serve(g, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.allowed, h.called)
			if !tc.allowed {
				assert.Equal(t, tc.location, rec.Header().Get("Location"))
			}
		})
	}

	t.Run("onboarding pages skip role resolution", func(t *testing.T) {
		store := testutils.NewMemStore()
		g := &Host{Auth: signedIn("G9"), Roles: newResolver(t, store)}

		serve(g, httptest.NewRequest(http.MethodGet, "/host/onboarding", nil))

		assert.Empty(t, store.GuestProfiles)
	})
}

func TestVerifiedGuard(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		rec, h := serve(&Verified{Auth: fakeIdentifier{}}, httptest.NewRequest(http.MethodGet, "/profile", nil))
		assert.False(t, h.called)
		assert.Equal(t, "/login?redirect=%2Fprofile", rec.Header().Get("Location"))
	})

	t.Run("signed in", func(t *testing.T) {
		_, h := serve(&Verified{Auth: signedIn("U1")}, httptest.NewRequest(http.MethodGet, "/profile", nil))
		require.True(t, h.called)
		assert.Equal(t, "U1", h.id.UserID)
		assert.False(t, h.hasRes)
	})

	t.Run("auth not ready", func(t *testing.T) {
		notReady := apperr.E(apperr.AuthNotReady, "test", "still checking your sign-in")
		rec, h := serve(&Verified{Auth: fakeIdentifier{err: notReady}}, httptest.NewRequest(http.MethodGet, "/profile", nil))
		assert.False(t, h.called)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAdminGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions := adminsession.NewStore(ctx, adminsession.Credentials{Email: "admin@example.com", PasswordHash: string(hash)})

	request := func(token string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
		if token != "" {
			r.AddCookie(&http.Cookie{Name: adminsession.CookieName, Value: token})
		}
		return r
	}

	t.Run("no session", func(t *testing.T) {
		rec, h := serve(&Admin{Sessions: sessions}, request(""))
		assert.False(t, h.called)
		assert.Equal(t, AdminLoginPath, rec.Header().Get("Location"))
	})

	t.Run("fresh session", func(t *testing.T) {
		sessions.Put("fresh", adminsession.Session{IsAdmin: true, LoginTime: time.Now().Add(-time.Hour)})
		_, h := serve(&Admin{Sessions: sessions}, request("fresh"))
		assert.True(t, h.called)
	})

	t.Run("session older than a day is cleared", func(t *testing.T) {
		sessions.Put("stale", adminsession.Session{IsAdmin: true, LoginTime: time.Now().Add(-25 * time.Hour)})

		rec, h := serve(&Admin{Sessions: sessions}, request("stale"))

		assert.False(t, h.called)
		assert.Equal(t, AdminLoginPath, rec.Header().Get("Location"))
		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == adminsession.CookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared)
		_, err := sessions.Check("stale")
		assert.True(t, errors.Is(err, adminsession.ErrNoSession))
	})

	t.Run("not an admin", func(t *testing.T) {
		sessions.Put("user", adminsession.Session{IsAdmin: false, LoginTime: time.Now()})
		rec, h := serve(&Admin{Sessions: sessions}, request("user"))
		assert.False(t, h.called)
		assert.Equal(t, AdminLoginPath, rec.Header().Get("Location"))
	})
}
