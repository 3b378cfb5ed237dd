package session

import (
	"context"
	"errors"
	"testing"

	"bookingserver/apperr"
	"bookingserver/collections"
	testutils "bookingserver/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, store ProfileStore) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewResolver(ctx, store, time10m)
}

func TestResolveRoles(t *testing.T) {
	cases := []struct {
		name        string
		host        *collections.Profile
		guest       *collections.Profile
		want        Role
		wantCreated bool
	}{
		{
			name:  "host profile wins over guest profile",
			host:  &collections.Profile{UID: "H1", Role: "host"},
			guest: &collections.Profile{UID: "H1", Role: "guest"},
			want:  RoleHost,
		},
		{
			name: "host only",
			host: &collections.Profile{UID: "H1", Role: "host"},
			want: RoleHost,
		},
		{
			name:  "host document without host role falls through to guest",
			host:  &collections.Profile{UID: "H1", Role: "pending"},
			guest: &collections.Profile{UID: "H1", Role: "guest"},
			want:  RoleGuest,
		},
		{
			name:  "guest only",
			guest: &collections.Profile{UID: "H1", Role: "guest"},
			want:  RoleGuest,
		},
		{
			name:        "no profile creates a guest profile",
			want:        RoleUnclassified,
			wantCreated: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := testutils.NewMemStore()
			if tc.host != nil {
				store.HostProfiles["H1"] = tc.host
			}
			if tc.guest != nil {
				store.GuestProfiles["H1"] = tc.guest
			}
			r := newTestResolver(t, store)

			res, err := r.Resolve(context.Background(), &Identity{UserID: "H1", DisplayName: "Hana Lee"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Role)
			require.NotNil(t, res.Profile)

			created := false
			for _, call := range store.CallLog() {
				if call == "CreateGuestProfile:H1" {
					created = true
				}
			}
			assert.Equal(t, tc.wantCreated, created)
			assert.NotContains(t, store.CallLog(), "CreateHostProfile:H1")
		})
	}
}

func TestFirstSignInCreatesOneGuestProfile(t *testing.T) {
	store := testutils.NewMemStore()
	r := newTestResolver(t, store)
	id := &Identity{
		UserID:      "G1",
		Email:       "g1@example.com",
		DisplayName: "Maria Clara Santos",
		PhotoURL:    "https://example.com/g1.png",
	}

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), id)
		require.NoError(t, err)
		r.Invalidate("G1")
	}

	require.Len(t, store.GuestProfiles, 1)
	assert.Empty(t, store.HostProfiles)
	profile := store.GuestProfiles["G1"]
	assert.Equal(t, "guest", profile.Role)
	assert.Equal(t, "Maria", profile.FirstName)
	assert.Equal(t, "Clara Santos", profile.LastName)
	assert.Equal(t, "g1@example.com", profile.Email)
	assert.Equal(t, "https://example.com/g1.png", profile.PhotoURL)

	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, RoleGuest, res.Role)
}

func TestResolveCachesPerUser(t *testing.T) {
	store := testutils.NewMemStore()
	store.HostProfiles["H1"] = &collections.Profile{UID: "H1", Role: "host"}
	r := newTestResolver(t, store)
	id := &Identity{UserID: "H1"}

	_, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)

	// Reads now fail, but the cached role is still served.
	store.Fail["HostProfile"] = errors.New("unavailable")
	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.IsHost())

	r.Invalidate("H1")
	_, err = r.Resolve(context.Background(), id)
	assert.Error(t, err)
}

func TestResolveFailureIsRetryable(t *testing.T) {
	store := testutils.NewMemStore()
	store.Fail["GuestProfile"] = errors.New("deadline exceeded")
	r := newTestResolver(t, store)

	_, err := r.Resolve(context.Background(), &Identity{UserID: "G2"})
	require.Error(t, err)
	assert.Equal(t, apperr.TransientFetch, apperr.KindOf(err))
	assert.Equal(t, "failed to verify", apperr.Message(err))
	assert.Empty(t, store.GuestProfiles)

	_, err = r.Resolve(context.Background(), nil)
	assert.Equal(t, apperr.AuthNotReady, apperr.KindOf(err))
}

func TestRegisterHost(t *testing.T) {
	store := testutils.NewMemStore()
	r := newTestResolver(t, store)
	id := &Identity{UserID: "U1", Email: "u1@example.com", EmailVerified: true}

	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, RoleUnclassified, res.Role)

	_, err = r.RegisterHost(context.Background(), id, HostRegistration{FirstName: "Ulla"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	unverified := *id
	unverified.EmailVerified = false
	_, err = r.RegisterHost(context.Background(), &unverified, HostRegistration{FirstName: "Ulla", Phone: "0917"})
	assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))

	profile, err := r.RegisterHost(context.Background(), id, HostRegistration{FirstName: "Ulla", Phone: "0917"})
	require.NoError(t, err)
	assert.Equal(t, "host", profile.Role)

	res, err = r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, RoleHost, res.Role)

	_, err = r.RegisterHost(context.Background(), id, HostRegistration{FirstName: "Ulla", Phone: "0917"})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestFavorites(t *testing.T) {
	store := testutils.NewMemStore()
	store.GuestProfiles["G1"] = &collections.Profile{UID: "G1", Role: "guest"}
	r := newTestResolver(t, store)
	ctx := context.Background()

	favs, err := r.Favorites(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, favs)

	require.NoError(t, r.AddFavorite(ctx, "G1", "L1"))
	require.NoError(t, r.AddFavorite(ctx, "G1", "L1"))
	require.NoError(t, r.AddFavorite(ctx, "G1", "L2"))
	favs, err = r.Favorites(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L2"}, favs)

	require.NoError(t, r.RemoveFavorite(ctx, "G1", "L1"))
	favs, err = r.Favorites(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, favs)

	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(r.AddFavorite(ctx, "G1", "")))
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in, first, last string
	}{
		{"Juan dela Cruz", "Juan", "dela Cruz"},
		{"Cher", "Cher", ""},
		{"  Ana  Reyes ", "Ana", "Reyes"},
		{"", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			first, last := SplitName(tc.in)
			assert.Equal(t, tc.first, first)
			assert.Equal(t, tc.last, last)
		})
	}
}
