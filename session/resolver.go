package session

import (
	"context"
	"time"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	"bookingserver/collections"
	"bookingserver/fieldcodes"

	"github.com/c-pro/geche"
)

// Role is the part a user plays. Exactly one of the three applies at a time.
type Role int

const (
	// RoleUnclassified is a signed-in user with no guest or host profile yet. They are treated
	// as an implicit guest.
	RoleUnclassified Role = iota
	// RoleGuest has a guest profile.
	RoleGuest
	// RoleHost has a host profile whose role field is "host".
	RoleHost
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleHost:
		return "host"
	default:
		return "unclassified"
	}
}

// MarshalText lets roles appear as strings in JSON responses.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Resolution is the outcome of role resolution for one user.
type Resolution struct {
	Role Role `json:"role"`
	// Profile is the document the role was derived from; for an unclassified user it is the
	// guest profile that was just created.
	Profile *collections.Profile `json:"profile"`
}

// IsHost is shorthand for Role == RoleHost.
func (r Resolution) IsHost() bool {
	return r.Role == RoleHost
}

// ProfileStore reads and creates profile documents. Reads of a missing document return an
// apperr.NotFound error.
type ProfileStore interface {
	HostProfile(ctx context.Context, uid string) (*collections.Profile, error)
	GuestProfile(ctx context.Context, uid string) (*collections.Profile, error)
	// CreateGuestProfile writes the profile only if none exists and reports whether it did.
	CreateGuestProfile(ctx context.Context, profile *collections.Profile) (bool, error)
	CreateHostProfile(ctx context.Context, profile *collections.Profile) error
	AddFavorite(ctx context.Context, uid, listingID string) error
	RemoveFavorite(ctx context.Context, uid, listingID string) error
}

// The user-facing text of every resolution failure.
const failedToVerify = "failed to verify"

// Resolver classifies users and caches the result per uid.
type Resolver struct {
	store ProfileStore
	cache geche.Geche[string, Resolution]
	now   func() time.Time
}

// NewResolver returns a Resolver whose cached roles expire after ttl. The cache's cleanup
// goroutine stops when ctx is done.
func NewResolver(ctx context.Context, store ProfileStore, ttl time.Duration) *Resolver {
	return &Resolver{
		store: store,
		cache: geche.NewMapTTLCache[string, Resolution](ctx, ttl, time.Minute),
		now:   time.Now,
	}
}

// Resolve returns the role of the signed-in user. The host profile is checked first; if it
// exists with role "host" the guest side is never looked at. Without a guest profile one is
// created from the identity and the user is reported as unclassified. Every failure is
// returned as a TransientFetch error saying "failed to verify".
func (r *Resolver) Resolve(ctx context.Context, id *Identity) (Resolution, error) {
	if id == nil || id.UserID == "" {
		return Resolution{}, apperr.E(apperr.AuthNotReady, "session.Resolve", "not signed in")
	}
	if res, err := r.cache.Get(id.UserID); err == nil {
		return res, nil
	}

	res, err := r.resolve(ctx, id)
	if err != nil {
		log.Printf("role resolution for %s failed: %v", id.UserID, err)
		return Resolution{}, apperr.Wrap(apperr.TransientFetch, "session.Resolve", failedToVerify, err)
	}
	r.cache.Set(id.UserID, res)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, id *Identity) (Resolution, error) {
	host, err := r.store.HostProfile(ctx, id.UserID)
	switch {
	case err == nil && host.Role == fieldcodes.HostRole:
		return Resolution{Role: RoleHost, Profile: host}, nil
	case err != nil && !apperr.IsNotFound(err):
		return Resolution{}, err
	}

	guest, err := r.store.GuestProfile(ctx, id.UserID)
	if err == nil {
		return Resolution{Role: RoleGuest, Profile: guest}, nil
	}
	if !apperr.IsNotFound(err) {
		return Resolution{}, err
	}

	first, last := SplitName(id.DisplayName)
	profile := &collections.Profile{
		UID:       id.UserID,
		Role:      fieldcodes.GuestRole,
		FirstName: first,
		LastName:  last,
		Email:     id.Email,
		PhotoURL:  id.PhotoURL,
		CreatedAt: r.now().UTC(),
	}
	created, err := r.store.CreateGuestProfile(ctx, profile)
	if err != nil {
		return Resolution{}, err
	}
	if !created {
		// Another request created it between our read and write.
		existing, err := r.store.GuestProfile(ctx, id.UserID)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Role: RoleGuest, Profile: existing}, nil
	}
	log.Printf("created guest profile for %s", id.UserID)
	return Resolution{Role: RoleUnclassified, Profile: profile}, nil
}

// Invalidate forgets the cached role of uid.
func (r *Resolver) Invalidate(uid string) {
	_ = r.cache.Del(uid)
}

// HostRegistration is what onboarding collects beyond the identity.
type HostRegistration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// RegisterHost creates the host profile of the signed-in user.
func (r *Resolver) RegisterHost(ctx context.Context, id *Identity, reg HostRegistration) (*collections.Profile, error) {
	const op = "session.RegisterHost"
	if id == nil {
		return nil, apperr.E(apperr.AuthNotReady, op, "not signed in")
	}
	if !id.EmailVerified {
		return nil, apperr.E(apperr.PermissionDenied, op, "verify your email before registering as a host")
	}
	if reg.FirstName == "" || reg.Phone == "" {
		return nil, apperr.E(apperr.InvalidInput, op, "first name and phone are required")
	}

	profile := &collections.Profile{
		UID:       id.UserID,
		Role:      fieldcodes.HostRole,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     id.Email,
		PhotoURL:  id.PhotoURL,
		Phone:     reg.Phone,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.CreateHostProfile(ctx, profile); err != nil {
		return nil, apperr.FromStore(op, err)
	}
	r.Invalidate(id.UserID)
	return profile, nil
}
