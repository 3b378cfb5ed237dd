package session

import (
	"context"

	"bookingserver/apperr"
)

// Favorites returns the listing ids saved by a guest.
func (r *Resolver) Favorites(ctx context.Context, uid string) ([]string, error) {
	profile, err := r.store.GuestProfile(ctx, uid)
	if apperr.IsNotFound(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperr.FromStore("session.Favorites", err)
	}
	if profile.Favorites == nil {
		return []string{}, nil
	}
	return profile.Favorites, nil
}

// AddFavorite saves a listing for a guest. Saving it twice keeps a single entry.
func (r *Resolver) AddFavorite(ctx context.Context, uid, listingID string) error {
	if listingID == "" {
		return apperr.E(apperr.InvalidInput, "session.AddFavorite", "listing id is required")
	}
	return apperr.FromStore("session.AddFavorite", r.store.AddFavorite(ctx, uid, listingID))
}

// RemoveFavorite drops a saved listing.
func (r *Resolver) RemoveFavorite(ctx context.Context, uid, listingID string) error {
	return apperr.FromStore("session.RemoveFavorite", r.store.RemoveFavorite(ctx, uid, listingID))
}
