package storage

import (
	"context"

	"bookingserver/apperr"
	c "bookingserver/collections"
	"bookingserver/fieldcodes"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HostProfile reads hostProfiles/{uid}.
func (s *Store) HostProfile(ctx context.Context, uid string) (*c.Profile, error) {
	return get[c.Profile](ctx, s.client.Collection(c.HostProfilesID).Doc(uid), "storage.HostProfile")
}

// GuestProfile reads guestProfiles/{uid}.
func (s *Store) GuestProfile(ctx context.Context, uid string) (*c.Profile, error) {
	return get[c.Profile](ctx, s.client.Collection(c.GuestProfilesID).Doc(uid), "storage.GuestProfile")
}

// Profile resolves a participant host-first, falling back to the guest profile.
func (s *Store) Profile(ctx context.Context, uid string) (*c.Profile, error) {
	profile, err := s.HostProfile(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	return s.GuestProfile(ctx, uid)
}

// CreateGuestProfile creates guestProfiles/{uid} unless it already exists.
func (s *Store) CreateGuestProfile(ctx context.Context, profile *c.Profile) (bool, error) {
	_, err := s.client.Collection(c.GuestProfilesID).Doc(profile.UID).Create(ctx, profile)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, apperr.FromStore("storage.CreateGuestProfile", err)
	}
	return true, nil
}

// CreateHostProfile creates hostProfiles/{uid}; an existing one is a Conflict.
func (s *Store) CreateHostProfile(ctx context.Context, profile *c.Profile) error {
	_, err := s.client.Collection(c.HostProfilesID).Doc(profile.UID).Create(ctx, profile)
	return apperr.FromStore("storage.CreateHostProfile", err)
}

// AddFavorite appends a listing id to the guest's favorites if it is not there yet.
func (s *Store) AddFavorite(ctx context.Context, uid, listingID string) error {
	return s.updateFavorites(ctx, uid, firestore.ArrayUnion(listingID))
}

// RemoveFavorite removes a listing id from the guest's favorites.
func (s *Store) RemoveFavorite(ctx context.Context, uid, listingID string) error {
	return s.updateFavorites(ctx, uid, firestore.ArrayRemove(listingID))
}

func (s *Store) updateFavorites(ctx context.Context, uid string, value interface{}) error {
	_, err := s.client.Collection(c.GuestProfilesID).Doc(uid).Update(ctx, []firestore.Update{
		{Path: fieldcodes.FavoritesKey, Value: value},
	})
	return apperr.FromStore("storage.updateFavorites", err)
}

// Listing reads listings/{id}.
func (s *Store) Listing(ctx context.Context, id string) (*c.Listing, error) {
	listing, err := get[c.Listing](ctx, s.client.Collection(c.ListingsID).Doc(id), "storage.Listing")
	if err != nil {
		return nil, err
	}
	listing.ID = id
	return listing, nil
}
