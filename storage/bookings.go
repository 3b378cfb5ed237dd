package storage

import (
	"context"
	"errors"

	"bookingserver/apperr"
	c "bookingserver/collections"
	"bookingserver/fieldcodes"

	"cloud.google.com/go/firestore"
)

func setBookingID(b *c.Booking, id string) { b.ID = id }

// Booking reads bookings/{id}.
func (s *Store) Booking(ctx context.Context, id string) (*c.Booking, error) {
	b, err := get[c.Booking](ctx, s.client.Collection(c.BookingsID).Doc(id), "storage.Booking")
	if err != nil {
		return nil, err
	}
	b.ID = id
	return b, nil
}

// BookingsForGuest lists a guest's bookings, newest first.
func (s *Store) BookingsForGuest(ctx context.Context, uid string) ([]c.Booking, error) {
	return s.bookingsWhere(ctx, fieldcodes.GuestIDKey, uid)
}

// BookingsForHost lists the bookings of a host's listings, newest first.
func (s *Store) BookingsForHost(ctx context.Context, uid string) ([]c.Booking, error) {
	return s.bookingsWhere(ctx, fieldcodes.HostIDKey, uid)
}

func (s *Store) bookingsWhere(ctx context.Context, field, uid string) ([]c.Booking, error) {
	q := s.client.Collection(c.BookingsID).
		Where(field, "==", uid).
		OrderBy(fieldcodes.CreatedAtKey, firestore.Desc)
	return getAll(ctx, q, "storage.bookingsWhere", setBookingID)
}

// RecentBookings lists the newest bookings across all users.
func (s *Store) RecentBookings(ctx context.Context, limit int) ([]c.Booking, error) {
	q := s.client.Collection(c.BookingsID).
		OrderBy(fieldcodes.CreatedAtKey, firestore.Desc).
		Limit(limit)
	return getAll(ctx, q, "storage.RecentBookings", setBookingID)
}

// CreateBooking stores a new booking under a generated id.
func (s *Store) CreateBooking(ctx context.Context, b *c.Booking) (string, error) {
	ref := s.client.Collection(c.BookingsID).NewDoc()
	if _, err := ref.Create(ctx, b); err != nil {
		return "", apperr.FromStore("storage.CreateBooking", err)
	}
	return ref.ID, nil
}

// UpdateBooking reads the booking, applies fn and writes the booking together with the
// transaction record fn returns, all in one Firestore transaction. When fn returns
// apperr.ErrNoChange nothing is written and the unchanged booking is returned.
func (s *Store) UpdateBooking(ctx context.Context, id string, fn c.BookingMutation) (*c.Booking, error) {
	const op = "storage.UpdateBooking"
	ref := s.client.Collection(c.BookingsID).Doc(id)

	var result *c.Booking
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return apperr.FromStore(op, err)
		}
		b, err := decode[c.Booking](snap, op)
		if err != nil {
			return err
		}
		b.ID = id
		result = b

		record, err := fn(b)
		if err != nil {
			return err
		}
		if err := tx.Set(ref, b); err != nil {
			return err
		}
		if record != nil {
			return s.createTransaction(tx, record)
		}
		return nil
	})
	if errors.Is(err, apperr.ErrNoChange) {
		return result, nil
	}
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	return result, nil
}

// PayFromWallet applies fn to a booking and its guest's wallet and writes both, plus the
// returned transaction record, in one Firestore transaction. A missing wallet starts at zero.
func (s *Store) PayFromWallet(ctx context.Context, bookingID, uid string, fn c.WalletPaymentMutation) (*c.Booking, *c.Wallet, error) {
	const op = "storage.PayFromWallet"
	bookingRef := s.client.Collection(c.BookingsID).Doc(bookingID)
	walletRef := s.client.Collection(c.WalletsID).Doc(uid)

	var booking *c.Booking
	var wallet *c.Wallet
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(bookingRef)
		if err != nil {
			return apperr.FromStore(op, err)
		}
		if booking, err = decode[c.Booking](snap, op); err != nil {
			return err
		}
		booking.ID = bookingID
		if wallet, err = s.walletInTx(tx, walletRef, uid); err != nil {
			return err
		}

		record, err := fn(booking, wallet)
		if err != nil {
			return err
		}
		if err := tx.Set(bookingRef, booking); err != nil {
			return err
		}
		if err := tx.Set(walletRef, wallet); err != nil {
			return err
		}
		if record != nil {
			return s.createTransaction(tx, record)
		}
		return nil
	})
	if errors.Is(err, apperr.ErrNoChange) {
		return booking, wallet, nil
	}
	if err != nil {
		return nil, nil, apperr.FromStore(op, err)
	}
	return booking, wallet, nil
}
