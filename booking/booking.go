// Package booking reads, creates and cancels bookings on behalf of their guest or host.
package booking

import (
	"context"
	"math"
	"strings"
	"time"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	"bookingserver/clock"
	"bookingserver/collections"
	"bookingserver/remotejob"
)

// DateLayout is the format of check-in and check-out dates in requests.
const DateLayout = "2006-01-02"

// RecentLimit is how many bookings the admin overview shows.
const RecentLimit = 50

// Store is the part of storage.Store the service needs.
type Store interface {
	Booking(ctx context.Context, id string) (*collections.Booking, error)
	BookingsForGuest(ctx context.Context, uid string) ([]collections.Booking, error)
	BookingsForHost(ctx context.Context, uid string) ([]collections.Booking, error)
	RecentBookings(ctx context.Context, limit int) ([]collections.Booking, error)
	CreateBooking(ctx context.Context, b *collections.Booking) (string, error)
	UpdateBooking(ctx context.Context, id string, fn collections.BookingMutation) (*collections.Booking, error)
	Listing(ctx context.Context, id string) (*collections.Listing, error)
}

// Service implements the booking operations.
type Service struct {
	store  Store
	events remotejob.Sink
	clk    clock.Clock
	loc    *time.Location
}

// NewService returns a Service. events may be nil.
func NewService(store Store, events remotejob.Sink, clk clock.Clock) *Service {
	if events == nil {
		events = remotejob.Discard{}
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{store: store, events: events, clk: clk, loc: time.UTC}
}

// SetLocation sets the zone whose calendar day counts as today when checking check-in dates.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// today is the current calendar date in the service's zone, as midnight UTC so it compares
// directly with parsed request dates.
func (s *Service) today() time.Time {
	y, m, d := s.clk.Now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Owns reports whether uid is the guest or the host of b.
func Owns(b *collections.Booking, uid string) bool {
	return uid != "" && (b.GuestID == uid || b.HostID == uid)
}

// RoundMoney rounds an amount to centavos.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Get returns the booking if uid is its guest or host.
func (s *Service) Get(ctx context.Context, uid, id string) (*collections.Booking, error) {
	const op = "booking.Get"
	b, err := s.store.Booking(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	if !Owns(b, uid) {
		return nil, apperr.E(apperr.PermissionDenied, op, "this booking is not yours")
	}
	return b, nil
}

// ListForGuest returns the bookings uid made, newest first.
func (s *Service) ListForGuest(ctx context.Context, uid string) ([]collections.Booking, error) {
	bookings, err := s.store.BookingsForGuest(ctx, uid)
	return bookings, apperr.FromStore("booking.ListForGuest", err)
}

// ListForHost returns the bookings of uid's listings, newest first.
func (s *Service) ListForHost(ctx context.Context, uid string) ([]collections.Booking, error) {
	bookings, err := s.store.BookingsForHost(ctx, uid)
	return bookings, apperr.FromStore("booking.ListForHost", err)
}

// Recent returns the newest bookings across the marketplace.
func (s *Service) Recent(ctx context.Context) ([]collections.Booking, error) {
	bookings, err := s.store.RecentBookings(ctx, RecentLimit)
	return bookings, apperr.FromStore("booking.Recent", err)
}

// Draft is a booking request as submitted by a guest.
type Draft struct {
	ListingID string `json:"listingId"`
	CheckIn   string `json:"checkIn"`
	CheckOut  string `json:"checkOut"`
	Guests    int    `json:"guests"`
}

func (d Draft) dates(today time.Time) (checkIn, checkOut time.Time, err error) {
	const op = "booking.Create"
	if strings.TrimSpace(d.ListingID) == "" {
		return checkIn, checkOut, apperr.E(apperr.InvalidInput, op, "listing is required")
	}
	if d.Guests < 1 {
		return checkIn, checkOut, apperr.E(apperr.InvalidInput, op, "at least one guest is required")
	}
	checkIn, err = time.Parse(DateLayout, d.CheckIn)
	if err != nil {
		return checkIn, checkOut, apperr.Wrap(apperr.InvalidInput, op, "check-in date is not valid", err)
	}
	checkOut, err = time.Parse(DateLayout, d.CheckOut)
	if err != nil {
		return checkIn, checkOut, apperr.Wrap(apperr.InvalidInput, op, "check-out date is not valid", err)
	}
	if checkIn.Before(today) {
		return checkIn, checkOut, apperr.E(apperr.InvalidInput, op, "check-in cannot be in the past")
	}
	if !checkOut.After(checkIn) {
		return checkIn, checkOut, apperr.E(apperr.InvalidInput, op, "check-out must be after check-in")
	}
	return checkIn, checkOut, nil
}

// Create books a listing for uid. The total is priced here from the listing, never taken from
// the client.
func (s *Service) Create(ctx context.Context, uid string, d Draft) (*collections.Booking, error) {
	const op = "booking.Create"
	now := s.clk.Now().UTC()
	checkIn, checkOut, err := d.dates(s.today())
	if err != nil {
		return nil, err
	}

	listing, err := s.store.Listing(ctx, d.ListingID)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	if listing.HostID == uid {
		return nil, apperr.E(apperr.InvalidInput, op, "you cannot book your own listing")
	}
	currency := listing.Currency
	if currency == "" {
		currency = collections.DefaultCurrency
	}

	b := &collections.Booking{
		GuestID:       uid,
		HostID:        listing.HostID,
		ListingID:     d.ListingID,
		ListingTitle:  listing.Title,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        d.Guests,
		Status:        collections.BookingPending,
		PaymentStatus: collections.PaymentPending,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Total = RoundMoney(float64(b.Nights()) * listing.PricePerNight)

	id, err := s.store.CreateBooking(ctx, b)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	b.ID = id
	log.Printf("booking %s created for listing %s", id, d.ListingID)
	s.events.Publish(ctx, remotejob.Event{
		Type:      remotejob.BookingCreated,
		UserID:    uid,
		BookingID: id,
		Amount:    b.Total,
		Currency:  b.Currency,
		At:        now,
	})
	return b, nil
}

// Cancel cancels a booking for its guest or host. A cancelled booking stays cancelled.
func (s *Service) Cancel(ctx context.Context, uid, id string, confirmed bool) (*collections.Booking, error) {
	const op = "booking.Cancel"
	if !confirmed {
		return nil, apperr.Unconfirmed(op)
	}
	now := s.clk.Now().UTC()
	b, err := s.store.UpdateBooking(ctx, id, func(b *collections.Booking) (*collections.Transaction, error) {
		if !Owns(b, uid) {
			return nil, apperr.E(apperr.PermissionDenied, op, "this booking is not yours")
		}
		if !collections.CanTransition(b.Status, collections.BookingCancelled) {
			return nil, apperr.E(apperr.Conflict, op, "this booking is already cancelled")
		}
		b.Status = collections.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		return nil, nil
	})
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	s.events.Publish(ctx, remotejob.Event{
		Type:      remotejob.BookingCancelled,
		UserID:    uid,
		BookingID: id,
		At:        now,
	})
	return b, nil
}
