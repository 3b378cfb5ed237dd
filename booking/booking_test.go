package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookingserver/apperr"
	"bookingserver/clock"
	"bookingserver/collections"
	"bookingserver/remotejob"
	testutils "bookingserver/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

func setup() (*Service, *testutils.MemStore, *testutils.Events) {
	store := testutils.NewMemStore()
	store.Listings["L1"] = &collections.Listing{ID: "L1", HostID: "H1", Title: "Loft", PricePerNight: 2000.5, Currency: "PHP"}
	events := &testutils.Events{}
	return NewService(store, events, clock.Fake(now)), store, events
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("prices nights from the listing", func(t *testing.T) {
		svc, store, events := setup()
		b, err := svc.Create(ctx, "G1", Draft{ListingID: "L1", CheckIn: "2026-11-01", CheckOut: "2026-11-04", Guests: 2})
		require.NoError(t, err)

		assert.Equal(t, 3, b.Nights())
		assert.Equal(t, 6001.5, b.Total)
		assert.Equal(t, collections.BookingPending, b.Status)
		assert.Equal(t, collections.PaymentPending, b.PaymentStatus)
		assert.Equal(t, "H1", b.HostID)
		assert.Equal(t, "Loft", b.ListingTitle)
		assert.Contains(t, store.Bookings, b.ID)
		assert.Equal(t, []string{remotejob.BookingCreated}, events.Types())
	})

	cases := []struct {
		name  string
		uid   string
		draft Draft
		kind  apperr.Kind
	}{
		{name: "own listing", uid: "H1", draft: Draft{ListingID: "L1", CheckIn: "2026-11-01", CheckOut: "2026-11-02", Guests: 1}, kind: apperr.InvalidInput},
		{name: "no nights", uid: "G1", draft: Draft{ListingID: "L1", CheckIn: "2026-11-01", CheckOut: "2026-11-01", Guests: 1}, kind: apperr.InvalidInput},
		{name: "reversed dates", uid: "G1", draft: Draft{ListingID: "L1", CheckIn: "2026-11-05", CheckOut: "2026-11-01", Guests: 1}, kind: apperr.InvalidInput},
		{name: "past check-in", uid: "G1", draft: Draft{ListingID: "L1", CheckIn: "2026-10-14", CheckOut: "2026-10-16", Guests: 1}, kind: apperr.InvalidInput},
		{name: "bad date", uid: "G1", draft: Draft{ListingID: "L1", CheckIn: "11/01/2026", CheckOut: "2026-11-02", Guests: 1}, kind: apperr.InvalidInput},
		{name: "no guests", uid: "G1", draft: Draft{ListingID: "L1", CheckIn: "2026-11-01", CheckOut: "2026-11-02"}, kind: apperr.InvalidInput},
		{name: "unknown listing", uid: "G1", draft: Draft{ListingID: "L9", CheckIn: "2026-11-01", CheckOut: "2026-11-02", Guests: 1}, kind: apperr.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, events := setup()
			_, err := svc.Create(ctx, tc.uid, tc.draft)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Empty(t, store.Bookings)
			assert.Empty(t, events.Sent())
		})
	}

	t.Run("today follows the marketplace zone", func(t *testing.T) {
		store := testutils.NewMemStore()
		store.Listings["L1"] = &collections.Listing{ID: "L1", HostID: "H1", Title: "Loft", PricePerNight: 1500}
		// 2026-10-15 18:30 UTC is already 2026-10-16 in Manila.
		svc := NewService(store, nil, clock.Fake(time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)))
		svc.SetLocation(time.FixedZone("PHT", 8*60*60))

		_, err := svc.Create(ctx, "G1", Draft{ListingID: "L1", CheckIn: "2026-10-15", CheckOut: "2026-10-17", Guests: 1})
		assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

		b, err := svc.Create(ctx, "G1", Draft{ListingID: "L1", CheckIn: "2026-10-16", CheckOut: "2026-10-17", Guests: 1})
		require.NoError(t, err)
		assert.Equal(t, 1500.0, b.Total)
	})

	t.Run("check-in today is allowed", func(t *testing.T) {
		svc, _, _ := setup()
		_, err := svc.Create(ctx, "G1", Draft{ListingID: "L1", CheckIn: "2026-10-15", CheckOut: "2026-10-16", Guests: 1})
		assert.NoError(t, err)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setup()
	store.Bookings["B1"] = &collections.Booking{GuestID: "G1", HostID: "H1", Status: collections.BookingPending}

	for _, uid := range []string{"G1", "H1"} {
		b, err := svc.Get(ctx, uid, "B1")
		require.NoError(t, err)
		assert.Equal(t, "B1", b.ID)
	}

	_, err := svc.Get(ctx, "G2", "B1")
	assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))

	_, err = svc.Get(ctx, "G1", "B9")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestLists(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setup()
	store.Bookings["B1"] = &collections.Booking{GuestID: "G1", HostID: "H1", CreatedAt: now.Add(-2 * time.Hour)}
	store.Bookings["B2"] = &collections.Booking{GuestID: "G1", HostID: "H2", CreatedAt: now.Add(-time.Hour)}
	store.Bookings["B3"] = &collections.Booking{GuestID: "G2", HostID: "H1", CreatedAt: now}

	guest, err := svc.ListForGuest(ctx, "G1")
	require.NoError(t, err)
	require.Len(t, guest, 2)
	assert.Equal(t, "B2", guest[0].ID)

	host, err := svc.ListForHost(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, host, 2)
	assert.Equal(t, "B3", host[0].ID)

	recent, err := svc.Recent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("guest cancels", func(t *testing.T) {
		svc, store, events := setup()
		store.Bookings["B1"] = &collections.Booking{GuestID: "G1", HostID: "H1", Status: collections.BookingConfirmed}

		b, err := svc.Cancel(ctx, "G1", "B1", true)
		require.NoError(t, err)

		assert.Equal(t, collections.BookingCancelled, b.Status)
		require.NotNil(t, b.CancelledAt)
		assert.Equal(t, now, *b.CancelledAt)
		assert.Equal(t, collections.BookingCancelled, store.Bookings["B1"].Status)
		assert.Equal(t, []string{remotejob.BookingCancelled}, events.Types())
	})

	t.Run("unconfirmed", func(t *testing.T) {
		svc, store, _ := setup()
		store.Bookings["B1"] = &collections.Booking{GuestID: "G1", HostID: "H1", Status: collections.BookingPending}
		_, err := svc.Cancel(ctx, "G1", "B1", false)
		assert.True(t, errors.Is(err, apperr.ErrNotConfirmed))
		assert.Equal(t, 0, store.BookingWrites)
	})

	t.Run("stranger", func(t *testing.T) {
		svc, store, _ := setup()
		store.Bookings["B1"] = &collections.Booking{GuestID: "G1", HostID: "H1", Status: collections.BookingPending}
		_, err := svc.Cancel(ctx, "G2", "B1", true)
		assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))
		assert.Equal(t, collections.BookingPending, store.Bookings["B1"].Status)
	})

	t.Run("cancelled is final", func(t *testing.T) {
		svc, store, events := setup()
		store.Bookings["B1"] = &collections.Booking{GuestID: "G1", HostID: "H1", Status: collections.BookingCancelled}
		_, err := svc.Cancel(ctx, "H1", "B1", true)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
		assert.Equal(t, 0, store.BookingWrites)
		assert.Empty(t, events.Sent())
	})
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 1700.0, RoundMoney(1200+500))
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 10.13, RoundMoney(10.126))
}
