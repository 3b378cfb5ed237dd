package collections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{name: "pending to reserved", from: BookingPending, to: BookingReserved, want: true},
		{name: "pending to confirmed", from: BookingPending, to: BookingConfirmed, want: true},
		{name: "reserved to confirmed", from: BookingReserved, to: BookingConfirmed, want: true},
		{name: "confirmed back to pending", from: BookingConfirmed, to: BookingPending, want: false},
		{name: "confirmed to confirmed", from: BookingConfirmed, to: BookingConfirmed, want: false},
		{name: "confirmed to cancelled", from: BookingConfirmed, to: BookingCancelled, want: true},
		{name: "cancelled is final", from: BookingCancelled, to: BookingConfirmed, want: false},
		{name: "cancelled twice", from: BookingCancelled, to: BookingCancelled, want: false},
		{name: "unknown status", from: BookingStatus("archived"), to: BookingConfirmed, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{GuestID: "G1", HostID: "H1"}

	assert.True(t, c.HasParticipant("G1"))
	assert.True(t, c.HasParticipant("H1"))
	assert.False(t, c.HasParticipant("X"))
	assert.False(t, c.HasParticipant(""))
	assert.Equal(t, "H1", c.Counterpart("G1"))
	assert.Equal(t, "G1", c.Counterpart("H1"))
}

func TestNightsAndDisplayName(t *testing.T) {
	in := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := &Booking{CheckIn: in, CheckOut: in.AddDate(0, 0, 3)}
	assert.Equal(t, 3, b.Nights())

	assert.Equal(t, "Ana Cruz", (&Profile{FirstName: "Ana", LastName: "Cruz"}).DisplayName())
	assert.Equal(t, "Ana", (&Profile{FirstName: "Ana"}).DisplayName())
	assert.Equal(t, "Cruz", (&Profile{LastName: "Cruz"}).DisplayName())
}
