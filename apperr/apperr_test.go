package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFromStore(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not found", err: status.Error(codes.NotFound, "missing"), want: NotFound},
		{name: "permission", err: status.Error(codes.PermissionDenied, "nope"), want: PermissionDenied},
		{name: "already exists", err: status.Error(codes.AlreadyExists, "dup"), want: Conflict},
		{name: "aborted transaction", err: status.Error(codes.Aborted, "contention"), want: Conflict},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), want: TransientFetch},
		{name: "plain error", err: errors.New("boom"), want: TransientFetch},
		{name: "already classified", err: E(InvalidInput, "op", "bad"), want: InvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(FromStore("load", tc.err)))
		})
	}
	assert.Nil(t, FromStore("load", nil))
}

func TestKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", E(PermissionDenied, "booking.get", "not your booking"))

	assert.Equal(t, PermissionDenied, KindOf(err))
	assert.Equal(t, "not your booking", Message(err))
	assert.True(t, errors.Is(err, E(PermissionDenied, "", "")))
	assert.False(t, errors.Is(err, E(NotFound, "", "")))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, "something went wrong", Message(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, TransientFetch.Retryable())
	assert.False(t, NotFound.Retryable())
	assert.False(t, PermissionDenied.Retryable())
	assert.Equal(t, "transient-fetch-failure", TransientFetch.String())
}
