// Package testing holds helpers shared by the package tests: a Firestore emulator client and
// MemStore, an in-memory stand-in for storage.Store.
package testing

import (
	"context"
	"os"
	stdtesting "testing"

	"cloud.google.com/go/firestore"
)

// NewFirestoreTestClient creates a new client for testing against the Firestore emulator. The
// test is skipped when FIRESTORE_EMULATOR_HOST is not set.
func NewFirestoreTestClient(ctx context.Context, t stdtesting.TB) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(ctx, "test")
	if err != nil {
		t.Fatalf("firestore.NewClient err: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
