package hub

import (
	"context"
	"strings"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	"bookingserver/clock"
	"bookingserver/collections"
	"bookingserver/session"
)

// DirectoryStore is the part of storage.Store a Directory needs.
type DirectoryStore interface {
	ConversationsFor(ctx context.Context, uid string) ([]collections.Conversation, error)
	FindConversation(ctx context.Context, guestID, hostID, listingID string) (*collections.Conversation, error)
	CreateConversation(ctx context.Context, conv *collections.Conversation) error
	Listing(ctx context.Context, id string) (*collections.Listing, error)
}

// Directory lists and starts conversations.
type Directory struct {
	store DirectoryStore
	clk   clock.Clock
}

// NewDirectory returns a Directory.
func NewDirectory(store DirectoryStore, clk clock.Clock) *Directory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Directory{store: store, clk: clk}
}

// List returns the conversations uid takes part in, most recent first.
func (d *Directory) List(ctx context.Context, uid string) ([]collections.Conversation, error) {
	convs, err := d.store.ConversationsFor(ctx, uid)
	if err != nil {
		return nil, apperr.FromStore("hub.List", err)
	}
	return convs, nil
}

// conversationID is the document id of the conversation of a (guest, host, listing) tuple, so
// two concurrent starts land on the same document.
func conversationID(guestID, hostID, listingID string) string {
	return strings.Join([]string{guestID, hostID, listingID}, "_")
}

// Start returns the conversation between id, as a guest, and the host of listingID, creating
// it on first contact.
func (d *Directory) Start(ctx context.Context, id *session.Identity, listingID string) (*collections.Conversation, error) {
	const op = "hub.Start"
	if id == nil {
		return nil, apperr.E(apperr.AuthNotReady, op, "not signed in")
	}
	if listingID == "" {
		return nil, apperr.E(apperr.InvalidInput, op, "listing is required")
	}
	listing, err := d.store.Listing(ctx, listingID)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	if listing.HostID == id.UserID {
		return nil, apperr.E(apperr.InvalidInput, op, "you cannot message yourself about your own listing")
	}

	existing, err := d.store.FindConversation(ctx, id.UserID, listing.HostID, listingID)
	if err == nil {
		return existing, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, apperr.FromStore(op, err)
	}

	now := d.clk.Now().UTC()
	conv := &collections.Conversation{
		ID:            conversationID(id.UserID, listing.HostID, listingID),
		GuestID:       id.UserID,
		HostID:        listing.HostID,
		ListingID:     listingID,
		ListingTitle:  listing.Title,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	switch err := d.store.CreateConversation(ctx, conv); {
	case err == nil:
		log.Printf("started conversation %s", conv.ID)
		return conv, nil
	case apperr.KindOf(err) == apperr.Conflict:
		return d.store.FindConversation(ctx, id.UserID, listing.HostID, listingID)
	default:
		return nil, apperr.FromStore(op, err)
	}
}
