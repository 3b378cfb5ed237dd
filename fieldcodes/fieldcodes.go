// Package fieldcodes holds the Firestore field paths used in queries and partial updates.
package fieldcodes

const (
	// RoleKey is the role field of host and guest profiles.
	RoleKey = "role"

	// HostRole is the value of RoleKey that marks a real host profile.
	HostRole = "host"

	// GuestRole is the value of RoleKey written into lazily created guest profiles.
	GuestRole = "guest"

	// FavoritesKey is the array of listing ids saved on a guest profile.
	FavoritesKey = "favorites"

	// GuestIDKey is the guest uid on conversations and bookings.
	GuestIDKey = "guestId"

	// HostIDKey is the host uid on conversations, bookings and listings.
	HostIDKey = "hostId"

	// ListingIDKey is the listing id on conversations and bookings.
	ListingIDKey = "listingId"

	// UserIDKey is the owner of a transaction.
	UserIDKey = "userId"

	// CreatedAtKey orders messages, bookings and transactions.
	CreatedAtKey = "createdAt"

	// LastMessageKey is the preview text of a conversation.
	LastMessageKey = "lastMessage"

	// LastMessageAtKey orders a user's conversation list.
	LastMessageAtKey = "lastMessageAt"

	// UnreadByGuestKey is set when the host writes and cleared when the guest opens the thread.
	UnreadByGuestKey = "unreadByGuest"

	// UnreadByHostKey is set when the guest writes and cleared when the host opens the thread.
	UnreadByHostKey = "unreadByHost"

	// IsTypingKey is the flag in a typing status document.
	IsTypingKey = "isTyping"

	// UpdatedAtKey is the last write time of typing, booking and wallet documents.
	UpdatedAtKey = "updatedAt"
)
