// Package collections contains the Firestore collection ids and the document structures stored in
// them, together with the shapes returned to clients. Document ids are not stored as fields; the
// ID members are filled in from the snapshot reference when a document is read.
package collections

import "time"

// Top level collections and subcollections.
const (
	HostProfilesID  = "hostProfiles"
	GuestProfilesID = "guestProfiles"
	ListingsID      = "listings"
	ConversationsID = "conversations"
	MessagesID      = "messages"
	TypingID        = "typing"
	BookingsID      = "bookings"
	WalletsID       = "wallets"
	TransactionsID  = "transactions"
)

// DefaultCurrency is the currency of wallets and prices when a document does not name one.
const DefaultCurrency = "PHP"

// Profile is stored in both hostProfiles and guestProfiles, keyed by uid. Only host profiles
// use Phone and only guest profiles use Favorites.
type Profile struct {
	UID       string    `json:"uid" firestore:"uid"`
	Role      string    `json:"role" firestore:"role"`
	FirstName string    `json:"firstName" firestore:"firstName"`
	LastName  string    `json:"lastName" firestore:"lastName"`
	Email     string    `json:"email" firestore:"email"`
	PhotoURL  string    `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	Phone     string    `json:"phone,omitempty" firestore:"phone,omitempty"`
	Favorites []string  `json:"favorites,omitempty" firestore:"favorites,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// DisplayName joins the first and last name.
func (p *Profile) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Listing is only read here, to price bookings and to find the host of a conversation.
type Listing struct {
	ID            string  `json:"id" firestore:"-"`
	HostID        string  `json:"hostId" firestore:"hostId"`
	Title         string  `json:"title" firestore:"title"`
	PricePerNight float64 `json:"pricePerNight" firestore:"pricePerNight"`
	Currency      string  `json:"currency,omitempty" firestore:"currency,omitempty"`
}

// Conversation links one guest, one host and one listing.
type Conversation struct {
	ID            string    `json:"id" firestore:"-"`
	GuestID       string    `json:"guestId" firestore:"guestId"`
	HostID        string    `json:"hostId" firestore:"hostId"`
	ListingID     string    `json:"listingId" firestore:"listingId"`
	ListingTitle  string    `json:"listingTitle" firestore:"listingTitle"`
	LastMessage   string    `json:"lastMessage" firestore:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt" firestore:"lastMessageAt"`
	UnreadByGuest bool      `json:"unreadByGuest" firestore:"unreadByGuest"`
	UnreadByHost  bool      `json:"unreadByHost" firestore:"unreadByHost"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt"`
}

// HasParticipant reports whether uid is the guest or the host of the conversation.
func (c *Conversation) HasParticipant(uid string) bool {
	return uid != "" && (uid == c.GuestID || uid == c.HostID)
}

// Counterpart returns the other participant's uid.
func (c *Conversation) Counterpart(uid string) string {
	if uid == c.GuestID {
		return c.HostID
	}
	return c.GuestID
}

// SenderType values for Message.
const (
	SenderGuest = "guest"
	SenderHost  = "host"
)

// Message lives in conversations/{id}/messages and is never edited.
type Message struct {
	ID             string    `json:"id" firestore:"-"`
	ConversationID string    `json:"conversationId" firestore:"conversationId"`
	SenderID       string    `json:"senderId" firestore:"senderId"`
	SenderType     string    `json:"senderType" firestore:"senderType"`
	Text           string    `json:"text" firestore:"text"`
	CreatedAt      time.Time `json:"createdAt" firestore:"createdAt"`
}

// TypingStatus lives in conversations/{id}/typing/{uid}.
type TypingStatus struct {
	IsTyping  bool      `json:"isTyping" firestore:"isTyping"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// BookingStatus is the reservation state of a booking.
type BookingStatus string

// Booking statuses, in the order a booking moves through them. Cancelled can be reached
// from any of the others and is final.
const (
	BookingPending   BookingStatus = "pending"
	BookingReserved  BookingStatus = "reserved"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingRank = map[BookingStatus]int{
	BookingPending:   0,
	BookingReserved:  1,
	BookingConfirmed: 2,
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	if from == BookingCancelled {
		return false
	}
	if to == BookingCancelled {
		return true
	}
	fromRank, ok := bookingRank[from]
	if !ok {
		return false
	}
	toRank, ok := bookingRank[to]
	return ok && toRank > fromRank
}

// PaymentStatus is the settlement state of a booking.
type PaymentStatus string

// Payment statuses.
const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Booking is a guest's reservation of a listing.
type Booking struct {
	ID            string        `json:"id" firestore:"-"`
	GuestID       string        `json:"guestId" firestore:"guestId"`
	HostID        string        `json:"hostId" firestore:"hostId"`
	ListingID     string        `json:"listingId" firestore:"listingId"`
	ListingTitle  string        `json:"listingTitle" firestore:"listingTitle"`
	CheckIn       time.Time     `json:"checkIn" firestore:"checkIn"`
	CheckOut      time.Time     `json:"checkOut" firestore:"checkOut"`
	Guests        int           `json:"guests" firestore:"guests"`
	Status        BookingStatus `json:"status" firestore:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus" firestore:"paymentStatus"`
	PaymentMethod string        `json:"paymentMethod,omitempty" firestore:"paymentMethod,omitempty"`
	PaymentID     string        `json:"paymentId,omitempty" firestore:"paymentId,omitempty"`
	PayerID       string        `json:"payerId,omitempty" firestore:"payerId,omitempty"`
	Total         float64       `json:"total" firestore:"total"`
	Currency      string        `json:"currency" firestore:"currency"`
	CreatedAt     time.Time     `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" firestore:"updatedAt"`
	CancelledAt   *time.Time    `json:"cancelledAt,omitempty" firestore:"cancelledAt,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty" firestore:"paidAt,omitempty"`
}

// Nights is the number of nights between check-in and check-out.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// Wallet is keyed by uid.
type Wallet struct {
	UID       string    `json:"uid" firestore:"uid"`
	Balance   float64   `json:"balance" firestore:"balance"`
	Currency  string    `json:"currency" firestore:"currency"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Transaction types and methods.
const (
	TransactionTopUp   = "topup"
	TransactionPayment = "payment"

	MethodWallet = "wallet"
	MethodPayPal = "paypal"
)

// Transaction records a single movement of money.
type Transaction struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"userId" firestore:"userId"`
	Type      string    `json:"type" firestore:"type"`
	Amount    float64   `json:"amount" firestore:"amount"`
	Currency  string    `json:"currency" firestore:"currency"`
	BookingID string    `json:"bookingId,omitempty" firestore:"bookingId,omitempty"`
	Method    string    `json:"method,omitempty" firestore:"method,omitempty"`
	PaymentID string    `json:"paymentId,omitempty" firestore:"paymentId,omitempty"`
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// BookingMutation changes a booking inside a store transaction and may return a transaction
// record to write with it. Returning apperr.ErrNoChange commits nothing.
type BookingMutation func(b *Booking) (*Transaction, error)

// WalletMutation changes a wallet inside a store transaction, like BookingMutation.
type WalletMutation func(w *Wallet) (*Transaction, error)

// WalletPaymentMutation changes a booking and its guest's wallet together.
type WalletPaymentMutation func(b *Booking, w *Wallet) (*Transaction, error)
