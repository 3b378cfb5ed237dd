package testing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bookingserver/apperr"
	c "bookingserver/collections"

	"github.com/google/uuid"
)

// MemStore implements the same methods as storage.Store on top of maps. Mutating calls are
// appended to Calls so tests can assert on ordering.
type MemStore struct {
	mu sync.Mutex

	HostProfiles  map[string]*c.Profile
	GuestProfiles map[string]*c.Profile
	Listings      map[string]*c.Listing
	Conversations map[string]*c.Conversation
	Messages      map[string][]c.Message
	Typing        map[string]map[string]bool
	Bookings      map[string]*c.Booking
	Wallets       map[string]*c.Wallet
	Records       []c.Transaction

	// BookingWrites and WalletWrites count committed document writes.
	BookingWrites int
	WalletWrites  int

	Calls []string

	// Fail makes the named method return the given error.
	Fail map[string]error

	// BeforeAppend, when set, runs at the start of AppendMessage.
	BeforeAppend func()

	seq      int
	watchers map[string][]chan struct{}
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		HostProfiles:  map[string]*c.Profile{},
		GuestProfiles: map[string]*c.Profile{},
		Listings:      map[string]*c.Listing{},
		Conversations: map[string]*c.Conversation{},
		Messages:      map[string][]c.Message{},
		Typing:        map[string]map[string]bool{},
		Bookings:      map[string]*c.Booking{},
		Wallets:       map[string]*c.Wallet{},
		Fail:          map[string]error{},
		watchers:      map[string][]chan struct{}{},
	}
}

func notFound(op string) error {
	return apperr.E(apperr.NotFound, op, "not found")
}

func (m *MemStore) fail(method string) error {
	return m.Fail[method]
}

func (m *MemStore) record(format string, args ...interface{}) {
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

func (m *MemStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

// CallLog returns a copy of Calls.
func (m *MemStore) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// TransactionLog returns a copy of the stored transaction records.
func (m *MemStore) TransactionLog() []c.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]c.Transaction(nil), m.Records...)
}

// HostProfile implements session.ProfileStore.
func (m *MemStore) HostProfile(ctx context.Context, uid string) (*c.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("HostProfile"); err != nil {
		return nil, err
	}
	p, ok := m.HostProfiles[uid]
	if !ok {
		return nil, notFound("HostProfile")
	}
	cp := *p
	return &cp, nil
}

// GuestProfile implements session.ProfileStore.
func (m *MemStore) GuestProfile(ctx context.Context, uid string) (*c.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GuestProfile"); err != nil {
		return nil, err
	}
	p, ok := m.GuestProfiles[uid]
	if !ok {
		return nil, notFound("GuestProfile")
	}
	cp := *p
	return &cp, nil
}

// Profile resolves host-first like storage.Store.
func (m *MemStore) Profile(ctx context.Context, uid string) (*c.Profile, error) {
	p, err := m.HostProfile(ctx, uid)
	if err == nil || !apperr.IsNotFound(err) {
		return p, err
	}
	return m.GuestProfile(ctx, uid)
}

// CreateGuestProfile implements session.ProfileStore.
func (m *MemStore) CreateGuestProfile(ctx context.Context, p *c.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateGuestProfile"); err != nil {
		return false, err
	}
	m.record("CreateGuestProfile:%s", p.UID)
	if _, ok := m.GuestProfiles[p.UID]; ok {
		return false, nil
	}
	cp := *p
	m.GuestProfiles[p.UID] = &cp
	return true, nil
}

// CreateHostProfile implements session.ProfileStore.
func (m *MemStore) CreateHostProfile(ctx context.Context, p *c.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateHostProfile"); err != nil {
		return err
	}
	m.record("CreateHostProfile:%s", p.UID)
	if _, ok := m.HostProfiles[p.UID]; ok {
		return apperr.E(apperr.Conflict, "CreateHostProfile", "already exists")
	}
	cp := *p
	m.HostProfiles[p.UID] = &cp
	return nil
}

// AddFavorite implements session.ProfileStore.
func (m *MemStore) AddFavorite(ctx context.Context, uid, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.GuestProfiles[uid]
	if !ok {
		return notFound("AddFavorite")
	}
	for _, id := range p.Favorites {
		if id == listingID {
			return nil
		}
	}
	p.Favorites = append(p.Favorites, listingID)
	return nil
}

// RemoveFavorite implements session.ProfileStore.
func (m *MemStore) RemoveFavorite(ctx context.Context, uid, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.GuestProfiles[uid]
	if !ok {
		return notFound("RemoveFavorite")
	}
	kept := p.Favorites[:0]
	for _, id := range p.Favorites {
		if id != listingID {
			kept = append(kept, id)
		}
	}
	p.Favorites = kept
	return nil
}

// Listing returns a stored listing.
func (m *MemStore) Listing(ctx context.Context, id string) (*c.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Listings[id]
	if !ok {
		return nil, notFound("Listing")
	}
	cp := *l
	cp.ID = id
	return &cp, nil
}

// Conversation returns a stored conversation.
func (m *MemStore) Conversation(ctx context.Context, id string) (*c.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Conversation"); err != nil {
		return nil, err
	}
	conv, ok := m.Conversations[id]
	if !ok {
		return nil, notFound("Conversation")
	}
	cp := *conv
	cp.ID = id
	return &cp, nil
}

// ConversationsFor lists uid's conversations, most recent first.
func (m *MemStore) ConversationsFor(ctx context.Context, uid string) ([]c.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []c.Conversation{}
	for id, conv := range m.Conversations {
		if conv.HasParticipant(uid) {
			cp := *conv
			cp.ID = id
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

// FindConversation finds the conversation of a (guest, host, listing) tuple.
func (m *MemStore) FindConversation(ctx context.Context, guestID, hostID, listingID string) (*c.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, conv := range m.Conversations {
		if conv.GuestID == guestID && conv.HostID == hostID && conv.ListingID == listingID {
			cp := *conv
			cp.ID = id
			return &cp, nil
		}
	}
	return nil, notFound("FindConversation")
}

// CreateConversation stores conv under conv.ID.
func (m *MemStore) CreateConversation(ctx context.Context, conv *c.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateConversation:%s", conv.ID)
	if _, ok := m.Conversations[conv.ID]; ok {
		return apperr.E(apperr.Conflict, "CreateConversation", "already exists")
	}
	cp := *conv
	m.Conversations[conv.ID] = &cp
	return nil
}

// MarkRead clears one side's unread flag.
func (m *MemStore) MarkRead(ctx context.Context, conversationID, side string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkRead"); err != nil {
		return err
	}
	m.record("MarkRead:%s:%s", conversationID, side)
	conv, ok := m.Conversations[conversationID]
	if !ok {
		return notFound("MarkRead")
	}
	if side == c.SenderHost {
		conv.UnreadByHost = false
	} else {
		conv.UnreadByGuest = false
	}
	return nil
}

func (m *MemStore) subscribe(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{}, 1)
	m.watchers[key] = append(m.watchers[key], ch)
	return ch
}

func (m *MemStore) unsubscribe(key string, ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.watchers[key]
	for i, sub := range subs {
		if sub == ch {
			m.watchers[key] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// notify must be called with mu held.
func (m *MemStore) notify(key string) {
	for _, ch := range m.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watchers returns how many live subscriptions exist for the key ("messages/<conv>" or
// "typing/<conv>/<uid>").
func (m *MemStore) Watchers(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[key])
}

func (m *MemStore) messagesSnapshot(conversationID string) []c.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]c.Message(nil), m.Messages[conversationID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// WatchMessages delivers the ordered message list now and after every change.
func (m *MemStore) WatchMessages(ctx context.Context, conversationID string, fn func([]c.Message)) error {
	key := "messages/" + conversationID
	ch := m.subscribe(key)
	defer m.unsubscribe(key, ch)

	fn(m.messagesSnapshot(conversationID))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			fn(m.messagesSnapshot(conversationID))
		}
	}
}

func (m *MemStore) typing(conversationID, uid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Typing[conversationID][uid]
}

// WatchTyping delivers uid's typing flag now and after every write.
func (m *MemStore) WatchTyping(ctx context.Context, conversationID, uid string, fn func(bool)) error {
	key := "typing/" + conversationID + "/" + uid
	ch := m.subscribe(key)
	defer m.unsubscribe(key, ch)

	fn(m.typing(conversationID, uid))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			fn(m.typing(conversationID, uid))
		}
	}
}

// SetTyping writes uid's typing flag.
func (m *MemStore) SetTyping(ctx context.Context, conversationID, uid string, typing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetTyping"); err != nil {
		return err
	}
	m.record("SetTyping:%s:%s:%t", conversationID, uid, typing)
	if m.Typing[conversationID] == nil {
		m.Typing[conversationID] = map[string]bool{}
	}
	m.Typing[conversationID][uid] = typing
	m.notify("typing/" + conversationID + "/" + uid)
	return nil
}

// IsTyping reads uid's typing flag.
func (m *MemStore) IsTyping(conversationID, uid string) bool {
	return m.typing(conversationID, uid)
}

// Message returns one message.
func (m *MemStore) Message(ctx context.Context, conversationID, messageID string) (*c.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages[conversationID] {
		if msg.ID == messageID {
			cp := msg
			return &cp, nil
		}
	}
	return nil, notFound("Message")
}

// AppendMessage stores the message and updates the conversation preview.
func (m *MemStore) AppendMessage(ctx context.Context, msg *c.Message) (string, error) {
	if m.BeforeAppend != nil {
		m.BeforeAppend()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendMessage"); err != nil {
		return "", err
	}
	m.record("AppendMessage:%s", msg.ConversationID)
	conv, ok := m.Conversations[msg.ConversationID]
	if !ok {
		return "", notFound("AppendMessage")
	}
	stored := *msg
	stored.ID = m.nextID("m")
	m.Messages[msg.ConversationID] = append(m.Messages[msg.ConversationID], stored)

	conv.LastMessage = msg.Text
	conv.LastMessageAt = msg.CreatedAt
	if msg.SenderType == c.SenderHost {
		conv.UnreadByGuest = true
	} else {
		conv.UnreadByHost = true
	}
	m.notify("messages/" + msg.ConversationID)
	return stored.ID, nil
}

// DeleteMessage removes a message.
func (m *MemStore) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteMessage:%s:%s", conversationID, messageID)
	msgs := m.Messages[conversationID]
	for i, msg := range msgs {
		if msg.ID == messageID {
			m.Messages[conversationID] = append(msgs[:i:i], msgs[i+1:]...)
			m.notify("messages/" + conversationID)
			return nil
		}
	}
	return notFound("DeleteMessage")
}

// DeleteConversation removes a conversation and everything under it.
func (m *MemStore) DeleteConversation(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteConversation:%s", conversationID)
	if _, ok := m.Conversations[conversationID]; !ok {
		return notFound("DeleteConversation")
	}
	delete(m.Conversations, conversationID)
	delete(m.Messages, conversationID)
	delete(m.Typing, conversationID)
	m.notify("messages/" + conversationID)
	return nil
}

// Booking returns a stored booking.
func (m *MemStore) Booking(ctx context.Context, id string) (*c.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Booking"); err != nil {
		return nil, err
	}
	b, ok := m.Bookings[id]
	if !ok {
		return nil, notFound("Booking")
	}
	cp := *b
	cp.ID = id
	return &cp, nil
}

func (m *MemStore) bookingsWhere(match func(*c.Booking) bool) []c.Booking {
	out := []c.Booking{}
	for id, b := range m.Bookings {
		if match(b) {
			cp := *b
			cp.ID = id
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// BookingsForGuest lists a guest's bookings.
func (m *MemStore) BookingsForGuest(ctx context.Context, uid string) ([]c.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsWhere(func(b *c.Booking) bool { return b.GuestID == uid }), nil
}

// BookingsForHost lists a host's bookings.
func (m *MemStore) BookingsForHost(ctx context.Context, uid string) ([]c.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsWhere(func(b *c.Booking) bool { return b.HostID == uid }), nil
}

// RecentBookings lists the newest bookings.
func (m *MemStore) RecentBookings(ctx context.Context, limit int) ([]c.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.bookingsWhere(func(*c.Booking) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateBooking stores a new booking.
func (m *MemStore) CreateBooking(ctx context.Context, b *c.Booking) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateBooking"); err != nil {
		return "", err
	}
	id := m.nextID("b")
	cp := *b
	cp.ID = id
	m.Bookings[id] = &cp
	m.BookingWrites++
	return id, nil
}

func (m *MemStore) addTransaction(record *c.Transaction) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	m.Records = append(m.Records, *record)
}

// UpdateBooking applies fn atomically, like the Firestore transaction.
func (m *MemStore) UpdateBooking(ctx context.Context, id string, fn c.BookingMutation) (*c.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateBooking"); err != nil {
		return nil, err
	}
	stored, ok := m.Bookings[id]
	if !ok {
		return nil, notFound("UpdateBooking")
	}
	b := *stored
	b.ID = id
	record, err := fn(&b)
	if errors.Is(err, apperr.ErrNoChange) {
		original := *stored
		original.ID = id
		return &original, nil
	}
	if err != nil {
		return nil, err
	}
	m.record("UpdateBooking:%s", id)
	m.Bookings[id] = &b
	m.BookingWrites++
	if record != nil {
		m.addTransaction(record)
	}
	cp := b
	return &cp, nil
}

// PayFromWallet applies fn to the booking and wallet atomically.
func (m *MemStore) PayFromWallet(ctx context.Context, bookingID, uid string, fn c.WalletPaymentMutation) (*c.Booking, *c.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Bookings[bookingID]
	if !ok {
		return nil, nil, notFound("PayFromWallet")
	}
	b := *stored
	b.ID = bookingID
	w := m.walletOrZero(uid)

	record, err := fn(&b, &w)
	if errors.Is(err, apperr.ErrNoChange) {
		original := *stored
		original.ID = bookingID
		unchanged := m.walletOrZero(uid)
		return &original, &unchanged, nil
	}
	if err != nil {
		return nil, nil, err
	}
	m.Bookings[bookingID] = &b
	m.Wallets[uid] = &w
	m.BookingWrites++
	m.WalletWrites++
	if record != nil {
		m.addTransaction(record)
	}
	bc, wc := b, w
	return &bc, &wc, nil
}

func (m *MemStore) walletOrZero(uid string) c.Wallet {
	if w, ok := m.Wallets[uid]; ok {
		return *w
	}
	return c.Wallet{UID: uid, Currency: c.DefaultCurrency}
}

// Wallet returns a stored wallet.
func (m *MemStore) Wallet(ctx context.Context, uid string) (*c.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Wallet"); err != nil {
		return nil, err
	}
	w, ok := m.Wallets[uid]
	if !ok {
		return nil, notFound("Wallet")
	}
	cp := *w
	return &cp, nil
}

// UpdateWallet applies fn atomically.
func (m *MemStore) UpdateWallet(ctx context.Context, uid string, fn c.WalletMutation) (*c.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateWallet"); err != nil {
		return nil, err
	}
	w := m.walletOrZero(uid)
	record, err := fn(&w)
	if errors.Is(err, apperr.ErrNoChange) {
		unchanged := m.walletOrZero(uid)
		return &unchanged, nil
	}
	if err != nil {
		return nil, err
	}
	m.Wallets[uid] = &w
	m.WalletWrites++
	if record != nil {
		m.addTransaction(record)
	}
	cp := w
	return &cp, nil
}

// Transactions lists uid's transactions, newest first.
func (m *MemStore) Transactions(ctx context.Context, uid string, limit int) ([]c.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []c.Transaction{}
	for _, t := range m.Records {
		if t.UserID == uid {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
