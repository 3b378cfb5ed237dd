// Package hub carries a conversation between two marketplace users over a websocket: the live
// message feed, the other side's typing indicator and the writes a participant can make.
//
// Every open conversation is a Session. A Session holds two Firestore listeners and the caller's
// typing flag, and Close releases all of them.
package hub

import (
	"context"
	"html"
	"strings"
	"sync"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	"bookingserver/clock"
	"bookingserver/collections"
	"bookingserver/session"

	"github.com/microcosm-cc/bluemonday"
)

// Store is the part of storage.Store a Session needs.
type Store interface {
	Conversation(ctx context.Context, id string) (*collections.Conversation, error)
	Profile(ctx context.Context, uid string) (*collections.Profile, error)
	MarkRead(ctx context.Context, conversationID, side string) error
	WatchMessages(ctx context.Context, conversationID string, fn func([]collections.Message)) error
	WatchTyping(ctx context.Context, conversationID, uid string, fn func(bool)) error
	SetTyping(ctx context.Context, conversationID, uid string, typing bool) error
	Message(ctx context.Context, conversationID, messageID string) (*collections.Message, error)
	AppendMessage(ctx context.Context, msg *collections.Message) (string, error)
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Deps is what Open needs from the outside.
type Deps struct {
	Store Store
	Clock clock.Clock
}

// EventKind tells which subscription an Event came from.
type EventKind int

const (
	// EventMessages carries the full ordered message list.
	EventMessages EventKind = iota
	// EventPeerTyping carries the other participant's typing flag.
	EventPeerTyping
	// EventFailed reports a listener that stopped with an error.
	EventFailed
)

// Event is one update from a Session's subscriptions.
type Event struct {
	Kind     EventKind
	Messages []collections.Message
	Typing   bool
	Err      error
}

// plainText strips all markup from message text. Policies are safe for concurrent use.
var plainText = bluemonday.StrictPolicy()

// Session is one user's open conversation.
type Session struct {
	store Store
	clk   clock.Clock

	conversation *collections.Conversation
	participant  Participant
	userID       string
	side         string

	typing *typist
	events chan Event

	cancel    context.CancelFunc
	watchers  sync.WaitGroup
	closeOnce sync.Once
}

// Open checks that id may see the conversation, marks it read for them and starts listening for
// messages and for the other participant's typing flag. The returned Session must be closed.
func Open(ctx context.Context, deps Deps, conversationID string, id *session.Identity) (*Session, error) {
	const op = "hub.Open"
	if id == nil {
		return nil, apperr.E(apperr.AuthNotReady, op, "not signed in")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	conv, err := deps.Store.Conversation(ctx, conversationID)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	if !conv.HasParticipant(id.UserID) {
		log.Printf("%s tried to open conversation %s", id.UserID, conversationID)
		return nil, apperr.E(apperr.PermissionDenied, op, "you are not part of this conversation")
	}

	side := collections.SenderGuest
	if id.UserID == conv.HostID {
		side = collections.SenderHost
	}
	otherID := conv.Counterpart(id.UserID)

	// Listeners and clean-up writes must outlive the request that opened the session.
	base := context.WithoutCancel(ctx)
	watchCtx, cancel := context.WithCancel(base)
	s := &Session{
		store:        deps.Store,
		clk:          deps.Clock,
		conversation: conv,
		participant:  lookupParticipant(ctx, deps.Store, otherID),
		userID:       id.UserID,
		side:         side,
		events:       make(chan Event, 16),
		cancel:       cancel,
	}
	s.typing = newTypist(deps.Clock, func(typing bool) error {
		return deps.Store.SetTyping(base, conv.ID, id.UserID, typing)
	})

	if err := deps.Store.MarkRead(ctx, conv.ID, side); err != nil {
		log.Printf("marking %s read for %s: %v", conv.ID, id.UserID, err)
	}

	s.watch(watchCtx, func(ctx context.Context) error {
		return deps.Store.WatchMessages(ctx, conv.ID, func(msgs []collections.Message) {
			s.emit(ctx, Event{Kind: EventMessages, Messages: msgs})
		})
	})
	s.watch(watchCtx, func(ctx context.Context) error {
		return deps.Store.WatchTyping(ctx, conv.ID, otherID, func(typing bool) {
			s.emit(ctx, Event{Kind: EventPeerTyping, Typing: typing})
		})
	})
	return s, nil
}

func lookupParticipant(ctx context.Context, store Store, uid string) Participant {
	profile, err := store.Profile(ctx, uid)
	if err != nil {
		if !apperr.IsNotFound(err) {
			log.Printf("loading participant %s: %v", uid, err)
		}
		return Participant{UID: uid, Name: "Unknown user"}
	}
	return Participant{
		UID:      uid,
		Name:     profile.DisplayName(),
		PhotoURL: profile.PhotoURL,
		Role:     profile.Role,
		Known:    true,
	}
}

func (s *Session) watch(ctx context.Context, listen func(context.Context) error) {
	s.watchers.Add(1)
	go func() {
		defer s.watchers.Done()
		if err := listen(ctx); err != nil {
			log.Printf("listener for %s stopped: %v", s.conversation.ID, err)
			s.emit(ctx, Event{Kind: EventFailed, Err: apperr.FromStore("hub.watch", err)})
		}
	}()
}

func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// Events delivers subscription updates until the Session is closed, then is closed itself.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Conversation is the conversation as it was when the session opened.
func (s *Session) Conversation() *collections.Conversation {
	return s.conversation
}

// Participant is the other side of the conversation.
func (s *Session) Participant() Participant {
	return s.participant
}

// Typing records a change of the caller's draft text. Non-empty text keeps the typing flag up
// for two seconds; empty text drops it.
func (s *Session) Typing(text string) error {
	if strings.TrimSpace(text) == "" {
		return s.typing.clear()
	}
	return s.typing.keystroke()
}

// Send appends a message from the caller. The typing flag is dropped before the write starts.
func (s *Session) Send(ctx context.Context, text string) (*collections.Message, error) {
	const op = "hub.Send"
	text = strings.TrimSpace(html.UnescapeString(plainText.Sanitize(strings.TrimSpace(text))))
	if text == "" {
		return nil, apperr.E(apperr.InvalidInput, op, "message is empty")
	}

	if err := s.typing.clear(); err != nil {
		log.Printf("clearing typing flag before send: %v", err)
	}

	msg := &collections.Message{
		ConversationID: s.conversation.ID,
		SenderID:       s.userID,
		SenderType:     s.side,
		Text:           text,
		CreatedAt:      s.clk.Now().UTC(),
	}
	id, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	msg.ID = id
	return msg, nil
}

// DeleteMessage removes one of the caller's own messages. The feed reflects the removal once
// Firestore reports it.
func (s *Session) DeleteMessage(ctx context.Context, messageID string, confirmed bool) error {
	const op = "hub.DeleteMessage"
	if !confirmed {
		return apperr.Unconfirmed(op)
	}
	msg, err := s.store.Message(ctx, s.conversation.ID, messageID)
	if err != nil {
		return apperr.FromStore(op, err)
	}
	if msg.SenderID != s.userID {
		return apperr.E(apperr.PermissionDenied, op, "you can only delete your own messages")
	}
	return apperr.FromStore(op, s.store.DeleteMessage(ctx, s.conversation.ID, messageID))
}

// DeleteConversation removes the conversation with all its messages.
func (s *Session) DeleteConversation(ctx context.Context, confirmed bool) error {
	const op = "hub.DeleteConversation"
	if !confirmed {
		return apperr.Unconfirmed(op)
	}
	return apperr.FromStore(op, s.store.DeleteConversation(ctx, s.conversation.ID))
}

// Close stops both listeners and drops the caller's typing flag, then closes Events. Calling it
// more than once is harmless.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if err := s.typing.clear(); err != nil {
			log.Printf("clearing typing flag of %s on close: %v", s.userID, err)
		}
		s.watchers.Wait()
		close(s.events)
	})
}
