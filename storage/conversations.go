package storage

import (
	"context"
	"sort"

	"bookingserver/apperr"
	c "bookingserver/collections"
	"bookingserver/fieldcodes"

	"cloud.google.com/go/firestore"
)

func (s *Store) conversationRef(id string) *firestore.DocumentRef {
	return s.client.Collection(c.ConversationsID).Doc(id)
}

func setConversationID(conv *c.Conversation, id string) { conv.ID = id }

// Conversation reads conversations/{id}.
func (s *Store) Conversation(ctx context.Context, id string) (*c.Conversation, error) {
	conv, err := get[c.Conversation](ctx, s.conversationRef(id), "storage.Conversation")
	if err != nil {
		return nil, err
	}
	conv.ID = id
	return conv, nil
}

// ConversationsFor lists the conversations uid takes part in, most recent first.
func (s *Store) ConversationsFor(ctx context.Context, uid string) ([]c.Conversation, error) {
	const op = "storage.ConversationsFor"
	convs := s.client.Collection(c.ConversationsID)
	asGuest, err := getAll(ctx, convs.Where(fieldcodes.GuestIDKey, "==", uid), op, setConversationID)
	if err != nil {
		return nil, err
	}
	asHost, err := getAll(ctx, convs.Where(fieldcodes.HostIDKey, "==", uid), op, setConversationID)
	if err != nil {
		return nil, err
	}

	all := append(asGuest, asHost...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LastMessageAt.After(all[j].LastMessageAt)
	})
	return all, nil
}

// FindConversation looks up the conversation for a (guest, host, listing) tuple.
func (s *Store) FindConversation(ctx context.Context, guestID, hostID, listingID string) (*c.Conversation, error) {
	const op = "storage.FindConversation"
	found, err := getAll(ctx, s.client.Collection(c.ConversationsID).
		Where(fieldcodes.GuestIDKey, "==", guestID).
		Where(fieldcodes.HostIDKey, "==", hostID).
		Where(fieldcodes.ListingIDKey, "==", listingID).
		Limit(1), op, setConversationID)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperr.E(apperr.NotFound, op, "no conversation yet")
	}
	return &found[0], nil
}

// CreateConversation creates the conversation under conv.ID. An existing document with that id
// is reported as a Conflict.
func (s *Store) CreateConversation(ctx context.Context, conv *c.Conversation) error {
	_, err := s.conversationRef(conv.ID).Create(ctx, conv)
	return apperr.FromStore("storage.CreateConversation", err)
}

// MarkRead clears the unread flag of the given side ("guest" or "host").
func (s *Store) MarkRead(ctx context.Context, conversationID, side string) error {
	field := fieldcodes.UnreadByGuestKey
	if side == c.SenderHost {
		field = fieldcodes.UnreadByHostKey
	}
	_, err := s.conversationRef(conversationID).Update(ctx, []firestore.Update{{Path: field, Value: false}})
	return apperr.FromStore("storage.MarkRead", err)
}

// WatchMessages calls fn with the full message list, ordered by creation time, every time it
// changes. It blocks until ctx is done, which is not an error.
func (s *Store) WatchMessages(ctx context.Context, conversationID string, fn func([]c.Message)) error {
	const op = "storage.WatchMessages"
	snapshots := s.conversationRef(conversationID).Collection(c.MessagesID).
		OrderBy(fieldcodes.CreatedAtKey, firestore.Asc).
		Snapshots(ctx)
	defer snapshots.Stop()

	for {
		snap, err := snapshots.Next()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return apperr.FromStore(op, err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return apperr.FromStore(op, err)
		}
		messages := make([]c.Message, 0, len(docs))
		for _, doc := range docs {
			msg, err := decode[c.Message](doc, op)
			if err != nil {
				continue
			}
			msg.ID = doc.Ref.ID
			messages = append(messages, *msg)
		}
		fn(messages)
	}
}

// WatchTyping calls fn whenever uid's typing flag in the conversation changes. A missing
// document reads as not typing.
func (s *Store) WatchTyping(ctx context.Context, conversationID, uid string, fn func(bool)) error {
	snapshots := s.conversationRef(conversationID).Collection(c.TypingID).Doc(uid).Snapshots(ctx)
	defer snapshots.Stop()

	for {
		snap, err := snapshots.Next()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return apperr.FromStore("storage.WatchTyping", err)
		}
		if !snap.Exists() {
			fn(false)
			continue
		}
		var status c.TypingStatus
		if err := snap.DataTo(&status); err != nil {
			fn(false)
			continue
		}
		fn(status.IsTyping)
	}
}

// SetTyping overwrites uid's typing flag.
func (s *Store) SetTyping(ctx context.Context, conversationID, uid string, typing bool) error {
	_, err := s.conversationRef(conversationID).Collection(c.TypingID).Doc(uid).Set(ctx, map[string]interface{}{
		fieldcodes.IsTypingKey:  typing,
		fieldcodes.UpdatedAtKey: firestore.ServerTimestamp,
	})
	return apperr.FromStore("storage.SetTyping", err)
}

// Message reads a single message.
func (s *Store) Message(ctx context.Context, conversationID, messageID string) (*c.Message, error) {
	ref := s.conversationRef(conversationID).Collection(c.MessagesID).Doc(messageID)
	msg, err := get[c.Message](ctx, ref, "storage.Message")
	if err != nil {
		return nil, err
	}
	msg.ID = messageID
	return msg, nil
}

// AppendMessage writes the message and updates the conversation preview in one batch. The
// recipient's unread flag is raised.
func (s *Store) AppendMessage(ctx context.Context, msg *c.Message) (string, error) {
	convRef := s.conversationRef(msg.ConversationID)
	msgRef := convRef.Collection(c.MessagesID).NewDoc()

	unread := fieldcodes.UnreadByHostKey
	if msg.SenderType == c.SenderHost {
		unread = fieldcodes.UnreadByGuestKey
	}

	batch := s.client.Batch()
	batch.Create(msgRef, msg)
	batch.Update(convRef, []firestore.Update{
		{Path: fieldcodes.LastMessageKey, Value: msg.Text},
		{Path: fieldcodes.LastMessageAtKey, Value: msg.CreatedAt},
		{Path: unread, Value: true},
	})
	if _, err := batch.Commit(ctx); err != nil {
		return "", apperr.FromStore("storage.AppendMessage", err)
	}
	return msgRef.ID, nil
}

// DeleteMessage removes one message.
func (s *Store) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	ref := s.conversationRef(conversationID).Collection(c.MessagesID).Doc(messageID)
	_, err := ref.Delete(ctx, firestore.Exists)
	return apperr.FromStore("storage.DeleteMessage", err)
}

// DeleteConversation removes the conversation with its messages and typing documents.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	const op = "storage.DeleteConversation"
	ref := s.conversationRef(conversationID)
	if err := s.deleteQuery(ctx, ref.Collection(c.MessagesID).Query); err != nil {
		return apperr.FromStore(op, err)
	}
	if err := s.deleteQuery(ctx, ref.Collection(c.TypingID).Query); err != nil {
		return apperr.FromStore(op, err)
	}
	_, err := ref.Delete(ctx)
	return apperr.FromStore(op, err)
}
