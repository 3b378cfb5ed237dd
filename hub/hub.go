package hub

import (
	"context"

	log "bookingserver/cloudlog"
	wscodes "bookingserver/websocketcodes"
)

// Hub connects one Client to its Session. Requests from the client and updates from the
// session are handled one at a time on the Run goroutine.
type Hub struct {
	ctx     context.Context
	session *Session
	client  *Client

	// Inbound messages from the client.
	inbound chan *Message

	// The client sends itself here when its connection drops.
	unregister chan *Client

	// Closed when Run exits to stop the client sending.
	stopClientSend chan struct{}

	// Set once the conversation is gone and the hub should stop.
	finished bool
}

func newHub(ctx context.Context, sess *Session, client *Client) *Hub {
	h := &Hub{
		ctx:            ctx,
		session:        sess,
		client:         client,
		inbound:        make(chan *Message),
		unregister:     make(chan *Client),
		stopClientSend: make(chan struct{}),
	}
	client.toHub = h.inbound
	client.unregister = h.unregister
	client.stopCh = h.stopClientSend
	return h
}

// Run serves the client until it disconnects or the conversation is deleted. The session is
// closed before Run returns.
func (h *Hub) Run() {
	defer h.close()
	h.sendMessage(h.openMessage())

	events := h.session.Events()
	for !h.finished {
		select {
		case message := <-h.inbound:
			h.sendMessage(h.processMessage(message))
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.sendMessage(eventMessage(ev))
		case <-h.unregister:
			log.Printf("%s left conversation %s", h.client.userID, h.session.Conversation().ID)
			return
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) openMessage() *Message {
	participant := h.session.Participant()
	return &Message{
		Endpoint:     endpointOpen,
		Status:       wscodes.StatusSuccess,
		Conversation: h.session.Conversation(),
		Participant:  &participant,
	}
}

func eventMessage(ev Event) *Message {
	switch ev.Kind {
	case EventMessages:
		return &Message{Endpoint: endpointMessages, Status: wscodes.StatusUpdate, Messages: ev.Messages}
	case EventPeerTyping:
		return &Message{Endpoint: endpointPeerTyping, Status: wscodes.StatusUpdate, Typing: ev.Typing}
	default:
		return &Message{Endpoint: endpointMessages, Status: wscodes.StatusFailure, Text: "live updates stopped, reload to retry"}
	}
}

// sendMessage drops the message if the client is gone or too far behind.
func (h *Hub) sendMessage(message *Message) {
	if message == nil || h.client.IsClosed() {
		return
	}
	select {
	case h.client.send <- message:
	default:
		log.Printf("dropping %s for slow client %s", message.Endpoint, h.client.userID)
	}
}

func (h *Hub) close() {
	close(h.stopClientSend)
	h.session.Close()
	h.sendMessage(&Message{Endpoint: endpointClosed, Status: wscodes.StatusUpdate})
	close(h.client.send)
}
