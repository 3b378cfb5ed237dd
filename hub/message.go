package hub

import "bookingserver/collections"

const (
	// Sent by the client.
	endpointTyping             = "TYPING"
	endpointSend               = "SEND"
	endpointDeleteMessage      = "DELETE_MESSAGE"
	endpointDeleteConversation = "DELETE_CONVERSATION"

	// Pushed by the server.
	endpointOpen       = "OPEN"
	endpointMessages   = "MESSAGES"
	endpointPeerTyping = "PEER_TYPING"
	endpointClosed     = "CLOSED"
)

// Participant is the other side of a conversation as shown in its header.
type Participant struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     string `json:"role,omitempty"`
	// Known is false when neither profile of the participant could be found.
	Known bool `json:"known"`
}

// Message defines the websocket message between the browser and the server.
type Message struct {
	// UID is chosen by the client and echoed back on the reply to its request.
	UID      string `json:"uid,omitempty"`
	Endpoint string `json:"endpoint"`
	Status   string `json:"status,omitempty"`
	Text     string `json:"text,omitempty"`

	MessageID string `json:"messageId,omitempty"`
	Confirm   bool   `json:"confirm,omitempty"`

	Conversation *collections.Conversation `json:"conversation,omitempty"`
	Participant  *Participant              `json:"participant,omitempty"`
	Messages     []collections.Message     `json:"messages,omitempty"`
	Sent         *collections.Message      `json:"sent,omitempty"`
	Typing       bool                      `json:"typing,omitempty"`

	client *Client
}

// toOriginWithStatus builds the reply to message.
func toOriginWithStatus(message *Message, status, text string) *Message {
	return &Message{
		UID:      message.UID,
		Endpoint: message.Endpoint,
		Status:   status,
		Text:     text,
	}
}
