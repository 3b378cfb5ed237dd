package hub

import (
	"errors"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	wscodes "bookingserver/websocketcodes"
)

func (h *Hub) processMessage(message *Message) *Message {
	switch message.Endpoint {
	case endpointTyping:
		return h.handleTyping(message)
	case endpointSend:
		return h.handleSend(message)
	case endpointDeleteMessage:
		return h.handleDeleteMessage(message)
	case endpointDeleteConversation:
		return h.handleDeleteConversation(message)
	default:
		log.Printf("message endpoint %q is not supported", message.Endpoint)
		return toOriginWithStatus(message, wscodes.StatusEndpointNotValid, "")
	}
}

// Typing updates are fire and forget; only failures are answered.
func (h *Hub) handleTyping(message *Message) *Message {
	if err := h.session.Typing(message.Text); err != nil {
		log.Printf("typing update for %s: %v", h.client.userID, err)
		return toOriginWithStatus(message, wscodes.StatusFailure, apperr.Message(err))
	}
	return nil
}

func (h *Hub) handleSend(message *Message) *Message {
	sent, err := h.session.Send(h.ctx, message.Text)
	if err != nil {
		return errorReply(message, err)
	}
	reply := toOriginWithStatus(message, wscodes.StatusSuccess, "")
	reply.Sent = sent
	return reply
}

func (h *Hub) handleDeleteMessage(message *Message) *Message {
	if err := h.session.DeleteMessage(h.ctx, message.MessageID, message.Confirm); err != nil {
		return errorReply(message, err)
	}
	reply := toOriginWithStatus(message, wscodes.StatusSuccess, "")
	reply.MessageID = message.MessageID
	return reply
}

func (h *Hub) handleDeleteConversation(message *Message) *Message {
	if err := h.session.DeleteConversation(h.ctx, message.Confirm); err != nil {
		return errorReply(message, err)
	}
	h.finished = true
	return toOriginWithStatus(message, wscodes.StatusSuccess, "")
}

// errorReply maps err onto a websocket status.
func errorReply(message *Message, err error) *Message {
	status := wscodes.StatusFailure
	switch apperr.KindOf(err) {
	case apperr.PermissionDenied:
		status = wscodes.StatusEndpointUnauthorized
	case apperr.NotFound:
		status = wscodes.StatusMessageNotFound
		if message.Endpoint == endpointDeleteConversation {
			status = wscodes.StatusConversationNotFound
		}
	case apperr.InvalidInput:
		status = wscodes.StatusEmptyMessage
		if errors.Is(err, apperr.ErrNotConfirmed) {
			status = wscodes.StatusConfirmationRequired
		}
	}
	return toOriginWithStatus(message, status, apperr.Message(err))
}
