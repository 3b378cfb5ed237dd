package api

import (
	"net/http"

	"bookingserver/session"
	"bookingserver/web"

	"github.com/gorilla/mux"
)

type startRequest struct {
	ListingID string `json:"listingId"`
}

func (h *Handler) conversations(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	convs, err := h.Directory.List(r.Context(), id.UserID)
	reply(w, r, http.StatusOK, convs, err)
}

func (h *Handler) startConversation(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	var req startRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	conv, err := h.Directory.Start(r.Context(), id, req.ListingID)
	reply(w, r, http.StatusOK, conv, err)
}

func (h *Handler) conversationSocket(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	h.Connector.ServeWs(id, mux.Vars(r)["id"], w, r)
}
