package api

import (
	"net/http"

	"bookingserver/booking"
	"bookingserver/session"
	"bookingserver/web"

	"github.com/gorilla/mux"
)

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) guestBookings(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	bookings, err := h.Bookings.ListForGuest(r.Context(), id.UserID)
	reply(w, r, http.StatusOK, bookings, err)
}

func (h *Handler) hostBookings(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	bookings, err := h.Bookings.ListForHost(r.Context(), id.UserID)
	reply(w, r, http.StatusOK, bookings, err)
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	var draft booking.Draft
	if err := web.DecodeJSON(r, &draft); err != nil {
		web.Error(w, r, err)
		return
	}
	b, err := h.Bookings.Create(r.Context(), id.UserID, draft)
	reply(w, r, http.StatusCreated, b, err)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	b, err := h.Bookings.Get(r.Context(), id.UserID, mux.Vars(r)["id"])
	reply(w, r, http.StatusOK, b, err)
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	var req confirmRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	b, err := h.Bookings.Cancel(r.Context(), id.UserID, mux.Vars(r)["id"], req.Confirm)
	reply(w, r, http.StatusOK, b, err)
}

func (h *Handler) payWithWallet(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	res, err := h.Payments.PayWithWallet(r.Context(), id.UserID, mux.Vars(r)["id"])
	reply(w, r, http.StatusOK, res, err)
}

func (h *Handler) adminBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.Recent(r.Context())
	reply(w, r, http.StatusOK, bookings, err)
}
