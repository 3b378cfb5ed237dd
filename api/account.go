package api

import (
	"net/http"

	"bookingserver/session"
	"bookingserver/web"

	"github.com/gorilla/mux"
)

type meResponse struct {
	User *session.Identity `json:"user"`
	session.Resolution
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	res, err := h.Accounts.Resolve(r.Context(), id)
	reply(w, r, http.StatusOK, meResponse{User: id, Resolution: res}, err)
}

func (h *Handler) registerHost(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	var reg session.HostRegistration
	if err := web.DecodeJSON(r, &reg); err != nil {
		web.Error(w, r, err)
		return
	}
	profile, err := h.Accounts.RegisterHost(r.Context(), id, reg)
	reply(w, r, http.StatusCreated, profile, err)
}

func (h *Handler) favorites(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	favorites, err := h.Accounts.Favorites(r.Context(), id.UserID)
	reply(w, r, http.StatusOK, map[string][]string{"favorites": favorites}, err)
}

func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	if err := h.Accounts.AddFavorite(r.Context(), id.UserID, mux.Vars(r)["listingId"]); err != nil {
		web.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	if err := h.Accounts.RemoveFavorite(r.Context(), id.UserID, mux.Vars(r)["listingId"]); err != nil {
		web.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
