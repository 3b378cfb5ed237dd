package api

import (
	"net/http"

	"bookingserver/session"
	"bookingserver/web"
)

type topUpRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) getWallet(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	wallet, err := h.Wallets.Get(r.Context(), id.UserID)
	reply(w, r, http.StatusOK, wallet, err)
}

func (h *Handler) walletTransactions(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	records, err := h.Wallets.Transactions(r.Context(), id.UserID)
	reply(w, r, http.StatusOK, records, err)
}

func (h *Handler) topUp(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	var req topUpRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	wallet, err := h.Wallets.TopUp(r.Context(), id.UserID, req.Amount)
	reply(w, r, http.StatusOK, wallet, err)
}
