package api

import (
	"errors"
	"net/http"
	"time"

	"bookingserver/adminsession"
	"bookingserver/apperr"
	"bookingserver/web"
)

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminSessionResponse struct {
	IsAdmin   bool      `json:"isAdmin"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.adminLogin"
	var req adminLoginRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	token, sess, err := h.Admin.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, adminsession.ErrLoginDisabled):
		web.Error(w, r, apperr.Wrap(apperr.PermissionDenied, op, "admin login is disabled", err))
		return
	case err != nil:
		web.Error(w, r, apperr.Wrap(apperr.PermissionDenied, op, "invalid email or password", err))
		return
	}
	adminsession.SetCookie(w, token, h.Admin.TTL(), h.SecureCookies)
	web.JSON(w, http.StatusOK, adminSessionResponse{
		IsAdmin:   sess.IsAdmin,
		LoginTime: sess.LoginTime,
		ExpiresAt: sess.ExpiresAt(h.Admin.TTL()),
	})
}

func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	if token := adminsession.TokenFrom(r); token != "" {
		h.Admin.Clear(token)
	}
	adminsession.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
