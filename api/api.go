// Package api serves the JSON endpoints, the PayPal redirects, the conversation websocket and
// the guarded single-page app.
package api

import (
	"context"
	"net/http"

	"bookingserver/adminsession"
	"bookingserver/apperr"
	"bookingserver/booking"
	"bookingserver/guard"
	"bookingserver/hub"
	"bookingserver/payment"
	"bookingserver/session"
	"bookingserver/wallet"
	"bookingserver/web"

	"github.com/gorilla/mux"
)

// Guards are the route guards the handlers run behind.
type Guards struct {
	Verified guard.Guard
	Guest    guard.Guard
	Host     guard.Guard
	Admin    guard.Guard
}

// Handler holds everything the endpoints call into.
type Handler struct {
	Accounts  *session.Resolver
	Bookings  *booking.Service
	Wallets   *wallet.Service
	Payments  *payment.Service
	Directory *hub.Directory
	Connector *hub.Connector
	Admin     *adminsession.Store

	// Pages serves the web app.
	Pages http.Handler

	// Health reports whether the datastore is reachable.
	Health func(ctx context.Context) error

	// SecureCookies marks session cookies Secure; off only in development over plain http.
	SecureCookies bool
}

// Routes registers every route on r.
func (h *Handler) Routes(r *mux.Router, g Guards) {
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	on := func(router *mux.Router, path string, gd guard.Guard, fn http.HandlerFunc, methods ...string) {
		var handler http.Handler = fn
		if gd != nil {
			handler = guard.Protect(gd, fn)
		}
		router.Handle(path, handler).Methods(methods...)
	}

	on(api, "/me", g.Verified, userHandler(h.me), http.MethodGet)
	on(api, "/host/register", g.Verified, userHandler(h.registerHost), http.MethodPost)
	on(api, "/host/bookings", g.Host, userHandler(h.hostBookings), http.MethodGet)

	on(api, "/favorites", g.Guest, userHandler(h.favorites), http.MethodGet)
	on(api, "/favorites/{listingId}", g.Guest, userHandler(h.addFavorite), http.MethodPut)
	on(api, "/favorites/{listingId}", g.Guest, userHandler(h.removeFavorite), http.MethodDelete)

	on(api, "/bookings", g.Guest, userHandler(h.guestBookings), http.MethodGet)
	on(api, "/bookings", g.Guest, userHandler(h.createBooking), http.MethodPost)
	on(api, "/bookings/{id}", g.Verified, userHandler(h.getBooking), http.MethodGet)
	on(api, "/bookings/{id}/cancel", g.Verified, userHandler(h.cancelBooking), http.MethodPost)
	on(api, "/bookings/{id}/pay/wallet", g.Guest, userHandler(h.payWithWallet), http.MethodPost)

	on(api, "/wallet", g.Guest, userHandler(h.getWallet), http.MethodGet)
	on(api, "/wallet/transactions", g.Guest, userHandler(h.walletTransactions), http.MethodGet)
	on(api, "/wallet/topup", g.Guest, userHandler(h.topUp), http.MethodPost)

	on(api, "/conversations", g.Verified, userHandler(h.conversations), http.MethodGet)
	on(api, "/conversations", g.Guest, userHandler(h.startConversation), http.MethodPost)

	on(api, "/admin/login", nil, h.adminLogin, http.MethodPost)
	on(api, "/admin/logout", nil, h.adminLogout, http.MethodPost)
	on(api, "/admin/bookings", g.Admin, h.adminBookings, http.MethodGet)

	on(r, "/payment/paypal/checkout/{bookingId}", g.Guest, userHandler(h.paypalCheckout), http.MethodGet)
	on(r, "/payment/paypal/return", g.Guest, userHandler(h.paypalReturn), http.MethodGet)
	on(r, "/payment/paypal/cancel", g.Guest, userHandler(h.paypalCancel), http.MethodGet)

	on(r, "/ws/conversations/{id}", g.Verified, userHandler(h.conversationSocket), http.MethodGet)

	h.pageRoutes(r, g)
}

func (h *Handler) pageRoutes(r *mux.Router, g Guards) {
	if h.Pages == nil {
		return
	}
	r.Handle(guard.AdminLoginPath, h.Pages)
	r.PathPrefix("/admin").Handler(guard.Protect(g.Admin, h.Pages))
	r.PathPrefix("/host/").Handler(guard.Protect(g.Host, h.Pages))
	r.Handle("/profile", guard.Protect(g.Verified, h.Pages))
	for _, prefix := range []string{"/favorites", "/bookings", "/wallet", "/messages", "/book/"} {
		r.PathPrefix(prefix).Handler(guard.Protect(g.Guest, h.Pages))
	}
	r.PathPrefix("/").Handler(h.Pages)
}

// caller returns the identity the guard put on the request.
func caller(r *http.Request) (*session.Identity, error) {
	id, ok := session.IdentityFrom(r.Context())
	if !ok {
		return nil, apperr.E(apperr.AuthNotReady, "api.caller", "not signed in")
	}
	return id, nil
}

// userHandler adapts handlers that need the signed-in user.
func userHandler(fn func(w http.ResponseWriter, r *http.Request, id *session.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := caller(r)
		if err != nil {
			web.Error(w, r, err)
			return
		}
		fn(w, r, id)
	}
}

// reply writes v, or err if it is set.
func reply(w http.ResponseWriter, r *http.Request, status int, v interface{}, err error) {
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, status, v)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			web.Error(w, r, apperr.Wrap(apperr.TransientFetch, "api.healthz", "datastore unreachable", err))
			return
		}
	}
	web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
