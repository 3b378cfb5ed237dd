package api

import (
	"net/http"
	"net/url"

	"bookingserver/payment"
	"bookingserver/session"
	"bookingserver/web"

	"github.com/gorilla/mux"
)

func (h *Handler) paymentCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     payment.BookingCookie,
		Value:    value,
		Path:     "/payment/paypal",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// returnedBookingID reads the booking id PayPal sent back, falling back to the cookie set at
// checkout.
func returnedBookingID(r *http.Request) string {
	if id := r.URL.Query().Get("bookingId"); id != "" {
		return id
	}
	if cookie, err := r.Cookie(payment.BookingCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func bookingPage(bookingID, outcome string) string {
	return "/bookings/" + url.PathEscape(bookingID) + "?payment=" + outcome
}

func (h *Handler) paypalCheckout(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	bookingID := mux.Vars(r)["bookingId"]
	location, err := h.Payments.Checkout(r.Context(), id.UserID, bookingID)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	// Session cookie: MaxAge 0 omits the attribute.
	http.SetCookie(w, h.paymentCookie(bookingID, 0))
	http.Redirect(w, r, location, http.StatusFound)
}

func (h *Handler) paypalReturn(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	q := r.URL.Query()
	res, err := h.Payments.Complete(r.Context(), id.UserID, payment.ReturnParams{
		BookingID: returnedBookingID(r),
		PaymentID: q.Get("paymentId"),
		PayerID:   q.Get("PayerID"),
	})
	if err != nil {
		web.Error(w, r, err)
		return
	}
	http.SetCookie(w, h.paymentCookie("", -1))
	outcome := "success"
	if res.AlreadyProcessed {
		outcome = "already-processed"
	}
	http.Redirect(w, r, bookingPage(res.Booking.ID, outcome), http.StatusFound)
}

func (h *Handler) paypalCancel(w http.ResponseWriter, r *http.Request, id *session.Identity) {
	b, err := h.Payments.Abandon(r.Context(), id.UserID, returnedBookingID(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	http.SetCookie(w, h.paymentCookie("", -1))
	http.Redirect(w, r, bookingPage(b.ID, "cancelled"), http.StatusFound)
}
