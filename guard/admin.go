package guard

import (
	"errors"
	"net/http"

	"bookingserver/adminsession"
	log "bookingserver/cloudlog"
)

// AdminLoginPath is the admin portal's sign-in page.
const AdminLoginPath = "/admin/login"

// Admin checks only the admin session; the Firebase user session plays no part.
type Admin struct {
	Sessions adminsession.Checker
}

// Decide implements Guard.
func (g *Admin) Decide(r *http.Request) Decision {
	token := adminsession.TokenFrom(r)
	sess, err := g.Sessions.Check(token)
	switch {
	case errors.Is(err, adminsession.ErrExpired):
		log.Printf("admin session expired, clearing")
		d := redirect(AdminLoginPath, http.StatusUnauthorized)
		d.Cookies = append(d.Cookies, adminsession.ExpiredCookie())
		return d
	case err != nil:
		return redirect(AdminLoginPath, http.StatusUnauthorized)
	case !sess.IsAdmin:
		return redirect(AdminLoginPath, http.StatusForbidden)
	}
	return authorize(adminsession.WithSession(r.Context(), sess))
}
