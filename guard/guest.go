package guard

import (
	"net/http"
	"net/url"

	"bookingserver/session"
)

// HostDashboardPath is where hosts land when they open a guest page.
const HostDashboardPath = "/host/dashboard"

// DraftCookie holds a booking draft across a forced sign-in. It is a session cookie readable by
// the web app, which restores the draft after login.
const DraftCookie = "bookingDraft"

// draftParams are the query parameters that make up a booking draft.
var draftParams = []string{"listingId", "checkIn", "checkOut", "guests"}

// Guest lets guests, and signed-in users without any profile yet, through. Hosts are sent to
// their dashboard.
type Guest struct {
	Auth  Identifier
	Roles RoleResolver
}

// Decide implements Guard.
func (g *Guest) Decide(r *http.Request) Decision {
	id, d := identify(g.Auth, r)
	if d != nil {
		if d.Outcome == Redirecting {
			if cookie := draftCookie(r); cookie != nil {
				d.Cookies = append(d.Cookies, cookie)
			}
		}
		return *d
	}

	res, err := g.Roles.Resolve(r.Context(), id)
	if err != nil {
		return fail(err)
	}
	if res.IsHost() {
		return redirect(HostDashboardPath, http.StatusForbidden)
	}
	ctx := session.WithIdentity(r.Context(), id)
	return authorize(session.WithResolution(ctx, res))
}

func draftCookie(r *http.Request) *http.Cookie {
	query := r.URL.Query()
	draft := url.Values{}
	for _, key := range draftParams {
		if v := query.Get(key); v != "" {
			draft.Set(key, v)
		}
	}
	if len(draft) == 0 {
		return nil
	}
	return &http.Cookie{
		Name:     DraftCookie,
		Value:    url.QueryEscape(draft.Encode()),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}
