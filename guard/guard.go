// Package guard decides whether a request may reach its handler. Every guard answers with a
// Decision; Protect turns the decision into a response. A request starts out Loading while the
// guard reads what it needs and ends in exactly one of Authorized, Redirecting or ErrorDisplayed.
package guard

import (
	"context"
	"net/http"
	"net/url"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	"bookingserver/session"
	"bookingserver/web"
)

// Outcome is the state a guarded request is in.
type Outcome int

const (
	// Loading is the state before a guard has decided.
	Loading Outcome = iota
	// Authorized lets the request through to its handler.
	Authorized
	// Redirecting sends the client to Decision.Location.
	Redirecting
	// ErrorDisplayed renders Decision.Err.
	ErrorDisplayed
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Redirecting:
		return "redirecting"
	case ErrorDisplayed:
		return "error"
	default:
		return "loading"
	}
}

// Decision is the verdict of a guard.
type Decision struct {
	Outcome Outcome

	// Location and Status are set when Redirecting. Status is what API callers receive.
	Location string
	Status   int

	// Err is set when ErrorDisplayed.
	Err error

	// Context replaces the request context when Authorized; it carries what the guard learned.
	Context context.Context

	// Cookies are written before the response whatever the outcome.
	Cookies []*http.Cookie
}

func authorize(ctx context.Context) Decision {
	return Decision{Outcome: Authorized, Context: ctx}
}

func redirect(location string, status int) Decision {
	return Decision{Outcome: Redirecting, Location: location, Status: status}
}

func fail(err error) Decision {
	return Decision{Outcome: ErrorDisplayed, Err: err}
}

// Guard is implemented by every route guard.
type Guard interface {
	Decide(r *http.Request) Decision
}

// Identifier finds the signed-in user of a request. *session.Authenticator implements it.
type Identifier interface {
	Identify(r *http.Request) (*session.Identity, error)
}

// RoleResolver classifies a signed-in user. *session.Resolver implements it.
type RoleResolver interface {
	Resolve(ctx context.Context, id *session.Identity) (session.Resolution, error)
}

// Protect wraps next with g.
func Protect(g Guard, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)
		for _, cookie := range d.Cookies {
			http.SetCookie(w, cookie)
		}
		switch d.Outcome {
		case Authorized:
			if d.Context != nil {
				r = r.WithContext(d.Context)
			}
			next.ServeHTTP(w, r)
		case Redirecting:
			web.Redirect(w, r, d.Location, d.Status)
		case ErrorDisplayed:
			web.Error(w, r, d.Err)
		default:
			log.Printf("guard left %s undecided", r.URL.Path)
			web.Error(w, r, apperr.E(apperr.AuthNotReady, "guard.Protect", "still loading"))
		}
	})
}

// LoginPath is where signed-out users are sent.
const LoginPath = "/login"

func loginLocation(r *http.Request) string {
	return LoginPath + "?redirect=" + url.QueryEscape(r.URL.RequestURI())
}

// identify runs the shared first step of the user guards.
func identify(auth Identifier, r *http.Request) (*session.Identity, *Decision) {
	id, err := auth.Identify(r)
	if err != nil {
		d := fail(err)
		return nil, &d
	}
	if id == nil {
		d := redirect(loginLocation(r), http.StatusUnauthorized)
		return nil, &d
	}
	return id, nil
}

// Verified requires a signed-in user and nothing else.
type Verified struct {
	Auth Identifier
}

// Decide implements Guard.
func (g *Verified) Decide(r *http.Request) Decision {
	id, d := identify(g.Auth, r)
	if d != nil {
		return *d
	}
	return authorize(session.WithIdentity(r.Context(), id))
}
