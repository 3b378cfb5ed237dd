package guard

import (
	"net/http"
	"strings"

	"bookingserver/session"
)

// HostOnboardingPath is where signed-in users without a host profile are sent.
const HostOnboardingPath = "/host/onboarding"

// Paths under these prefixes stay reachable for non-hosts; they are how one becomes a host.
var onboardingPrefixes = []string{
	"/host/onboarding",
	"/host/register",
	"/host/verify-email",
}

// Host only lets hosts through, apart from the onboarding pages.
type Host struct {
	Auth  Identifier
	Roles RoleResolver
}

// Decide implements Guard.
func (g *Host) Decide(r *http.Request) Decision {
	id, d := identify(g.Auth, r)
	if d != nil {
		return *d
	}
	ctx := session.WithIdentity(r.Context(), id)
	if isOnboarding(r.URL.Path) {
		return authorize(ctx)
	}

	res, err := g.Roles.Resolve(r.Context(), id)
	if err != nil {
		return fail(err)
	}
	if !res.IsHost() {
		return redirect(HostOnboardingPath, http.StatusForbidden)
	}
	return authorize(session.WithResolution(ctx, res))
}

func isOnboarding(path string) bool {
	for _, prefix := range onboardingPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
