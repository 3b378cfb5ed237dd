package hub

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	log "bookingserver/cloudlog"
	"bookingserver/session"
	"bookingserver/web"

	"github.com/gorilla/websocket"
)

// Connector upgrades conversation requests to websockets and runs a Hub for each.
type Connector struct {
	// ctx ends every hub when the server shuts down.
	ctx      context.Context
	deps     Deps
	origins  map[string]bool
	upgrader websocket.Upgrader
}

// NewConnector returns a Connector. Browsers may connect from the server's own host and from
// allowedOrigins.
func NewConnector(ctx context.Context, deps Deps, allowedOrigins []string) *Connector {
	hc := &Connector{
		ctx:     ctx,
		deps:    deps,
		origins: map[string]bool{},
	}
	for _, origin := range allowedOrigins {
		hc.origins[strings.TrimRight(origin, "/")] = true
	}
	hc.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hc.checkOrigin,
	}
	return hc
}

func (hc *Connector) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || hc.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// ServeWs opens the conversation for id and serves it over a websocket until either side
// leaves. Failures to open are answered with a plain HTTP error before upgrading.
func (hc *Connector) ServeWs(id *session.Identity, conversationID string, w http.ResponseWriter, r *http.Request) {
	sess, err := Open(r.Context(), hc.deps, conversationID, id)
	if err != nil {
		web.Error(w, r, err)
		return
	}

	conn, err := hc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrading conversation %s for %s: %v", conversationID, id.UserID, err)
		sess.Close()
		return
	}

	client := NewClient(id.UserID, conn)
	h := newHub(hc.ctx, sess, client)
	client.Start()
	h.Run()
}
