package web

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
)

// Boundary recovers a panic anywhere below it and ends the route with a Render error offering
// retry, reload, home and back. Nothing is retried automatically. The stack trace is only
// included in the response when showStack is set. A panic after the response has started (or
// after a websocket took over the connection) is only logged.
func Boundary(showStack bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, stack)
			if tw.started {
				return
			}

			err := apperr.E(apperr.Render, r.URL.Path, "this page failed to load")
			body := ErrorBody{
				Error:   apperr.Message(err),
				Kind:    apperr.Render.String(),
				Actions: []string{ActionRetry, ActionReload, ActionHome, ActionBack},
			}
			if showStack {
				body.Stack = fmt.Sprintf("%v\n%s", rec, stack)
			}
			JSON(w, http.StatusInternalServerError, body)
		}()
		next.ServeHTTP(tw, r)
	})
}

// trackingWriter notes whether the response has started.
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (tw *trackingWriter) WriteHeader(status int) {
	tw.started = true
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.started = true
	return tw.ResponseWriter.Write(b)
}

func (tw *trackingWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		tw.started = true
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take the connection.
func (tw *trackingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := tw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	tw.started = true
	return h.Hijack()
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
