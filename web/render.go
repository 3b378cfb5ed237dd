// Package web renders responses the same way for every handler: JSON bodies, the error
// taxonomy, redirects that work for both page loads and API calls, the route boundary and the
// single-page app shell.
package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
)

// Recovery actions offered with an error.
const (
	ActionRetry  = "retry"
	ActionReload = "reload"
	ActionHome   = "home"
	ActionBack   = "back"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind"`
	Retry    bool     `json:"retry"`
	Actions  []string `json:"actions,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
	Stack    string   `json:"stack,omitempty"`
}

var statusForKind = map[apperr.Kind]int{
	apperr.AuthNotReady:     http.StatusServiceUnavailable,
	apperr.NotFound:         http.StatusNotFound,
	apperr.PermissionDenied: http.StatusForbidden,
	apperr.TransientFetch:   http.StatusServiceUnavailable,
	apperr.Render:           http.StatusInternalServerError,
	apperr.InvalidInput:     http.StatusBadRequest,
	apperr.Conflict:         http.StatusConflict,
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	if code, ok := statusForKind[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func actionsFor(kind apperr.Kind) []string {
	switch kind {
	case apperr.NotFound, apperr.PermissionDenied:
		return []string{ActionHome, ActionBack}
	case apperr.InvalidInput, apperr.Conflict:
		return []string{ActionBack}
	default:
		return []string{ActionRetry, ActionHome}
	}
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing response: %v", err)
	}
}

// Error writes err as an ErrorBody. Only the user-facing message of classified errors is sent.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	if kind.Retryable() {
		w.Header().Set("Retry-After", "1")
	}
	JSON(w, status, ErrorBody{
		Error:   apperr.Message(err),
		Kind:    kind.String(),
		Retry:   kind.Retryable(),
		Actions: actionsFor(kind),
	})
}

// IsAPI reports whether the request is for a JSON endpoint rather than a page.
func IsAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/")
}

// Redirect sends page loads to location with a 302. API calls get the location in a JSON body
// with status instead, since fetch would follow the redirect silently.
func Redirect(w http.ResponseWriter, r *http.Request, location string, status int) {
	if IsAPI(r) {
		JSON(w, status, ErrorBody{
			Error:    http.StatusText(status),
			Kind:     "redirect",
			Redirect: location,
		})
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "web.DecodeJSON", "malformed request body", err)
	}
	return nil
}
