package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookingserver/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantRetry  bool
		wantMsg    string
	}{
		{
			name:       "not found",
			err:        apperr.E(apperr.NotFound, "booking.Get", "booking not found"),
			wantStatus: http.StatusNotFound,
			wantMsg:    "booking not found",
		},
		{
			name:       "permission denied",
			err:        apperr.E(apperr.PermissionDenied, "booking.Get", "not your booking"),
			wantStatus: http.StatusForbidden,
			wantMsg:    "not your booking",
		},
		{
			name:       "transient keeps cause private",
			err:        apperr.Wrap(apperr.TransientFetch, "session.Resolve", "failed to verify", assert.AnError),
			wantStatus: http.StatusServiceUnavailable,
			wantRetry:  true,
			wantMsg:    "failed to verify",
		},
		{
			name:       "unclassified",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantRetry:  true,
			wantMsg:    "something went wrong",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/1", nil), tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.wantMsg, body.Error)
			assert.Equal(t, tc.wantRetry, body.Retry)
			assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
		})
	}
}

func TestRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	Redirect(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil), "/host/dashboard", http.StatusForbidden)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/host/dashboard", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	Redirect(rec, httptest.NewRequest(http.MethodGet, "/api/bookings", nil), "/host/dashboard", http.StatusForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/host/dashboard", decodeBody(t, rec).Redirect)
}

func TestBoundary(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("template exploded")
	})

	cases := []struct {
		name      string
		showStack bool
	}{
		{name: "production hides stack", showStack: false},
		{name: "development shows stack", showStack: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Boundary(tc.showStack, panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, []string{ActionRetry, ActionReload, ActionHome, ActionBack}, body.Actions)
			assert.False(t, body.Retry)
			assert.Equal(t, tc.showStack, strings.Contains(body.Stack, "template exploded"))
		})
	}

	rec := httptest.NewRecorder()
	Boundary(false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBoundaryAfterResponseStarted(t *testing.T) {
	rec := httptest.NewRecorder()
	Boundary(true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		panic("late failure")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestBoundaryKeepsHijacker(t *testing.T) {
	var hijackable bool
	Boundary(false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hijackable = w.(http.Hijacker)
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws/conversations/C1", nil))
	assert.True(t, hijackable)
}

func TestPages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<app>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))
	h := Pages(dir)

	for path, want := range map[string]string{
		"/":           "<app>",
		"/favorites":  "<app>",
		"/bookings/7": "<app>",
		"/app.js":     "console.log(1)",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}
}
