package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cineadmin/internal/backend"
)

// recordedCall is one request seen by a fake backend.
type recordedCall struct {
	Family        backend.Family
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Body          string
}

// fakeBackends runs one httptest server per family and records every call.
type fakeBackends struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(family backend.Family, w http.ResponseWriter, r *http.Request)
	servers map[backend.Family]*httptest.Server
}

func newFakeBackends(t *testing.T) *fakeBackends {
	t.Helper()

	fb := &fakeBackends{
		servers: make(map[backend.Family]*httptest.Server),
		respond: func(_ backend.Family, w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		},
	}

	for _, family := range backend.Families {
		family := family
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			fb.mu.Lock()
			fb.calls = append(fb.calls, recordedCall{
				Family:        family,
				Method:        r.Method,
				Path:          r.URL.Path,
				RawQuery:      r.URL.RawQuery,
				Authorization: r.Header.Get("Authorization"),
				Body:          string(body),
			})
			respond := fb.respond
			fb.mu.Unlock()
			respond(family, w, r)
		}))
		t.Cleanup(srv.Close)
		fb.servers[family] = srv
	}

	return fb
}

func (fb *fakeBackends) setResponder(fn func(family backend.Family, w http.ResponseWriter, r *http.Request)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.respond = fn
}

func (fb *fakeBackends) Calls() []recordedCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedCall(nil), fb.calls...)
}

func (fb *fakeBackends) config() backend.Config {
	return backend.Config{
		AuthURL:     fb.servers[backend.FamilyAuth].URL,
		CatalogURL:  fb.servers[backend.FamilyCatalog].URL,
		VenueURL:    fb.servers[backend.FamilyVenue].URL,
		ScheduleURL: fb.servers[backend.FamilySchedule].URL,
		UsersURL:    fb.servers[backend.FamilyUsers].URL,
	}
}

// newTestRelay mounts every endpoint on a chi router backed by fb.
func newTestRelay(t *testing.T, fb *fakeBackends) (*Forwarder, http.Handler) {
	t.Helper()

	reg, err := backend.NewRegistry(fb.config())
	require.NoError(t, err)

	f := NewForwarder(reg)
	r := chi.NewRouter()
	require.NoError(t, f.Mount(r))

	return f, r
}

// samplePath turns an endpoint pattern into a concrete request path.
func samplePath(pattern string) string {
	out := []rune{}
	skipping := false
	for _, c := range pattern {
		switch {
		case c == '{':
			skipping = true
			out = append(out, []rune("42")...)
		case c == '}':
			skipping = false
		case !skipping:
			out = append(out, c)
		}
	}
	return string(out)
}
