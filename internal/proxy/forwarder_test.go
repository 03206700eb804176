package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cineadmin/internal/backend"
	"github.com/wolfeidau/cineadmin/internal/models"
	"github.com/wolfeidau/cineadmin/internal/session"
)

func TestRelay_protectedEndpointsRejectWithoutCredential(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	for _, ep := range Endpoints {
		if ep.Route.Public {
			continue
		}
		t.Run(ep.Method+" "+ep.Pattern, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(ep.Method, samplePath(ep.Pattern), strings.NewReader(`{"name":"x"}`))
			relay.ServeHTTP(w, r)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.JSONEq(t, `{"message":"Not authenticated"}`, w.Body.String())
		})
	}

	require.Empty(t, fb.Calls(), "no backend may be called without a credential")
}

func TestRelay_protectedEndpointsForwardBearer(t *testing.T) {
	tests := []struct {
		name   string
		attach func(r *http.Request)
	}{
		{
			name: "cookie",
			attach: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "tok-123"})
			},
		},
		{
			name: "authorization header",
			attach: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok-123")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, ep := range Endpoints {
				if ep.Route.Public {
					continue
				}

				fb := newFakeBackends(t)
				_, relay := newTestRelay(t, fb)

				w := httptest.NewRecorder()
				r := httptest.NewRequest(ep.Method, samplePath(ep.Pattern), strings.NewReader(`{"name":"x"}`))
				tt.attach(r)
				relay.ServeHTTP(w, r)

				require.Equal(t, http.StatusOK, w.Code, "%s %s", ep.Method, ep.Pattern)

				calls := fb.Calls()
				require.Len(t, calls, 1, "%s %s", ep.Method, ep.Pattern)
				assert.Equal(t, "Bearer tok-123", calls[0].Authorization)
				assert.Equal(t, ep.Route.Family, calls[0].Family)
				assert.Equal(t, ep.Route.Method, calls[0].Method)
				assert.Equal(t, samplePath(ep.Route.Path), calls[0].Path)
			}
		})
	}
}

func TestRelay_cookiePreferredOverHeader(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodGet, "/api/genres", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "from-cookie"})
	r.Header.Set("Authorization", "Bearer from-header")
	relay.ServeHTTP(httptest.NewRecorder(), r)

	calls := fb.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer from-cookie", calls[0].Authorization)
}

func TestRelay_publicEndpointsDoNotAttachCredential(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"a@b.c"}`))
	r.Header.Set("Authorization", "Bearer stale")
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	calls := fb.Calls()
	require.Len(t, calls, 1)
	require.Empty(t, calls[0].Authorization)
	require.Equal(t, "/auth/register", calls[0].Path)
	require.Equal(t, `{"email":"a@b.c"}`, calls[0].Body)
}

func TestRelay_bodyPassedThroughUntransformed(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	body := `{"title":"Metropolis","genres":["sf"],  "extra": {"kept": true}}`
	r := httptest.NewRequest(http.MethodPut, "/api/movies/m-1", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer t")
	relay.ServeHTTP(httptest.NewRecorder(), r)

	calls := fb.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, body, calls[0].Body)
	require.Equal(t, "/movies/m-1", calls[0].Path)
}

func TestRelay_publishSendsEmptyObject(t *testing.T) {
	fb := newFakeBackends(t)
	fb.setResponder(func(_ backend.Family, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodPost, "/api/schedule/st-9/publish", nil)
	r.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Schedule published"}`, w.Body.String())

	calls := fb.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/schedule/st-9/publish", calls[0].Path)
	require.Equal(t, "{}", calls[0].Body)
}

func TestRelay_relaysPayloadAndStatus(t *testing.T) {
	fb := newFakeBackends(t)
	fb.setResponder(func(_ backend.Family, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"genreId":"g-1","name":"Noir"}`))
	})
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodPost, "/api/genres", strings.NewReader(`{"name":"Noir"}`))
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "t"})
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, `{"genreId":"g-1","name":"Noir"}`, w.Body.String())
}

func TestRelay_getResponsesAreRevalidated(t *testing.T) {
	fb := newFakeBackends(t)
	fb.setResponder(func(_ backend.Family, w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"u-1","email":"ada@x.com"}]`))
	})
	_, relay := newTestRelay(t, fb)

	get := func(ifNoneMatch string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		r.Header.Set("Authorization", "Bearer t")
		if ifNoneMatch != "" {
			r.Header.Set("If-None-Match", ifNoneMatch)
		}
		w := httptest.NewRecorder()
		relay.ServeHTTP(w, r)
		return w
	}

	first := get("")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "private, no-cache", first.Header().Get("Cache-Control"))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Contains(t, first.Header().Values("Vary"), "Authorization")

	second := get(etag)
	require.Equal(t, http.StatusNotModified, second.Code)
	require.Empty(t, second.Body.String())

	stale := get(`"something-else"`)
	require.Equal(t, http.StatusOK, stale.Code)
	require.Equal(t, etag, stale.Header().Get("ETag"))

	// revalidation still asks the backend every time
	require.Len(t, fb.Calls(), 3)
}

func TestRelay_writesAreNotMarkedCacheable(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodPost, "/api/genres", strings.NewReader(`{"name":"Noir"}`))
	r.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("ETag"))
}

func TestRelay_emptyBackendBodyUsesFallbackMessage(t *testing.T) {
	fb := newFakeBackends(t)
	fb.setResponder(func(_ backend.Family, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodDelete, "/api/genres/g-1", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "t"})
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Genre deleted"}`, w.Body.String())
}

func TestRelay_backendFailuresBecomeGenericServerError(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter)
	}{
		{
			name: "malformed json",
			respond: func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"content": [{"title": "Metropolis"`))
			},
		},
		{
			name: "backend 404",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"secret internal detail"}`))
			},
		},
		{
			name: "backend 401",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "backend 503",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackends(t)
			fb.setResponder(func(_ backend.Family, w http.ResponseWriter, _ *http.Request) {
				tt.respond(w)
			})
			_, relay := newTestRelay(t, fb)

			r := httptest.NewRequest(http.MethodGet, "/api/movies", nil)
			r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "t"})
			w := httptest.NewRecorder()
			relay.ServeHTTP(w, r)

			require.Equal(t, http.StatusInternalServerError, w.Code)
			require.JSONEq(t, `{"message":"Server error"}`, w.Body.String())
			require.NotContains(t, w.Body.String(), "secret")
			require.Len(t, fb.Calls(), 1, "no retries")
		})
	}
}

func TestRelay_backendUnreachable(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)
	fb.servers[backend.FamilyUsers].Close()

	r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	r.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"message":"Server error"}`, w.Body.String())
}

func TestRelay_moviesPagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantQuery string
	}{
		{name: "page 1", query: "?page=1", wantQuery: "direction=desc&page=0&size=5&sortBy=releaseDate"},
		{name: "page 3 with size", query: "?page=3&size=20", wantQuery: "direction=desc&page=2&size=20&sortBy=releaseDate"},
		{name: "page 0", query: "?page=0", wantQuery: "direction=desc&page=0&size=5&sortBy=releaseDate"},
		{name: "absent", query: "", wantQuery: "direction=desc&page=0&size=5&sortBy=releaseDate"},
		{name: "non-numeric", query: "?page=abc", wantQuery: "direction=desc&page=0&size=5&sortBy=releaseDate"},
		{name: "negative", query: "?page=-4", wantQuery: "direction=desc&page=0&size=5&sortBy=releaseDate"},
		{name: "search", query: "?page=2&search=blade+runner", wantQuery: "direction=desc&page=1&size=5&sortBy=releaseDate&title=blade+runner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackends(t)
			_, relay := newTestRelay(t, fb)

			r := httptest.NewRequest(http.MethodGet, "/api/movies"+tt.query, nil)
			r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "t"})
			relay.ServeHTTP(httptest.NewRecorder(), r)

			calls := fb.Calls()
			require.Len(t, calls, 1)
			require.Equal(t, "/movies", calls[0].Path)
			require.Equal(t, tt.wantQuery, calls[0].RawQuery)
		})
	}
}

func TestRelay_queryPassedThrough(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodGet, "/api/cinemas?city=Lyon", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "t"})
	relay.ServeHTTP(httptest.NewRecorder(), r)

	calls := fb.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "city=Lyon", calls[0].RawQuery)
}

func TestRelay_rejectsTraversalIdentifiers(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	r := httptest.NewRequest(http.MethodDelete, "/api/genres/..", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "t"})
	w := httptest.NewRecorder()
	relay.ServeHTTP(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, fb.Calls())
}

func TestRelay_repeatedGetDoesNotMutateSession(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	store := session.NewStore()
	store.SetToken("tok")
	store.SetProfile(models.Profile{FirstName: "Ada", Role: models.RoleAdmin})
	before := store.Snapshot()

	for i := 0; i < 3; i++ {
		token, _ := store.Token()
		r := httptest.NewRequest(http.MethodGet, "/api/movies?page=1&size=10", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		relay.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Equal(t, before, store.Snapshot())

	calls := fb.Calls()
	require.Len(t, calls, 3)
	for _, c := range calls {
		require.Equal(t, calls[0], c)
	}
}

func TestRelay_afterLogoutRequestsAreRejected(t *testing.T) {
	fb := newFakeBackends(t)
	_, relay := newTestRelay(t, fb)

	store := session.NewStore()
	store.SetToken("tok")
	require.NoError(t, store.Logout(context.Background()))

	for _, path := range []string{"/api/movies", "/api/genres", "/api/cinemas", "/api/schedule/all", "/api/users"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		if token, ok := store.Token(); ok {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		relay.ServeHTTP(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	require.Empty(t, fb.Calls())
}

func TestForwarder_WhoAmI(t *testing.T) {
	fb := newFakeBackends(t)
	fb.setResponder(func(family backend.Family, w http.ResponseWriter, r *http.Request) {
		if family != backend.FamilyAuth || r.URL.Path != "/user/user-profile" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"firstName":"Ada","lastName":"Lovelace","email":"ada@x.com","role":"ADMIN"}`))
	})
	f, _ := newTestRelay(t, fb)

	profile, err := f.WhoAmI(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, &models.Profile{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com", Role: "ADMIN"}, profile)
	require.Equal(t, "Bearer tok", fb.Calls()[0].Authorization)

	_, err = f.WhoAmI(context.Background(), "")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Len(t, fb.Calls(), 1)
}
