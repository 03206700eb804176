package proxy

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfeidau/cineadmin/internal/backend"
)

// Endpoint binds an inbound method and pattern to a Route.
type Endpoint struct {
	Method  string
	Pattern string
	Route   Route
}

var emptyObject = []byte("{}")

// Endpoints is the relay's route table. Login and logout are served by the
// login package because they manage the cookie themselves.
var Endpoints = []Endpoint{
	// auth
	{http.MethodPost, "/api/auth/register", Route{Family: backend.FamilyAuth, Method: http.MethodPost, Path: "/auth/register", Public: true}},
	{http.MethodPost, "/api/auth/reset-password/request", Route{Family: backend.FamilyAuth, Method: http.MethodPost, Path: "/auth/reset-password/request", Public: true}},
	{http.MethodPost, "/api/auth/reset-password/confirm", Route{Family: backend.FamilyAuth, Method: http.MethodPost, Path: "/auth/reset-password/confirm", Public: true}},
	{http.MethodGet, "/api/user/user-profile", Route{Family: backend.FamilyAuth, Method: http.MethodGet, Path: profilePath}},

	// catalog: movies
	{http.MethodGet, "/api/movies", Route{Family: backend.FamilyCatalog, Method: http.MethodGet, Path: "/movies", Query: MoviesQuery}},
	{http.MethodPost, "/api/movies", Route{Family: backend.FamilyCatalog, Method: http.MethodPost, Path: "/movies"}},
	{http.MethodPut, "/api/movies/{id}", Route{Family: backend.FamilyCatalog, Method: http.MethodPut, Path: "/movies/{id}"}},
	{http.MethodDelete, "/api/movies/{id}", Route{Family: backend.FamilyCatalog, Method: http.MethodDelete, Path: "/movies/{id}", EmptyMessage: "Movie deleted"}},

	// catalog: genres
	{http.MethodGet, "/api/genres", Route{Family: backend.FamilyCatalog, Method: http.MethodGet, Path: "/genres"}},
	{http.MethodPost, "/api/genres", Route{Family: backend.FamilyCatalog, Method: http.MethodPost, Path: "/genres"}},
	{http.MethodPut, "/api/genres/{id}", Route{Family: backend.FamilyCatalog, Method: http.MethodPut, Path: "/genres/{id}"}},
	{http.MethodDelete, "/api/genres/{id}", Route{Family: backend.FamilyCatalog, Method: http.MethodDelete, Path: "/genres/{id}", EmptyMessage: "Genre deleted"}},

	// venue
	{http.MethodGet, "/api/cinemas", Route{Family: backend.FamilyVenue, Method: http.MethodGet, Path: "/cinemas"}},
	{http.MethodPost, "/api/cinemas", Route{Family: backend.FamilyVenue, Method: http.MethodPost, Path: "/cinemas"}},
	{http.MethodGet, "/api/cinemas/{id}", Route{Family: backend.FamilyVenue, Method: http.MethodGet, Path: "/cinemas/{id}"}},
	{http.MethodPut, "/api/cinemas/{id}", Route{Family: backend.FamilyVenue, Method: http.MethodPut, Path: "/cinemas/{id}"}},
	{http.MethodDelete, "/api/cinemas/{id}", Route{Family: backend.FamilyVenue, Method: http.MethodDelete, Path: "/cinemas/{id}", EmptyMessage: "Cinema deleted"}},

	// schedule
	{http.MethodGet, "/api/schedule/all", Route{Family: backend.FamilySchedule, Method: http.MethodGet, Path: "/schedule/all"}},
	{http.MethodPost, "/api/schedule", Route{Family: backend.FamilySchedule, Method: http.MethodPost, Path: "/schedule"}},
	{http.MethodPut, "/api/schedule/{id}", Route{Family: backend.FamilySchedule, Method: http.MethodPut, Path: "/schedule/{id}"}},
	{http.MethodDelete, "/api/schedule/{id}", Route{Family: backend.FamilySchedule, Method: http.MethodDelete, Path: "/schedule/{id}", EmptyMessage: "Schedule deleted"}},
	{http.MethodPost, "/api/schedule/{id}/publish", Route{Family: backend.FamilySchedule, Method: http.MethodPost, Path: "/schedule/{id}/publish", Body: emptyObject, EmptyMessage: "Schedule published"}},
	{http.MethodPost, "/api/schedule/{id}/unpublish", Route{Family: backend.FamilySchedule, Method: http.MethodPost, Path: "/schedule/{id}/unpublish", Body: emptyObject, EmptyMessage: "Schedule unpublished"}},

	// users
	{http.MethodGet, "/api/users", Route{Family: backend.FamilyUsers, Method: http.MethodGet, Path: "/users"}},
	{http.MethodDelete, "/api/users/{id}", Route{Family: backend.FamilyUsers, Method: http.MethodDelete, Path: "/users/{id}", EmptyMessage: "User deleted"}},
}

// Mount registers every endpoint on r.
func (f *Forwarder) Mount(r chi.Router) error {
	for _, ep := range Endpoints {
		h, err := f.Handler(ep.Route)
		if err != nil {
			return fmt.Errorf("failed to mount %s %s: %w", ep.Method, ep.Pattern, err)
		}
		r.Method(ep.Method, ep.Pattern, h)
	}
	return nil
}
