package backend

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Family identifies one backend service.
type Family string

const (
	FamilyAuth     Family = "auth"
	FamilyCatalog  Family = "catalog"
	FamilyVenue    Family = "venue"
	FamilySchedule Family = "schedule"
	FamilyUsers    Family = "users"
)

// Families lists every backend family in a stable order.
var Families = []Family{FamilyAuth, FamilyCatalog, FamilyVenue, FamilySchedule, FamilyUsers}

// ErrUnknownFamily is returned when no client is configured for a family.
var ErrUnknownFamily = errors.New("unknown backend family")

// Config holds the base URL of every backend family.
type Config struct {
	AuthURL     string
	CatalogURL  string
	VenueURL    string
	ScheduleURL string
	UsersURL    string

	// Timeout applied to each backend call, zero leaves it to the transport.
	Timeout time.Duration

	// Transport shared by all clients, nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

func (c Config) urls() map[Family]string {
	return map[Family]string{
		FamilyAuth:     c.AuthURL,
		FamilyCatalog:  c.CatalogURL,
		FamilyVenue:    c.VenueURL,
		FamilySchedule: c.ScheduleURL,
		FamilyUsers:    c.UsersURL,
	}
}

// Registry maps each family to its client.
type Registry struct {
	clients map[Family]*Client
}

// NewRegistry creates one client per family from cfg.
func NewRegistry(cfg Config) (*Registry, error) {
	urls := cfg.urls()
	clients := make(map[Family]*Client, len(Families))

	for _, family := range Families {
		client, err := NewClient(family, urls[family], cfg.Transport, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to configure backends: %w", err)
		}
		clients[family] = client
	}

	return &Registry{clients: clients}, nil
}

// Client returns the client for family.
func (r *Registry) Client(family Family) (*Client, error) {
	client, ok := r.clients[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	return client, nil
}
