package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/cineadmin/cmd/cli/internal/credentials"
	"github.com/wolfeidau/cineadmin/internal/client"
	"github.com/wolfeidau/cineadmin/internal/guard"
	"github.com/wolfeidau/cineadmin/internal/session"
)

// ErrNotLoggedIn is returned by protected commands without a valid session.
var ErrNotLoggedIn = errors.New("not logged in, run: cineadmin login")

type Globals struct {
	Dev       bool
	Version   string
	Server    string
	ConfigDir string
	CacheDir  string

	// Out receives command output, nil writes to stdout.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// open loads the stored session for the configured server and a client that
// sends its token.
func (g *Globals) open() (*credentials.Store, *session.Store, *client.Client, error) {
	creds, err := credentials.NewStore(g.ConfigDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	store, err := creds.Open(g.Server)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	cfg := client.DefaultConfig()
	cfg.ServerURL = g.Server
	cfg.CacheDir = g.CacheDir

	api, err := client.New(cfg, store)
	if err != nil {
		return nil, nil, nil, err
	}

	return creds, store, api, nil
}

// authenticated runs the session guard before a protected command. A rejected
// session is cleared locally and the command does not run.
func (g *Globals) authenticated(ctx context.Context) (*client.Client, error) {
	creds, store, api, err := g.open()
	if err != nil {
		return nil, err
	}

	if _, err := guard.New(api.WhoAmI, nil).Check(ctx, store); err != nil {
		if errors.Is(err, client.ErrNotAuthenticated) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}

	// keep the refreshed profile
	if err := creds.Persist(g.Server, store); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return api, nil
}

func (g *Globals) printJSON(data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	enc := json.NewEncoder(g.out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
