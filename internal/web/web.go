// Package web renders the two server side pages: the login form and the
// guarded dashboard shell.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cineadmin/internal/guard"
	httpmiddleware "github.com/wolfeidau/cineadmin/internal/http"
	"github.com/wolfeidau/cineadmin/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages renders the HTML pages.
type Pages struct {
	templates *template.Template
	home      string
}

type loginData struct {
	Title string
	Next  string
}

type dashboardData struct {
	Title   string
	Profile *models.Profile
}

// New parses the embedded templates. home is where a successful login lands.
func New(home string) (*Pages, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Pages{templates: t, home: home}, nil
}

// Login renders the login form.
func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "login.html", loginData{Title: "Login", Next: p.home})
}

// Dashboard renders the dashboard for the profile placed in the request
// context by the guard. Without one it renders nothing.
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	profile, ok := guard.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	p.render(w, r, "dashboard.html", dashboardData{Title: "Dashboard", Profile: profile})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	httpmiddleware.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
