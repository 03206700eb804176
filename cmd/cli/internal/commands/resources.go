package commands

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfeidau/cineadmin/internal/models"
)

func resourcePath(collection, id string, suffix ...string) string {
	p := "/api/" + collection + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// call runs one relay request behind the session guard and prints the result.
func (g *Globals) call(ctx context.Context, method, path string, query url.Values, body any) error {
	api, err := g.authenticated(ctx)
	if err != nil {
		return err
	}

	data, err := api.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	return g.printJSON(data)
}

// MoviesCmd manages the movie catalog.
type MoviesCmd struct {
	List   MoviesListCmd   `cmd:"" help:"List movies, newest release first"`
	Create MoviesCreateCmd `cmd:"" help:"Create a movie from a YAML or JSON file"`
	Update MoviesUpdateCmd `cmd:"" help:"Update a movie from a YAML or JSON file"`
	Delete MoviesDeleteCmd `cmd:"" help:"Delete a movie"`
}

type MoviesListCmd struct {
	Page   int    `help:"Page number, starting at 1" default:"1"`
	Size   int    `help:"Movies per page" default:"5"`
	Search string `help:"Filter by title"`
}

func (c *MoviesListCmd) Run(ctx context.Context, globals *Globals) error {
	q := url.Values{}
	q.Set("page", strconv.Itoa(c.Page))
	q.Set("size", strconv.Itoa(c.Size))
	if c.Search != "" {
		q.Set("search", c.Search)
	}
	return globals.call(ctx, http.MethodGet, "/api/movies", q, nil)
}

type MoviesCreateCmd struct {
	File string `short:"f" help:"Movie file (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *MoviesCreateCmd) Run(ctx context.Context, globals *Globals) error {
	form, err := loadForm[models.MovieForm](c.File)
	if err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPost, "/api/movies", nil, form)
}

type MoviesUpdateCmd struct {
	ID   string `arg:"" help:"Movie ID"`
	File string `short:"f" help:"Movie file (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *MoviesUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	form, err := loadForm[models.MovieForm](c.File)
	if err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPut, resourcePath("movies", c.ID), nil, form)
}

type MoviesDeleteCmd struct {
	ID string `arg:"" help:"Movie ID"`
}

func (c *MoviesDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodDelete, resourcePath("movies", c.ID), nil, nil)
}

// GenresCmd manages movie genres.
type GenresCmd struct {
	List   GenresListCmd   `cmd:"" help:"List genres"`
	Create GenresCreateCmd `cmd:"" help:"Create a genre"`
	Update GenresUpdateCmd `cmd:"" help:"Rename a genre"`
	Delete GenresDeleteCmd `cmd:"" help:"Delete a genre"`
}

type GenresListCmd struct{}

func (c *GenresListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodGet, "/api/genres", nil, nil)
}

type GenresCreateCmd struct {
	Name string `arg:"" help:"Genre name"`
}

func (c *GenresCreateCmd) Run(ctx context.Context, globals *Globals) error {
	form := models.GenreForm{Name: c.Name}
	if err := validateForm(form); err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPost, "/api/genres", nil, form)
}

type GenresUpdateCmd struct {
	ID   string `arg:"" help:"Genre ID"`
	Name string `arg:"" help:"New genre name"`
}

func (c *GenresUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	form := models.GenreForm{Name: c.Name}
	if err := validateForm(form); err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPut, resourcePath("genres", c.ID), nil, form)
}

type GenresDeleteCmd struct {
	ID string `arg:"" help:"Genre ID"`
}

func (c *GenresDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodDelete, resourcePath("genres", c.ID), nil, nil)
}

// CinemasCmd manages cinemas and their rooms.
type CinemasCmd struct {
	List   CinemasListCmd   `cmd:"" help:"List cinemas"`
	Get    CinemasGetCmd    `cmd:"" help:"Show a cinema"`
	Create CinemasCreateCmd `cmd:"" help:"Create a cinema from a YAML or JSON file"`
	Update CinemasUpdateCmd `cmd:"" help:"Update a cinema from a YAML or JSON file"`
	Delete CinemasDeleteCmd `cmd:"" help:"Delete a cinema"`
}

type CinemasListCmd struct{}

func (c *CinemasListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodGet, "/api/cinemas", nil, nil)
}

type CinemasGetCmd struct {
	ID string `arg:"" help:"Cinema ID"`
}

func (c *CinemasGetCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodGet, resourcePath("cinemas", c.ID), nil, nil)
}

type CinemasCreateCmd struct {
	File string `short:"f" help:"Cinema file (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *CinemasCreateCmd) Run(ctx context.Context, globals *Globals) error {
	doc, err := loadDocument(c.File)
	if err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPost, "/api/cinemas", nil, doc)
}

type CinemasUpdateCmd struct {
	ID   string `arg:"" help:"Cinema ID"`
	File string `short:"f" help:"Cinema file (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *CinemasUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	doc, err := loadDocument(c.File)
	if err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPut, resourcePath("cinemas", c.ID), nil, doc)
}

type CinemasDeleteCmd struct {
	ID string `arg:"" help:"Cinema ID"`
}

func (c *CinemasDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodDelete, resourcePath("cinemas", c.ID), nil, nil)
}

// ScheduleCmd manages showtimes.
type ScheduleCmd struct {
	List      ScheduleListCmd      `cmd:"" help:"List all showtimes"`
	Create    ScheduleCreateCmd    `cmd:"" help:"Create a showtime from a YAML or JSON file"`
	Update    ScheduleUpdateCmd    `cmd:"" help:"Update a showtime from a YAML or JSON file"`
	Delete    ScheduleDeleteCmd    `cmd:"" help:"Delete a showtime"`
	Publish   SchedulePublishCmd   `cmd:"" help:"Publish a showtime"`
	Unpublish ScheduleUnpublishCmd `cmd:"" help:"Unpublish a showtime"`
}

type ScheduleListCmd struct{}

func (c *ScheduleListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodGet, "/api/schedule/all", nil, nil)
}

type ScheduleCreateCmd struct {
	File string `short:"f" help:"Showtime file (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *ScheduleCreateCmd) Run(ctx context.Context, globals *Globals) error {
	doc, err := loadDocument(c.File)
	if err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPost, "/api/schedule", nil, doc)
}

type ScheduleUpdateCmd struct {
	ID   string `arg:"" help:"Showtime ID"`
	File string `short:"f" help:"Showtime file (YAML or JSON)" required:"" type:"existingfile"`
}

func (c *ScheduleUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	doc, err := loadDocument(c.File)
	if err != nil {
		return err
	}
	return globals.call(ctx, http.MethodPut, resourcePath("schedule", c.ID), nil, doc)
}

type ScheduleDeleteCmd struct {
	ID string `arg:"" help:"Showtime ID"`
}

func (c *ScheduleDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodDelete, resourcePath("schedule", c.ID), nil, nil)
}

type SchedulePublishCmd struct {
	ID string `arg:"" help:"Showtime ID"`
}

func (c *SchedulePublishCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodPost, resourcePath("schedule", c.ID, "publish"), nil, nil)
}

type ScheduleUnpublishCmd struct {
	ID string `arg:"" help:"Showtime ID"`
}

func (c *ScheduleUnpublishCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodPost, resourcePath("schedule", c.ID, "unpublish"), nil, nil)
}

// UsersCmd manages user accounts.
type UsersCmd struct {
	List   UsersListCmd   `cmd:"" help:"List users"`
	Delete UsersDeleteCmd `cmd:"" help:"Delete a user"`
}

type UsersListCmd struct{}

func (c *UsersListCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodGet, "/api/users", nil, nil)
}

type UsersDeleteCmd struct {
	ID string `arg:"" help:"User ID"`
}

func (c *UsersDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	return globals.call(ctx, http.MethodDelete, resourcePath("users", c.ID), nil, nil)
}
