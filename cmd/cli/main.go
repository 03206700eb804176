package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cineadmin/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login         commands.LoginCmd         `cmd:"" help:"Log in and store the session"`
		Logout        commands.LogoutCmd        `cmd:"" help:"Log out and forget the session"`
		WhoAmI        commands.WhoAmICmd        `cmd:"" name:"whoami" help:"Show the logged in user"`
		Register      commands.RegisterCmd      `cmd:"" help:"Create an account"`
		ResetPassword commands.ResetPasswordCmd `cmd:"" name:"reset-password" help:"Reset a forgotten password"`
		Movies        commands.MoviesCmd        `cmd:"" help:"Manage movies"`
		Genres        commands.GenresCmd        `cmd:"" help:"Manage genres"`
		Cinemas       commands.CinemasCmd       `cmd:"" help:"Manage cinemas"`
		Schedule      commands.ScheduleCmd      `cmd:"" help:"Manage showtimes"`
		Users         commands.UsersCmd         `cmd:"" help:"Manage users"`

		Server    string `help:"Admin relay URL" default:"https://localhost:8443" env:"CINEADMIN_SERVER"`
		ConfigDir string `help:"Session directory (default: ~/.cineadmin/)" env:"CINEADMIN_CONFIG_DIR"`
		CacheDir  string `help:"HTTP cache directory, empty caches in memory" env:"CINEADMIN_CACHE_DIR"`
		Debug     bool   `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	// A missing .env is fine, flags and the environment still apply.
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("cineadmin"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	level := zerolog.WarnLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	err := cmd.Run(&commands.Globals{
		Dev:       cli.Debug,
		Version:   version,
		Server:    cli.Server,
		ConfigDir: cli.ConfigDir,
		CacheDir:  cli.CacheDir,
	})
	cmd.FatalIfErrorf(err)
}
