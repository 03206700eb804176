package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cineadmin/internal/guard"
	"github.com/wolfeidau/cineadmin/internal/models"
)

// LoginCmd exchanges credentials for a session.
type LoginCmd struct {
	Email    string `help:"Account email" required:""`
	Password string `help:"Account password" required:"" env:"CINEADMIN_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	form := models.LoginForm{Email: c.Email, Password: c.Password}
	if err := validateForm(form); err != nil {
		return err
	}

	creds, store, api, err := globals.open()
	if err != nil {
		return err
	}

	token, err := api.Login(ctx, form)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	store.SetToken(token)

	profile, err := guard.New(api.WhoAmI, nil).Check(ctx, store)
	if err != nil {
		return fmt.Errorf("login accepted but profile check failed: %w", err)
	}

	if err := creds.Persist(globals.Server, store); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintf(globals.out(), "Logged in as %s (%s)\n", profile.DisplayName(), profile.Role)
	return nil
}

// LogoutCmd forgets the local session and expires the relay cookie.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	_, store, api, err := globals.open()
	if err != nil {
		return err
	}

	if err := api.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("relay logout failed, clearing local session anyway")
	}

	if err := store.Logout(ctx); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	fmt.Fprintln(globals.out(), "Logged out")
	return nil
}

// WhoAmICmd validates the session and prints the profile.
type WhoAmICmd struct{}

func (c *WhoAmICmd) Run(ctx context.Context, globals *Globals) error {
	creds, store, api, err := globals.open()
	if err != nil {
		return err
	}

	profile, err := guard.New(api.WhoAmI, nil).Check(ctx, store)
	if err != nil {
		return ErrNotLoggedIn
	}

	if err := creds.Persist(globals.Server, store); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintf(globals.out(), "%s <%s> %s\n", profile.DisplayName(), profile.Email, profile.Role)
	return nil
}

// RegisterCmd creates an account.
type RegisterCmd struct {
	FirstName string `help:"First name" required:""`
	LastName  string `help:"Last name" required:""`
	Email     string `help:"Account email" required:""`
	Password  string `help:"Account password" required:"" env:"CINEADMIN_PASSWORD"`
}

func (c *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	form := models.RegisterForm{FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Password: c.Password}
	if err := validateForm(form); err != nil {
		return err
	}

	_, _, api, err := globals.open()
	if err != nil {
		return err
	}

	data, err := api.Do(ctx, http.MethodPost, "/api/auth/register", nil, form)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	return globals.printJSON(data)
}

// ResetPasswordCmd drives the password reset flow.
type ResetPasswordCmd struct {
	Request ResetPasswordRequestCmd `cmd:"" help:"Email a password reset token"`
	Confirm ResetPasswordConfirmCmd `cmd:"" help:"Set a new password with a reset token"`
}

type ResetPasswordRequestCmd struct {
	Email string `help:"Account email" required:""`
}

func (c *ResetPasswordRequestCmd) Run(ctx context.Context, globals *Globals) error {
	form := models.ResetPasswordForm{Email: c.Email}
	if err := validateForm(form); err != nil {
		return err
	}

	_, _, api, err := globals.open()
	if err != nil {
		return err
	}

	data, err := api.Do(ctx, http.MethodPost, "/api/auth/reset-password/request", nil, form)
	if err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}

	return globals.printJSON(data)
}

type ResetPasswordConfirmCmd struct {
	Token       string `help:"Reset token from the email" required:""`
	NewPassword string `help:"New password" required:"" env:"CINEADMIN_NEW_PASSWORD"`
}

func (c *ResetPasswordConfirmCmd) Run(ctx context.Context, globals *Globals) error {
	form := models.ResetPasswordConfirmForm{Token: c.Token, NewPassword: c.NewPassword, ConfirmNewPassword: c.NewPassword}
	if err := validateForm(form); err != nil {
		return err
	}

	_, _, api, err := globals.open()
	if err != nil {
		return err
	}

	data, err := api.Do(ctx, http.MethodPost, "/api/auth/reset-password/confirm", nil, form)
	if err != nil {
		return fmt.Errorf("password reset failed: %w", err)
	}

	return globals.printJSON(data)
}
