package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/evanherd/spotsync/internal/server"
	"github.com/evanherd/spotsync/internal/services"
	"github.com/evanherd/spotsync/internal/shared"
)

const authTimeout = 2 * time.Minute

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthLogin,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the authenticated account",
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin runs the authorization-code flow: it starts a loopback
// callback server, sends the user to the consent page, and stores the
// resulting token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set client_id and client_secret in config.toml or SPOTIFY_ID/SPOTIFY_SECRET", shared.ErrMissingCredentials)
	}

	auth := services.NewAuthenticator(r.config)
	state := shared.GenerateID()

	handler := server.NewOAuthHandler(auth, state)
	callback, err := server.NewCallbackServer(creds.RedirectURI, handler)
	if err != nil {
		return err
	}

	callback.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := callback.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("callback server shutdown failed", "error", err)
		}
	}()

	authURL := auth.AuthURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n", authURL)
	} else {
		r.logger.Info("opening browser for authorization")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open this URL in your browser:\n%s\n", authURL)
		}
	}

	select {
	case result := <-callback.Result():
		if result.Error() != nil {
			return fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
		}

		if err := shared.SaveToken(creds.TokenPath, result.Token); err != nil {
			return err
		}

		r.logger.Info("token saved", "path", creds.TokenPath)
		return r.writePlain("✓ Authentication successful\n")
	case <-time.After(authTimeout):
		return fmt.Errorf("%w: no callback received within %v", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthStatus reports whether a token is stored and which account it
// belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	me, err := catalog.Me(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	r.writePlain("✓ Authenticated\n")
	r.writePlain("Account: %s", me.ID)
	if me.DisplayName != "" {
		r.writePlain(" (%s)", me.DisplayName)
	}
	return r.writePlain("\n")
}
