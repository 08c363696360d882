package services

import (
	"context"
	"net/http"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/evanherd/spotsync/internal/shared"
)

// NewAuthenticator builds the OAuth authenticator with the scopes the
// sync pipeline and the playlist builder need.
func NewAuthenticator(cfg *shared.Config) *spotifyauth.Authenticator {
	creds := cfg.Credentials.Spotify

	return spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithRedirectURL(creds.RedirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
		),
	)
}

// NewAuthenticatedClient exchanges a stored token for an HTTP client
// that refreshes itself.
func NewAuthenticatedClient(ctx context.Context, cfg *shared.Config, token *oauth2.Token) *http.Client {
	return NewAuthenticator(cfg).Client(ctx, token)
}
