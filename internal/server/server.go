package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CallbackServer hosts the OAuth handler on the redirect URI's host
// and port for the duration of one authorization flow.
type CallbackServer struct {
	httpServer *http.Server
	handler    *OAuthHandler
}

// NewCallbackServer builds a server listening on the address the
// redirect URI names, serving its path.
func NewCallbackServer(redirectURI string, handler *OAuthHandler) (*CallbackServer, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri %q: %w", redirectURI, err)
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	return &CallbackServer{
		httpServer: &http.Server{
			Addr:              parsed.Host,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		handler: handler,
	}, nil
}

// Start serves in the background until Shutdown.
func (s *CallbackServer) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.handler.Send(OAuthResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()
}

// Shutdown stops the listener.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Result exposes the handler's result channel.
func (s *CallbackServer) Result() <-chan OAuthResult {
	return s.handler.Result()
}
