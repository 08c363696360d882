package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

func TestNewCallbackServer(t *testing.T) {
	handler := NewOAuthHandler(spotifyauth.New(), "state123")

	t.Run("Parses Redirect URI", func(t *testing.T) {
		srv, err := NewCallbackServer("http://localhost:8888/callback", handler)
		if err != nil {
			t.Fatalf("failed to build server: %v", err)
		}
		if srv.httpServer.Addr != "localhost:8888" {
			t.Errorf("unexpected address %q", srv.httpServer.Addr)
		}
	})

	t.Run("Invalid URI Fails", func(t *testing.T) {
		if _, err := NewCallbackServer("://not-a-uri", handler); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	t.Run("State Mismatch Rejected", func(t *testing.T) {
		handler := NewOAuthHandler(spotifyauth.New(), "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected an error result")
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		handler := NewOAuthHandler(spotifyauth.New(), "expected-state")

		for i, want := range []int{http.StatusForbidden, http.StatusBadRequest} {
			req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != want {
				t.Errorf("request %d: expected %d, got %d", i, want, rec.Code)
			}
		}
	})
}
