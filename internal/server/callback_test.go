package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCallbackHandler(t *testing.T) {
	t.Run("Captures Code And State", func(t *testing.T) {
		h := NewCallbackHandler("/callback")
		router := NewBasicRouter()
		router.Handler(h)

		srv := httptest.NewServer(router)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/callback?code=abc123&state=nonce-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		select {
		case cb := <-h.Result():
			if cb.Code != "abc123" {
				t.Errorf("expected code abc123, got %s", cb.Code)
			}
			if cb.State != "nonce-1" {
				t.Errorf("expected state nonce-1, got %s", cb.State)
			}
			if cb.Denied() {
				t.Error("expected callback to not be denied")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for callback result")
		}
	})

	t.Run("Captures Provider Denial", func(t *testing.T) {
		h := NewCallbackHandler("/callback")
		router := NewBasicRouter()
		router.Handler(h)

		srv := httptest.NewServer(router)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/callback?error=access_denied&error_description=user+declined&state=nonce-2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()

		cb := <-h.Result()
		if !cb.Denied() {
			t.Fatal("expected denied callback")
		}
		if cb.ErrParam != "access_denied" {
			t.Errorf("expected error param access_denied, got %s", cb.ErrParam)
		}
		if cb.Code != "" {
			t.Errorf("expected empty code, got %s", cb.Code)
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		h := NewCallbackHandler("/callback")
		router := NewBasicRouter()
		router.Handler(h)

		srv := httptest.NewServer(router)
		defer srv.Close()

		first, err := http.Get(srv.URL + "/callback?code=one&state=s")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		first.Body.Close()

		second, err := http.Get(srv.URL + "/callback?code=two&state=s")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second.Body.Close()

		if second.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400 for replayed callback, got %d", second.StatusCode)
		}

		cb := <-h.Result()
		if cb.Code != "one" {
			t.Errorf("expected first callback to win, got code %s", cb.Code)
		}
	})

	t.Run("Default Path", func(t *testing.T) {
		h := NewCallbackHandler("")
		routes := h.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected default /callback route, got %v", routes)
		}
	})
}
