package session

import (
	"errors"
	"testing"

	"github.com/desertthunder/muse/internal/shared"
)

func TestScopeGate(t *testing.T) {
	t.Run("No Required Scopes", func(t *testing.T) {
		gate := NewScopeGate(NewMemoryStore())
		if err := gate.Require("GetTrack", nil); err != nil {
			t.Errorf("expected operations without scope requirements to pass, got %v", err)
		}
	})

	t.Run("Deferred When Unauthenticated", func(t *testing.T) {
		gate := NewScopeGate(NewMemoryStore())
		if err := gate.Require("GetSavedTracks", []string{"user-library-read"}); err != nil {
			t.Errorf("expected check to defer with no credential, got %v", err)
		}
	})

	t.Run("Missing Scope Fails Before Network", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set(&Credential{
			AccessToken: "tok",
			Flow:        FlowPKCE,
			Scopes:      []string{"user-read-email"},
		})

		gate := NewScopeGate(store)
		err := gate.Require("GetSavedTracks", []string{"user-library-read"})
		if err == nil {
			t.Fatal("expected scope error")
		}
		if !errors.Is(err, shared.ErrInsufficientScope) {
			t.Errorf("expected ErrInsufficientScope, got %v", err)
		}

		var scopeErr *ScopeError
		if !errors.As(err, &scopeErr) {
			t.Fatal("expected a *ScopeError")
		}
		if scopeErr.Operation != "GetSavedTracks" {
			t.Errorf("unexpected operation: %q", scopeErr.Operation)
		}
		if len(scopeErr.Missing) != 1 || scopeErr.Missing[0] != "user-library-read" {
			t.Errorf("unexpected missing scopes: %v", scopeErr.Missing)
		}
	})

	t.Run("Granted Scopes Pass", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set(&Credential{
			AccessToken: "tok",
			Flow:        FlowPKCE,
			Scopes:      []string{"user-library-read", "user-read-email"},
		})

		gate := NewScopeGate(store)
		if err := gate.Require("GetSavedTracks", []string{"user-library-read"}); err != nil {
			t.Errorf("expected granted scopes to pass, got %v", err)
		}
	})
}
