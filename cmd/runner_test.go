package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/muse/internal/shared"
	musetest "github.com/desertthunder/muse/internal/testing"
)

func TestRunnerOutput(t *testing.T) {
	t.Run("Write JSON", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeJSON(map[string]string{"name": "muse"}, false); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}

		var decoded map[string]string
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded["name"] != "muse" {
			t.Errorf("unexpected output: %v", decoded)
		}
	})

	t.Run("Write JSON Pretty", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRunner(RunnerOpts{Output: &buf})

		if err := r.writeJSON(map[string]string{"name": "muse"}, true); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("Write Failure Surfaces", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &musetest.FWriter{}})
		if err := r.writeJSON(map[string]string{}, false); err == nil {
			t.Error("expected an error from a failing writer")
		}
		if err := r.writePlain("hello"); err == nil {
			t.Error("expected an error from a failing writer")
		}
	})

	t.Run("Newline Failure Surfaces", func(t *testing.T) {
		var buf bytes.Buffer
		w := musetest.NewLimitedWriter(1, 0, &buf)
		r := NewRunner(RunnerOpts{Output: &w})

		if err := r.writeJSON(map[string]string{}, false); err == nil {
			t.Error("expected the trailing newline write to fail")
		}
	})
}

func TestResolveScopes(t *testing.T) {
	t.Run("Defaults When Empty", func(t *testing.T) {
		scopes := resolveScopes(nil)
		if len(scopes) == 0 {
			t.Fatal("expected default scopes")
		}
		if !slices.Contains(scopes, "user-library-read") {
			t.Errorf("expected library scopes in defaults, got %v", scopes)
		}
	})

	t.Run("Expands Categories", func(t *testing.T) {
		scopes := resolveScopes([]string{"library"})
		want := []string{"user-library-modify", "user-library-read"}
		if !slices.Equal(scopes, want) {
			t.Errorf("got %v, want %v", scopes, want)
		}
	})

	t.Run("Passes Literal Scopes Through", func(t *testing.T) {
		scopes := resolveScopes([]string{"user-top-read", "library"})
		if !slices.Contains(scopes, "user-top-read") {
			t.Errorf("expected the literal scope kept, got %v", scopes)
		}
		if !slices.Contains(scopes, "user-library-read") {
			t.Errorf("expected the category expanded, got %v", scopes)
		}
	})
}

func TestEnsureSession(t *testing.T) {
	t.Run("Requires Client ID", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = ""

		r := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		if err := r.ensureSession(); !errors.Is(err, shared.ErrMissingConfig) {
			t.Fatalf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Builds In Memory Session", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "client-id"
		config.Session.Persist = false

		r := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		if err := r.ensureSession(); err != nil {
			t.Fatalf("ensureSession failed: %v", err)
		}
		if r.client == nil || r.spotify == nil || r.api == nil {
			t.Error("expected the session stack to be built")
		}
		if r.cache == nil {
			t.Error("expected caching enabled by default")
		}

		// Idempotent on repeat calls.
		client := r.client
		if err := r.ensureSession(); err != nil {
			t.Fatal(err)
		}
		if r.client != client {
			t.Error("expected the session to be built once")
		}
	})

	t.Run("Honors Cache Toggle", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "client-id"
		config.Session.Persist = false
		config.Cache.Enabled = false

		r := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		if err := r.ensureSession(); err != nil {
			t.Fatal(err)
		}
		if r.cache != nil {
			t.Error("expected caching disabled")
		}
	})
}
