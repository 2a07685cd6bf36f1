package shared

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	t.Run("Writes To Given Writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output, got %q", buf.String())
		}
	})

	t.Run("With Logger Adds Fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "session")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "session") {
			t.Errorf("expected the bound field in output, got %q", buf.String())
		}
	})

	t.Run("Set Log Level Filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("quiet")

		if strings.Contains(buf.String(), "quiet") {
			t.Error("expected info output suppressed at error level")
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected unique state nonces")
	}
	if len(a) != 36 {
		t.Errorf("expected a UUID string, got %q", a)
	}
}

func TestMarshalJSON(t *testing.T) {
	payload := map[string]int{"answer": 42}

	compact, err := MarshalJSON(payload, false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(compact), "\n") {
		t.Error("expected compact output")
	}

	pretty, err := MarshalJSON(payload, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(pretty), "\n  ") {
		t.Error("expected indented output")
	}

	var decoded map[string]int
	if err := json.Unmarshal(pretty, &decoded); err != nil {
		t.Fatalf("pretty output is not valid JSON: %v", err)
	}
}
