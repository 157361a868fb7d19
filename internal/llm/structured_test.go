package llm

import (
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		got, err := parseStructuredJSON(`{"title": "x"}`)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if string(got) != `{"title":"x"}` {
			t.Errorf("unexpected result: %s", got)
		}
	})

	t.Run("fenced JSON", func(t *testing.T) {
		got, err := parseStructuredJSON("```json\n{\"title\": \"x\"}\n```")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if string(got) != `{"title":"x"}` {
			t.Errorf("unexpected result: %s", got)
		}
	})

	t.Run("JSON surrounded by commentary", func(t *testing.T) {
		got, err := parseStructuredJSON("Here you go:\n{\"n\": 1}\nHope that helps!")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if string(got) != `{"n":1}` {
			t.Errorf("unexpected result: %s", got)
		}
	})

	t.Run("array output", func(t *testing.T) {
		got, err := parseStructuredJSON("```\n[1, 2]\n```")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if string(got) != `[1,2]` {
			t.Errorf("unexpected result: %s", got)
		}
	})

	t.Run("empty output", func(t *testing.T) {
		if _, err := parseStructuredJSON("   "); err == nil {
			t.Error("expected error for empty output")
		}
	})

	t.Run("no JSON at all", func(t *testing.T) {
		if _, err := parseStructuredJSON("sorry, I cannot do that"); err == nil {
			t.Error("expected error for non-JSON output")
		}
	})
}

func TestValidateStructuredJSON(t *testing.T) {
	schema, _ := json.Marshal(map[string]any{
		"type":     "object",
		"required": []string{"question"},
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
		},
	})

	t.Run("valid document", func(t *testing.T) {
		if err := validateStructuredJSON(schema, json.RawMessage(`{"question":"q"}`)); err != nil {
			t.Errorf("expected valid document, got %v", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		if err := validateStructuredJSON(schema, json.RawMessage(`{}`)); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("empty schema skips validation", func(t *testing.T) {
		if err := validateStructuredJSON(nil, json.RawMessage(`{}`)); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}
