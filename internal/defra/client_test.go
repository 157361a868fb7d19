package defra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy_500", http.StatusInternalServerError, true},
		{"unhealthy_503", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health-check" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			err := client.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_HealthCheck_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestClient_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content-type: %s", ct)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"Paper": [{"_docID": "abc123", "title": "Test"}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Execute(context.Background(), `{ Paper { _docID title } }`, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	docs := resp.Docs("Paper")
	if len(docs) != 1 || docs[0]["title"] != "Test" {
		t.Errorf("unexpected docs: %v", docs)
	}
}

func TestClient_Create(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		gotQuery = req.Query
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"create_Paper": [{"_docID": "bae-123"}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	docID, err := client.Create(context.Background(), "Paper", map[string]any{"title": "A Paper"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if docID != "bae-123" {
		t.Errorf("unexpected docID: %s", docID)
	}
	if !strings.Contains(gotQuery, `create_Paper`) || !strings.Contains(gotQuery, `"A Paper"`) {
		t.Errorf("unexpected mutation: %s", gotQuery)
	}
}

func TestClient_Create_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors": [{"message": "collection not found"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Create(context.Background(), "Nope", map[string]any{"x": 1}); err == nil {
		t.Error("expected error from GraphQL errors")
	}
}

func TestValueToGraphQL(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "hello", `"hello"`},
		{"string_with_quotes", `say "hi"`, `"say \"hi\""`},
		{"string_with_newline", "a\nb", `"a\nb"`},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"float", 1.5, "1.5"},
		{"string_slice", []string{"a", "b"}, `["a", "b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := valueToGraphQL(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	valid := []string{"bae-123abc", "doc_1", "a"}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("%q should be valid: %v", id, err)
		}
	}

	invalid := []string{"", `a") { }`, "a b", "a\n", strings.Repeat("x", 501)}
	for _, id := range invalid {
		if err := ValidateID(id); err == nil {
			t.Errorf("%q should be rejected", id)
		}
	}
}
