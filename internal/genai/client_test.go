package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"journalmate/internal/planner"
)

const goodPlan = `{"activity":{"title":"Weekend in Porto","category":"travel"},"tasks":[{"title":"Book flights","priority":"high","order":1}]}`

func TestGeneratePlanDecodesResponse(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("```json\n" + goodPlan + "\n```"))
	}))
	defer srv.Close()

	c := New(srv.URL, "planner-1", "secret")
	p, err := c.GeneratePlan(context.Background(), planner.GenerationRequest{
		SessionID: "s1",
		Domain:    "travel",
		Mode:      "quick",
		Fields:    []planner.FieldValue{{Field: "specificDestination", Value: "Porto"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if p.Activity.Title != "Weekend in Porto" {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if got.Model != "planner-1" || got.Domain != "travel" || len(got.Fields) != 1 {
		t.Fatalf("unexpected request payload: %+v", got)
	}
}

func TestGeneratePlanServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "").GeneratePlan(context.Background(), planner.GenerationRequest{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGeneratePlanClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "").GeneratePlan(context.Background(), planner.GenerationRequest{})
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestGeneratePlanRejectsInvalidSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activity":{"title":"x"},"tasks":[]}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "", "").GeneratePlan(context.Background(), planner.GenerationRequest{}); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestGeneratePlanRequiresEndpoint(t *testing.T) {
	if _, err := New("", "", "").GeneratePlan(context.Background(), planner.GenerationRequest{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}
