package advisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ArionMiles/smartspend/pkg/logging"
)

func TestPrompt(t *testing.T) {
	got := Prompt([]string{"High food spending", "Weekend spending spikes"})
	want := "Give savings tips based on these personal expense patterns in 3 bullet points:\nHigh food spending\nWeekend spending spikes"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}, logging.Discard()); err == nil {
		t.Error("expected an error without an api key")
	}
}

func TestTips(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": "* Cook at home\n"}},
					},
				},
			},
		})
	}))
	defer srv.Close()

	g, err := New(context.Background(), Config{APIKey: "test", BaseURL: srv.URL, HTTPClient: srv.Client()}, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tips, err := g.Tips(context.Background(), []string{"High food spending"})
	if err != nil {
		t.Fatalf("Tips: %v", err)
	}
	if tips != "* Cook at home" {
		t.Errorf("got %q", tips)
	}
	if !strings.Contains(gotBody, "High food spending") {
		t.Errorf("request body should carry the phrases, got %s", gotBody)
	}
}
