package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err := TokenFromFile(path)
	if err != nil {
		t.Fatalf("TokenFromFile: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.Expiry.Equal(want.Expiry) {
		t.Errorf("expiry: got %v, want %v", got.Expiry, want.Expiry)
	}
}

func TestNewFromJSONRejectsGarbage(t *testing.T) {
	if _, err := NewFromJSON(context.Background(), []byte("not json")); err == nil {
		t.Error("expected error for invalid credentials")
	}
}

func TestNewMissingFile(t *testing.T) {
	if _, err := New(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing credentials file")
	}
}

func TestAuthorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "the-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	secret := filepath.Join(dir, "client_secret.json")
	data := fmt.Sprintf(`{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://accounts.example.com/auth","token_uri":%q,"redirect_uris":["http://localhost"]}}`, srv.URL)
	if err := os.WriteFile(secret, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	tokenPath := filepath.Join(dir, "token.json")

	var out bytes.Buffer
	tok, err := Authorize(context.Background(), secret, tokenPath, strings.NewReader("the-code\n"), &out, "scope-a")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if tok.AccessToken != "access" {
		t.Errorf("access token = %q", tok.AccessToken)
	}
	if !strings.Contains(out.String(), "https://accounts.example.com/auth") {
		t.Errorf("auth URL not printed: %q", out.String())
	}
	saved, err := TokenFromFile(tokenPath)
	if err != nil || saved.RefreshToken != "refresh" {
		t.Errorf("saved token = %+v, err %v", saved, err)
	}
}
