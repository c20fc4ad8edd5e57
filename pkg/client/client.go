// Package client builds authenticated HTTP clients for Google APIs.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenFile is where a user token obtained for an OAuth client secret is kept.
const TokenFile = "data/token.json"

// credentialKind is the "type" field of a Google credentials file.
type credentialKind struct {
	Type      string          `json:"type"`
	Installed json.RawMessage `json:"installed"`
	Web       json.RawMessage `json:"web"`
}

// New returns an HTTP client authorized for scope.
//
// An empty path uses application default credentials. Otherwise the file may
// be a service account key or an OAuth client secret; the latter needs a
// previously saved user token in TokenFile.
func New(ctx context.Context, path string, scope ...string) (*http.Client, error) {
	if path == "" {
		slog.Debug("using application default credentials", "scopes", scope)
		c, err := google.DefaultClient(ctx, scope...)
		if err != nil {
			return nil, fmt.Errorf("loading application default credentials: %w", err)
		}
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return NewFromJSON(ctx, b, scope...)
}

// NewFromJSON is New for credentials already read into memory.
func NewFromJSON(ctx context.Context, data []byte, scope ...string) (*http.Client, error) {
	var kind credentialKind
	if err := json.Unmarshal(data, &kind); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if kind.Installed != nil || kind.Web != nil {
		config, err := google.ConfigFromJSON(data, scope...)
		if err != nil {
			return nil, fmt.Errorf("parsing client secret: %w", err)
		}
		tok, err := TokenFromFile(TokenFile)
		if err != nil {
			return nil, fmt.Errorf("loading token: %w (authorize the client secret first)", err)
		}
		return config.Client(ctx, tok), nil
	}

	creds, err := google.CredentialsFromJSON(ctx, data, scope...)
	if err != nil {
		return nil, fmt.Errorf("parsing %s credentials: %w", kind.Type, err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}

// Authorize runs the copy-paste consent flow for an OAuth client secret and
// saves the token to tokenPath. The user opens the printed URL and pastes
// back the code parameter of the page they are redirected to.
func Authorize(ctx context.Context, secretPath, tokenPath string, in io.Reader, out io.Writer, scope ...string) (*oauth2.Token, error) {
	b, err := os.ReadFile(secretPath)
	if err != nil {
		return nil, fmt.Errorf("reading client secret: %w", err)
	}
	config, err := google.ConfigFromJSON(b, scope...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}

	authURL := config.AuthCodeURL("smartspend", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Visit this URL and approve access:\n%s\n\nPaste the code parameter of the redirect URL: ", authURL)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return nil, fmt.Errorf("reading authorization code: %w", err)
	}
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code for token: %w", err)
	}
	if err := SaveToken(tokenPath, tok); err != nil {
		return nil, err
	}
	return tok, nil
}
