// Package advisor asks a Gemini model for savings tips on spending insights.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

const promptHeader = "Give savings tips based on these personal expense patterns in 3 bullet points:\n"

// Config configures the Gemini client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL and HTTPClient override the API endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini generates tips with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New creates a Gemini advisor.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, logger: logger.With("component", "advisor")}, nil
}

// Prompt builds the request text for phrases.
func Prompt(phrases []string) string {
	return promptHeader + strings.Join(phrases, "\n")
}

// Tips returns the model's advice for the given insight phrases.
func (g *Gemini) Tips(ctx context.Context, phrases []string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(phrases)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response from model")
	}
	g.logger.Debug("generated tips", "model", g.model, "phrases", len(phrases))
	return text, nil
}
