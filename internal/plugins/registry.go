// Package plugins provides a registry for OCR engines and mirror sinks.
package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/config"
)

// Env is what a plugin may draw on when it is instantiated.
type Env struct {
	Config config.Config
	// HTTPClient carries the OAuth scopes of the selected plugins. It is nil
	// when none of them needs Google credentials.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// RecognizerPlugin defines the interface for OCR engine plugins.
type RecognizerPlugin interface {
	// Name returns the plugin name (e.g., "tesseract", "vision").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// NewRecognizer creates a recognizer from env.
	NewRecognizer(ctx context.Context, env Env) (api.Recognizer, error)
}

// MirrorPlugin defines the interface for mirror sink plugins.
type MirrorPlugin interface {
	// Name returns the plugin name (e.g., "csv", "json", "sheets").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this plugin.
	RequiredScopes() []string
	// NewMirror creates a mirror from env.
	NewMirror(ctx context.Context, env Env) (api.Mirror, error)
}

// Registry manages available recognizer and mirror plugins.
type Registry struct {
	recognizers map[string]RecognizerPlugin
	mirrors     map[string]MirrorPlugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		recognizers: make(map[string]RecognizerPlugin),
		mirrors:     make(map[string]MirrorPlugin),
	}
}

// Default returns a registry holding every built-in plugin.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range []RecognizerPlugin{TesseractPlugin{}, VisionPlugin{}} {
		_ = r.RegisterRecognizer(p)
	}
	for _, p := range []MirrorPlugin{CSVPlugin{}, JSONPlugin{}, SheetsPlugin{}} {
		_ = r.RegisterMirror(p)
	}
	return r
}

// RegisterRecognizer registers a recognizer plugin.
func (r *Registry) RegisterRecognizer(plugin RecognizerPlugin) error {
	name := plugin.Name()
	if _, exists := r.recognizers[name]; exists {
		return fmt.Errorf("recognizer plugin %q already registered", name)
	}
	r.recognizers[name] = plugin
	return nil
}

// RegisterMirror registers a mirror plugin.
func (r *Registry) RegisterMirror(plugin MirrorPlugin) error {
	name := plugin.Name()
	if _, exists := r.mirrors[name]; exists {
		return fmt.Errorf("mirror plugin %q already registered", name)
	}
	r.mirrors[name] = plugin
	return nil
}

// GetRecognizer returns a recognizer plugin by name.
func (r *Registry) GetRecognizer(name string) (RecognizerPlugin, error) {
	plugin, exists := r.recognizers[name]
	if !exists {
		return nil, fmt.Errorf("recognizer plugin %q not found", name)
	}
	return plugin, nil
}

// GetMirror returns a mirror plugin by name.
func (r *Registry) GetMirror(name string) (MirrorPlugin, error) {
	plugin, exists := r.mirrors[name]
	if !exists {
		return nil, fmt.Errorf("mirror plugin %q not found", name)
	}
	return plugin, nil
}

// ListRecognizers returns all registered recognizer plugins sorted by name.
func (r *Registry) ListRecognizers() []RecognizerPlugin {
	plugins := make([]RecognizerPlugin, 0, len(r.recognizers))
	for _, p := range r.recognizers {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// ListMirrors returns all registered mirror plugins sorted by name.
func (r *Registry) ListMirrors() []MirrorPlugin {
	plugins := make([]MirrorPlugin, 0, len(r.mirrors))
	for _, p := range r.mirrors {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// Scopes returns the deduplicated OAuth scopes of the named plugins. An
// empty name is skipped so a disabled mirror contributes nothing.
func (r *Registry) Scopes(recognizer, mirror string) ([]string, error) {
	seen := make(map[string]bool)
	var scopes []string
	add := func(list []string) {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				scopes = append(scopes, s)
			}
		}
	}

	if recognizer != "" {
		p, err := r.GetRecognizer(recognizer)
		if err != nil {
			return nil, err
		}
		add(p.RequiredScopes())
	}
	if mirror != "" {
		p, err := r.GetMirror(mirror)
		if err != nil {
			return nil, err
		}
		add(p.RequiredScopes())
	}
	return scopes, nil
}

// CreateRecognizer creates a recognizer instance by plugin name.
func (r *Registry) CreateRecognizer(ctx context.Context, name string, env Env) (api.Recognizer, error) {
	plugin, err := r.GetRecognizer(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewRecognizer(ctx, env)
}

// CreateMirror creates a mirror instance by plugin name.
func (r *Registry) CreateMirror(ctx context.Context, name string, env Env) (api.Mirror, error) {
	plugin, err := r.GetMirror(name)
	if err != nil {
		return nil, err
	}
	return plugin.NewMirror(ctx, env)
}
