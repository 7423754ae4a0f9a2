// Package tools provides the tool registry: an explicit mapping from tool
// name to constructor, populated at startup from a native provider and a
// custom-function provider consulted in that priority order.
package tools

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Kind distinguishes the two tool variants.
type Kind string

const (
	KindNative Kind = "native"
	KindCustom Kind = "custom"
)

// Handle is a resolved, runnable tool bound to an agent.
type Handle interface {
	// Name returns the tool's registry name.
	Name() string
	// Description returns a short human-readable description.
	Description() string
	// Kind reports whether the tool is native or custom.
	Kind() Kind
	// Run executes the tool with a single generic string argument.
	Run(ctx context.Context, input string) (string, error)
}

// Func is the signature of a tool implementation.
type Func func(ctx context.Context, input string) (string, error)

// funcHandle adapts a Func to Handle.
type funcHandle struct {
	name        string
	description string
	kind        Kind
	fn          Func
}

func (h *funcHandle) Name() string        { return h.name }
func (h *funcHandle) Description() string { return h.description }
func (h *funcHandle) Kind() Kind          { return h.kind }

func (h *funcHandle) Run(ctx context.Context, input string) (string, error) {
	return h.fn(ctx, input)
}

// Constructor builds a fresh Handle. Resolution returns a new instance per
// call so per-agent tool state never aliases.
type Constructor func() Handle

// Provider resolves a tool name to a constructor.
type Provider interface {
	// Resolve returns the constructor for name, or false.
	Resolve(name string) (Constructor, bool)
	// Names lists every tool name the provider knows.
	Names() []string
}

// NativeProvider serves the built-in tool set.
type NativeProvider struct {
	constructors map[string]Constructor
}

// NewNativeProvider creates a provider over the built-in tools.
func NewNativeProvider() *NativeProvider {
	return &NativeProvider{constructors: builtinConstructors()}
}

func (p *NativeProvider) Resolve(name string) (Constructor, bool) {
	c, ok := p.constructors[name]
	return c, ok
}

func (p *NativeProvider) Names() []string {
	names := make([]string, 0, len(p.constructors))
	for name := range p.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CustomProvider serves user-registered tool functions.
type CustomProvider struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewCustomProvider creates an empty custom-function table.
func NewCustomProvider() *CustomProvider {
	return &CustomProvider{constructors: make(map[string]Constructor)}
}

// Register adds (or replaces) a custom tool function under name.
func (p *CustomProvider) Register(name, description string, fn Func) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.constructors[name] = func() Handle {
		return &funcHandle{name: name, description: description, kind: KindCustom, fn: fn}
	}
}

func (p *CustomProvider) Resolve(name string) (Constructor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.constructors[name]
	return c, ok
}

func (p *CustomProvider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.constructors))
	for name := range p.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry resolves tool names against its providers in priority order.
type Registry struct {
	providers []Provider
	logger    *zap.Logger
}

// NewRegistry creates a registry over the given providers. With no providers
// it defaults to native-then-custom with an empty custom table.
func NewRegistry(logger *zap.Logger, providers ...Provider) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(providers) == 0 {
		providers = []Provider{NewNativeProvider(), NewCustomProvider()}
	}
	return &Registry{
		providers: providers,
		logger:    logger.With(zap.String("component", "tool_registry")),
	}
}

// Resolve returns a fresh handle for name, trying each provider in order.
func (r *Registry) Resolve(name string) (Handle, bool) {
	for _, p := range r.providers {
		if c, ok := p.Resolve(name); ok {
			return c(), true
		}
	}
	return nil, false
}

// ResolveAll resolves every name it can; unresolvable names are skipped with
// a logged warning, never an error.
func (r *Registry) ResolveAll(names []string) []Handle {
	handles := make([]Handle, 0, len(names))
	for _, name := range names {
		h, ok := r.Resolve(name)
		if !ok {
			r.logger.Warn("tool not found, skipping", zap.String("tool", name))
			continue
		}
		handles = append(handles, h)
	}
	return handles
}

// Names lists every resolvable tool name across providers, deduplicated.
func (r *Registry) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, p := range r.providers {
		for _, name := range p.Names() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
