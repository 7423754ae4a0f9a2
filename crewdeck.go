// Package crewdeck wires the crew management core into one application
// context: configuration tables, tool registry, agent registry, task binder,
// crew assembler, executor and the evaluation pipeline.
//
// Usage:
//
//	cfg, _ := config.NewLoader().WithConfigPath("crewdeck.yaml").Load()
//	app, err := crewdeck.New(cfg, crewdeck.WithChatFunc(myChat))
//	defer app.Close()
//
//	result, err := app.Executor.ExecuteCrew(ctx, "research_crew", map[string]string{"topic": "..."})
package crewdeck

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/crewdeck/agent/crews"
	"github.com/BaSui01/crewdeck/agent/evaluation"
	"github.com/BaSui01/crewdeck/agent/execution"
	"github.com/BaSui01/crewdeck/agent/registry"
	"github.com/BaSui01/crewdeck/agent/synccheck"
	"github.com/BaSui01/crewdeck/agent/tasks"
	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/engine"
	"github.com/BaSui01/crewdeck/internal/metrics"
	"github.com/BaSui01/crewdeck/storage"
	"github.com/BaSui01/crewdeck/tools"
)

// App is the application context. Every component hangs off this struct;
// there is no package-level mutable state anywhere in the module.
type App struct {
	Config   *config.Config
	Configs  *config.Store
	Tools    *tools.Registry
	Agents   *registry.Registry
	Tasks    *tasks.Binder
	Crews    *crews.Assembler
	Executor *execution.Executor
	Sync     *synccheck.Checker
	Store    *storage.Store
	Registry *prometheus.Registry

	logger *zap.Logger
}

type options struct {
	chat       engine.ChatFunc
	engine     engine.Engine
	logger     *zap.Logger
	registerer prometheus.Registerer
	custom     []tools.Handle
}

// Option configures the application context created by [New].
type Option func(*options)

// WithChatFunc sets the LLM completion call backing the default engine.
func WithChatFunc(chat engine.ChatFunc) Option {
	return func(o *options) { o.chat = chat }
}

// WithEngine replaces the engine entirely. Takes precedence over
// [WithChatFunc].
func WithEngine(e engine.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetricsRegisterer registers the collectors on an external registerer
// instead of the App-owned registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithCustomTools registers extra tool handles on the custom provider.
func WithCustomTools(handles ...tools.Handle) Option {
	return func(o *options) { o.custom = append(o.custom, handles...) }
}

// New builds the application context. Startup order matters: storage first,
// then the sync check over the persisted crews, then crew rehydration.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.Open(cfg.Database.DSN, logger)
	if err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	registerer := o.registerer
	if registerer == nil {
		registerer = promRegistry
	}
	collector := metrics.NewCollector("crewdeck", registerer, logger)

	configStore := config.NewStore(cfg, logger)

	custom := tools.NewCustomProvider()
	for _, h := range o.custom {
		custom.Register(h.Name(), h.Description(), h.Run)
	}
	toolRegistry := tools.NewRegistry(logger, tools.NewNativeProvider(), custom)

	agents := registry.New(configStore, toolRegistry, logger)
	binder := tasks.NewBinder(configStore, logger)

	eng := o.engine
	if eng == nil {
		eng = engine.NewLLMEngine(cfg.Engine.Model, o.chat, logger)
	}

	evaluator := evaluation.NewPipeline(agents, binder, eng, collector, logger)
	assembler := crews.NewAssembler(agents, binder, store, logger)
	executor := execution.NewExecutor(assembler, eng, store, evaluator, collector, logger)
	checker := synccheck.New(store, configStore, logger)

	checker.PerformFullSync()
	assembler.LoadSavedCrews()

	return &App{
		Config:   cfg,
		Configs:  configStore,
		Tools:    toolRegistry,
		Agents:   agents,
		Tasks:    binder,
		Crews:    assembler,
		Executor: executor,
		Sync:     checker,
		Store:    store,
		Registry: promRegistry,
		logger:   logger,
	}, nil
}

// Close releases the durable storage connection.
func (a *App) Close() error {
	return a.Store.Close()
}
