package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/agentrt/internal/agent"
	"github.com/haasonsaas/agentrt/internal/budget"
	"github.com/haasonsaas/agentrt/internal/classifier"
	"github.com/haasonsaas/agentrt/internal/config"
	"github.com/haasonsaas/agentrt/internal/contextbuilder"
	"github.com/haasonsaas/agentrt/internal/eventbus"
	"github.com/haasonsaas/agentrt/internal/hooks"
	"github.com/haasonsaas/agentrt/internal/observability"
	"github.com/haasonsaas/agentrt/internal/providers"
	"github.com/haasonsaas/agentrt/internal/sessions"
	"github.com/haasonsaas/agentrt/internal/swarm"
	"github.com/haasonsaas/agentrt/internal/tools"
	"github.com/haasonsaas/agentrt/pkg/models"
)

// runtime bundles every component a CLI command or the server needs,
// built once from a loaded Config. Grounded on the teacher's runServe
// wiring a single set of long-lived components up front before handing
// them to whichever subsystem needs them.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	hub          *eventbus.Hub
	sessions     *sessions.Registry
	toolRegistry *tools.Registry
	dispatcher   *tools.Dispatcher
	classifier   *classifier.Classifier
	noiseFilter  *classifier.NoiseFilter
	router       *providers.Router
	loop         *agent.Loop
	orchestrator *swarm.Orchestrator
	metrics      *observability.Metrics
	tracer       *observability.Tracer
	ledger       *budget.Ledger
}

// buildRuntime constructs every component from cfg. It never starts any
// background goroutine (cron tickers, HTTP listeners) — that's left to
// the caller (runServe) so one-shot commands can build the same runtime
// without leaking timers past command exit.
func buildRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hub := eventbus.NewHub(logger)

	toolRegistry := tools.NewRegistry()
	toolTimeout := time.Duration(cfg.Tools.TimeoutMS) * time.Millisecond
	readTool, writeTool := tools.NewFileTool(cfg.Tools.AllowPaths, toolTimeout)
	toolRegistry.Register(readTool)
	toolRegistry.Register(writeTool)
	toolRegistry.Register(tools.NewShellTool("", cfg.Tools.DenyCommands, toolTimeout))
	dispatcher := tools.NewDispatcher(toolRegistry, toolTimeout)

	providerMap, err := buildProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("agentrt: building providers: %w", err)
	}
	router := providers.NewRouter(providers.RouterConfig{
		DefaultProvider: cfg.LLM.DefaultProvider,
		DefaultModel:    cfg.LLM.DefaultModel,
	}, providerMap)

	cls := classifier.New()
	noiseFilter := classifier.NewNoiseFilter(classifier.FilterConfig{Threshold: cfg.Noise.Threshold})

	descriptors := make([]models.ToolDescriptor, 0, len(toolRegistry.Snapshot()))
	for _, t := range toolRegistry.Snapshot() {
		descriptors = append(descriptors, models.ToolDescriptor{Name: t.Name, Description: t.Description, Schema: t.Schema})
	}
	staticBase := contextbuilder.NewStaticBase(descriptors)
	builder := contextbuilder.NewBuilder(staticBase, cfg.Loop.MaxTokens, cfg.Loop.ResponseReserve, func(provider string) bool {
		return provider == "anthropic"
	})

	ledger := budget.New(cfg.Budget.DailyLimitUSD, cfg.Budget.MonthlyLimitUSD, cfg.Budget.PerCallLimitUSD)

	sessionRegistry := sessions.New(cfg.Session.MaxSessions, hub.Publish)

	metrics := observability.New(nil)
	tracer := observability.NewTracer("agentrt")

	loop := &agent.Loop{
		Classifier:     cls,
		NoiseFilter:    noiseFilter,
		ContextBuilder: builder,
		Provider:       router,
		Tools:          toolRegistry,
		Dispatcher:     dispatcher,
		Hooks:          hooks.NewRegistry(logger),
		Budget:         ledger,
		EventBus:       hub,
		MaxIterations:  cfg.Loop.MaxIterations,
		Logger:         logger,
	}

	orchestrator := swarm.New(
		swarm.ProviderPlanner{Provider: router},
		swarm.ProviderWorker{Provider: router},
		swarm.ProviderSynthesizer{Provider: router},
		hub,
		logger,
	)
	orchestrator.MaxConcurrentSwarms = cfg.Swarm.MaxConcurrentSwarms
	orchestrator.MaxAgentsPerSwarm = cfg.Swarm.MaxAgentsPerSwarm
	if cfg.Swarm.DefaultTimeoutMS > 0 {
		orchestrator.DefaultTimeout = time.Duration(cfg.Swarm.DefaultTimeoutMS) * time.Millisecond
	}

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		hub:          hub,
		sessions:     sessionRegistry,
		toolRegistry: toolRegistry,
		dispatcher:   dispatcher,
		classifier:   cls,
		noiseFilter:  noiseFilter,
		router:       router,
		loop:         loop,
		orchestrator: orchestrator,
		metrics:      metrics,
		tracer:       tracer,
		ledger:       ledger,
	}, nil
}

// buildProviders instantiates one providers.LLMProvider per entry in
// cfg.LLM.Providers that agentrt knows how to construct.
func buildProviders(cfg *config.Config) (map[string]providers.LLMProvider, error) {
	out := make(map[string]providers.LLMProvider)
	for name, pcfg := range cfg.LLM.Providers {
		switch name {
		case "anthropic":
			p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
				APIKey:       pcfg.APIKey,
				BaseURL:      pcfg.BaseURL,
				DefaultModel: cfg.LLM.DefaultModel,
			})
			if err != nil {
				return nil, err
			}
			out["anthropic"] = p
		case "openai":
			out["openai"] = providers.NewOpenAIProvider(pcfg.APIKey, cfg.LLM.DefaultModel)
		default:
			// Unknown provider names are ignored rather than rejected: the
			// config surface may list a provider block agentrt hasn't grown
			// an adapter for yet without blocking startup of the rest.
		}
	}
	return out, nil
}
