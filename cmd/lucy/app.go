package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ojashyadav101/lucy/internal/agent"
	"github.com/ojashyadav101/lucy/internal/audit"
	"github.com/ojashyadav101/lucy/internal/capability"
	"github.com/ojashyadav101/lucy/internal/channel"
	"github.com/ojashyadav101/lucy/internal/config"
	"github.com/ojashyadav101/lucy/internal/cron"
	"github.com/ojashyadav101/lucy/internal/infra"
	"github.com/ojashyadav101/lucy/internal/models"
	"github.com/ojashyadav101/lucy/internal/observability"
	"github.com/ojashyadav101/lucy/internal/ratelimit"
	"github.com/ojashyadav101/lucy/internal/spaces"
	"github.com/ojashyadav101/lucy/internal/task"
	"github.com/ojashyadav101/lucy/internal/tools"
	"github.com/ojashyadav101/lucy/internal/workspace"
)

// App is Lucy's fully wired process: every internal package constructed and
// connected, ready to run the Slack dispatch loop, the cron scheduler, and
// the optional Spaces callback server.
type App struct {
	cfg *config.Config

	store      *workspace.Store
	slack      *channel.SlackAdapter
	loop       *agent.Loop
	router     *models.Router
	retriever  *capability.TopKRetriever
	tasks      *task.Registry
	hitl       *agent.HITLRegistry
	auditLog   *audit.Logger
	auditWrite audit.Writer
	tracer     *observability.Tracer
	metrics    *observability.Metrics
	logger     *slog.Logger
	limiter    *ratelimit.Keyed
	scheduler  *cron.Scheduler
	spacesSrv  *http.Server
	metricsSrv *http.Server
}

// buildApp constructs every component named in the process configuration.
// Absent credentials never fail construction: providers and the Postgres
// audit writer degrade to an always-failing or disabled state instead, so
// the process still starts and serves whatever is actually configured.
func buildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		ServiceName:  cfg.Observability.ServiceName,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("build tracer: %w", err)
	}

	store := workspace.New(cfg.Workspace.RootDir, cfg.Workspace.ID)
	if err := store.EnsureStructure(); err != nil {
		return nil, fmt.Errorf("ensure workspace structure: %w", err)
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build model providers: %w", err)
	}

	tiers := map[models.Tier]models.TierConfig{}
	for name, def := range cfg.Models.Tiers {
		tiers[models.Tier(name)] = models.TierConfig{PrimaryModel: def.PrimaryModel, FallbackModels: def.FallbackModels}
	}

	breakers := infra.NewRegistry(infra.DefaultBreakerConfigs())

	auditWriter, err := buildAuditWriter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build audit writer: %w", err)
	}
	auditLog := audit.NewLogger(audit.Config{
		Enabled: true, Level: audit.LevelInfo, PostgresDSN: cfg.Audit.DatabaseURL,
	}, logger.Slog(), auditWriter)

	costLogger := func(provider, model string, usage models.Usage) {
		auditLog.LogModelCall(context.Background(), cfg.Workspace.ID, provider, model, "", usage.PromptTokens, usage.CompletionTokens)
	}
	router := models.NewRouter(tiers, providers, breakers, costLogger, nil)

	gateway := tools.NewGatewayClient(cfg.Tools.GatewayBaseURL, cfg.Tools.GatewayToken)
	metaBroker := tools.NewMetaBrokerClient(gateway)

	toolRegistry := tools.NewRegistry()
	for _, t := range tools.GatewayTools(gateway) {
		toolRegistry.Register(t)
	}
	for _, t := range metaBroker.Tools() {
		toolRegistry.Register(t)
	}

	slackAdapter := channel.NewSlackAdapter(channel.SlackConfig{
		BotToken: cfg.Channel.SlackBotToken, AppToken: cfg.Channel.SlackAppToken, WorkspaceID: cfg.Workspace.ID,
	}, logger.Slog())

	executor := &agent.Executor{
		Registry: toolRegistry,
		Dedup:    tools.NewDedupWindow(2 * time.Minute),
		HITL:     agent.NewHITLRegistry([]byte(cfg.Tools.GatewayToken)),
		Breakers: breakers,
		Budgets: infra.Budgets{
			MetaBroker:  cfg.Tools.MetaBrokerTimeout,
			Integration: cfg.Tools.IntegrationTimeout,
			LLMCall:     cfg.Tools.LLMCallTimeout,
			Default:     cfg.Tools.DefaultTimeout,
		},
		Sem:     infra.NewSemaphore(cfg.Tools.MaxConcurrent),
		Metrics: metrics,
		Poster:  slackAdapter,
		Audit:   auditLog,
	}

	loop := agent.NewLoop(router, executor, metrics, tracer, nil)

	index := capability.NewIndex(cfg.Capability.StaleAfter)
	retriever := capability.NewTopKRetriever(
		index, cfg.Capability.MinIndexedTools, cfg.Capability.MinRelevance,
		cfg.Capability.InitialK, cfg.Capability.ExpandedK, metaBroker.DiscoverTools,
	)

	scheduler := cron.NewScheduler(cfg.Workspace.RootDir, loop, slackAdapter, metrics, logger.Slog())

	app := &App{
		cfg: cfg, store: store, slack: slackAdapter, loop: loop, router: router,
		retriever: retriever, tasks: task.NewRegistry(), hitl: executor.HITL,
		auditLog: auditLog, auditWrite: auditWriter, tracer: tracer, metrics: metrics,
		logger: logger.Slog(), limiter: ratelimit.NewKeyed(ratelimit.DefaultConfig()), scheduler: scheduler,
	}

	if cfg.Spaces.ProjectSecret != "" {
		app.spacesSrv = buildSpacesServer(cfg, app)
	}
	app.metricsSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	return app, nil
}

// buildProviders constructs all four model provider adapters unconditionally.
// A provider built against an empty credential still satisfies the
// models.Provider interface; its Complete call simply fails with
// errkind.AuthError, which the router's fallback chain treats like any
// other candidate failure.
func buildProviders(ctx context.Context, cfg *config.Config) (map[string]models.Provider, error) {
	bedrock, err := models.NewBedrockProvider(ctx, cfg.Models.BedrockRegion)
	if err != nil {
		return nil, fmt.Errorf("bedrock provider: %w", err)
	}
	genai, err := models.NewGenAIProvider(ctx, cfg.Models.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("genai provider: %w", err)
	}
	return map[string]models.Provider{
		"openai":    models.NewOpenAIProvider(cfg.Models.OpenAIAPIKey),
		"anthropic": models.NewAnthropicProvider(cfg.Models.AnthropicAPIKey),
		"bedrock":   bedrock,
		"genai":     genai,
	}, nil
}

// buildAuditWriter opens the optional Postgres persistence layer when a DSN
// is configured; callers that leave it empty get the structured log alone.
func buildAuditWriter(ctx context.Context, cfg *config.Config) (audit.Writer, error) {
	if cfg.Audit.DatabaseURL == "" {
		return nil, nil
	}
	return audit.OpenPostgresWriter(ctx, cfg.Audit.DatabaseURL)
}

// buildSpacesServer mounts the lucy-spaces callback endpoints. No workspace
// concrete EmailSender/RoleInvoker exists yet in this process; the handler
// degrades each endpoint to a "not configured" response until one is wired,
// rather than failing the whole process over an optional surface.
func buildSpacesServer(cfg *config.Config, app *App) *http.Server {
	handler := spaces.NewHandler([]byte(cfg.Spaces.ProjectSecret), nil, nil, app.logger)
	mux := http.NewServeMux()
	handler.Register(mux)
	return &http.Server{Addr: fmt.Sprintf(":%d", cfg.Spaces.HTTPPort), Handler: mux}
}

// Close releases every resource that owns a background goroutine or open
// connection, in roughly reverse construction order.
func (a *App) Close(ctx context.Context) error {
	if a.metricsSrv != nil {
		a.metricsSrv.Shutdown(ctx)
	}
	if a.spacesSrv != nil {
		a.spacesSrv.Shutdown(ctx)
	}
	if err := a.slack.Stop(ctx); err != nil {
		a.logger.Warn("slack adapter stop failed", "error", err)
	}
	if a.auditLog != nil {
		a.auditLog.Close()
	}
	if a.auditWrite != nil {
		a.auditWrite.Close()
	}
	return a.tracer.Shutdown(ctx)
}
