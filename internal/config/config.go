// Package config loads Lucy's process configuration from a YAML file,
// overlays LUCY_-prefixed environment variables, and merges a permissive
// JSON5 keys.json credential file.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a Lucy process.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Workspace    WorkspaceConfig    `yaml:"workspace"`
	Models       ModelsConfig       `yaml:"models"`
	Tools        ToolsConfig        `yaml:"tools"`
	Capability   CapabilityConfig   `yaml:"capability"`
	Cron         CronConfig         `yaml:"cron"`
	Channel      ChannelConfig      `yaml:"channel"`
	Logging      LoggingConfig      `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Audit        AuditConfig        `yaml:"audit"`
	Spaces       SpacesConfig       `yaml:"spaces"`
}

// ServerConfig configures the daemon's listeners.
type ServerConfig struct {
	HTTPPort    int    `yaml:"http_port"`
	LockFile    string `yaml:"lock_file"`
}

// WorkspaceConfig configures the filesystem workspace store.
type WorkspaceConfig struct {
	RootDir string `yaml:"root_dir"`
	// ID names the single workspace this process serves. One Lucy process
	// binds one Slack team to one workspace directory, matching
	// channel.SlackAdapter's single-workspace design.
	ID string `yaml:"id"`
}

// ModelsConfig configures the model router and its providers.
type ModelsConfig struct {
	OpenAIAPIKey    string             `yaml:"-"`
	AnthropicAPIKey string             `yaml:"-"`
	BedrockRegion   string             `yaml:"bedrock_region"`
	GeminiAPIKey    string             `yaml:"-"`
	DefaultTier     string             `yaml:"default_tier"`
	RequestTimeout  time.Duration      `yaml:"request_timeout"`
	Tiers           map[string]TierDef `yaml:"tiers"`
}

// TierDef names one routing tier's primary model and ordered fallback
// chain, each as "provider/model" (e.g. "anthropic/claude-3-5-sonnet").
type TierDef struct {
	PrimaryModel   string   `yaml:"primary_model"`
	FallbackModels []string `yaml:"fallback_models"`
}

// defaultTiers mirrors the tier -> model mapping the classifier's six tiers
// route to when the config file does not override them.
func defaultTiers() map[string]TierDef {
	return map[string]TierDef{
		"fast":     {PrimaryModel: "genai/gemini-2.0-flash", FallbackModels: []string{"openai/gpt-4o-mini"}},
		"default":  {PrimaryModel: "openai/gpt-4o-mini", FallbackModels: []string{"anthropic/claude-3-5-haiku-20241022"}},
		"code":     {PrimaryModel: "anthropic/claude-3-5-sonnet-20241022", FallbackModels: []string{"openai/gpt-4o"}},
		"research": {PrimaryModel: "anthropic/claude-3-5-sonnet-20241022", FallbackModels: []string{"bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0"}},
		"document": {PrimaryModel: "openai/gpt-4o", FallbackModels: []string{"anthropic/claude-3-5-sonnet-20241022"}},
		"frontier": {PrimaryModel: "anthropic/claude-3-opus-20240229", FallbackModels: []string{"bedrock/anthropic.claude-3-opus-20240229-v1:0", "openai/gpt-4o"}},
	}
}

// ToolsConfig configures timeout budgets and the gateway HTTP client.
type ToolsConfig struct {
	GatewayBaseURL     string        `yaml:"gateway_base_url"`
	GatewayToken       string        `yaml:"-"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	MetaBrokerTimeout  time.Duration `yaml:"meta_broker_timeout"`
	IntegrationTimeout time.Duration `yaml:"integration_timeout"`
	LLMCallTimeout     time.Duration `yaml:"llm_call_timeout"`
	DefaultTimeout     time.Duration `yaml:"default_timeout"`
}

// CapabilityConfig configures the per-workspace capability index.
type CapabilityConfig struct {
	MinIndexedTools  int     `yaml:"min_indexed_tools"`
	MinRelevance     float64 `yaml:"min_relevance_score"`
	InitialK         int     `yaml:"initial_k"`
	ExpandedK        int     `yaml:"expanded_k"`
	StaleAfter       time.Duration `yaml:"stale_after"`
}

// CronConfig configures the cron scheduler.
type CronConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// ChannelConfig configures the outbound chat adapter.
type ChannelConfig struct {
	SlackBotToken string `yaml:"-"`
	SlackAppToken string `yaml:"-"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObservabilityConfig configures tracing export.
type ObservabilityConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	MetricsPort  int    `yaml:"metrics_port"`
}

// AuditConfig configures the optional relational audit writer.
type AuditConfig struct {
	DatabaseURL string `yaml:"-"`
}

// SpacesConfig configures the inbound Spaces callback handlers.
type SpacesConfig struct {
	HTTPPort       int    `yaml:"http_port"`
	ProjectSecret  string `yaml:"-"`
}

// Load reads path as YAML, merges a sibling keys.json (if present) for
// secrets, applies LUCY_-prefixed environment overrides, fills defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected single document")
	}

	applyDefaults(&cfg)

	keysPath := keysJSONPath(path)
	if keys, err := LoadKeys(keysPath); err == nil {
		applyKeys(&cfg, keys)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load keys.json: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.LockFile == "" {
		cfg.Server.LockFile = "/tmp/lucy.lock"
	}
	if cfg.Workspace.RootDir == "" {
		cfg.Workspace.RootDir = "./workspaces"
	}
	if cfg.Models.DefaultTier == "" {
		cfg.Models.DefaultTier = "default"
	}
	if cfg.Models.RequestTimeout == 0 {
		cfg.Models.RequestTimeout = 90 * time.Second
	}
	if cfg.Models.Tiers == nil {
		cfg.Models.Tiers = defaultTiers()
	}
	if cfg.Tools.MaxConcurrent == 0 {
		cfg.Tools.MaxConcurrent = 8
	}
	if cfg.Tools.MetaBrokerTimeout == 0 {
		cfg.Tools.MetaBrokerTimeout = 45 * time.Second
	}
	if cfg.Tools.IntegrationTimeout == 0 {
		cfg.Tools.IntegrationTimeout = 20 * time.Second
	}
	if cfg.Tools.LLMCallTimeout == 0 {
		cfg.Tools.LLMCallTimeout = 90 * time.Second
	}
	if cfg.Tools.DefaultTimeout == 0 {
		cfg.Tools.DefaultTimeout = 30 * time.Second
	}
	if cfg.Capability.MinIndexedTools == 0 {
		cfg.Capability.MinIndexedTools = 5
	}
	if cfg.Capability.MinRelevance == 0 {
		cfg.Capability.MinRelevance = 0.5
	}
	if cfg.Capability.InitialK == 0 {
		cfg.Capability.InitialK = 15
	}
	if cfg.Capability.ExpandedK == 0 {
		cfg.Capability.ExpandedK = 30
	}
	if cfg.Capability.StaleAfter == 0 {
		cfg.Capability.StaleAfter = 15 * time.Minute
	}
	if cfg.Cron.MaxRetries == 0 {
		cfg.Cron.MaxRetries = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "lucy"
	}
	if cfg.Observability.MetricsPort == 0 {
		cfg.Observability.MetricsPort = 9090
	}
	if cfg.Spaces.HTTPPort == 0 {
		cfg.Spaces.HTTPPort = 8090
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LUCY_HTTP_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = p
		}
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_LOCK_FILE")); v != "" {
		cfg.Server.LockFile = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_WORKSPACE_ROOT")); v != "" {
		cfg.Workspace.RootDir = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_WORKSPACE_ID")); v != "" {
		cfg.Workspace.ID = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_OPENAI_API_KEY")); v != "" {
		cfg.Models.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_ANTHROPIC_API_KEY")); v != "" {
		cfg.Models.AnthropicAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_GEMINI_API_KEY")); v != "" {
		cfg.Models.GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_BEDROCK_REGION")); v != "" {
		cfg.Models.BedrockRegion = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_GATEWAY_TOKEN")); v != "" {
		cfg.Tools.GatewayToken = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_SLACK_BOT_TOKEN")); v != "" {
		cfg.Channel.SlackBotToken = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_SLACK_APP_TOKEN")); v != "" {
		cfg.Channel.SlackAppToken = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_AUDIT_DATABASE_URL")); v != "" {
		cfg.Audit.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_SPACES_PROJECT_SECRET")); v != "" {
		cfg.Spaces.ProjectSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("LUCY_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

// ValidationError reports one or more invalid config fields.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	var issues []string
	if cfg.Workspace.RootDir == "" {
		issues = append(issues, "workspace.root_dir is required")
	}
	if cfg.Workspace.ID == "" {
		issues = append(issues, "workspace.id is required")
	}
	if cfg.Capability.MinRelevance < 0 || cfg.Capability.MinRelevance > 1 {
		issues = append(issues, "capability.min_relevance_score must be in [0,1]")
	}
	if cfg.Capability.ExpandedK < cfg.Capability.InitialK {
		issues = append(issues, "capability.expanded_k must be >= initial_k")
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
