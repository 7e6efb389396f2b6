// Package core provides the engine's ambient stack: configuration
// resolution, structured logging, sentinel errors, and the thin interfaces
// (Logger, Telemetry, AIClient) every other package depends on instead of
// depending on each other.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds every resolved setting for one engine run.
//
// Resolution happens in three layers, lowest to highest priority:
//  1. DefaultConfig() - built-in defaults
//  2. LoadFromFile()/LoadFromEnv() - file config (.engine/config.json) then
//     environment variables
//  3. Functional options (With...) - explicit overrides from the caller
//
// Once resolved, a Config is treated as immutable for the lifetime of the
// run it describes.
type Config struct {
	// ContractMode selects the engagement rules the asleep detector applies:
	// "agentic" or "local". Derived from StrictMode when unset.
	ContractMode string `json:"contract_mode" env:"ENGINE_CONTRACT_MODE"`

	// StrictMode, when true, makes the absence of a host capability fatal
	// instead of falling back to simulation.
	StrictMode bool `json:"strict_mode" env:"ENGINE_STRICT_MODE"`

	// UseWorker runs the orchestrator off the host's goroutine via message
	// passing (see package worker).
	UseWorker bool `json:"use_worker" env:"ENGINE_USE_WORKER" default:"true"`

	// MaxDepth is the hard cap on recursion depth.
	MaxDepth int `json:"max_depth" env:"ENGINE_MAX_DEPTH" default:"4"`

	// MaxSpawns is the total spawn budget for one run.
	MaxSpawns int `json:"max_spawns" env:"ENGINE_MAX_SPAWNS" default:"10"`

	// ProofMaxAgeMin is the freshness window the guard enforces on the
	// persisted proof artifact.
	ProofMaxAgeMin int `json:"proof_max_age_min" env:"ENGINE_PROOF_MAX_AGE_MIN" default:"10"`

	// ForceSleep always yields exit 5 regardless of other state. Exists for
	// testing the guard's failure path deterministically.
	ForceSleep bool `json:"force_sleep" env:"ENGINE_FORCE_SLEEP"`

	// Verbose enables debug-level diagnostic logging.
	Verbose bool `json:"verbose" env:"ENGINE_VERBOSE"`

	// ProofPath is where the proof artifact is written. Defaults to
	// ".engine/last-proof.json" relative to the working directory.
	ProofPath string `json:"proof_path" env:"ENGINE_PROOF_PATH"`

	Redis      RedisConfig      `json:"redis"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
	Logging    LoggingConfig    `json:"logging"`
	AI         AIConfig         `json:"ai"`
	Prompt     PromptConfig     `json:"prompt"`

	// logger is used only while resolving the config itself; excluded from
	// JSON and from the public surface.
	logger Logger `json:"-"`
}

// RedisConfig enables the optional Redis-backed execution store (registry
// package) for cross-process audit of a run's registry records; the trace
// is not persisted there.
type RedisConfig struct {
	Enabled   bool   `json:"enabled" env:"ENGINE_REDIS_ENABLED" default:"false"`
	URL       string `json:"url" env:"ENGINE_REDIS_URL,REDIS_URL"`
	Namespace string `json:"namespace" env:"ENGINE_REDIS_NAMESPACE" default:"engine:run"`
}

// TelemetryConfig configures OpenTelemetry tracing/metrics. Disabled by
// default: the engine's correctness never depends on telemetry succeeding.
type TelemetryConfig struct {
	Enabled     bool    `json:"enabled" env:"ENGINE_TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint string `json:"otlp_endpoint" env:"ENGINE_OTLP_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string  `json:"service_name" env:"ENGINE_SERVICE_NAME,OTEL_SERVICE_NAME" default:"supervised-recursion-engine"`
	SamplingRate float64 `json:"sampling_rate" env:"ENGINE_TELEMETRY_SAMPLING_RATE" default:"1.0"`
}

// LoggingConfig controls the ProductionLogger's output shape.
type LoggingConfig struct {
	Level  string `json:"level" env:"ENGINE_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"ENGINE_LOG_FORMAT" default:"json"`
	Output string `json:"output" env:"ENGINE_LOG_OUTPUT" default:"stdout"`
}

// AIConfig configures the optional LLM-backed spawn adapter.
type AIConfig struct {
	Enabled     bool          `json:"enabled" env:"ENGINE_AI_ENABLED" default:"false"`
	Provider    string        `json:"provider" env:"ENGINE_AI_PROVIDER" default:"mock"`
	APIKey      string        `json:"api_key" env:"ENGINE_AI_API_KEY,OPENAI_API_KEY"`
	Model       string        `json:"model" env:"ENGINE_AI_MODEL" default:"gpt-4"`
	Temperature float32       `json:"temperature" env:"ENGINE_AI_TEMPERATURE" default:"0.2"`
	Timeout     time.Duration `json:"timeout" env:"ENGINE_AI_TIMEOUT" default:"30s"`
}

// PromptConfig points at the YAML-defined role prompt templates used by the
// orchestrator's execute dispatch (orchestrator / worker / frontier roles).
type PromptConfig struct {
	TemplateDir string `json:"template_dir" env:"ENGINE_PROMPT_TEMPLATE_DIR" default:".engine/prompts"`
}

// Option is a functional option for configuring the engine.
type Option func(*Config) error

// DefaultConfig returns a configuration with the engine's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ContractMode:   "",
		StrictMode:     false,
		UseWorker:      true,
		MaxDepth:       4,
		MaxSpawns:      10,
		ProofMaxAgeMin: 10,
		ForceSleep:     false,
		Verbose:        false,
		ProofPath:      filepath.Join(".engine", "last-proof.json"),
		Redis: RedisConfig{
			Namespace: "engine:run",
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "supervised-recursion-engine",
			SamplingRate: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		AI: AIConfig{
			Provider:    "mock",
			Model:       "gpt-4",
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		Prompt: PromptConfig{
			TemplateDir: filepath.Join(".engine", "prompts"),
		},
	}
}

// EffectiveContractMode resolves ContractMode when it was left blank:
// strict mode implies "agentic", otherwise "local".
func (c *Config) EffectiveContractMode() string {
	if c.ContractMode != "" {
		return c.ContractMode
	}
	if c.StrictMode {
		return "agentic"
	}
	return "local"
}

// LoadFromEnv overlays environment variables onto the config. Environment
// variables take priority over file/default values but are themselves
// overridden by functional options.
func (c *Config) LoadFromEnv() error {
	if c.logger != nil {
		c.logger.Info("loading configuration from environment", nil)
	}

	if v := os.Getenv("ENGINE_CONTRACT_MODE"); v != "" {
		c.ContractMode = v
	}
	if v := os.Getenv("ENGINE_STRICT_MODE"); v != "" {
		c.StrictMode = parseBool(v)
	}
	if v := os.Getenv("ENGINE_USE_WORKER"); v != "" {
		c.UseWorker = parseBool(v)
	}
	if v := os.Getenv("ENGINE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		} else if c.logger != nil {
			c.logger.Warn("invalid ENGINE_MAX_DEPTH", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("ENGINE_MAX_SPAWNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxSpawns = n
		} else if c.logger != nil {
			c.logger.Warn("invalid ENGINE_MAX_SPAWNS", map[string]interface{}{"value": v})
		}
	}
	if v := os.Getenv("ENGINE_PROOF_MAX_AGE_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ProofMaxAgeMin = n
		}
	}
	if v := os.Getenv("ENGINE_FORCE_SLEEP"); v != "" {
		c.ForceSleep = parseBool(v)
	}
	if v := os.Getenv("ENGINE_VERBOSE"); v != "" {
		c.Verbose = parseBool(v)
	}
	if v := os.Getenv("ENGINE_PROOF_PATH"); v != "" {
		c.ProofPath = v
	}

	if v := os.Getenv("ENGINE_REDIS_ENABLED"); v != "" {
		c.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("ENGINE_REDIS_URL"); v != "" {
		c.Redis.URL = v
		c.Redis.Enabled = true
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}

	if v := os.Getenv("ENGINE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("ENGINE_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
		c.Telemetry.Enabled = true
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("ENGINE_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}

	if v := os.Getenv("ENGINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ENGINE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("ENGINE_AI_ENABLED"); v != "" {
		c.AI.Enabled = parseBool(v)
	}
	if v := os.Getenv("ENGINE_AI_API_KEY"); v != "" {
		c.AI.APIKey = v
		c.AI.Enabled = true
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("ENGINE_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}

	if v := os.Getenv("ENGINE_PROMPT_TEMPLATE_DIR"); v != "" {
		c.Prompt.TemplateDir = v
	}

	if err := c.Validate(); err != nil {
		if c.logger != nil {
			c.logger.Error("configuration validation failed", map[string]interface{}{"error": err.Error()})
		}
		return err
	}
	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file. JSON is the
// canonical format for .engine/config.json; YAML is accepted for
// parity with the prompt template loader, not used for this file in
// practice. File settings override environment variables but are overridden
// by functional options.
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	if !filepath.IsAbs(cleanPath) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cleanPath = filepath.Join(wd, cleanPath)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- path is validated above
	if err != nil {
		if os.IsNotExist(err) {
			// Absence of an optional file config is not an error.
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yamlUnmarshalConfig(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", ErrInvalidConfiguration)
		}
	}

	if c.logger != nil {
		c.logger.Info("configuration file loaded", map[string]interface{}{"file_path": cleanPath, "format": ext})
	}
	return nil
}

// Validate checks invariants that would otherwise surface as confusing
// downstream failures.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0: %w", ErrInvalidConfiguration)
	}
	if c.MaxSpawns < 0 {
		return fmt.Errorf("max_spawns must be >= 0: %w", ErrInvalidConfiguration)
	}
	if c.ProofMaxAgeMin <= 0 {
		return fmt.Errorf("proof_max_age_min must be > 0: %w", ErrInvalidConfiguration)
	}
	mode := c.EffectiveContractMode()
	if mode != "agentic" && mode != "local" {
		return fmt.Errorf("contract_mode must be agentic or local, got %q: %w", mode, ErrInvalidConfiguration)
	}
	return nil
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return strings.EqualFold(s, "yes") || strings.EqualFold(s, "on")
	}
	return v
}

// --- Functional options ---

func WithStrictMode(enabled bool) Option {
	return func(c *Config) error {
		c.StrictMode = enabled
		return nil
	}
}

func WithContractMode(mode string) Option {
	return func(c *Config) error {
		if mode != "agentic" && mode != "local" && mode != "" {
			return fmt.Errorf("invalid contract mode %q: %w", mode, ErrInvalidConfiguration)
		}
		c.ContractMode = mode
		return nil
	}
}

func WithUseWorker(enabled bool) Option {
	return func(c *Config) error {
		c.UseWorker = enabled
		return nil
	}
}

func WithMaxDepth(depth int) Option {
	return func(c *Config) error {
		if depth < 0 {
			return fmt.Errorf("max depth must be >= 0: %w", ErrInvalidConfiguration)
		}
		c.MaxDepth = depth
		return nil
	}
}

func WithMaxSpawns(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("max spawns must be >= 0: %w", ErrInvalidConfiguration)
		}
		c.MaxSpawns = n
		return nil
	}
}

func WithProofMaxAge(minutes int) Option {
	return func(c *Config) error {
		if minutes <= 0 {
			return fmt.Errorf("proof max age must be > 0: %w", ErrInvalidConfiguration)
		}
		c.ProofMaxAgeMin = minutes
		return nil
	}
}

func WithForceSleep(forced bool) Option {
	return func(c *Config) error {
		c.ForceSleep = forced
		return nil
	}
}

func WithVerbose(verbose bool) Option {
	return func(c *Config) error {
		c.Verbose = verbose
		return nil
	}
}

func WithProofPath(path string) Option {
	return func(c *Config) error {
		c.ProofPath = path
		return nil
	}
}

func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Redis.URL = url
		c.Redis.Enabled = url != ""
		return nil
	}
}

func WithTelemetry(enabled bool, otlpEndpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.OTLPEndpoint = otlpEndpoint
		return nil
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// NewConfig resolves a Config through all three layers: defaults, then
// environment, then the supplied options (applied in order).
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	// An explicit WithLogger option, if present, should apply before
	// LoadFromEnv so environment resolution can log through it. Scan once.
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.logger == nil {
		cfg.logger = NewProductionLogger(cfg.Logging, cfg.Name())
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	// Re-apply options so they win over environment per the three-layer
	// priority order.
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Name returns a stable identifier for this config's ProductionLogger tag.
func (c *Config) Name() string {
	if c.Telemetry.ServiceName != "" {
		return c.Telemetry.ServiceName
	}
	return "supervised-recursion-engine"
}

// Logger returns the logger resolved for this config, or a NoOpLogger.
func (c *Config) Logger() Logger {
	if c.logger != nil {
		return c.logger
	}
	return &NoOpLogger{}
}

// ============================================================================
// ProductionLogger - layered observability, JSON in production, text for
// local development. See telemetry.Provider for the OTel-backed Telemetry
// implementation that complements this Logger.
// ============================================================================

// ProductionLogger is the default Logger implementation.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	format      string
	output      io.Writer

	metricsEnabled bool
}

// NewProductionLogger creates a logger from LoggingConfig.
func NewProductionLogger(logging LoggingConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if logging.Output == "stderr" {
		output = os.Stderr
	}

	logger := &ProductionLogger{
		level:       strings.ToLower(logging.Level),
		debug:       strings.ToLower(logging.Level) == "debug",
		serviceName: serviceName,
		format:      logging.Format,
		output:      output,
	}
	trackLogger(logger)
	return logger
}

// EnableMetrics is called by the telemetry package to enable the metrics
// emission layer once a MetricsRegistry has been registered.
func (p *ProductionLogger) EnableMetrics() {
	p.metricsEnabled = true
}

func (p *ProductionLogger) WithComponent(component string) Logger {
	return &componentLogger{base: p, component: component}
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, nil, "")
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, ctx, "")
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, nil, "")
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, ctx, "")
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, nil, "")
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, ctx, "")
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, nil, "")
	}
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, ctx, "")
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}, ctx context.Context, component string) {
	timestamp := time.Now().Format(time.RFC3339)

	if p.format == "json" {
		logEntry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"message":   msg,
		}
		if component != "" {
			logEntry["component"] = component
		}
		if ctx != nil && p.metricsEnabled {
			if baggage := getContextBaggage(ctx); len(baggage) > 0 {
				for k, v := range baggage {
					logEntry["trace."+k] = v
				}
			}
		}
		for k, v := range fields {
			logEntry[k] = v
		}
		if data, err := json.Marshal(logEntry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
	} else {
		var fieldStr strings.Builder
		if len(fields) > 0 {
			fieldStr.WriteString(" ")
			for k, v := range fields {
				fieldStr.WriteString(fmt.Sprintf("%s=%v ", k, v))
			}
		}
		comp := component
		if comp == "" {
			comp = p.serviceName
		}
		fmt.Fprintf(p.output, "%s [%s] [%s] %s%s\n", timestamp, level, comp, msg, fieldStr.String())
	}

	if p.metricsEnabled {
		p.emitFrameworkMetric(level, fields, ctx)
	}
}

func (p *ProductionLogger) emitFrameworkMetric(level string, fields map[string]interface{}, ctx context.Context) {
	labels := []string{"level", level, "service", p.serviceName}
	for k, v := range fields {
		switch k {
		case "operation", "status", "error_type", "reason":
			labels = append(labels, k, fmt.Sprintf("%v", v))
		}
	}
	if ctx != nil {
		emitMetricWithContext(ctx, "engine.log.events", 1.0, labels...)
	} else {
		emitMetric("engine.log.events", 1.0, labels...)
	}
}

func emitMetric(name string, value float64, labels ...string) {
	if globalMetricsRegistry != nil {
		globalMetricsRegistry.Counter(name, labels...)
	}
}

func emitMetricWithContext(ctx context.Context, name string, value float64, labels ...string) {
	if globalMetricsRegistry != nil {
		globalMetricsRegistry.EmitWithContext(ctx, name, value, labels...)
	}
}

func getContextBaggage(ctx context.Context) map[string]string {
	if globalMetricsRegistry != nil {
		return globalMetricsRegistry.GetBaggage(ctx)
	}
	return make(map[string]string)
}

// componentLogger tags every log line from p with a fixed component name.
type componentLogger struct {
	base      *ProductionLogger
	component string
}

func (c *componentLogger) Info(msg string, fields map[string]interface{}) {
	c.base.logEvent("INFO", msg, fields, nil, c.component)
}
func (c *componentLogger) Error(msg string, fields map[string]interface{}) {
	c.base.logEvent("ERROR", msg, fields, nil, c.component)
}
func (c *componentLogger) Warn(msg string, fields map[string]interface{}) {
	c.base.logEvent("WARN", msg, fields, nil, c.component)
}
func (c *componentLogger) Debug(msg string, fields map[string]interface{}) {
	if c.base.debug {
		c.base.logEvent("DEBUG", msg, fields, nil, c.component)
	}
}
func (c *componentLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.base.logEvent("INFO", msg, fields, ctx, c.component)
}
func (c *componentLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.base.logEvent("ERROR", msg, fields, ctx, c.component)
}
func (c *componentLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.base.logEvent("WARN", msg, fields, ctx, c.component)
}
func (c *componentLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.base.debug {
		c.base.logEvent("DEBUG", msg, fields, ctx, c.component)
	}
}
