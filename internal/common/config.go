package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	Server       ServerConfig       `toml:"server"`
	Logging      LoggingConfig      `toml:"logging"`
	Storage      StorageConfig      `toml:"storage"`
	Queue        QueueConfig        `toml:"queue"`
	Pipeline     PipelineConfig     `toml:"pipeline"`
	Verification VerificationConfig `toml:"verification"`
	Extraction   ExtractionConfig   `toml:"extraction"`
	WebSocket    WebSocketConfig    `toml:"websocket"`
}

type ServerConfig struct {
	Port           int    `toml:"port" validate:"gte=0,lte=65535"`
	Host           string `toml:"host"`
	MaxUploadBytes int64  `toml:"max_upload_bytes" validate:"gt=0"` // Request body / file size ceiling
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`     // Time format for logs (default: "15:04:05.000")
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level published as task log events
}

type StorageConfig struct {
	Badger        BadgerConfig `toml:"badger"`
	ResultTTLSecs int          `toml:"result_ttl_s" validate:"gt=0"` // Seconds before a stored result expires
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type QueueConfig struct {
	QueueName           string `toml:"queue_name"`                            // Queue name prefix in Badger
	WorkerCount         int    `toml:"worker_count" validate:"gt=0"`          // Number of concurrent workers
	PollInterval        string `toml:"poll_interval"`                         // e.g. "1s" - how often workers poll for messages
	VisibilityTimeout   string `toml:"visibility_timeout"`                    // e.g. "5m" - message visibility timeout for redelivery
	MaxAttempts         int    `toml:"max_attempts" validate:"gt=0"`          // Attempts before a reaped task is marked failed
	HeartbeatIntervalMs int    `toml:"heartbeat_interval_ms" validate:"gt=0"` // Worker heartbeat period
	StuckThresholdMs    int    `toml:"stuck_threshold_ms" validate:"gt=0"`    // Heartbeat age after which a started task is stuck
	ReaperIntervalSecs  int    `toml:"reaper_interval_s" validate:"gt=0"`     // Stuck-task sweep period
}

// PipelineConfig controls extraction and clustering behavior.
// Thresholds apply identically on the sync and async paths.
type PipelineConfig struct {
	SyncThresholdBytes      int               `toml:"sync_threshold_bytes" validate:"gt=0"` // Below: inline; at or above: queued
	ForceMode               string            `toml:"force_mode" validate:"omitempty,oneof=sync async"`
	NameSimilarityThreshold float64           `toml:"name_similarity_threshold" validate:"gt=0,lte=1"`
	YearToleranceCluster    int               `toml:"year_tolerance_cluster" validate:"gte=0"`
	ClusterMaxSpanChars     int               `toml:"cluster_max_span_chars" validate:"gt=0"`
	ClusterProximityChars   int               `toml:"cluster_proximity_chars" validate:"gt=0"`
	ReporterAliases         map[string]string `toml:"reporter_aliases"` // Extra alias -> canonical label entries merged over the built-in table
}

type VerificationConfig struct {
	Enabled             bool                `toml:"enabled"`
	PerCallTimeoutMs    int                 `toml:"per_call_timeout_ms" validate:"gt=0"`
	PerCitationBudgetMs int                 `toml:"per_citation_budget_ms" validate:"gt=0"`
	YearTolerance       int                 `toml:"year_tolerance" validate:"gte=0"`
	FanoutLimit         int                 `toml:"fanout_limit" validate:"gt=0"` // Concurrent fallback fetches per citation
	FallbackSourceOrder []string            `toml:"fallback_source_order"`        // Ranked HTML source names; empty = built-in order
	JurisdictionMap     map[string][]string `toml:"jurisdiction_map"`             // Extra reporter family -> jurisdiction codes entries
	UserAgent           string              `toml:"user_agent"`
	API                 CitationAPIConfig   `toml:"api"`
	Browser             BrowserConfig       `toml:"browser"`
}

// CitationAPIConfig describes the structured citation lookup API.
type CitationAPIConfig struct {
	BaseURL   string `toml:"base_url"`   // Citation lookup endpoint
	SearchURL string `toml:"search_url"` // Search variant endpoint
	Token     string `toml:"token"`      // Authorization header value
}

// BrowserConfig controls headless rendering for JS-walled fallback sources.
type BrowserConfig struct {
	Enabled  bool   `toml:"enabled"`
	WaitTime string `toml:"wait_time"` // e.g. "3s" - render settle time
}

type ExtractionConfig struct {
	ConvertFootnotes bool  `toml:"convert_footnotes"`                  // Move PDF footnotes to an appended Endnotes section
	MaxDocumentBytes int64 `toml:"max_document_bytes" validate:"gt=0"` // Ceiling on extracted text size
}

// WebSocketConfig contains configuration for progress event streaming
type WebSocketConfig struct {
	ThrottleInterval string   `toml:"throttle_interval"` // Max one task_progress broadcast per task per interval
	AllowedEvents    []string `toml:"allowed_events"`    // Whitelist of event types to broadcast (empty = allow all)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in casestrainer.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:           8080,
			Host:           "localhost",
			MaxUploadBytes: 50 * 1024 * 1024, // 50MB uploads; extracted text is capped separately
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			ResultTTLSecs: 86400,
		},
		Queue: QueueConfig{
			QueueName:           "casestrainer",
			WorkerCount:         3,
			PollInterval:        "1s",
			VisibilityTimeout:   "5m",
			MaxAttempts:         3,
			HeartbeatIntervalMs: 5000,
			StuckThresholdMs:    300000,
			ReaperIntervalSecs:  60,
		},
		Pipeline: PipelineConfig{
			SyncThresholdBytes:      5120,
			ForceMode:               "", // unset: size rule decides
			NameSimilarityThreshold: 0.6,
			YearToleranceCluster:    2,
			ClusterMaxSpanChars:     2000,
			ClusterProximityChars:   200,
			ReporterAliases:         map[string]string{},
		},
		Verification: VerificationConfig{
			Enabled:             true,
			PerCallTimeoutMs:    5000,
			PerCitationBudgetMs: 30000,
			YearTolerance:       5,
			FanoutLimit:         8,
			FallbackSourceOrder: []string{}, // empty = built-in ranked order
			JurisdictionMap:     map[string][]string{},
			UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			API: CitationAPIConfig{
				BaseURL:   "https://www.courtlistener.com/api/rest/v4/citation-lookup/",
				SearchURL: "https://www.courtlistener.com/api/rest/v4/search/",
				Token:     "",
			},
			Browser: BrowserConfig{
				Enabled:  false,
				WaitTime: "3s",
			},
		},
		Extraction: ExtractionConfig{
			ConvertFootnotes: true,
			MaxDocumentBytes: 5 * 1024 * 1024, // ~5MB of extracted text
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: "1s",
			AllowedEvents:    []string{},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Queue.PollInterval != "" {
		if _, err := time.ParseDuration(c.Queue.PollInterval); err != nil {
			return fmt.Errorf("invalid queue.poll_interval: %w", err)
		}
	}
	if c.Queue.VisibilityTimeout != "" {
		if _, err := time.ParseDuration(c.Queue.VisibilityTimeout); err != nil {
			return fmt.Errorf("invalid queue.visibility_timeout: %w", err)
		}
	}
	if c.Verification.Browser.WaitTime != "" {
		if _, err := time.ParseDuration(c.Verification.Browser.WaitTime); err != nil {
			return fmt.Errorf("invalid verification.browser.wait_time: %w", err)
		}
	}
	if c.WebSocket.ThrottleInterval != "" {
		if _, err := time.ParseDuration(c.WebSocket.ThrottleInterval); err != nil {
			return fmt.Errorf("invalid websocket.throttle_interval: %w", err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: CASESTRAINER_ENV, fallback: GO_ENV)
	if env := os.Getenv("CASESTRAINER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("CASESTRAINER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CASESTRAINER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if maxUpload := os.Getenv("CASESTRAINER_SERVER_MAX_UPLOAD_BYTES"); maxUpload != "" {
		if mb, err := strconv.ParseInt(maxUpload, 10, 64); err == nil {
			config.Server.MaxUploadBytes = mb
		}
	}

	// Logging configuration
	if level := os.Getenv("CASESTRAINER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("CASESTRAINER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("CASESTRAINER_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("CASESTRAINER_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Storage configuration
	if badgerPath := os.Getenv("CASESTRAINER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if resultTTL := os.Getenv("CASESTRAINER_RESULT_TTL_S"); resultTTL != "" {
		if ttl, err := strconv.Atoi(resultTTL); err == nil {
			config.Storage.ResultTTLSecs = ttl
		}
	}

	// Queue configuration
	if queueName := os.Getenv("CASESTRAINER_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}
	if workerCount := os.Getenv("CASESTRAINER_QUEUE_WORKER_COUNT"); workerCount != "" {
		if wc, err := strconv.Atoi(workerCount); err == nil {
			config.Queue.WorkerCount = wc
		}
	}
	if pollInterval := os.Getenv("CASESTRAINER_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if visibilityTimeout := os.Getenv("CASESTRAINER_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxAttempts := os.Getenv("CASESTRAINER_QUEUE_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil {
			config.Queue.MaxAttempts = ma
		}
	}
	if heartbeat := os.Getenv("CASESTRAINER_QUEUE_HEARTBEAT_INTERVAL_MS"); heartbeat != "" {
		if hb, err := strconv.Atoi(heartbeat); err == nil {
			config.Queue.HeartbeatIntervalMs = hb
		}
	}
	if stuck := os.Getenv("CASESTRAINER_QUEUE_STUCK_THRESHOLD_MS"); stuck != "" {
		if st, err := strconv.Atoi(stuck); err == nil {
			config.Queue.StuckThresholdMs = st
		}
	}
	if reaper := os.Getenv("CASESTRAINER_QUEUE_REAPER_INTERVAL_S"); reaper != "" {
		if ri, err := strconv.Atoi(reaper); err == nil {
			config.Queue.ReaperIntervalSecs = ri
		}
	}

	// Pipeline configuration
	if syncThreshold := os.Getenv("CASESTRAINER_SYNC_THRESHOLD_BYTES"); syncThreshold != "" {
		if st, err := strconv.Atoi(syncThreshold); err == nil {
			config.Pipeline.SyncThresholdBytes = st
		}
	}
	if forceMode := os.Getenv("CASESTRAINER_FORCE_MODE"); forceMode != "" {
		config.Pipeline.ForceMode = forceMode
	}
	if similarity := os.Getenv("CASESTRAINER_NAME_SIMILARITY_THRESHOLD"); similarity != "" {
		if s, err := strconv.ParseFloat(similarity, 64); err == nil {
			config.Pipeline.NameSimilarityThreshold = s
		}
	}
	if yearTolerance := os.Getenv("CASESTRAINER_YEAR_TOLERANCE_CLUSTER"); yearTolerance != "" {
		if yt, err := strconv.Atoi(yearTolerance); err == nil {
			config.Pipeline.YearToleranceCluster = yt
		}
	}
	if maxSpan := os.Getenv("CASESTRAINER_CLUSTER_MAX_SPAN_CHARS"); maxSpan != "" {
		if ms, err := strconv.Atoi(maxSpan); err == nil {
			config.Pipeline.ClusterMaxSpanChars = ms
		}
	}
	if proximity := os.Getenv("CASESTRAINER_CLUSTER_PROXIMITY_CHARS"); proximity != "" {
		if p, err := strconv.Atoi(proximity); err == nil {
			config.Pipeline.ClusterProximityChars = p
		}
	}

	// Verification configuration
	if enabled := os.Getenv("CASESTRAINER_VERIFICATION_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Verification.Enabled = e
		}
	}
	if callTimeout := os.Getenv("CASESTRAINER_PER_CALL_TIMEOUT_MS"); callTimeout != "" {
		if ct, err := strconv.Atoi(callTimeout); err == nil {
			config.Verification.PerCallTimeoutMs = ct
		}
	}
	if budget := os.Getenv("CASESTRAINER_PER_CITATION_BUDGET_MS"); budget != "" {
		if b, err := strconv.Atoi(budget); err == nil {
			config.Verification.PerCitationBudgetMs = b
		}
	}
	if yearTolerance := os.Getenv("CASESTRAINER_YEAR_TOLERANCE_VERIFY"); yearTolerance != "" {
		if yt, err := strconv.Atoi(yearTolerance); err == nil {
			config.Verification.YearTolerance = yt
		}
	}
	if fanout := os.Getenv("CASESTRAINER_VERIFICATION_FANOUT_LIMIT"); fanout != "" {
		if f, err := strconv.Atoi(fanout); err == nil {
			config.Verification.FanoutLimit = f
		}
	}
	if sourceOrder := os.Getenv("CASESTRAINER_FALLBACK_SOURCE_ORDER"); sourceOrder != "" {
		sources := []string{}
		for _, s := range splitString(sourceOrder, ",") {
			trimmed := trimSpace(s)
			if trimmed != "" {
				sources = append(sources, trimmed)
			}
		}
		if len(sources) > 0 {
			config.Verification.FallbackSourceOrder = sources
		}
	}
	if userAgent := os.Getenv("CASESTRAINER_VERIFICATION_USER_AGENT"); userAgent != "" {
		config.Verification.UserAgent = userAgent
	}
	if baseURL := os.Getenv("CASESTRAINER_API_BASE_URL"); baseURL != "" {
		config.Verification.API.BaseURL = baseURL
	}
	if searchURL := os.Getenv("CASESTRAINER_API_SEARCH_URL"); searchURL != "" {
		config.Verification.API.SearchURL = searchURL
	}
	if token := os.Getenv("CASESTRAINER_API_TOKEN"); token != "" {
		config.Verification.API.Token = token
	}
	if browserEnabled := os.Getenv("CASESTRAINER_BROWSER_ENABLED"); browserEnabled != "" {
		if be, err := strconv.ParseBool(browserEnabled); err == nil {
			config.Verification.Browser.Enabled = be
		}
	}
	if browserWait := os.Getenv("CASESTRAINER_BROWSER_WAIT_TIME"); browserWait != "" {
		if _, err := time.ParseDuration(browserWait); err == nil {
			config.Verification.Browser.WaitTime = browserWait
		}
	}

	// Extraction configuration
	if convertFootnotes := os.Getenv("CASESTRAINER_CONVERT_FOOTNOTES"); convertFootnotes != "" {
		if cf, err := strconv.ParseBool(convertFootnotes); err == nil {
			config.Extraction.ConvertFootnotes = cf
		}
	}
	if maxDocBytes := os.Getenv("CASESTRAINER_MAX_DOCUMENT_BYTES"); maxDocBytes != "" {
		if mdb, err := strconv.ParseInt(maxDocBytes, 10, 64); err == nil {
			config.Extraction.MaxDocumentBytes = mdb
		}
	}

	// WebSocket configuration
	if throttle := os.Getenv("CASESTRAINER_WEBSOCKET_THROTTLE_INTERVAL"); throttle != "" {
		if _, err := time.ParseDuration(throttle); err == nil {
			config.WebSocket.ThrottleInterval = throttle
		}
	}
	if allowedEvents := os.Getenv("CASESTRAINER_WEBSOCKET_ALLOWED_EVENTS"); allowedEvents != "" {
		events := []string{}
		for _, e := range splitString(allowedEvents, ",") {
			trimmed := trimSpace(e)
			if trimmed != "" {
				events = append(events, trimmed)
			}
		}
		if len(events) > 0 {
			config.WebSocket.AllowedEvents = events
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string, logLevel string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// HeartbeatInterval returns the worker heartbeat period as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Queue.HeartbeatIntervalMs) * time.Millisecond
}

// StuckThreshold returns the heartbeat age after which a started task is reaped.
func (c *Config) StuckThreshold() time.Duration {
	return time.Duration(c.Queue.StuckThresholdMs) * time.Millisecond
}

// PollIntervalDuration returns how often idle workers poll the queue.
func (c *Config) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Queue.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// VisibilityTimeoutDuration returns how long a claimed message stays invisible.
func (c *Config) VisibilityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Queue.VisibilityTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// PerCallTimeout returns the upstream HTTP call timeout.
func (c *Config) PerCallTimeout() time.Duration {
	return time.Duration(c.Verification.PerCallTimeoutMs) * time.Millisecond
}

// PerCitationBudget returns the total verification budget for one citation.
func (c *Config) PerCitationBudget() time.Duration {
	return time.Duration(c.Verification.PerCitationBudgetMs) * time.Millisecond
}

// ResultTTL returns the result retention period.
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.Storage.ResultTTLSecs) * time.Second
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// AllowTestURLs returns true if test URLs (localhost, 127.0.0.1, etc.) are allowed.
// Test URLs are only allowed in development mode.
func (c *Config) AllowTestURLs() bool {
	return !c.IsProduction()
}

// DeepCloneConfig creates a deep copy of the Config struct to prevent
// mutations of the original config.
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	// Clone the config struct (shallow copy first)
	clone := *c

	// Deep clone slice and map fields to prevent shared memory
	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.Pipeline.ReporterAliases) > 0 {
		clone.Pipeline.ReporterAliases = make(map[string]string, len(c.Pipeline.ReporterAliases))
		for k, v := range c.Pipeline.ReporterAliases {
			clone.Pipeline.ReporterAliases[k] = v
		}
	}

	if len(c.Verification.FallbackSourceOrder) > 0 {
		clone.Verification.FallbackSourceOrder = make([]string, len(c.Verification.FallbackSourceOrder))
		copy(clone.Verification.FallbackSourceOrder, c.Verification.FallbackSourceOrder)
	}

	if len(c.Verification.JurisdictionMap) > 0 {
		clone.Verification.JurisdictionMap = make(map[string][]string, len(c.Verification.JurisdictionMap))
		for k, v := range c.Verification.JurisdictionMap {
			codes := make([]string, len(v))
			copy(codes, v)
			clone.Verification.JurisdictionMap[k] = codes
		}
	}

	if len(c.WebSocket.AllowedEvents) > 0 {
		clone.WebSocket.AllowedEvents = make([]string, len(c.WebSocket.AllowedEvents))
		copy(clone.WebSocket.AllowedEvents, c.WebSocket.AllowedEvents)
	}

	return &clone
}
