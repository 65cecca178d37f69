// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/memori/pkg/vector"
)

// Config is the top-level memori configuration. It is unmarshaled from
// YAML by Loader, with environment variable expansion applied first.
type Config struct {
	Storage       StorageConfig                `yaml:"storage"`
	Tenant        TenantConfig                 `yaml:"tenant"`
	RateLimiting  RateLimitConfig              `yaml:"rate_limiting"`
	LLM           map[string]LLMProviderConfig `yaml:"llm"`
	Embedding     EmbedderProviderConfig       `yaml:"embedding,omitempty"`
	Vector        vector.ProviderConfig        `yaml:"vector,omitempty"`
	Injection     InjectionConfig              `yaml:"injection"`
	Executor      ExecutorConfig               `yaml:"executor"`
	Logger        LoggerConfig                 `yaml:"logger"`
	Observability ObservabilityConfig          `yaml:"observability"`
}

// StorageConfig selects and tunes the memory store backend.
type StorageConfig struct {
	// ConnectionString selects the backend by scheme: mongodb://,
	// mongodb+srv://, postgres://, postgresql://, mysql://, sqlite://,
	// or a bare file path (treated as sqlite).
	ConnectionString string `yaml:"connection_string"`

	// FallbackPath is the embedded sqlite file used when a document
	// backend (mongo) can't be dialed at startup.
	FallbackPath string `yaml:"fallback_path,omitempty"`

	MaxOpenConns    int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
}

func (c *StorageConfig) SetDefaults() {
	if c.ConnectionString == "" {
		c.ConnectionString = "./memori.db"
	}
	if c.FallbackPath == "" {
		c.FallbackPath = "./memori-fallback.db"
	}
}

func (c *StorageConfig) Validate() error {
	if c.ConnectionString == "" {
		return fmt.Errorf("storage.connection_string is required")
	}
	return nil
}

// SQLDialect reports the SQL dialect implied by ConnectionString, or
// "" for a document backend (mongo).
func (c *StorageConfig) SQLDialect() string {
	switch {
	case strings.HasPrefix(c.ConnectionString, "mongodb://"), strings.HasPrefix(c.ConnectionString, "mongodb+srv://"):
		return ""
	case strings.HasPrefix(c.ConnectionString, "postgres://"), strings.HasPrefix(c.ConnectionString, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(c.ConnectionString, "mysql://"):
		return "mysql"
	default:
		return "sqlite"
	}
}

// TenantConfig holds defaults for the tenant context registry.
type TenantConfig struct {
	// AutoActivateSingleton lets Manager.Current fall back to the only
	// active tenant context when the caller's key isn't registered.
	// Only safe for single-tenant deployments.
	AutoActivateSingleton bool `yaml:"auto_activate_singleton,omitempty"`

	// IdleTimeout expires a tenant context that hasn't been touched
	// for this long. Zero uses the manager's built-in default.
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"`
}

// RateLimitConfig mirrors pkg/ratelimit.Config/LimitRule as plain,
// YAML-friendly types so it can be unmarshaled directly.
type RateLimitConfig struct {
	Enabled bool                 `yaml:"enabled,omitempty"`
	Backend string               `yaml:"backend,omitempty"` // "memory" or "sql"
	Limits  []RateLimitRuleConfig `yaml:"limits,omitempty"`
}

type RateLimitRuleConfig struct {
	Type   string `yaml:"type"`   // token, count, storage_bytes, memory_count
	Window string `yaml:"window"` // minute, hour, day, week, month, cumulative
	Limit  int64  `yaml:"limit"`
}

func (c *RateLimitConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Backend != "memory" && c.Backend != "sql" {
		return fmt.Errorf("rate_limiting.backend must be 'memory' or 'sql', got %q", c.Backend)
	}
	if len(c.Limits) == 0 {
		return fmt.Errorf("rate_limiting.limits is required when enabled")
	}
	validTypes := map[string]bool{"token": true, "count": true, "storage_bytes": true, "memory_count": true}
	validWindows := map[string]bool{"minute": true, "hour": true, "day": true, "week": true, "month": true, "cumulative": true}
	for i, l := range c.Limits {
		if !validTypes[l.Type] {
			return fmt.Errorf("rate_limiting.limits[%d].type %q invalid", i, l.Type)
		}
		if !validWindows[l.Window] {
			return fmt.Errorf("rate_limiting.limits[%d].window %q invalid", i, l.Window)
		}
		if l.Limit <= 0 {
			return fmt.Errorf("rate_limiting.limits[%d].limit must be positive", i)
		}
	}
	return nil
}

// LLMProviderConfig configures one named LLM provider entry (e.g. the
// classifier's provider, or an agent-facing provider being wrapped by
// pkg/recording.Wrap).
type LLMProviderConfig struct {
	Type   string `yaml:"type"` // openai, openai-compatible, anthropic
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model"`
	Host   string `yaml:"host,omitempty"`
}

func (c *LLMProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("llm provider: type is required")
	}
	if c.Model == "" {
		return fmt.Errorf("llm provider: model is required")
	}
	return nil
}

// EmbedderProviderConfig configures the optional embedding provider used
// by the semantic search stage. Type == "" disables semantic search and
// the keyword/full-text stages run alone.
type EmbedderProviderConfig struct {
	Type       string `yaml:"type,omitempty"` // openai, cohere, ollama
	APIKey     string `yaml:"api_key,omitempty"`
	Model      string `yaml:"model,omitempty"`
	Host       string `yaml:"host,omitempty"`
	Dimension  int    `yaml:"dimension,omitempty"`
	Timeout    int    `yaml:"timeout,omitempty"` // seconds
	BatchSize  int    `yaml:"batch_size,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// SetDefaults applies default values to EmbedderProviderConfig.
func (c *EmbedderProviderConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks EmbedderProviderConfig for errors. An empty Type is
// valid and simply disables the semantic search stage.
func (c *EmbedderProviderConfig) Validate() error {
	switch c.Type {
	case "", "openai", "cohere", "ollama":
		return nil
	default:
		return fmt.Errorf("embedding: unsupported provider type %q", c.Type)
	}
}

// InjectionConfig controls how recalled memory reaches outbound requests.
type InjectionConfig struct {
	Mode  string `yaml:"mode,omitempty"` // conscious, auto
	Limit int    `yaml:"limit,omitempty"`
}

func (c *InjectionConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "conscious"
	}
	if c.Limit == 0 {
		c.Limit = 5
	}
}

func (c *InjectionConfig) Validate() error {
	if c.Mode != "conscious" && c.Mode != "auto" {
		return fmt.Errorf("injection.mode must be 'conscious' or 'auto', got %q", c.Mode)
	}
	return nil
}

// ExecutorConfig sizes the background classification queue.
type ExecutorConfig struct {
	QueueSize int `yaml:"queue_size,omitempty"`
}

func (c *ExecutorConfig) SetDefaults() {
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
}

// ObservabilityConfig configures tracing and metrics export.
type ObservabilityConfig struct {
	TracingEnabled  bool   `yaml:"tracing_enabled,omitempty"`
	OTLPEndpoint    string `yaml:"otlp_endpoint,omitempty"`
	MetricsEnabled  bool   `yaml:"metrics_enabled,omitempty"`
	MetricsAddr     string `yaml:"metrics_addr,omitempty"`
	ServiceName     string `yaml:"service_name,omitempty"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "memori"
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
}

// SetDefaults applies defaults across every section.
func (c *Config) SetDefaults() {
	c.Storage.SetDefaults()
	c.RateLimiting.SetDefaults()
	c.Injection.SetDefaults()
	c.Executor.SetDefaults()
	c.Observability.SetDefaults()
	c.Logger.SetDefaults()
	c.Embedding.SetDefaults()
	c.Vector.SetDefaults()
}

// Validate checks the whole config after defaults have been applied.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.RateLimiting.Validate(); err != nil {
		return err
	}
	if err := c.Injection.Validate(); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if c.Embedding.Type != "" {
		if err := c.Vector.Validate(); err != nil {
			return fmt.Errorf("vector: %w", err)
		}
	}
	for name, p := range c.LLM {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("llm[%s]: %w", name, err)
		}
	}
	return nil
}
