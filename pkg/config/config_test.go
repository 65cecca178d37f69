package config

import (
	"os"
	"testing"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Storage.ConnectionString == "" {
		t.Error("expected a default storage connection string")
	}
	if cfg.Injection.Mode != "conscious" {
		t.Errorf("expected default injection mode 'conscious', got %q", cfg.Injection.Mode)
	}
	if cfg.Injection.Limit != 5 {
		t.Errorf("expected default injection limit 5, got %d", cfg.Injection.Limit)
	}
	if cfg.Executor.QueueSize != 256 {
		t.Errorf("expected default queue size 256, got %d", cfg.Executor.QueueSize)
	}
	if cfg.RateLimiting.Backend != "memory" {
		t.Errorf("expected default rate limit backend 'memory', got %q", cfg.RateLimiting.Backend)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaulted config to validate, got %v", err)
	}

	cfg.Injection.Mode = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid injection mode to fail validation")
	}
}

func TestRateLimitConfig_Validate(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, Backend: "memory"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error: enabled with no limits")
	}

	cfg.Limits = []RateLimitRuleConfig{{Type: "storage_bytes", Window: "cumulative", Limit: 1 << 20}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid cumulative storage_bytes limit, got %v", err)
	}

	cfg.Limits = append(cfg.Limits, RateLimitRuleConfig{Type: "bogus", Window: "day", Limit: 1})
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid limit type to fail validation")
	}
}

func TestStorageConfig_SQLDialect(t *testing.T) {
	cases := map[string]string{
		"postgres://localhost/db":  "postgres",
		"postgresql://localhost":   "postgres",
		"mysql://localhost/db":     "mysql",
		"sqlite:///tmp/memori.db":  "sqlite",
		"/tmp/memori.db":           "sqlite",
		"mongodb://localhost:27017": "",
	}
	for conn, want := range cases {
		c := StorageConfig{ConnectionString: conn}
		if got := c.SQLDialect(); got != want {
			t.Errorf("SQLDialect(%q) = %q, want %q", conn, got, want)
		}
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("MEMORI_TEST_VAR", "shhh")
	defer os.Unsetenv("MEMORI_TEST_VAR")

	if got := expandEnvVars("key=$MEMORI_TEST_VAR"); got != "key=shhh" {
		t.Errorf("expandEnvVars simple = %q", got)
	}
	if got := expandEnvVars("key=${MEMORI_TEST_VAR}"); got != "key=shhh" {
		t.Errorf("expandEnvVars braced = %q", got)
	}
	if got := expandEnvVars("key=${MEMORI_MISSING_VAR:-fallback}"); got != "key=fallback" {
		t.Errorf("expandEnvVars default = %q", got)
	}
}
