package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	consul "github.com/knadh/koanf/providers/consul/v2"
	etcd "github.com/knadh/koanf/providers/etcd/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix used to overlay individual settings from the
// environment on top of whatever file/consul/etcd source was loaded —
// e.g. MEMORI_STORAGE_CONNECTION_STRING overrides storage.connection_string.
const envPrefix = "MEMORI_"

// SourceType names where configuration is loaded from.
type SourceType string

const (
	SourceFile      SourceType = "file"
	SourceConsul    SourceType = "consul"
	SourceEtcd      SourceType = "etcd"
	SourceZookeeper SourceType = "zookeeper"
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Type SourceType

	// Path is a file path for SourceFile, or a key/path within the
	// remote store for SourceConsul/SourceEtcd/SourceZookeeper.
	Path string

	Endpoints []string

	// Watch starts a background watcher that re-loads and invokes
	// OnChange whenever the source changes. It applies to any source
	// whose provider supports watching; for any other, a warning is
	// logged and nothing is watched.
	Watch bool

	OnChange func(*Config) error
}

// Loader loads and, optionally, watches memori configuration from a
// file or one of the remote KV stores the rest of the pack's dependency
// surface already speaks (consul, etcd, zookeeper).
type Loader struct {
	koanf    *koanf.Koanf
	options  LoaderOptions
	parser   *yaml.YAML
	stopChan chan struct{}
}

func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Type == "" {
		opts.Type = SourceFile
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	if len(opts.Endpoints) == 0 {
		switch opts.Type {
		case SourceConsul:
			opts.Endpoints = []string{"localhost:8500"}
		case SourceEtcd:
			opts.Endpoints = []string{"localhost:2379"}
		case SourceZookeeper:
			opts.Endpoints = []string{"localhost:2181"}
		}
	}

	return &Loader{
		koanf:    koanf.New("."),
		options:  opts,
		parser:   yaml.Parser(),
		stopChan: make(chan struct{}),
	}, nil
}

// Load reads, env-expands, and unmarshals configuration, applying
// defaults before returning. If opts.Watch is set, a background
// goroutine is started to push reloaded configs to OnChange.
func (l *Loader) Load() (*Config, error) {
	provider, parser, err := l.buildProvider()
	if err != nil {
		return nil, err
	}

	if err := l.koanf.Load(provider, parser); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.options.Type, err)
	}
	if err := l.koanf.Load(envProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to overlay environment settings: %w", err)
	}
	if err := l.expandEnvVars(); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}

	if l.options.Watch {
		go l.watch(provider, parser)
	}

	return cfg, nil
}

func (l *Loader) buildProvider() (koanf.Provider, koanf.Parser, error) {
	switch l.options.Type {
	case SourceFile:
		return file.Provider(l.options.Path), l.parser, nil

	case SourceConsul:
		consulConfig := api.DefaultConfig()
		consulConfig.Address = l.options.Endpoints[0]
		return consul.Provider(consul.Config{Cfg: consulConfig, Key: l.options.Path}), nil, nil

	case SourceEtcd:
		return etcd.Provider(etcd.Config{
			Endpoints:   l.options.Endpoints,
			DialTimeout: 5 * time.Second,
			Key:         l.options.Path,
		}), nil, nil

	case SourceZookeeper:
		zkProvider, err := NewZookeeperProvider(l.options.Endpoints, l.options.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zookeeper provider: %w", err)
		}
		return zkProvider, l.parser, nil

	default:
		return nil, nil, fmt.Errorf("unsupported config source: %s", l.options.Type)
	}
}

// envProvider overlays MEMORI_SECTION_FIELD style environment
// variables onto the loaded config, e.g. MEMORI_STORAGE_CONNECTION_STRING
// becomes storage.connection_string. Only the first underscore after
// the prefix separates section from field, so a section whose own name
// contains an underscore (rate_limiting) cannot be reached this way.
func envProvider() *env.Env {
	return env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	})
}

type watcher interface {
	Watch(cb func(event interface{}, err error)) error
}

func (l *Loader) watch(provider koanf.Provider, parser koanf.Parser) {
	w, ok := provider.(watcher)
	if !ok {
		slog.Warn("config provider does not support watching", "type", l.options.Type)
		return
	}

	err := w.Watch(func(event interface{}, err error) {
		select {
		case <-l.stopChan:
			return
		default:
		}
		if err != nil {
			slog.Warn("config watch error", "error", err)
			return
		}

		if loadErr := l.koanf.Load(provider, parser); loadErr != nil {
			slog.Warn("failed to reload config", "error", loadErr)
			return
		}
		if expandErr := l.expandEnvVars(); expandErr != nil {
			slog.Warn("failed to expand env vars in reloaded config", "error", expandErr)
			return
		}

		cfg, unmarshalErr := l.unmarshal()
		if unmarshalErr != nil {
			slog.Warn("reloaded config processing failed", "error", unmarshalErr)
			return
		}

		if l.options.OnChange != nil {
			if cbErr := l.options.OnChange(cfg); cbErr != nil {
				slog.Warn("config change callback failed", "error", cbErr)
			}
		}
	})
	if err != nil {
		slog.Warn("config watch stopped", "error", err)
	}
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) expandEnvVars() error {
	expanded := ExpandEnvVarsInData(l.koanf.Raw())
	expandedMap, ok := expanded.(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected type after environment variable expansion")
	}

	newKoanf := koanf.New(".")
	if err := newKoanf.Load(confmap.Provider(expandedMap, "."), nil); err != nil {
		return fmt.Errorf("failed to reload expanded config: %w", err)
	}
	l.koanf = newKoanf
	return nil
}

// Stop ends a background watch started by Load.
func (l *Loader) Stop() {
	close(l.stopChan)
}

// Load is a convenience wrapper around NewLoader(opts).Load().
func Load(opts LoaderOptions) (*Config, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}
	return loader.Load()
}

// ParseSourceType converts a CLI/env string to a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "":
		return SourceFile, nil
	case "consul":
		return SourceConsul, nil
	case "etcd":
		return SourceEtcd, nil
	case "zookeeper", "zk":
		return SourceZookeeper, nil
	default:
		return "", fmt.Errorf("invalid config source: %s (valid: file, consul, etcd, zookeeper)", s)
	}
}
