// Command memoractl is a one-shot CLI for inspecting and operating on a
// memori memory store directly — no daemon required, since every
// operation goes straight through pkg/memori against the configured
// storage backend.
//
// Usage:
//
//	memoractl search --user alice --assistant helper "favorite language"
//	memoractl add --user alice --assistant helper "prefers dark mode"
//	memoractl stats --user alice --assistant helper
//	memoractl clear --user alice --assistant helper --tier short_term
package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/memori/pkg/config"
	"github.com/kadirpekel/memori/pkg/memori"
	"github.com/kadirpekel/memori/pkg/tenant"
)

// CLI defines memoractl's command set.
var CLI struct {
	Config   string `short:"c" help:"Path to config file." type:"path" default:"memori.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`

	Search  SearchCmd  `cmd:"" help:"Search a tenant's long-term memory."`
	Add     AddCmd     `cmd:"" help:"Add a fact directly to long-term memory."`
	Stats   StatsCmd   `cmd:"" help:"Show a tenant's memory footprint."`
	Clear   ClearCmd   `cmd:"" help:"Clear a tenant's memory."`
	Session SessionCmd `cmd:"" help:"Start a new conversation session."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// tenantFlags are the user/assistant/session identifiers every
// tenant-scoped command shares.
type tenantFlags struct {
	User      string `required:"" help:"Tenant user_id."`
	Assistant string `required:"" help:"Tenant assistant_id."`
	Session   string `help:"Tenant session_id (omit for assistant-wide scope)."`
}

func (f tenantFlags) context() tenant.Context {
	return tenant.Context{UserID: f.User, AssistantID: f.Assistant, SessionID: f.Session}
}

func loadMemori(configPath string) (*memori.Memori, error) {
	cfg, err := config.Load(config.LoaderOptions{Type: config.SourceFile, Path: configPath})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if CLI.LogLevel != "" {
		cfg.Logger.Level = CLI.LogLevel
	}
	return memori.New(context.Background(), cfg)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("memoractl"),
		kong.Description("Inspect and operate on a memori memory store."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
