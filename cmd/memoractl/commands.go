package main

import (
	"context"
	"fmt"
	"runtime/debug"
)

// SearchCmd runs an ad hoc query over a tenant's long-term memory.
type SearchCmd struct {
	tenantFlags
	Query string `arg:"" help:"Search query."`
	Limit int    `help:"Maximum results." default:"10"`
}

func (c *SearchCmd) Run(cli *CLI) error {
	m, err := loadMemori(cli.Config)
	if err != nil {
		return err
	}
	defer m.Close()

	hits, err := m.Search(context.Background(), c.context(), c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("[%.3f] %s (%s)\n", h.Score, h.Memory.Summary, h.Memory.Category)
	}
	return nil
}

// AddCmd stores a fact directly as long-term memory.
type AddCmd struct {
	tenantFlags
	Text     string `arg:"" help:"Memory text to store."`
	Category string `help:"Memory category."`
}

func (c *AddCmd) Run(cli *CLI) error {
	m, err := loadMemori(cli.Config)
	if err != nil {
		return err
	}
	defer m.Close()

	var metadata map[string]any
	if c.Category != "" {
		metadata = map[string]any{"category": c.Category}
	}
	if err := m.Add(context.Background(), c.context(), c.Text, metadata); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	fmt.Println("stored")
	return nil
}

// StatsCmd reports a tenant's current memory footprint.
type StatsCmd struct {
	tenantFlags
}

func (c *StatsCmd) Run(cli *CLI) error {
	m, err := loadMemori(cli.Config)
	if err != nil {
		return err
	}
	defer m.Close()

	stats, err := m.GetStats(context.Background(), c.context())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Printf("chat turns:       %d\n", stats.ChatCount)
	fmt.Printf("short-term items: %d\n", stats.ShortTermCount)
	fmt.Printf("long-term items:  %d\n", stats.LongTermCount)
	fmt.Printf("storage bytes:    %d\n", stats.ApproxBytes)
	return nil
}

// ClearCmd removes a tenant's memory, in whole or by tier.
type ClearCmd struct {
	tenantFlags
	Tier string `help:"Tier to clear: short_term, long_term, or empty for everything."`
}

func (c *ClearCmd) Run(cli *CLI) error {
	m, err := loadMemori(cli.Config)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.ClearMemory(context.Background(), c.context(), c.Tier); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	fmt.Println("cleared")
	return nil
}

// SessionCmd mints a new session_id for a user/assistant pair.
type SessionCmd struct {
	User      string `required:"" help:"Tenant user_id."`
	Assistant string `required:"" help:"Tenant assistant_id."`
}

func (c *SessionCmd) Run(cli *CLI) error {
	m, err := loadMemori(cli.Config)
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Println(m.StartNewConversation(c.User, c.Assistant))
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("memoractl version %s\n", version)
	return nil
}
