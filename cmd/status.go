package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/recipebox/recipebox/internal/config"
	"github.com/recipebox/recipebox/internal/providers"
	"github.com/recipebox/recipebox/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recipebox status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s recipebox Status\n\n", logo)

	cfgMark := "✗"
	if _, err := os.Stat(cfgPath); err == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  (invalid: %v)\n", err)
	}

	params := cfg.ProviderParams()
	label := params.ProviderName
	if spec := providers.FindByName(params.ProviderName); spec != nil {
		label = spec.Label()
	}
	keyMark := "(no API key)"
	if params.APIKey != "" {
		keyMark = "✓"
	}
	fmt.Printf("Provider:  %s %s\n", label, keyMark)
	fmt.Printf("Model:     %s\n", params.Model)
	fmt.Printf("Sessions:  ttl %s, capacity %d\n", cfg.Session.TTL(), cfg.Session.Capacity)
	fmt.Printf("HTTP:      %s:%d (auth %v)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.APIKey != "")
	fmt.Printf("Telegram:  %v\n\n", cfg.Telegram.Enabled)

	fmt.Println("Tool servers:")
	if len(cfg.ToolServers) == 0 {
		fmt.Println("  (none configured)")
	}
	names := make([]string, 0, len(cfg.ToolServers))
	for name := range cfg.ToolServers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ts := cfg.ToolServers[name]
		fmt.Printf("  %-12s %s %v\n", name, ts.Command, ts.Args)
	}

	if dir := cfg.Session.ArchivePath(); dir != "" {
		archiver, err := session.NewFileArchiver(dir)
		if err != nil {
			return err
		}
		archives := archiver.List()
		fmt.Printf("\nArchived conversations: %d (%s)\n", len(archives), dir)
		for i, a := range archives {
			if i == 5 {
				fmt.Println("  ...")
				break
			}
			fmt.Printf("  %-30s %-8s %s\n", a.Key, a.Reason, a.ArchivedAt)
		}
	}
	return nil
}
