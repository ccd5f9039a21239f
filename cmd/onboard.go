package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recipebox/recipebox/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := onboardDefaults()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	fmt.Printf("\n%s recipebox is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your API key to %s (or set %s)\n", cfgPath, config.EnvAPIKey)
	fmt.Println("  2. Add your recipe tool server under toolServers")
	fmt.Printf("  3. Chat: recipebox chat -m \"What can I cook tonight?\"\n")
	return nil
}

// onboardDefaults is DefaultConfig with the built-in web fetch server
// registered, so a fresh install can already read recipe sites.
func onboardDefaults() config.Config {
	cfg := config.DefaultConfig()
	if exe, err := os.Executable(); err == nil {
		cfg.ToolServers["web"] = config.ToolServerConfig{Command: exe, Args: []string{"webfetch-server"}}
	}
	return cfg
}
