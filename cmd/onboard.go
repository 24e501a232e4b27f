package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/friday/internal/config"
	"github.com/crystaldolphin/friday/internal/shared/cmdutils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := configPath()

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
		fmt.Printf("%s Config refreshed at %s\n", cmdutils.Check(true), cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("%s Created config at %s\n", cmdutils.Check(true), cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	for _, dir := range []string{config.DataDir(), cfg.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Printf("%s Logs at %s\n", cmdutils.Check(true), cfg.LogDir())

	fmt.Printf("\n%s friday is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Println("  1. Start Ollama and pull a model: ollama pull llama3.2")
	fmt.Printf("     or set provider.name to gemini/openai in %s and add an API key\n", cfgPath)
	fmt.Println("  2. Pick a memory backend (transient, durable, hybrid) under memory.backend")
	fmt.Printf("  3. Chat: friday agent -m \"What is Python?\"\n")
	return nil
}
