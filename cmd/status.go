package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/friday/internal/config"
	"github.com/crystaldolphin/friday/internal/memory"
	"github.com/crystaldolphin/friday/internal/providers"
	"github.com/crystaldolphin/friday/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show friday status",
	RunE:  runStatus,
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := configPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println(cmdutils.Panel(logo+" friday status", []string{
			fmt.Sprintf("Config:    %s %s", cfgPath, cmdutils.Check(exists(cfgPath))),
			fmt.Sprintf("  (could not load config: %v)", err),
		}))
		return nil
	}

	lines := []string{
		fmt.Sprintf("Config:    %s %s", cfgPath, cmdutils.Check(exists(cfgPath))),
	}

	params, spec, perr := cfg.MatchProvider()
	if perr != nil {
		lines = append(lines, fmt.Sprintf("Provider:  %s %v", cmdutils.Check(false), perr))
	} else {
		key := ""
		if spec.NeedsAPIKey {
			key = " key " + cmdutils.Check(params.APIKey != "")
		}
		lines = append(lines,
			fmt.Sprintf("Provider:  %s%s", spec.Label(), key),
			fmt.Sprintf("Model:     %s", params.Model),
		)
		if params.BaseEndpoint != "" {
			lines = append(lines, fmt.Sprintf("Endpoint:  %s%s", params.BaseEndpoint, params.ChatCompletion))
		}
	}

	backend := cfg.Memory.Backend
	if backend == "" {
		backend = memory.BackendTransient
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Memory:    %s (%d messages, %d tokens per message)",
			backend, cfg.Memory.MaxContextMessages, cfg.Memory.MaxTokensPerMessage),
	)
	if memory.NeedsPersistence(backend) {
		switch cfg.Storage.Driver {
		case config.DriverMongo:
			lines = append(lines, fmt.Sprintf("Storage:   mongo %s/%s", cfg.Storage.MongoURI, cfg.Storage.MongoDatabase))
		default:
			lines = append(lines, fmt.Sprintf("Storage:   sqlite %s %s", cfg.StoragePath(), cmdutils.Check(exists(cfg.StoragePath()))))
		}
	}
	lines = append(lines,
		fmt.Sprintf("Files:     %s %s", cfg.AnalysisRoot(), cmdutils.Check(exists(cfg.AnalysisRoot()))),
		fmt.Sprintf("Logs:      %s", cfg.LogDir()),
	)

	if verr := cfg.Validate(); verr != nil {
		lines = append(lines, "", cmdutils.Check(false)+" "+verr.Error())
	}

	fmt.Println(cmdutils.Panel(logo+" friday status", lines))

	fmt.Println(cmdutils.Header("Providers"))
	for _, s := range providers.PROVIDERS {
		mark := cmdutils.Dim("(local)")
		if s.NeedsAPIKey {
			mark = cmdutils.Dim("(set " + s.EnvKey + " or provider.apiKey)")
		}
		fmt.Printf("  %-20s %s\n", s.Label(), mark)
	}
	return nil
}
