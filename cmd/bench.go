package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/friday/internal/bench"
	"github.com/crystaldolphin/friday/internal/dependency"
	"github.com/crystaldolphin/friday/internal/memory"
	"github.com/crystaldolphin/friday/internal/shared/cmdutils"
)

var (
	benchPrompts  []string
	benchBackends []string
	benchRepeat   int
	benchOutDir   string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time conversation turns across memory backends",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().StringArrayVarP(&benchPrompts, "prompt", "p",
		[]string{"What is the best roadmap to learn Rust?"}, "Prompt to send (repeatable)")
	benchCmd.Flags().StringSliceVarP(&benchBackends, "backend", "b",
		[]string{memory.BackendTransient, memory.BackendDurable, memory.BackendHybrid}, "Backends to compare")
	benchCmd.Flags().IntVarP(&benchRepeat, "repeat", "r", 3, "Runs of every prompt per backend")
	benchCmd.Flags().StringVarP(&benchOutDir, "out", "o", "", "Also write the results to a file in this directory")
}

func runBench(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()

	// One client and one persistence connection shared by every backend;
	// each backend still gets its own session.
	base, err := dependency.New(ctx, cfg, dependency.Options{Backend: memory.BackendTransient})
	if err != nil {
		return err
	}
	defer base.Close()
	client := base.Client()

	needsStore := false
	for _, b := range benchBackends {
		needsStore = needsStore || memory.NeedsPersistence(b)
	}
	var opts dependency.Options
	if needsStore {
		store, err := dependency.OpenPersistence(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Persistence = store
	}

	factory := func(ctx context.Context, backend string) (bench.Handler, func(), error) {
		o := opts
		o.Backend = backend
		o.Client = client
		c, err := dependency.New(ctx, cfg, o)
		if err != nil {
			return nil, nil, err
		}
		return c.Router(), func() { c.Close() }, nil
	}

	fmt.Printf("%s Benchmarking %s (%d prompt(s) x %d)\n",
		logo, strings.Join(benchBackends, ", "), len(benchPrompts), benchRepeat)

	results, err := bench.Run(ctx, bench.Options{
		Backends: benchBackends,
		Prompts:  benchPrompts,
		Repeat:   benchRepeat,
	}, factory)
	if err != nil {
		return turnError(err)
	}

	fmt.Println()
	bench.Report(os.Stdout, results)

	if benchOutDir != "" {
		path, err := writeBenchResults(benchOutDir, results)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s Results saved to %s\n", cmdutils.Check(true), path)
	}
	return nil
}

func writeBenchResults(dir string, results []bench.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "benchmark_results_"+time.Now().Format("20060102_150405")+".txt")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	bench.Report(f, results)
	fmt.Fprintln(f)
	for _, r := range results {
		fmt.Fprintf(f, "%s last result:\n%s\n\n", r.Backend, r.LastResult)
	}
	return path, nil
}
