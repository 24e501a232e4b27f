package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/friday/internal/agent"
	"github.com/crystaldolphin/friday/internal/dependency"
	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/shared/cmdutils"
)

var (
	agentMessage string
	agentSession int64
	agentBackend string
	agentLogs    bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Chat with friday",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().Int64VarP(&agentSession, "session", "s", 0, "Resume a persisted session (durable and hybrid backends)")
	agentCmd.Flags().StringVarP(&agentBackend, "backend", "b", "", "Memory backend: transient, durable, hybrid or none")
	agentCmd.Flags().BoolVar(&agentLogs, "logs", false, "Show runtime logs")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"q":     true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runAgent(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, agentLogs)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := dependency.New(ctx, cfg, dependency.Options{
		Backend:   agentBackend,
		SessionID: agentSession,
	})
	if err != nil {
		return err
	}
	defer container.Close()

	slog.Info("Agent started", "backend", backendName(cfg.Memory.Backend), "session", container.SessionID())

	if agentMessage != "" {
		return runSingleMessage(ctx, container.Router())
	}

	listenForSignals(cancel, container)
	return runInteractive(ctx, container)
}

func backendName(configured string) string {
	if agentBackend != "" {
		return agentBackend
	}
	if configured == "" {
		return "transient"
	}
	return configured
}

// runSingleMessage sends one message to the router and prints the response.
func runSingleMessage(ctx context.Context, router *agent.Router) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	reply, err := router.HandleInput(ctx, agentMessage)
	if err != nil {
		return turnError(err)
	}
	cmdutils.PrintResponse(reply)
	return nil
}

// runInteractive reads lines from stdin and answers each one before
// prompting again. Lines starting with "/" are local commands.
func runInteractive(ctx context.Context, container *dependency.Container) error {
	router := container.Router()

	fmt.Println(cmdutils.Panel(logo+" friday", []string{
		"Ask a question or name a file to analyze.",
		cmdutils.Dim("/summary  /history [n]  /limits <messages> [tokens]  /clear  /help  exit"),
	}))
	if id := container.SessionID(); id != 0 {
		fmt.Println(cmdutils.Dim(fmt.Sprintf("Session %d (resume with: friday agent -s %d)", id, id)))
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\nYou: ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		if strings.HasPrefix(line, "/") {
			if err := runLocalCommand(ctx, router, line); err != nil {
				cmdutils.PrintError(err)
			}
			continue
		}

		slog.Info("User input", "input", line)
		reply, err := router.HandleInput(ctx, line)
		if err != nil {
			slog.Error("Turn failed", "error", err)
			cmdutils.PrintError(turnError(err))
			continue
		}
		slog.Info("Response sent", "chars", len(reply))
		cmdutils.PrintResponse(reply)
	}
}

func runLocalCommand(ctx context.Context, router *agent.Router, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/summary":
		s, err := router.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Println(cmdutils.Panel("Summary", []string{
			fmt.Sprintf("Messages:       %d", s.TotalMessages),
			fmt.Sprintf("Duration:       %s", s.SessionDuration.Round(time.Second)),
			fmt.Sprintf("Files accessed: %d", s.UniqueFilesAccessed),
			fmt.Sprintf("Last action:    %s", s.LastAction),
		}))
	case "/history":
		limit := 0
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("usage: /history [n]")
			}
			limit = n
		}
		msgs, err := router.ContextMessages(ctx, limit)
		if err != nil {
			return err
		}
		cmdutils.PrintMessages(os.Stdout, msgs)
	case "/limits":
		store := router.Store()
		if len(fields) == 1 {
			l := store.Limits()
			fmt.Printf("max messages: %d, max tokens per message: %d\n", l.MaxContextMessages, l.MaxTokensPerMessage)
			return nil
		}
		maxMessages, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("usage: /limits <messages> [tokens]")
		}
		maxTokens := 0
		if len(fields) > 2 {
			if maxTokens, err = strconv.Atoi(fields[2]); err != nil {
				return fmt.Errorf("usage: /limits <messages> [tokens]")
			}
		}
		if err := store.SetLimits(ctx, maxMessages, maxTokens); err != nil {
			return err
		}
		l := store.Limits()
		fmt.Printf("%s limits: %d messages, %d tokens per message\n", cmdutils.Check(true), l.MaxContextMessages, l.MaxTokensPerMessage)
	case "/clear":
		if err := router.Clear(ctx); err != nil {
			return err
		}
		fmt.Println(cmdutils.Check(true) + " conversation cleared")
	case "/help":
		fmt.Println("/summary                   conversation statistics")
		fmt.Println("/history [n]               show the last n messages in context")
		fmt.Println("/limits <messages> [tokens] change context limits")
		fmt.Println("/clear                     start over")
		fmt.Println("exit                       quit")
	default:
		return fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return nil
}

// turnError adds a hint for failures the user can act on.
func turnError(err error) error {
	switch {
	case errors.Is(err, schema.ErrTimeout):
		return fmt.Errorf("the model did not answer in time: %w", err)
	case errors.Is(err, schema.ErrUpstream):
		return fmt.Errorf("the model request failed: %w", err)
	case errors.Is(err, schema.ErrStorage):
		return fmt.Errorf("conversation storage failed: %w", err)
	}
	return err
}

// listenForSignals closes the container on SIGINT or SIGTERM and exits.
func listenForSignals(cancel context.CancelFunc, container *dependency.Container) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Println("\nGoodbye!")
		slog.Info("Shutting down", "signal", sig.String())

		cancel()
		container.Close()
		os.Exit(0)
	}()
}
