package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/friday/internal/dependency"
	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/session"
	"github.com/crystaldolphin/friday/internal/shared/cmdutils"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted conversations",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the messages of a persisted conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the last n messages")
}

// openStore opens the configured session store. The returned function
// closes it and the log file.
func openStore(ctx context.Context) (session.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	closeLog, err := setupLogging(cfg, false)
	if err != nil {
		return nil, nil, err
	}
	store, err := dependency.OpenPersistence(ctx, cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		closeLog()
	}, nil
}

func runSessions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, done, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	infos, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No sessions yet. Start one with: friday agent -b durable")
		return nil
	}

	fmt.Println(cmdutils.Header(fmt.Sprintf("%-6s %-12s %-20s %-9s %s", "ID", "USER", "CREATED", "MESSAGES", "LAST ACTIVITY")))
	for _, info := range infos {
		last := "-"
		if !info.LastActivity.IsZero() {
			last = info.LastActivity.Local().Format("2006-01-02 15:04:05")
		}
		user := info.UserID
		if user == "" {
			user = "-"
		}
		fmt.Printf("%-6d %-12s %-20s %-9d %s\n",
			info.ID, user, info.CreatedAt.Local().Format("2006-01-02 15:04:05"), info.MessageCount, last)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	ctx := cmd.Context()
	store, done, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := store.GetSession(ctx, id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("no session %d (see: friday sessions)", id)
		}
		return err
	}

	q := session.Query{Limit: -1}
	if historyLimit > 0 {
		q.Limit = historyLimit
	}
	stored, err := store.LoadMessages(ctx, id, q)
	if err != nil {
		return err
	}

	msgs := make([]schema.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, m.Message)
	}
	cmdutils.PrintMessages(os.Stdout, msgs)
	return nil
}
