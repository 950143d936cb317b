package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show board summary",
	Long: `Displays a summary of the board: task counts per column, WIP utilization,
and overdue counts.

Use --watch to keep the display live-updating by polling the server.
Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().BoolP("watch", "w", false, "live-update the summary")
	boardCmd.Flags().Duration("interval", 2*time.Second, "poll interval for --watch") //nolint:mnd // default poll
	boardCmd.Flags().String("assignee", "", "count only tasks assigned to this user")
	boardCmd.Flags().String("type", "", "count only tasks of this type")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, newLogger())
	if err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	assignee, _ := cmd.Flags().GetString("assignee")
	taskType, _ := cmd.Flags().GetString("type")
	criteria := board.Criteria{AssigneeID: assignee, TaskType: taskType}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := renderBoard(ctx, cfg, client, criteria); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			clearScreen()
			if err := renderBoard(ctx, cfg, client, criteria); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: rendering board: %v\n", err)
			}
		}
	}
}

func renderBoard(ctx context.Context, cfg *config.Config, client *remote.Client, criteria board.Criteria) error {
	tasks, err := client.FetchTasks(ctx, cfg.Board.ID)
	if err != nil {
		return err
	}

	summary := board.Summarize(cfg.Board.Name, board.Project(tasks, criteria), cfg.WIPLimitsByStatus(), time.Now())

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, summary)
	}
	if format == output.FormatCompact {
		output.OverviewCompact(os.Stdout, summary)
		return nil
	}

	output.OverviewTable(os.Stdout, summary)
	return nil
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
