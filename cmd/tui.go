package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/engine"
	"github.com/twiced-technology-gmbh/taskboard/internal/logging"
	"github.com/twiced-technology-gmbh/taskboard/internal/store"
	"github.com/twiced-technology-gmbh/taskboard/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal board",
	Long: `Opens the interactive board. Cards move optimistically: the board
updates as soon as a card is dropped and rolls back with a notification if
the server rejects the move.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	addTUIFlags(tuiCmd)
	rootCmd.AddCommand(tuiCmd)
}

func addTUIFlags(c *cobra.Command) {
	c.Flags().StringP("search", "s", "", "initial search text")
	c.Flags().String("assignee", "", "show only tasks assigned to this user")
	c.Flags().String("type", "", "show only tasks of this type")
	c.Flags().Duration("refresh", 0, "poll the server at this interval (0 disables)")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.ProfileTUI, cfg.Dir())
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck // log file close on exit

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	policy, err := engine.ParsePolicy(cfg.Sync.Policy)
	if err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "%v", err)
	}

	search, _ := cmd.Flags().GetString("search")
	assignee, _ := cmd.Flags().GetString("assignee")
	taskType, _ := cmd.Flags().GetString("type")
	refresh, _ := cmd.Flags().GetDuration("refresh")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	inbox := engine.NewInbox()
	eng := engine.New(store.New(nil), client, engine.Options{
		BoardID:  cfg.Board.ID,
		Policy:   policy,
		Timeout:  cfg.SyncTimeout(),
		Notifier: inbox,
		Logger:   logger,
	})

	model := tui.NewBoard(eng, tui.Options{
		BoardName:     cfg.Board.Name,
		Criteria:      board.Criteria{SearchText: search, AssigneeID: assignee, TaskType: taskType},
		WIPLimits:     cfg.WIPLimitsByStatus(),
		DragThreshold: cfg.Drag.Threshold,
		TitleLines:    cfg.TitleLines(),
		RefreshEvery:  refresh,
		Inbox:         inbox,
		Deleter:       client,
		Logger:        logger,
		Context:       ctx,
		Now:           time.Now,
	})

	logger.WithField("board", cfg.Board.ID).Info("starting terminal board")
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
