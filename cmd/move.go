package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var moveCmd = &cobra.Command{
	Use:   "move ID[,ID,...] [STATUS|COLUMN]",
	Short: "Move a task to a different column",
	Long: `Changes the status of a task. Provide the new status (TODO, IN_PROGRESS,
REVIEWED, DONE) or column (todo, in-progress, review, done) directly, or use
--next/--prev to move along the board's columns.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // 1 or 2 positional args
	RunE: runMove,
}

func init() {
	moveCmd.Flags().Bool("next", false, "move to the next column")
	moveCmd.Flags().Bool("prev", false, "move to the previous column")
	rootCmd.AddCommand(moveCmd)
}

// moveTarget says where a task goes: an absolute status or a column step.
type moveTarget struct {
	status task.Status
	step   int
}

func runMove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}
	target, err := resolveMoveTarget(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, newLogger())
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Single ID: full output.
	if len(ids) == 1 {
		t, oldStatus, err := executeMove(ctx, client, ids[0], target)
		if err != nil {
			return err
		}
		return outputMoveResult(t, oldStatus)
	}

	return runBatch(ids, func(id string) error {
		_, _, err := executeMove(ctx, client, id, target)
		return err
	})
}

// moveResult wraps a task with a changed flag for JSON output.
type moveResult struct {
	*task.Task
	Changed bool `json:"changed"`
}

// executeMove reads the task, resolves the target and asks the server to
// apply it. If the task already has the target status the server is not
// asked and oldStatus is empty.
func executeMove(ctx context.Context, client *remote.Client, id string, target moveTarget) (*task.Task, task.Status, error) {
	t, err := client.GetTask(ctx, id)
	if err != nil {
		return nil, "", err
	}

	newStatus := target.status
	if target.step != 0 {
		if newStatus, err = stepStatus(t, target.step); err != nil {
			return nil, "", err
		}
	}
	if t.Status == newStatus {
		return t, "", nil
	}

	oldStatus := t.Status
	moved, err := client.SetStatus(ctx, id, newStatus)
	if err != nil {
		return nil, "", err
	}
	return moved, oldStatus, nil
}

func resolveMoveTarget(cmd *cobra.Command, args []string) (moveTarget, error) {
	next, _ := cmd.Flags().GetBool("next")
	prev, _ := cmd.Flags().GetBool("prev")

	switch {
	case len(args) == 2: //nolint:mnd // positional arg
		s, err := parseMoveStatus(args[1])
		if err != nil {
			return moveTarget{}, err
		}
		return moveTarget{status: s}, nil
	case next:
		return moveTarget{step: 1}, nil
	case prev:
		return moveTarget{step: -1}, nil
	default:
		return moveTarget{}, clierr.New(clierr.InvalidInput, "provide a target status or use --next/--prev")
	}
}

// parseMoveStatus accepts a column ID or a status name.
func parseMoveStatus(raw string) (task.Status, error) {
	if col, ok := board.ParseColumn(raw); ok {
		s, _ := board.ColumnToStatus(col)
		return s, nil
	}
	s, err := task.ParseStatus(raw)
	if err != nil {
		return "", err
	}
	if err := task.ValidateMoveTarget(s); err != nil {
		return "", err
	}
	return s, nil
}

// stepStatus returns the status of the column delta steps away from t's.
func stepStatus(t *task.Task, delta int) (task.Status, error) {
	col := board.StatusToColumn(t.Status)
	if col == board.Unmapped {
		return "", task.ValidateDeletedMove(t.ID)
	}
	current, _ := board.ColumnByID(col)
	cols := board.Columns()
	idx := current.Ordinal + delta
	if idx < 0 || idx >= len(cols) {
		edge := "last"
		if delta < 0 {
			edge = "first"
		}
		return "", clierr.Newf(clierr.InvalidInput, "task %s is already in the %s column (%s)", t.ID, edge, current.Label).
			WithDetails(map[string]any{"id": t.ID, "column": string(col)})
	}
	s, _ := board.ColumnToStatus(cols[idx].ID)
	return s, nil
}

func outputMoveResult(t *task.Task, oldStatus task.Status) error {
	changed := oldStatus != ""
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, moveResult{Task: t, Changed: changed})
	}
	if !changed {
		output.Messagef(os.Stdout, "Task %s is already at %s", t.ID, t.Status)
		return nil
	}
	output.Messagef(os.Stdout, "Moved task %s: %s -> %s", t.ID, oldStatus, t.Status)
	return nil
}
