package cmd

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long:    `Lists the board's tasks with optional filtering, sorting, and output format control.`,
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringSlice("status", nil, "filter by status (comma-separated)")
	listCmd.Flags().String("assignee", "", "filter by assignee")
	listCmd.Flags().String("type", "", "filter by task type")
	listCmd.Flags().StringP("search", "s", "", "search tasks by title, description, or tags (case-insensitive)")
	listCmd.Flags().String("sort", "created", "sort field ("+strings.Join(board.SortFields, ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().Bool("deleted", false, "show only soft-deleted tasks")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rawStatuses, _ := cmd.Flags().GetStringSlice("status")
	assignee, _ := cmd.Flags().GetString("assignee")
	taskType, _ := cmd.Flags().GetString("type")
	search, _ := cmd.Flags().GetString("search")
	sortBy, _ := cmd.Flags().GetString("sort")
	reverse, _ := cmd.Flags().GetBool("reverse")
	limit, _ := cmd.Flags().GetInt("limit")
	deleted, _ := cmd.Flags().GetBool("deleted")

	if !slices.Contains(board.SortFields, sortBy) {
		return clierr.Newf(clierr.InvalidInput, "invalid --sort field %q; valid: %s",
			sortBy, strings.Join(board.SortFields, ", "))
	}
	statuses, err := parseStatuses(rawStatuses)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, newLogger())
	if err != nil {
		return err
	}
	tasks, err := client.FetchTasks(context.Background(), cfg.Board.ID)
	if err != nil {
		return err
	}

	// The filter never renders DELETED tasks, so --deleted bypasses it.
	if deleted {
		tasks = withStatuses(tasks, []task.Status{task.StatusDeleted})
		board.Sort(tasks, sortBy, reverse)
		if limit > 0 && len(tasks) > limit {
			tasks = tasks[:limit]
		}
		return outputTaskList(tasks)
	}

	tasks = board.List(withStatuses(tasks, statuses), board.ListOptions{
		Criteria: board.Criteria{SearchText: search, AssigneeID: assignee, TaskType: taskType},
		SortBy:   sortBy,
		Reverse:  reverse,
		Limit:    limit,
	})
	return outputTaskList(tasks)
}

func parseStatuses(raw []string) ([]task.Status, error) {
	statuses := make([]task.Status, 0, len(raw))
	for _, r := range raw {
		s, err := task.ParseStatus(r)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// withStatuses keeps the tasks whose status is listed. An empty list keeps
// everything.
func withStatuses(tasks []task.Task, statuses []task.Status) []task.Task {
	if len(statuses) == 0 {
		return tasks
	}
	var kept []task.Task
	for _, t := range tasks {
		if slices.Contains(statuses, t.Status) {
			kept = append(kept, t)
		}
	}
	return kept
}

func outputTaskList(tasks []task.Task) error {
	format := outputFormat()
	if format == output.FormatJSON {
		if tasks == nil {
			tasks = []task.Task{}
		}
		return output.JSON(os.Stdout, tasks)
	}
	if format == output.FormatCompact {
		output.TaskCompact(os.Stdout, tasks)
		return nil
	}

	output.TaskTable(os.Stdout, tasks, time.Now())
	return nil
}
