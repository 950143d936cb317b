package cmd

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Modifies fields of an existing task. Only specified fields are changed.
Use the move command to change a task's column.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().String("type", "", "new task type")
	editCmd.Flags().Bool("clear-type", false, "clear the task type")
	editCmd.Flags().StringSlice("add-assignee", nil, "add assignees")
	editCmd.Flags().StringSlice("remove-assignee", nil, "remove assignees")
	editCmd.Flags().StringSlice("add-tag", nil, "add tags")
	editCmd.Flags().StringSlice("remove-tag", nil, "remove tags")
	editCmd.Flags().String("due", "", "new due date (YYYY-MM-DD)")
	editCmd.Flags().Bool("clear-due", false, "clear due date")
	editCmd.Flags().String("description", "", "new description (replaces the entire description)")
	editCmd.Flags().StringP("append-description", "a", "", "append text to the description")
	editCmd.Flags().BoolP("timestamp", "t", false, "prefix a timestamp line when appending")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}
	if err := checkEditFlags(cmd); err != nil {
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
		t, err := executeEdit(ctx, client, ids[0], cmd)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, t)
		}
		output.Messagef(os.Stdout, "Updated task %s: %s", t.ID, t.Title)
		return nil
	}

	return runBatch(ids, func(id string) error {
		_, err := executeEdit(ctx, client, id, cmd)
		return err
	})
}

// executeEdit reads the current task, builds a partial update from the flags
// and sends it. List edits are computed against the current task.
func executeEdit(ctx context.Context, client *remote.Client, id string, cmd *cobra.Command) (*task.Task, error) {
	current, err := client.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := buildUpdate(cmd, current, time.Now())
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, clierr.New(clierr.NoChanges, "no changes specified")
	}
	return client.UpdateTask(ctx, id, req)
}

func checkEditFlags(cmd *cobra.Command) error {
	for _, pair := range [][2]string{
		{"due", "clear-due"},
		{"type", "clear-type"},
		{"description", "append-description"},
	} {
		if cmd.Flags().Changed(pair[0]) && cmd.Flags().Changed(pair[1]) {
			return clierr.Newf(clierr.InvalidInput, "cannot use --%s and --%s together", pair[0], pair[1])
		}
	}
	return nil
}

func buildUpdate(cmd *cobra.Command, current *task.Task, now time.Time) (remote.UpdateRequest, error) {
	var req remote.UpdateRequest

	if v, _ := cmd.Flags().GetString("title"); v != "" {
		if err := task.ValidateTitle(v); err != nil {
			return req, err
		}
		req.Title = &v
	}
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		req.Type = &v
	}
	if unset, _ := cmd.Flags().GetBool("clear-type"); unset {
		empty := ""
		req.Type = &empty
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		req.Description = &v
	}
	if cmd.Flags().Changed("append-description") {
		v, _ := cmd.Flags().GetString("append-description")
		ts, _ := cmd.Flags().GetBool("timestamp")
		body := appendDescription(current.Description, v, ts, now)
		req.Description = &body
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		if _, err := parseDue(v); err != nil {
			return req, err
		}
		req.Due = &v
	}
	if unset, _ := cmd.Flags().GetBool("clear-due"); unset {
		empty := ""
		req.Due = &empty
	}

	add, _ := cmd.Flags().GetStringSlice("add-assignee")
	remove, _ := cmd.Flags().GetStringSlice("remove-assignee")
	if assignees, ok := editList(current.Assignees, add, remove); ok {
		req.Assignees = &assignees
	}
	add, _ = cmd.Flags().GetStringSlice("add-tag")
	remove, _ = cmd.Flags().GetStringSlice("remove-tag")
	if tags, ok := editList(current.Tags, add, remove); ok {
		req.Tags = &tags
	}
	return req, nil
}

// editList adds and removes values, keeping order and dropping duplicates.
// It reports whether the result differs from list.
func editList(list, add, remove []string) ([]string, bool) {
	out := make([]string, 0, len(list)+len(add))
	for _, v := range list {
		if !slices.Contains(remove, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(remove, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out, !slices.Equal(out, list)
}

func parseDue(v string) (date.Date, error) {
	d, err := date.Parse(v)
	if err != nil {
		return date.Date{}, task.ValidateDate("due", v, err)
	}
	return d, nil
}

func appendDescription(existing, text string, addTimestamp bool, now time.Time) string {
	var b strings.Builder

	if existing != "" {
		b.WriteString(strings.TrimRight(existing, "\n"))
		b.WriteString("\n\n")
	}

	if addTimestamp {
		b.WriteString(now.Format("[[2006-01-02]] Mon 15:04"))
		b.WriteByte('\n')
	}

	b.WriteString(text)

	return b.String()
}
