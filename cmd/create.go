package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a new task on the board with the given title and optional fields.

Title can be provided as a positional argument or via --title flag.
Description can be provided via --description or --body flag.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().String("status", "", "initial status (default TODO)")
	createCmd.Flags().String("type", "", "task type (e.g. bug, feature)")
	createCmd.Flags().StringSlice("assignees", nil, "comma-separated assignee IDs")
	createCmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	createCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "tag":
			name = "tags"
		case "assignee":
			name = "assignees"
		case "body":
			name = "description"
		}
		return pflag.NormalizedName(name)
	})
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	createCmd.Flags().String("description", "", "task description (markdown)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, err := resolveCreateTitle(cmd, args)
	if err != nil {
		return err
	}
	req, err := createRequestFromFlags(cmd, title)
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

	t, err := client.CreateTask(context.Background(), cfg.Board.ID, req)
	if err != nil {
		return err
	}
	return outputCreateResult(t)
}

func outputCreateResult(t *task.Task) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Created task %s: %s", t.ID, t.Title)
	output.Messagef(os.Stdout, "  Status: %s", t.Status)
	if len(t.Assignees) > 0 {
		output.Messagef(os.Stdout, "  Assignees: %s", strings.Join(t.Assignees, ", "))
	}
	if len(t.Tags) > 0 {
		output.Messagef(os.Stdout, "  Tags: %s", strings.Join(t.Tags, ", "))
	}
	return nil
}

// resolveCreateTitle returns the task title from either the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	flagTitle, _ := cmd.Flags().GetString("title")
	hasPositional := len(args) > 0
	hasFlag := flagTitle != ""

	switch {
	case hasPositional && hasFlag:
		return "", clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case hasPositional:
		return args[0], nil
	case hasFlag:
		return flagTitle, nil
	default:
		return "", errors.New("title is required: provide it as an argument or with --title")
	}
}

// createRequestFromFlags validates the flags locally so obvious mistakes fail
// without a round trip. The server validates again.
func createRequestFromFlags(cmd *cobra.Command, title string) (remote.CreateRequest, error) {
	if err := task.ValidateTitle(title); err != nil {
		return remote.CreateRequest{}, err
	}
	req := remote.CreateRequest{Title: title}

	if v, _ := cmd.Flags().GetString("status"); v != "" {
		s, err := parseMoveStatus(v)
		if err != nil {
			return remote.CreateRequest{}, err
		}
		req.Status = s
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		if _, err := parseDue(v); err != nil {
			return remote.CreateRequest{}, err
		}
		req.Due = v
	}
	req.Type, _ = cmd.Flags().GetString("type")
	req.Description, _ = cmd.Flags().GetString("description")
	req.Assignees, _ = cmd.Flags().GetStringSlice("assignees")
	req.Tags, _ = cmd.Flags().GetStringSlice("tags")
	return req, nil
}
