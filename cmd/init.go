package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new taskboard directory",
	Long: `Creates a taskboard directory with config.yml and the server's tasks/
subdirectory. The same directory serves the client commands and taskboard serve.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "board name (defaults to current directory name)")
	initCmd.Flags().String("board-id", "", "board ID (defaults to a slug of the name)")
	initCmd.Flags().String("remote", "", "server URL (default "+config.DefaultRemoteURL+")")
	initCmd.Flags().StringSlice("wip-limit", nil, "WIP limit per status (format: STATUS:N, repeatable)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		name = filepath.Base(cwd)
	}

	cfg, err := config.Init(dir, name)
	if err != nil {
		return err
	}

	changed, err := applyInitFlags(cmd, cfg)
	if err != nil {
		return err
	}
	if changed {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status": "initialized",
			"dir":    cfg.Dir(),
			"name":   cfg.Board.Name,
			"board":  cfg.Board.ID,
			"config": cfg.ConfigPath(),
			"tasks":  cfg.DataPath(),
			"remote": cfg.Remote.URL,
		})
	}

	output.Messagef(os.Stdout, "Initialized board %q (%s) in %s", cfg.Board.Name, cfg.Board.ID, cfg.Dir())
	output.Messagef(os.Stdout, "  Config:  %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Tasks:   %s", cfg.DataPath())
	output.Messagef(os.Stdout, "  Remote:  %s", cfg.Remote.URL)
	output.Messagef(os.Stdout, "  Hint:    Start the server with: taskboard serve")
	return nil
}

func applyInitFlags(cmd *cobra.Command, cfg *config.Config) (bool, error) {
	changed := false
	if v, _ := cmd.Flags().GetString("board-id"); v != "" {
		cfg.Board.ID = v
		changed = true
	}
	if v, _ := cmd.Flags().GetString("remote"); v != "" {
		cfg.Remote.URL = v
		changed = true
	}
	if wipLimits, _ := cmd.Flags().GetStringSlice("wip-limit"); len(wipLimits) > 0 {
		parsed, err := parseWIPLimits(wipLimits)
		if err != nil {
			return false, err
		}
		cfg.WIPLimits = parsed
		changed = true
	}
	return changed, nil
}

// parseWIPLimits parses "STATUS:N" pairs into a map keyed by canonical status.
func parseWIPLimits(pairs []string) (map[string]int, error) {
	limits := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2) //nolint:mnd // key:value pair
		if len(parts) != 2 {                  //nolint:mnd // key:value pair
			return nil, fmt.Errorf("invalid WIP limit %q (expected STATUS:N)", pair)
		}
		status, err := task.ParseStatus(parts[0])
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid WIP limit value %q in %q", parts[1], pair)
		}
		limits[string(status)] = n
	}
	return limits, nil
}
