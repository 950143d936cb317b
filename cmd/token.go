package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token SUBJECT",
	Short: "Issue a bearer token for the server",
	Long: `Signs an HS256 token with server.jwt_secret for SUBJECT. Use --save to
store it as remote.token so the other commands send it.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime") //nolint:mnd // 30 days
	tokenCmd.Flags().Bool("save", false, "save the token as remote.token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	ttl, _ := cmd.Flags().GetDuration("ttl")
	save, _ := cmd.Flags().GetBool("save")
	if ttl <= 0 {
		return clierr.New(clierr.InvalidInput, "--ttl must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.JWTSecret == "" {
		return clierr.Newf(clierr.InvalidInput, "no jwt secret configured (set server.jwt_secret or %s)", config.EnvJWTSecret)
	}

	now := time.Now()
	token, err := server.IssueToken([]byte(cfg.Server.JWTSecret), args[0], cfg.Server.Audience, ttl, now)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}

	if save {
		// Reload without overrides so only the token changes on disk.
		onDisk, err := config.Load(cfg.Dir())
		if err != nil {
			return err
		}
		onDisk.Remote.Token = token
		if err := onDisk.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"token":   token,
			"subject": args[0],
			"expires": now.Add(ttl).UTC(),
			"saved":   save,
		})
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}
