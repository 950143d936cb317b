package cmd

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/engine"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify taskboard configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
	secret   bool
}

func stringAccessor(field func(*config.Config) *string) configAccessor {
	return configAccessor{
		get:      func(c *config.Config) any { return *field(c) },
		set:      func(c *config.Config, v string) error { *field(c) = v; return nil },
		writable: true,
	}
}

func durationAccessor(key string, field func(*config.Config) *string) configAccessor {
	return configAccessor{
		get: func(c *config.Config) any { return *field(c) },
		set: func(c *config.Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid %s %q: %v", key, v, err)
			}
			*field(c) = v
			return nil
		},
		writable: true,
	}
}

func intAccessor(key string, field func(*config.Config) *int) configAccessor {
	return configAccessor{
		get: func(c *config.Config) any { return *field(c) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid %s %q: must be an integer", key, v)
			}
			*field(c) = n
			return nil // validation handles range check
		},
		writable: true,
	}
}

func configAccessors() map[string]configAccessor {
	accessors := map[string]configAccessor{
		"version":           {get: func(c *config.Config) any { return c.Version }},
		"board.id":          stringAccessor(func(c *config.Config) *string { return &c.Board.ID }),
		"board.name":        stringAccessor(func(c *config.Config) *string { return &c.Board.Name }),
		"board.description": stringAccessor(func(c *config.Config) *string { return &c.Board.Description }),
		"remote.url":        stringAccessor(func(c *config.Config) *string { return &c.Remote.URL }),
		"remote.timeout":    durationAccessor("remote.timeout", func(c *config.Config) *string { return &c.Remote.Timeout }),
		"sync.policy": {
			get: func(c *config.Config) any { return c.Sync.Policy },
			set: func(c *config.Config, v string) error {
				p, err := engine.ParsePolicy(v)
				if err != nil {
					return clierr.Wrap(clierr.InvalidInput, err, "%v", err)
				}
				c.Sync.Policy = string(p)
				return nil
			},
			writable: true,
		},
		"sync.timeout":     durationAccessor("sync.timeout", func(c *config.Config) *string { return &c.Sync.Timeout }),
		"drag.threshold":   intAccessor("drag.threshold", func(c *config.Config) *int { return &c.Drag.Threshold }),
		"server.addr":      stringAccessor(func(c *config.Config) *string { return &c.Server.Addr }),
		"server.data_dir":  stringAccessor(func(c *config.Config) *string { return &c.Server.DataDir }),
		"server.jwks_url":  stringAccessor(func(c *config.Config) *string { return &c.Server.JWKSURL }),
		"server.audience":  stringAccessor(func(c *config.Config) *string { return &c.Server.Audience }),
		"server.redis_url": stringAccessor(func(c *config.Config) *string { return &c.Server.RedisURL }),
		"server.cache_ttl": durationAccessor("server.cache_ttl", func(c *config.Config) *string { return &c.Server.CacheTTL }),
		"tui.title_lines":  intAccessor("tui.title_lines", func(c *config.Config) *int { return &c.TUI.TitleLines }),
		"wip_limits": {
			get: func(c *config.Config) any {
				if c.WIPLimits == nil {
					return map[string]int{}
				}
				return c.WIPLimits
			},
		},
	}

	token := stringAccessor(func(c *config.Config) *string { return &c.Remote.Token })
	token.secret = true
	accessors["remote.token"] = token
	secret := stringAccessor(func(c *config.Config) *string { return &c.Server.JWTSecret })
	secret.secret = true
	accessors["server.jwt_secret"] = secret
	return accessors
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"board.id",
		"board.name",
		"board.description",
		"remote.url",
		"remote.token",
		"remote.timeout",
		"sync.policy",
		"sync.timeout",
		"drag.threshold",
		"server.addr",
		"server.data_dir",
		"server.jwt_secret",
		"server.jwks_url",
		"server.audience",
		"server.redis_url",
		"server.cache_ttl",
		"wip_limits",
		"tui.title_lines",
	}
}

// display returns the value to print; secrets are masked when set.
func (a configAccessor) display(c *config.Config) any {
	v := a.get(c)
	if s, ok := v.(string); ok && a.secret && s != "" {
		return redacted
	}
	return v
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].display(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	// Table mode: key-value pairs.
	for _, key := range allConfigKeys() {
		fmt.Fprintf(os.Stdout, "%-20s %v\n", key, formatConfigValue(accessors[key].display(cfg)))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	// An explicit get of a secret prints it so scripts can read it.
	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	// Load without env or flag overrides so they are never saved.
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "%v", err)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.display(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(acc.display(cfg)))
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case string:
		if v == "" {
			return "--"
		}
		return v
	case map[string]int:
		if len(v) == 0 {
			return "--"
		}
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			parts = append(parts, fmt.Sprintf("%s=%d", k, v[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
