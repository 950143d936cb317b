package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no taskboard config found (run 'taskboard init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the taskboard configuration shared by the client and
// the server.
type Config struct {
	Version   int            `yaml:"version"`
	Board     BoardConfig    `yaml:"board"`
	Remote    RemoteConfig   `yaml:"remote"`
	Sync      SyncConfig     `yaml:"sync"`
	Drag      DragConfig     `yaml:"drag"`
	Server    ServerConfig   `yaml:"server"`
	WIPLimits map[string]int `yaml:"wip_limits,omitempty"`
	TUI       TUIConfig      `yaml:"tui,omitempty"`

	// dir is the absolute path to the taskboard directory (not serialized).
	dir string `yaml:"-"`
}

// BoardConfig identifies the board the client works on.
type BoardConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// RemoteConfig locates the remote authority.
type RemoteConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// SyncConfig controls how optimistic moves are confirmed.
type SyncConfig struct {
	Policy  string `yaml:"policy"`
	Timeout string `yaml:"timeout,omitempty"`
}

// DragConfig holds drag gesture settings.
type DragConfig struct {
	Threshold int `yaml:"threshold"`
}

// ServerConfig holds settings for `taskboard serve`.
type ServerConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	DataDir   string `yaml:"data_dir,omitempty"`
	JWTSecret string `yaml:"jwt_secret,omitempty"`
	JWKSURL   string `yaml:"jwks_url,omitempty"`
	Audience  string `yaml:"audience,omitempty"`
	RedisURL  string `yaml:"redis_url,omitempty"`
	CacheTTL  string `yaml:"cache_ttl,omitempty"`
}

// TUIConfig holds TUI-specific display settings.
type TUIConfig struct {
	TitleLines int `yaml:"title_lines,omitempty"`
}

// Dir returns the absolute path to the taskboard directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the taskboard directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// DataPath returns the absolute path of the server's task directory.
func (c *Config) DataPath() string {
	d := c.Server.DataDir
	if d == "" {
		d = DefaultDataDir
	}
	if filepath.IsAbs(d) {
		return d
	}
	return filepath.Join(c.dir, d)
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	id := task.GenerateSlug(name)
	if id == "" {
		id = "default"
	}
	return &Config{
		Version: CurrentVersion,
		Board:   BoardConfig{ID: id, Name: name},
		Remote:  RemoteConfig{URL: DefaultRemoteURL, Timeout: DefaultTimeout},
		Sync:    SyncConfig{Policy: DefaultPolicy, Timeout: DefaultTimeout},
		Drag:    DragConfig{Threshold: DefaultDragThreshold},
		Server: ServerConfig{
			Addr:     DefaultServerAddr,
			DataDir:  DefaultDataDir,
			CacheTTL: DefaultCacheTTL,
		},
		TUI: TUIConfig{TitleLines: DefaultTitleLines},
	}
}

// ApplyEnv overrides file settings from the environment. lookup is
// usually os.LookupEnv. Overrides are never saved.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvURL); ok && v != "" {
		c.Remote.URL = v
	}
	if v, ok := lookup(EnvToken); ok && v != "" {
		c.Remote.Token = v
	}
	if v, ok := lookup(EnvBoard); ok && v != "" {
		c.Board.ID = v
	}
	if v, ok := lookup(EnvJWTSecret); ok && v != "" {
		c.Server.JWTSecret = v
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Server.RedisURL = v
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Board.ID == "" {
		return fmt.Errorf("%w: board.id is required", ErrInvalid)
	}
	if err := task.ValidateTaskID(c.Board.ID); err != nil {
		return fmt.Errorf("%w: board.id %q must not contain whitespace or slashes", ErrInvalid, c.Board.ID)
	}
	if c.Board.Name == "" {
		return fmt.Errorf("%w: board.name is required", ErrInvalid)
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if !slices.Contains(Policies, c.Sync.Policy) {
		return fmt.Errorf("%w: sync.policy %q must be one of %v", ErrInvalid, c.Sync.Policy, Policies)
	}
	if c.Drag.Threshold < 1 {
		return fmt.Errorf("%w: drag.threshold must be >= 1", ErrInvalid)
	}
	for field, v := range map[string]string{
		"remote.timeout":   c.Remote.Timeout,
		"sync.timeout":     c.Sync.Timeout,
		"server.cache_ttl": c.Server.CacheTTL,
	} {
		if err := validateDuration(field, v); err != nil {
			return err
		}
	}
	if err := c.validateWIPLimits(); err != nil {
		return err
	}
	return c.validateTUI()
}

func (c *Config) validateRemote() error {
	if c.Remote.URL == "" {
		return fmt.Errorf("%w: remote.url is required", ErrInvalid)
	}
	u, err := url.Parse(c.Remote.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: remote.url %q must be an http(s) URL", ErrInvalid, c.Remote.URL)
	}
	return nil
}

func validateDuration(field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: invalid %s %q: %w", ErrInvalid, field, v, err)
	}
	if d < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, field)
	}
	return nil
}

func (c *Config) validateWIPLimits() error {
	for status, limit := range c.WIPLimits {
		s := task.Status(status)
		if !s.Movable() {
			return fmt.Errorf("%w: wip_limits references unknown status %q", ErrInvalid, status)
		}
		if limit < 0 {
			return fmt.Errorf("%w: wip_limits for %q must be >= 0", ErrInvalid, status)
		}
	}
	return nil
}

func (c *Config) validateTUI() error {
	const minTitleLines, maxTitleLines = 1, 3
	if c.TUI.TitleLines != 0 && (c.TUI.TitleLines < minTitleLines || c.TUI.TitleLines > maxTitleLines) {
		return fmt.Errorf("%w: tui.title_lines must be between %d and %d",
			ErrInvalid, minTitleLines, maxTitleLines)
	}
	return nil
}

// WIPLimit returns the WIP limit for a status, or 0 (unlimited).
func (c *Config) WIPLimit(status task.Status) int {
	if c.WIPLimits == nil {
		return 0
	}
	return c.WIPLimits[string(status)]
}

// WIPLimitsByStatus returns the configured limits keyed by status.
func (c *Config) WIPLimitsByStatus() map[task.Status]int {
	limits := make(map[task.Status]int, len(c.WIPLimits))
	for s, n := range c.WIPLimits {
		limits[task.Status(s)] = n
	}
	return limits
}

// RemoteTimeout returns the per-request timeout of the remote client.
func (c *Config) RemoteTimeout() time.Duration {
	return parseDurationOr(c.Remote.Timeout, DefaultTimeout)
}

// SyncTimeout returns the bound on one move confirmation.
func (c *Config) SyncTimeout() time.Duration {
	return parseDurationOr(c.Sync.Timeout, DefaultTimeout)
}

// CacheTTL returns how long the server caches board reads.
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Server.CacheTTL, DefaultCacheTTL)
}

// TitleLines returns the configured number of title lines for TUI cards.
// Returns DefaultTitleLines if the value is unset (zero).
func (c *Config) TitleLines() int {
	if c.TUI.TitleLines == 0 {
		return DefaultTitleLines
	}
	return c.TUI.TitleLines
}

func parseDurationOr(v, fallback string) time.Duration {
	if v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// Init creates a new taskboard directory with default settings: the
// directory, the server data directory, and the config file.
func Init(dir, name string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)

	if _, err := os.Stat(cfg.ConfigPath()); err == nil {
		return nil, clierr.Newf(clierr.BoardExists, "taskboard already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	if err := os.MkdirAll(cfg.DataPath(), dirMode); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given taskboard directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a taskboard directory
// containing config.yml. Returns the absolute path to the taskboard directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the taskboard directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.BoardNotFound,
				"no taskboard config found (run 'taskboard init' to create one)")
		}
		dir = parent
	}
}
