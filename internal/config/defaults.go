// Package config handles taskboard configuration.
package config

const (
	// DefaultDir is the default taskboard directory name.
	DefaultDir = ".taskboard"
	// DefaultHomeDir is the fallback directory below the user's home.
	DefaultHomeDir = ".config/taskboard"
	// DefaultDataDir is the server's default tasks subdirectory.
	DefaultDataDir = "tasks"
	// DefaultRemoteURL is where the client expects the server by default.
	DefaultRemoteURL = "http://127.0.0.1:7420"
	// DefaultServerAddr is the server's default listen address.
	DefaultServerAddr = ":7420"
	// DefaultTimeout bounds a single remote call.
	DefaultTimeout = "10s"
	// DefaultCacheTTL is how long the server caches board reads in redis.
	DefaultCacheTTL = "30s"
	// DefaultPolicy is the sync policy for overlapping moves.
	DefaultPolicy = "last-write-wins"
	// DefaultDragThreshold is the drag activation distance in cells.
	DefaultDragThreshold = 2
	// DefaultTitleLines is the default number of title lines in TUI cards.
	DefaultTitleLines = 2

	// ConfigFileName is the name of the config file within the taskboard directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2
)

// Environment variables that override file settings.
const (
	EnvURL       = "TASKBOARD_URL"
	EnvToken     = "TASKBOARD_TOKEN"
	EnvBoard     = "TASKBOARD_BOARD"
	EnvJWTSecret = "TASKBOARD_JWT_SECRET"
	EnvRedisURL  = "TASKBOARD_REDIS_URL"
)

// Policies lists the accepted sync.policy values.
var Policies = []string{"last-write-wins", "sequenced"}
