package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/logging"
	"github.com/twiced-technology-gmbh/taskboard/internal/server"
)

const jwksRefresh = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the taskboard server",
	Long: `Serves the board over HTTP from the task files in the data directory.
Requests need a bearer JWT signed with server.jwt_secret (HS256) or by a key
from server.jwks_url (RS256). With server.redis_url set, board reads are
cached in redis and evicted on every change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, _, err := logging.New(logging.ProfileServer, "")
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}
	if addr == "" {
		addr = config.DefaultServerAddr
	}

	auth, jwks, err := serverAuth(cfg, logger)
	if err != nil {
		return err
	}
	if jwks != nil {
		defer jwks.EndBackground()
	}

	rc, err := redisClient(cfg)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close() //nolint:errcheck // closing on shutdown
	}

	srv, err := server.New(server.Options{
		Addr:      addr,
		DataDir:   cfg.DataPath(),
		Boards:    []string{cfg.Board.ID},
		WIPLimits: cfg.WIPLimitsByStatus(),
		Auth:      auth,
		Redis:     rc,
		CacheTTL:  cfg.CacheTTL(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithFields(log.Fields{
		"board":    cfg.Board.ID,
		"data_dir": cfg.DataPath(),
		"cache":    rc != nil,
	}).Info("starting server")
	return srv.Run(ctx)
}

// serverAuth builds the token verifier. The returned JWKS, if any, refreshes
// in the background until EndBackground.
func serverAuth(cfg *config.Config, logger *log.Logger) (*server.Auth, *keyfunc.JWKS, error) {
	var jwks *keyfunc.JWKS
	if cfg.Server.JWKSURL != "" {
		var err error
		jwks, err = keyfunc.Get(cfg.Server.JWKSURL, keyfunc.Options{
			RefreshInterval: jwksRefresh,
			RefreshErrorHandler: func(err error) {
				logger.WithError(err).Warn("jwks refresh failed")
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("jwks: %w", err)
		}
	}

	var secret []byte
	if cfg.Server.JWTSecret != "" {
		secret = []byte(cfg.Server.JWTSecret)
	}
	auth, err := server.NewAuth(secret, jwks, cfg.Server.Audience)
	if err != nil {
		if jwks != nil {
			jwks.EndBackground()
		}
		return nil, nil, fmt.Errorf("%w: set server.jwt_secret, %s or server.jwks_url", err, config.EnvJWTSecret)
	}
	return auth, jwks, nil
}

// redisClient returns nil when no redis URL is configured.
func redisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Server.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Server.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server.redis_url: %w", err)
	}
	return redis.NewClient(opts), nil
}
