// cmd/creator-match/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"creator-match/internal/api"
	"creator-match/internal/common/config"
	"creator-match/internal/common/logger"
	"creator-match/internal/common/observability"
	notificationsink "creator-match/internal/services/notification-sink"
	"creator-match/internal/session"
	"creator-match/internal/wizard"
)

var (
	serveAddress         string
	serveShutdownTimeout time.Duration
)

// serveCmd hosts wizard sessions over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve wizard sessions over HTTP",
	Long: `Serve runs the wizard behind a JSON API. Each session is created with
POST /api/v1/wizards and driven through field updates, submissions and the
optional email step. Sessions idle past session.ttl are swept.

Example usage:
  creator-match serve                      # Listen on server.address
  creator-match serve --address=:9090      # Override the listen address
  creator-match serve --config=prod.yaml   # Use a specific config file`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (overrides server.address)")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 15*time.Second, "graceful shutdown limit")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting creator-match server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		zapLog.Warn("observability disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	rdb, err := connectRedis(ctx, cfg.Redis, zapLog)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	scores, err := buildScores(cfg, rdb, log)
	if err != nil {
		return err
	}
	email, err := buildEmail(ctx, cfg, log)
	if err != nil {
		return err
	}
	sns, err := buildSNS(ctx, cfg, log)
	if err != nil {
		return err
	}

	deps := session.Dependencies{
		Scores:        scores,
		Email:         email,
		Sinks:         []wizard.NotificationSink{notificationsink.NewLogSink(log)},
		SNS:           sns,
		Observability: obs,
		Logger:        log,
	}
	if rdb != nil {
		deps.Store = session.NewRedisStore(rdb.GetClient(), cfg.Redis.KeyPrefix)
	}

	sessionCfg := &session.Config{
		Wizard:        wizardConfig(cfg),
		TTL:           cfg.SessionTTL(),
		SweepInterval: config.GetDuration(cfg.Session.SweepInterval),
	}
	manager, err := session.NewManager(deps, sessionCfg)
	if err != nil {
		return err
	}
	go manager.Run(ctx)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Address = cfg.Server.Address
	if serveAddress != "" {
		serverCfg.Address = serveAddress
	}
	serverCfg.ReadTimeout = config.GetDuration(cfg.Server.ReadTimeout)
	serverCfg.WriteTimeout = config.GetDuration(cfg.Server.WriteTimeout)
	serverCfg.IdleTimeout = config.GetDuration(cfg.Server.IdleTimeout)

	var ready func(context.Context) error
	if rdb != nil {
		ready = rdb.Ping
	}
	server := api.NewServer(serverCfg, api.Dependencies{
		Sessions: manager,
		Ready:    ready,
		Logger:   log,
	})

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", serverCfg.Address))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		zapLog.Info("Shutting down creator-match server...")
	case err := <-errCh:
		if err != nil {
			stop()
			manager.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	manager.Close()

	zapLog.Info("creator-match server stopped")
	return nil
}
