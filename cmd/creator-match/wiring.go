// cmd/creator-match/wiring.go
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"creator-match/internal/common/aws"
	"creator-match/internal/common/config"
	"creator-match/internal/common/database"
	"creator-match/internal/common/logger"
	"creator-match/internal/models"
	emaildispatch "creator-match/internal/services/email-dispatch"
	matchscore "creator-match/internal/services/match-score"
	notificationsink "creator-match/internal/services/notification-sink"
	"creator-match/internal/wizard"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// connectRedis returns nil when redis is disabled.
func connectRedis(ctx context.Context, cfg config.RedisConfig, zapLog *zap.Logger) (*database.RedisClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var rdb *database.RedisClient
	err := retryWithBackoff(ctx, func() error {
		var err error
		rdb, err = database.NewRedis(cfg)
		if err != nil {
			return err
		}
		if err := rdb.Ping(ctx); err != nil {
			_ = rdb.Close()
			return err
		}
		return nil
	}, 5, time.Second, zapLog, "Redis connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("Redis connected", zap.String("address", cfg.Address))
	return rdb, nil
}

func wizardConfig(cfg *config.Config) wizard.Config {
	return wizard.Config{
		RequireWebsite:     cfg.Wizard.RequireWebsite,
		EnableEmailCapture: cfg.Wizard.EnableEmailCapture,
	}
}

func buildScores(cfg *config.Config, rdb *database.RedisClient, log logger.Logger) (wizard.ScoreGenerator, error) {
	scoreCfg := matchscore.DefaultConfig()
	scoreCfg.Seed = cfg.Scoring.Seed
	scoreCfg.CacheTTL = config.GetDuration(cfg.Scoring.CacheTTL)
	if err := scoreCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}

	gen := matchscore.NewRandomGenerator(matchscore.ServiceDependencies{Logger: log}, scoreCfg)
	if scoreCfg.CacheTTL == 0 || rdb == nil {
		return gen, nil
	}
	return matchscore.NewCachingGenerator(gen, rdb.GetClient(), scoreCfg, log), nil
}

func buildEmail(ctx context.Context, cfg *config.Config, log logger.Logger) (wizard.EmailDispatcher, error) {
	if !cfg.Wizard.EnableEmailCapture {
		return nil, nil
	}

	emailCfg := &emaildispatch.Config{
		Provider:       cfg.Email.Provider,
		SimulatedDelay: config.GetDuration(cfg.Email.SimulatedDelay),
		FromEmail:      cfg.Email.FromEmail,
		Subject:        cfg.Email.Subject,
		Timeout:        config.GetDuration(cfg.Email.Timeout),
	}

	deps := emaildispatch.ServiceDependencies{Logger: log}
	if emailCfg.Provider == emaildispatch.ProviderSES {
		client, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, err
		}
		deps.SESClient = client
	}
	return emaildispatch.New(deps, emailCfg)
}

// buildSNS returns nil when lead publishing is disabled.
func buildSNS(ctx context.Context, cfg *config.Config, log logger.Logger) (*notificationsink.SNSSink, error) {
	if !cfg.Notifications.SNS.Enabled {
		return nil, nil
	}
	client, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		return nil, err
	}
	return notificationsink.NewSNSSink(client, notificationsink.SNSConfig{
		TopicARN: cfg.Notifications.SNS.TopicARN,
		Kinds:    []models.NotificationKind{models.NotificationSuccess, models.NotificationFailure},
	}, log), nil
}
