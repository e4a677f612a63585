package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"creator-match/internal/common/config"
	"creator-match/internal/common/database"
	"creator-match/internal/common/logger"
	emaildispatch "creator-match/internal/services/email-dispatch"
	matchscore "creator-match/internal/services/match-score"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Wizard: config.WizardConfig{EnableEmailCapture: true},
		Email: config.EmailConfig{
			Provider:       config.EmailProviderSimulated,
			SimulatedDelay: 10,
			Subject:        "Results",
			Timeout:        1000,
		},
	}
}

// ==========================
// retryWithBackoff
// ==========================

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "op")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("down")
	}, 3, time.Millisecond, zap.NewNop(), "op")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "op failed after 3 attempts")
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryWithBackoff(ctx, func() error {
		calls++
		return errors.New("down")
	}, 5, time.Hour, zap.NewNop(), "op")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// ==========================
// Builders
// ==========================

func TestConnectRedis_DisabledReturnsNil(t *testing.T) {
	rdb, err := connectRedis(context.Background(), config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := connectRedis(context.Background(), config.RedisConfig{Enabled: true, Address: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, rdb)
	assert.NoError(t, rdb.Close())
}

func TestBuildScores_CacheOnlyWithRedis(t *testing.T) {
	log := logger.NewTestLogger(t)
	cfg := testConfig()
	cfg.Scoring.CacheTTL = 60000

	gen, err := buildScores(cfg, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &matchscore.RandomGenerator{}, gen)

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Enabled: true, Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	gen, err = buildScores(cfg, rdb, log)
	require.NoError(t, err)
	assert.IsType(t, &matchscore.CachingGenerator{}, gen)
}

func TestBuildEmail(t *testing.T) {
	log := logger.NewTestLogger(t)

	cfg := testConfig()
	email, err := buildEmail(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &emaildispatch.SimulatedDispatcher{}, email)

	cfg.Wizard.EnableEmailCapture = false
	email, err = buildEmail(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.Nil(t, email)
}

func TestBuildSNS_Disabled(t *testing.T) {
	sink, err := buildSNS(context.Background(), testConfig(), logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, sink)
}

func TestWizardConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Wizard.RequireWebsite = true

	wc := wizardConfig(cfg)
	assert.True(t, wc.RequireWebsite)
	assert.True(t, wc.EnableEmailCapture)
}
