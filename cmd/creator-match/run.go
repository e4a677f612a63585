// cmd/creator-match/run.go
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"creator-match/internal/common/logger"
	notificationsink "creator-match/internal/services/notification-sink"
	"creator-match/internal/tui"
	"creator-match/internal/wizard"
)

var (
	runRequireWebsite bool
	runNoEmail        bool
)

// runCmd starts the terminal wizard
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wizard in the terminal",
	Long: `Run walks through the wizard interactively: business accounts, creator
accounts, the match analysis and, when enabled, emailing the results.
Logs go to stderr so they do not disturb the form.

Example usage:
  creator-match run                     # Default form
  creator-match run --require-website   # Website is mandatory
  creator-match run --no-email          # Hide the email step`,
	RunE: runWizard,
}

func init() {
	runCmd.Flags().BoolVar(&runRequireWebsite, "require-website", false, "make the business website mandatory")
	runCmd.Flags().BoolVar(&runNoEmail, "no-email", false, "disable the email step")
	rootCmd.AddCommand(runCmd)
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runRequireWebsite {
		cfg.Wizard.RequireWebsite = true
	}
	if runNoEmail {
		cfg.Wizard.EnableEmailCapture = false
	}

	zapLog := logger.New(cfg.Logging.Level, "console", "stderr")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	outbox := notificationsink.NewOutbox(0)
	sinks := notificationsink.Fanout{outbox, notificationsink.NewLogSink(log)}
	if sns != nil {
		sinks = append(sinks, sns)
	}

	ctrl, err := wizard.New(wizardConfig(cfg), wizard.Dependencies{
		Scores:   scores,
		Email:    email,
		Notifier: sinks,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	return tui.Run(ctx, ctrl, outbox)
}
