// cmd/creator-match/health.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"creator-match/internal/api"
	apihttp "creator-match/internal/common/http"
)

var (
	healthURL     string
	healthTimeout time.Duration
	healthFormat  string
)

// healthCmd checks a running server
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running creator-match server",
	Long: `Health queries /health and /ready on a running server and reports the
live session count and whether its backing services are reachable.

Example usage:
  creator-match health                                # Probe localhost:8080
  creator-match health --url=http://wizard:8080       # Probe another host
  creator-match health --format=json                  # JSON output`,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().StringVar(&healthURL, "url", "http://localhost:8080", "server base URL")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "request timeout")
	healthCmd.Flags().StringVar(&healthFormat, "format", "table", "output format (table|json)")
	rootCmd.AddCommand(healthCmd)
}

type healthReport struct {
	Health *api.HealthResponse `json:"health"`
	Ready  *api.HealthResponse `json:"ready"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	client := apihttp.NewClient(healthURL, healthTimeout)
	report := healthReport{}
	var failed bool

	for _, check := range []struct {
		path string
		dst  **api.HealthResponse
	}{
		{"/health", &report.Health},
		{"/ready", &report.Ready},
	} {
		resp, err := client.Do(ctx, http.MethodGet, check.path, nil)
		if err != nil {
			return fmt.Errorf("check %s: %w", check.path, err)
		}
		var body api.HealthResponse
		if err := resp.Decode(&body); err != nil {
			return fmt.Errorf("check %s: %w", check.path, err)
		}
		*check.dst = &body
		if !resp.OK() {
			failed = true
		}
	}

	switch healthFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	default:
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROBE\tSTATUS\tSESSIONS\tCHECKED")
		fmt.Fprintf(w, "health\t%s\t%d\t%s\n", report.Health.Status, report.Health.Sessions, report.Health.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(w, "ready\t%s\t%d\t%s\n", report.Ready.Status, report.Ready.Sessions, report.Ready.Timestamp.Format(time.RFC3339))
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed {
		return fmt.Errorf("server at %s is not ready", healthURL)
	}
	return nil
}
