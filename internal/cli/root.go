// Package cli implements qactl, a terminal client for the story service and
// a running dashboard.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

type options struct {
	storyAPIURL  string
	dashboardURL string
	timeout      time.Duration
	jsonOutput   bool
}

func (o *options) storyClient() (*storyapi.Client, error) {
	return storyapi.NewClient(o.storyAPIURL, o.timeout, zap.NewNop())
}

// NewRootCommand builds the qactl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "qactl",
		Short: "qactl - browse stories and generate test cases from the terminal",
		Long: `qactl talks to the story service behind the test case dashboard.

It lists and searches user stories, shows their generated test cases and
impact analysis, downloads test case spreadsheets, manages the data reload,
and sends generation requests to a running dashboard.

Environment variables:
  STORY_API_URL   - story service base URL (default: http://127.0.0.1:5000/api/stories)
  DASHBOARD_URL   - dashboard base URL used by "ask" (default: http://127.0.0.1:3000)`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.storyAPIURL, "story-api", envOr("STORY_API_URL", "http://127.0.0.1:5000/api/stories"), "Story service base URL")
	root.PersistentFlags().StringVar(&opts.dashboardURL, "dashboard", envOr("DASHBOARD_URL", "http://127.0.0.1:3000"), "Dashboard base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print raw JSON instead of formatted output")

	root.AddCommand(
		newStoriesCommand(opts),
		newTestCasesCommand(opts),
		newImpactsCommand(opts),
		newDownloadCommand(opts),
		newReloadCommand(opts),
		newAskCommand(opts),
	)
	return root
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
