package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agentdash/pkg/platform"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	apiURL  string
	timeout time.Duration
	output  string
}

func (g *globals) client() (*platform.Client, error) {
	return platform.New(g.apiURL, platform.WithTimeout(g.timeout), platform.WithUserAgent("agentdashctl"))
}

func newRootCommand() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "agentdashctl",
		Short:         "Command line access to the agent platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(g.output)
		},
	}

	cmd.PersistentFlags().StringVar(&g.apiURL, "api", envOr("AGENTDASH_API_URL", "http://localhost:8080"), "Platform origin; /api/v1 is appended")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", envDuration("AGENTDASH_TIMEOUT", platform.DefaultTimeout), "Per request timeout")
	cmd.PersistentFlags().StringVarP(&g.output, "output", "o", formatTable, "Output format: table, json or yaml")

	cmd.AddCommand(newAgentsCommand(g))
	cmd.AddCommand(newTasksCommand(g))
	cmd.AddCommand(newMetricsCommand(g))
	cmd.AddCommand(newAuditCommand(g))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
