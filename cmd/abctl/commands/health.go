package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/abclient/api"
	"github.com/jonwraymond/abclient/health"
)

// healthAggregator probes both backends with the current credentials.
func healthAggregator(client *api.Client, timeout time.Duration) *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: timeout, Parallel: true})
	agg.Register(health.NewAPIChecker("project_api", func(ctx context.Context) error {
		_, err := client.ListExperiments(ctx, api.ExperimentFilter{Limit: 1})
		return err
	}))
	agg.Register(health.NewAPIChecker("identity_api", func(ctx context.Context) error {
		_, err := client.ListTenants(ctx)
		return err
	}))
	return agg
}

func (c *CLI) newHealthCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that both APIs are reachable with the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			report := healthAggregator(e.client, timeout).Report(cmd.Context())
			response := health.NewHealthResponse(report)

			t := &table{headers: []string{"CHECK", "STATUS", "MESSAGE", "DURATION"}}
			for _, name := range report.Names {
				r := report.Results[name]
				t.add(name, r.Status.String(), r.Message, r.Duration.Round(time.Millisecond).String())
			}
			if err := c.print(cmd.OutOrStdout(), response, t); err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return errors.New("unhealthy")
			}
			if c.flags.output == "table" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "overall: %s\n", report.Status)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout of each check")
	return cmd
}
