package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/abclient/api"
	"github.com/jonwraymond/abclient/mockapi"
	"github.com/jonwraymond/abclient/observe"
)

func (c *CLI) newMockServerCmd() *cobra.Command {
	var addr, token string
	var use bool
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory API with demo data",
		Long: `Serve an in-memory implementation of both APIs, seeded with a demo
tenant, project, API key, audience and experiments. Data is lost on exit.

The default address matches the development fallback base URL, so other
commands reach the mock without configuration. --use selects the seeded
project in the session file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			srv := mockapi.New(mockapi.WithLogger(e.logger), mockapi.WithToken(token))
			fixture := srv.Seed()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 5 * time.Second}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "mock API listening on http://%s\n", ln.Addr())
			_, _ = fmt.Fprintf(out, "tenant:  %s\nproject: %s\napi key: %s\n", fixture.TenantID, fixture.ProjectID, fixture.APIKey)

			if use {
				sel := api.Selection{
					ProjectRef: api.ProjectRef{TenantID: fixture.TenantID, ProjectID: fixture.ProjectID},
					APIKey:     fixture.APIKey,
				}
				if err := e.client.SelectProject(ctx, sel); err != nil {
					_ = ln.Close()
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.Serve(ln) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			e.logger.Info(ctx, "shutting down mock API", observe.F("addr", ln.Addr().String()))
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")
	cmd.Flags().StringVar(&token, "token", "", "Require this bearer token on tenant routes")
	cmd.Flags().BoolVar(&use, "use", false, "Select the seeded project in the session file")
	return cmd
}
