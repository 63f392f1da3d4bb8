package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/abclient/api"
	"github.com/jonwraymond/abclient/auth"
	"github.com/jonwraymond/abclient/config"
	"github.com/jonwraymond/abclient/observe"
	"github.com/jonwraymond/abclient/query"
	"github.com/jonwraymond/abclient/transport"
)

// envPrefix prefixes environment overrides, e.g. ABCLIENT_API_BASE_URL.
const envPrefix = "ABCLIENT"

type env struct {
	chain  *config.Chain
	store  *auth.FileStore
	logger observe.Logger
	client *api.Client
}

// setup wires configuration, session, telemetry, the query cache and the
// API client once per invocation. Sources are consulted in order: environment, config
// file, build-time values, development fallbacks.
func (c *CLI) setup(cmd *cobra.Command) (*env, error) {
	if c.env != nil {
		return c.env, nil
	}
	ctx := cmd.Context()

	logger := observe.NewLoggerWithWriter(c.flags.logLevel, cmd.ErrOrStderr())
	mw, err := c.middleware(ctx, logger)
	if err != nil {
		return nil, err
	}

	chain := config.DefaultChain(
		config.NewEnvSource(envPrefix),
		config.NewFileSource(c.flags.configPath),
	)
	store := auth.NewFileStore(c.flags.sessionPath)
	t := transport.New(chain, store, transport.WithMiddleware(mw))

	// One invocation reads each query once, so a failed read is reported
	// instead of retried.
	q := query.NewClient(query.WithLogger(logger), query.WithDefaults(query.WithRetry(1)))
	c.closers = append(c.closers, func(context.Context) error {
		q.Close()
		return nil
	})

	c.env = &env{
		chain:  chain,
		store:  store,
		logger: logger,
		client: api.New(t, q),
	}
	logger.Debug(ctx, "client configured",
		observe.F("config_sources", chain.Sources()),
		observe.F("session_path", store.Path()),
	)
	return c.env, nil
}

func (c *CLI) middleware(ctx context.Context, logger observe.Logger) (*observe.Middleware, error) {
	if c.flags.trace == "none" && c.flags.metrics == "none" {
		return observe.NewMiddleware(nil, nil, logger), nil
	}

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "abctl",
		Tracing: observe.TracingConfig{
			Enabled:   c.flags.trace != "none",
			Exporter:  c.flags.trace,
			SamplePct: 1,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.flags.metrics != "none",
			Exporter: c.flags.metrics,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	c.closers = append(c.closers, obs.Shutdown)

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return observe.NewMiddleware(observe.NewTracer(obs.Tracer()), metrics, logger), nil
}

// await reads one query through the cache and releases the subscription.
func await[T any](ctx context.Context, sub *query.Subscription[T]) (T, error) {
	defer sub.Unsubscribe()
	return sub.Wait(ctx)
}

// session returns the stored session, for defaults such as the selected
// tenant.
func (e *env) session(ctx context.Context) (auth.Session, error) {
	sess, err := e.store.Load(ctx)
	if err != nil {
		return auth.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}
