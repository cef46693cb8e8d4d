package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/internal/config"
	"github.com/jrsteele09/go-travel-session/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath  string
	role        string
	metricsAddr string
}

// NewRootCommand builds the travelctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "travelctl",
		Short: "Exercise guided-travel sessions against the API",
		Long: `travelctl drives the customer and admin sessions through the request
gateway, refreshing credentials on demand.

Examples:
  # Sign in as the dev admin and call an admin route
  travelctl get /admin/api/users --role admin

  # Fire 20 concurrent requests with a rejected token and count refresh cycles
  travelctl burst /api/destinations -n 20 --stale`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file; environment variables take precedence")
	cmd.PersistentFlags().StringVar(&opts.role, "role", credentials.RoleUser.String(), "session role: user or admin")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve refresh metrics on this address while running, e.g. :9091")

	cmd.AddCommand(
		newLoginCommand(opts),
		newGetCommand(opts),
		newBurstCommand(opts),
	)
	return cmd
}

// Execute runs travelctl with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *rootOptions) parseRole() (credentials.Role, error) {
	return credentials.ParseRole(o.role)
}

// open loads config, sets up logging and builds the Client. The returned
// cleanup closes the client and the metrics listener.
func (o *rootOptions) open(ctx context.Context) (*Client, func(), error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config.Load: %w", err)
	}
	logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())

	reg := prometheus.NewRegistry()
	client, err := NewClient(ctx, cfg, reg)
	if err != nil {
		return nil, nil, err
	}

	var srv *http.Server
	if o.metricsAddr != "" {
		srv = &http.Server{
			Addr:              o.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", o.metricsAddr).Msg("Metrics listener failed")
			}
		}()
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close client")
		}
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
	}
	return client, cleanup, nil
}
