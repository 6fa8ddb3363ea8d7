package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/aws-pricing-api/internal/app"
	"github.com/noah-isme/aws-pricing-api/internal/config"
	"github.com/noah-isme/aws-pricing-api/internal/obs"
)

// DependencyFactory builds the shared dependencies for a command run.
type DependencyFactory func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app.Dependencies, error)

type globalOptions struct {
	region   string
	profile  string
	endpoint string
	logLevel string
}

type cli struct {
	opts    globalOptions
	factory DependencyFactory
	loadCfg func() (*config.Config, error)
}

// NewRootCmd builds the pricingctl command tree against the live Price List API.
func NewRootCmd() *cobra.Command {
	return newRootCmd(app.New, config.Load)
}

func newRootCmd(factory DependencyFactory, loadCfg func() (*config.Config, error)) *cobra.Command {
	c := &cli{factory: factory, loadCfg: loadCfg}
	root := &cobra.Command{
		Use:   "pricingctl",
		Short: "pricingctl - AWS pricing operator CLI",
		Long: `pricingctl browses the AWS Price List catalog and prices resources
with the same calculator used by the API server. Results are printed as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.region, "region", "", "Price List API region (defaults to AWS_PRICING_REGION)")
	flags.StringVar(&c.opts.profile, "profile", "", "shared AWS config profile")
	flags.StringVar(&c.opts.endpoint, "endpoint", "", "Price List API endpoint override")
	flags.StringVar(&c.opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		c.servicesCmd(),
		c.attributesCmd(),
		c.valuesCmd(),
		c.priceCmd(),
		c.calculateCmd(),
		c.warmCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run loads configuration, applies the global flags, builds the dependencies
// and hands them to fn. Dependencies are closed when fn returns.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, deps *app.Dependencies) error) error {
	cfg, err := c.loadCfg()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.opts.region != "" {
		cfg.AWSRegion = c.opts.region
	}
	if c.opts.profile != "" {
		cfg.AWSProfile = c.opts.profile
	}
	if c.opts.endpoint != "" {
		cfg.AWSPricingEndpoint = c.opts.endpoint
	}
	logger := obs.NewLoggerTo(cmd.ErrOrStderr(), "console", c.opts.logLevel).With().Str("component", "pricingctl").Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deps, err := c.factory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis")
		}
	}()
	return fn(ctx, deps)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
