package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/aws-pricing-api/internal/app"
)

func (c *cli) warmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "run a single cache warmer pass (requires REDIS_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				warmer, err := deps.Warmer()
				if err != nil {
					return err
				}
				report, err := warmer.RunOnce(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}
