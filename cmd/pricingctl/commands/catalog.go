package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/aws-pricing-api/internal/app"
)

func (c *cli) servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "list every service in the price list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				services, err := deps.Catalog.ListServices(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"services": services})
			})
		},
	}
}

func (c *cli) attributesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attributes <serviceCode>",
		Short: "list the filterable attributes of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceCode := args[0]
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				attrs, err := deps.Catalog.ListAttributes(ctx, serviceCode)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"serviceCode": serviceCode,
					"attributes":  attrs,
				})
			})
		},
	}
}

func (c *cli) valuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "values <serviceCode> <attributeName>",
		Short: "list the known values of a service attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceCode, attributeName := args[0], args[1]
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				values, err := deps.Catalog.ListAttributeValues(ctx, serviceCode, attributeName)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"serviceCode":   serviceCode,
					"attributeName": attributeName,
					"values":        values,
				})
			})
		},
	}
}
