package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/noah-isme/aws-pricing-api/internal/app"
	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/common"
	"github.com/noah-isme/aws-pricing-api/internal/pricing"
)

type calculateDocument struct {
	Resources []pricing.ResourceCostRequest `json:"resources" validate:"dive"`
}

func (c *cli) priceCmd() *cobra.Command {
	var rawFilters []string
	cmd := &cobra.Command{
		Use:   "price <serviceCode>",
		Short: "price the first product matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(rawFilters)
			if err != nil {
				return err
			}
			serviceCode := args[0]
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				result, err := deps.Calculator().CalculatePrice(ctx, serviceCode, filters)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	// -f can be repeated: -f instanceType=t3.micro -f location="US East (N. Virginia)"
	cmd.Flags().StringArrayVarP(&rawFilters, "filter", "f", nil, "TERM_MATCH filter as field=value")
	return cmd
}

func (c *cli) calculateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "calculate --file request.json",
		Short: "calculate the monthly total of a {resources:[...]} document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := readCalculateDocument(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				if err := pricing.ValidateResources(deps.Validator, doc.Resources); err != nil {
					return err
				}
				batch, err := deps.Calculator().CalculateBatch(ctx, doc.Resources)
				if err != nil {
					return err
				}
				if skipped := batch.Skipped(); skipped > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d resources could not be priced\n", skipped, len(doc.Resources))
				}
				return writeJSON(cmd.OutOrStdout(), batch.Report)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "request document, - reads stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseFilters(raw []string) ([]catalog.Filter, error) {
	filters := make([]catalog.Filter, 0, len(raw))
	for _, item := range raw {
		field, value, ok := strings.Cut(item, "=")
		field, value = strings.TrimSpace(field), strings.TrimSpace(value)
		if !ok || field == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected field=value", item)
		}
		filters = append(filters, catalog.Filter{Type: catalog.FilterTypeTermMatch, Field: field, Value: value})
	}
	return filters, nil
}

func readCalculateDocument(stdin io.Reader, file string) (calculateDocument, error) {
	var doc calculateDocument
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", file, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", file, err)
	}
	if len(doc.Resources) == 0 {
		return doc, common.Validation("Resources are required", nil)
	}
	return doc, nil
}
