package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/common"
	"github.com/noah-isme/aws-pricing-api/internal/obs"
)

// ProductFinder is the part of the catalog the calculator depends on.
type ProductFinder interface {
	FindProducts(ctx context.Context, serviceCode string, filters []catalog.Filter) ([]catalog.Product, error)
}

// PricingResult is the priced view of a single resource.
type PricingResult struct {
	ServiceCode          string            `json:"serviceCode"`
	ResourceDetails      map[string]string `json:"resourceDetails"`
	Pricing              PriceQuote        `json:"pricing"`
	EstimatedMonthlyCost Amount            `json:"estimatedMonthlyCost"`
}

// ResourceCostRequest asks for the cost of quantity resources consuming
// usageValue units each. Nil fields take their defaults.
type ResourceCostRequest struct {
	ServiceCode string           `json:"serviceCode"`
	Filters     []catalog.Filter `json:"filters" validate:"dive"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,min=0"`
	UsageType   string           `json:"usageType,omitempty"`
	UsageValue  *Amount          `json:"usageValue,omitempty"`
}

// UsageDetails echoes the usage applied to a resource.
type UsageDetails struct {
	Type  string `json:"type"`
	Value Amount `json:"value"`
}

// ResourceCostResult is the cost of one priced resource.
type ResourceCostResult struct {
	ServiceCode     string            `json:"serviceCode"`
	ResourceDetails map[string]string `json:"resourceDetails"`
	Quantity        int               `json:"quantity"`
	UsageDetails    UsageDetails      `json:"usageDetails"`
	Cost            Amount            `json:"cost"`
}

// TotalCost is the aggregated amount of a report.
type TotalCost struct {
	Currency string `json:"currency"`
	Amount   Amount `json:"amount"`
	TimeUnit string `json:"timeUnit"`
}

// TotalCostReport sums the resources that could be priced.
type TotalCostReport struct {
	TotalCost     TotalCost            `json:"totalCost"`
	ResourceCosts []ResourceCostResult `json:"resourceCosts"`
}

// Outcome records what happened to one resource of a batch.
type Outcome struct {
	Index       int
	ServiceCode string
	Result      *ResourceCostResult
	Err         error
}

// Batch is the result of CalculateBatch: the public report plus the
// per-resource outcomes, including the resources left out of the report.
type Batch struct {
	Report   TotalCostReport
	Outcomes []Outcome
}

// Priced returns the number of resources included in the report.
func (b Batch) Priced() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Skipped returns the number of resources that failed to price.
func (b Batch) Skipped() int {
	return len(b.Outcomes) - b.Priced()
}

// Calculator prices resources against a catalog.
type Calculator struct {
	catalog     ProductFinder
	logger      zerolog.Logger
	concurrency int
}

// CalculatorConfig groups Calculator dependencies.
type CalculatorConfig struct {
	Catalog     ProductFinder
	Logger      zerolog.Logger
	Concurrency int
}

// NewCalculator constructs a Calculator.
func NewCalculator(cfg CalculatorConfig) *Calculator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Calculator{catalog: cfg.Catalog, logger: cfg.Logger, concurrency: concurrency}
}

// CalculatePrice prices the first product matching filters. It fails with a
// NotFound AppError when nothing matches or the match carries no on-demand
// price, and with an Upstream AppError when the catalog fails.
func (c *Calculator) CalculatePrice(ctx context.Context, serviceCode string, filters []catalog.Filter) (PricingResult, error) {
	result, err := c.calculatePrice(ctx, serviceCode, filters)
	obs.ObserveCalculation("price", outcomeLabel(err))
	return result, err
}

func (c *Calculator) calculatePrice(ctx context.Context, serviceCode string, filters []catalog.Filter) (PricingResult, error) {
	if c.catalog == nil {
		return PricingResult{}, errors.New("pricing: catalog not configured")
	}
	products, err := c.catalog.FindProducts(ctx, serviceCode, filters)
	if err != nil {
		if common.IsAppError(err) {
			return PricingResult{}, err
		}
		return PricingResult{}, common.Upstream(fmt.Errorf("find products: %w", err))
	}
	if len(products) == 0 {
		return PricingResult{}, common.NotFound(fmt.Sprintf("No products found for %s with the given filters", serviceCode), nil)
	}
	product := products[0]
	quote, ok := ExtractPrice(product)
	if !ok {
		return PricingResult{}, common.NotFound(fmt.Sprintf("No pricing information found for %s with the given filters", serviceCode), nil)
	}
	return PricingResult{
		ServiceCode:          serviceCode,
		ResourceDetails:      MergeResourceDetails(product, filters),
		Pricing:              quote,
		EstimatedMonthlyCost: MonthlyCost(quote),
	}, nil
}

// CalculateTotalCost prices every request and sums the successes.
func (c *Calculator) CalculateTotalCost(ctx context.Context, requests []ResourceCostRequest) (TotalCostReport, error) {
	batch, err := c.CalculateBatch(ctx, requests)
	if err != nil {
		return TotalCostReport{}, err
	}
	return batch.Report, nil
}

// CalculateBatch prices requests concurrently. A resource that fails is
// logged and left out of the report; the report keeps the input order of
// the resources that priced. Only cancellation of ctx fails the batch.
func (c *Calculator) CalculateBatch(ctx context.Context, requests []ResourceCostRequest) (Batch, error) {
	outcomes := make([]Outcome, len(requests))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, req := range requests {
		g.Go(func() error {
			outcomes[i] = c.priceResource(ctx, i, req)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		obs.ObserveCalculation("batch", "canceled")
		return Batch{}, fmt.Errorf("calculate total cost: %w", err)
	}

	report := TotalCostReport{
		TotalCost:     TotalCost{Currency: CurrencyUSD, TimeUnit: TimeUnitMonthly},
		ResourceCosts: make([]ResourceCostResult, 0, len(requests)),
	}
	for _, o := range outcomes {
		if o.Err != nil {
			c.logger.Warn().Err(o.Err).Int("index", o.Index).Str("service_code", o.ServiceCode).Msg("resource_skipped")
			continue
		}
		report.ResourceCosts = append(report.ResourceCosts, *o.Result)
		report.TotalCost.Amount = report.TotalCost.Amount.Add(o.Result.Cost)
	}
	batch := Batch{Report: report, Outcomes: outcomes}
	obs.ObserveBatchResources(batch.Priced(), batch.Skipped())
	obs.ObserveCalculation("batch", "ok")
	return batch, nil
}

func (c *Calculator) priceResource(ctx context.Context, index int, req ResourceCostRequest) Outcome {
	serviceCode := strings.TrimSpace(req.ServiceCode)
	outcome := Outcome{Index: index, ServiceCode: serviceCode}
	if serviceCode == "" {
		outcome.Err = common.Validation("Service code is required", nil)
		return outcome
	}
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	usageType := strings.TrimSpace(req.UsageType)
	if usageType == "" {
		usageType = DefaultUsageType
	}
	usageValue := HoursPerMonth
	if req.UsageValue != nil {
		usageValue = *req.UsageValue
	}

	priced, err := c.calculatePrice(ctx, serviceCode, req.Filters)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	// The usage type is echoed, not checked against the quote's unit.
	cost := priced.Pricing.PricePerUnit.Mul(usageValue).Mul(AmountFromInt(int64(quantity)))
	outcome.Result = &ResourceCostResult{
		ServiceCode:     serviceCode,
		ResourceDetails: priced.ResourceDetails,
		Quantity:        quantity,
		UsageDetails:    UsageDetails{Type: usageType, Value: usageValue},
		Cost:            cost,
	}
	return outcome
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case common.IsNotFound(err):
		return "not_found"
	case common.IsUpstream(err):
		return "upstream_error"
	default:
		return "error"
	}
}
