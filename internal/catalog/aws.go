package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/aws/smithy-go"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/noah-isme/aws-pricing-api/internal/common"
	"github.com/noah-isme/aws-pricing-api/internal/obs"
	"github.com/noah-isme/aws-pricing-api/internal/resilience"
)

const formatVersion = "aws_v1"

// PricingAPI is the subset of the Price List API used by AWSClient.
type PricingAPI interface {
	pricing.DescribeServicesAPIClient
	pricing.GetAttributeValuesAPIClient
	pricing.GetProductsAPIClient
}

// AWSOptions configures the Price List API client.
type AWSOptions struct {
	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	PageSize          int32
	RequestsPerSecond float64
	Burst             int
	RequestTimeout    time.Duration
	Retry             resilience.Policy
	Logger            zerolog.Logger
}

// AWSClient implements Source on top of the AWS Price List Query API.
type AWSClient struct {
	api      PricingAPI
	limiter  *rate.Limiter
	policy   resilience.Policy
	pageSize int32
	timeout  time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewAWSClient loads the AWS configuration and constructs a client for the
// Price List API. SDK-level retries are disabled; retries are driven by
// opts.Retry so every attempt passes through the breaker.
func NewAWSClient(ctx context.Context, opts AWSOptions) (*AWSClient, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
		awsconfig.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	if profile := strings.TrimSpace(opts.Profile); profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	api := pricing.NewFromConfig(cfg, func(o *pricing.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSClientWithAPI(api, opts), nil
}

// NewAWSClientWithAPI builds a client around an existing Price List API
// implementation.
func NewAWSClientWithAPI(api PricingAPI, opts AWSOptions) *AWSClient {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	policy := opts.Retry
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	return &AWSClient{
		api:      api,
		limiter:  rate.NewLimiter(limit, burst),
		policy:   policy,
		pageSize: pageSize,
		timeout:  opts.RequestTimeout,
		logger:   opts.Logger,
		tracer:   otel.Tracer("catalog.aws"),
	}
}

// ListServices returns every service in the catalog. The catalog carries no
// display names, so ServiceName mirrors ServiceCode.
func (c *AWSClient) ListServices(ctx context.Context) ([]Service, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	paginator := pricing.NewDescribeServicesPaginator(c.api, &pricing.DescribeServicesInput{
		FormatVersion: aws.String(formatVersion),
		MaxResults:    aws.Int32(c.pageSize),
	})
	services := make([]Service, 0)
	for paginator.HasMorePages() {
		var page *pricing.DescribeServicesOutput
		err := c.call(ctx, "DescribeServices", func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, common.Upstream(fmt.Errorf("describe services: %w", err))
		}
		for _, svc := range page.Services {
			code := aws.ToString(svc.ServiceCode)
			if code == "" {
				continue
			}
			services = append(services, Service{ServiceCode: code, ServiceName: code})
		}
	}
	return services, nil
}

// ListAttributes returns the filterable attribute names of serviceCode, or an
// empty list when the service is unknown.
func (c *AWSClient) ListAttributes(ctx context.Context, serviceCode string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out *pricing.DescribeServicesOutput
	err := c.call(ctx, "DescribeServices", func(ctx context.Context) error {
		var err error
		out, err = c.api.DescribeServices(ctx, &pricing.DescribeServicesInput{
			ServiceCode:   aws.String(serviceCode),
			FormatVersion: aws.String(formatVersion),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, common.Upstream(fmt.Errorf("describe service %s: %w", serviceCode, err))
	}
	if len(out.Services) == 0 {
		return []string{}, nil
	}
	attrs := out.Services[0].AttributeNames
	if attrs == nil {
		attrs = []string{}
	}
	return attrs, nil
}

// ListAttributeValues returns the known values of attributeName in upstream order.
func (c *AWSClient) ListAttributeValues(ctx context.Context, serviceCode, attributeName string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	paginator := pricing.NewGetAttributeValuesPaginator(c.api, &pricing.GetAttributeValuesInput{
		ServiceCode:   aws.String(serviceCode),
		AttributeName: aws.String(attributeName),
		MaxResults:    aws.Int32(c.pageSize),
	})
	values := make([]string, 0)
	for paginator.HasMorePages() {
		var page *pricing.GetAttributeValuesOutput
		err := c.call(ctx, "GetAttributeValues", func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			if isNotFound(err) {
				return values, nil
			}
			return nil, common.Upstream(fmt.Errorf("get attribute values %s/%s: %w", serviceCode, attributeName, err))
		}
		for _, v := range page.AttributeValues {
			values = append(values, aws.ToString(v.Value))
		}
	}
	return values, nil
}

// FindProducts returns every product of serviceCode matching all filters.
// Documents that cannot be decoded are logged and skipped.
func (c *AWSClient) FindProducts(ctx context.Context, serviceCode string, filters []Filter) ([]Product, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	apiFilters := make([]types.Filter, 0, len(filters))
	for _, f := range filters {
		apiFilters = append(apiFilters, types.Filter{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String(f.Field),
			Value: aws.String(f.Value),
		})
	}
	paginator := pricing.NewGetProductsPaginator(c.api, &pricing.GetProductsInput{
		ServiceCode:   aws.String(serviceCode),
		Filters:       apiFilters,
		FormatVersion: aws.String(formatVersion),
		MaxResults:    aws.Int32(c.pageSize),
	})
	products := make([]Product, 0)
	for paginator.HasMorePages() {
		var page *pricing.GetProductsOutput
		err := c.call(ctx, "GetProducts", func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			if isNotFound(err) {
				return products, nil
			}
			return nil, common.Upstream(fmt.Errorf("get products %s: %w", serviceCode, err))
		}
		for i, doc := range page.PriceList {
			var p Product
			if err := json.Unmarshal([]byte(doc), &p); err != nil {
				c.logger.Warn().Err(err).Str("service_code", serviceCode).Int("document", i).Msg("catalog_document_skipped")
				continue
			}
			products = append(products, p)
		}
	}
	return products, nil
}

func (c *AWSClient) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "catalog."+operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("rpc.service", "AWSPriceListService"), attribute.String("rpc.method", operation))

	start := time.Now()
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
	result := callResult(err)
	obs.ObserveCatalogCall(operation, result, time.Since(start))
	if err != nil && result != "not_found" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *AWSClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// IsRetryable reports whether a Price List API failure is transient:
// throttling, server-side faults and transport errors are; request faults
// such as validation or not-found are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded",
			"InternalErrorException", "ServiceUnavailableException", "ServiceUnavailable":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return true
}

func isNotFound(err error) bool {
	var nf *types.NotFoundException
	return errors.As(err, &nf)
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	case errors.Is(err, resilience.ErrOpenCircuit):
		return "circuit_open"
	default:
		return "error"
	}
}
