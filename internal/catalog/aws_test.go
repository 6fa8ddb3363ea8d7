package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/common"
	"github.com/noah-isme/aws-pricing-api/internal/resilience"
)

func newTestClient(api catalog.PricingAPI) *catalog.AWSClient {
	return catalog.NewAWSClientWithAPI(api, catalog.AWSOptions{
		PageSize:       2,
		RequestTimeout: time.Second,
		Retry:          resilience.Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond},
		Logger:         zerolog.Nop(),
	})
}

func TestListServicesConcatenatesPages(t *testing.T) {
	api := newFakePricingAPI()
	api.services = [][]types.Service{
		{{ServiceCode: aws.String("AmazonEC2")}, {ServiceCode: aws.String("AmazonRDS")}},
		{{ServiceCode: aws.String("AmazonS3")}},
	}
	client := newTestClient(api)

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []catalog.Service{
		{ServiceCode: "AmazonEC2", ServiceName: "AmazonEC2"},
		{ServiceCode: "AmazonRDS", ServiceName: "AmazonRDS"},
		{ServiceCode: "AmazonS3", ServiceName: "AmazonS3"},
	}, services)
	require.Equal(t, 2, api.callCount("DescribeServices"))
}

func TestListAttributes(t *testing.T) {
	api := newFakePricingAPI()
	api.services = [][]types.Service{{{ServiceCode: aws.String("AmazonEC2"), AttributeNames: []string{"instanceType", "location"}}}}
	client := newTestClient(api)

	attrs, err := client.ListAttributes(context.Background(), "AmazonEC2")
	require.NoError(t, err)
	require.Equal(t, []string{"instanceType", "location"}, attrs)

	attrs, err = client.ListAttributes(context.Background(), "Unknown")
	require.NoError(t, err)
	require.NotNil(t, attrs)
	require.Empty(t, attrs)
}

func TestListAttributesNotFoundIsEmpty(t *testing.T) {
	api := newFakePricingAPI()
	api.failures = []error{&types.NotFoundException{Message: aws.String("no such service")}}
	client := newTestClient(api)

	attrs, err := client.ListAttributes(context.Background(), "Nope")
	require.NoError(t, err)
	require.Empty(t, attrs)
	require.Equal(t, 1, api.callCount("DescribeServices"))
}

func TestListAttributeValuesKeepsUpstreamOrder(t *testing.T) {
	api := newFakePricingAPI()
	api.values = [][]string{{"t3.micro", "m5.large"}, {"c6g.xlarge"}}
	client := newTestClient(api)

	values, err := client.ListAttributeValues(context.Background(), "AmazonEC2", "instanceType")
	require.NoError(t, err)
	require.Equal(t, []string{"t3.micro", "m5.large", "c6g.xlarge"}, values)
}

func TestFindProductsDecodesAndSkipsMalformed(t *testing.T) {
	api := newFakePricingAPI()
	api.products = [][]string{{ec2Document, "{not json"}, {ec2Document}}
	client := newTestClient(api)

	products, err := client.FindProducts(context.Background(), "AmazonEC2", []catalog.Filter{
		{Field: "instanceType", Value: "t3.micro"},
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "t3.micro", products[0].Product.Attributes["instanceType"])
	dim := products[0].Terms.OnDemand["SKU123.JRTCKXETXF"].PriceDimensions["SKU123.JRTCKXETXF.6YS6EN2CT7"]
	require.Equal(t, "Hrs", dim.Unit)
	require.Equal(t, "0.0104000000", dim.PricePerUnit["USD"])

	require.Len(t, api.lastFilters, 1)
	require.Equal(t, types.FilterTypeTermMatch, api.lastFilters[0].Type)
	require.Equal(t, "instanceType", aws.ToString(api.lastFilters[0].Field))
}

func TestFindProductsEmptyIsNotAnError(t *testing.T) {
	client := newTestClient(newFakePricingAPI())
	products, err := client.FindProducts(context.Background(), "AmazonEC2", nil)
	require.NoError(t, err)
	require.NotNil(t, products)
	require.Empty(t, products)
}

func TestThrottlingIsRetried(t *testing.T) {
	api := newFakePricingAPI()
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded", Fault: smithy.FaultClient}
	api.failures = []error{throttled, throttled}
	api.products = [][]string{{ec2Document}}
	client := newTestClient(api)

	products, err := client.FindProducts(context.Background(), "AmazonEC2", nil)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, 3, api.callCount("GetProducts"))
}

func TestThrottlingExhaustionIsUpstream(t *testing.T) {
	api := newFakePricingAPI()
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}
	api.failures = []error{throttled, throttled, throttled}
	client := newTestClient(api)

	_, err := client.FindProducts(context.Background(), "AmazonEC2", nil)
	require.Error(t, err)
	require.True(t, common.IsUpstream(err))
	require.Contains(t, err.Error(), "Rate exceeded")
	require.Equal(t, 3, api.callCount("GetProducts"))
}

func TestValidationFaultIsNotRetried(t *testing.T) {
	api := newFakePricingAPI()
	api.failures = []error{&smithy.GenericAPIError{Code: "InvalidParameterException", Message: "bad filter", Fault: smithy.FaultClient}}
	client := newTestClient(api)

	_, err := client.FindProducts(context.Background(), "AmazonEC2", []catalog.Filter{{Field: "x", Value: "y"}})
	require.Error(t, err)
	require.True(t, common.IsUpstream(err))
	require.Equal(t, 1, api.callCount("GetProducts"))
}

func TestIsRetryable(t *testing.T) {
	require.True(t, catalog.IsRetryable(&smithy.GenericAPIError{Code: "ThrottlingException"}))
	require.True(t, catalog.IsRetryable(&smithy.GenericAPIError{Code: "InternalErrorException"}))
	require.True(t, catalog.IsRetryable(&smithy.GenericAPIError{Code: "Whatever", Fault: smithy.FaultServer}))
	require.True(t, catalog.IsRetryable(errors.New("connection reset by peer")))
	require.False(t, catalog.IsRetryable(&types.NotFoundException{}))
	require.False(t, catalog.IsRetryable(&smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient}))
	require.False(t, catalog.IsRetryable(context.Canceled))
	require.False(t, catalog.IsRetryable(nil))
}
