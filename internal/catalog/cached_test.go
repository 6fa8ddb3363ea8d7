package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newCachedSource(api catalog.PricingAPI, client *redis.Client) *catalog.CachedSource {
	return catalog.NewCachedSource(catalog.CachedSourceConfig{
		Source:      newTestClient(api),
		Cache:       catalog.NewCache(client),
		ListingTTL:  time.Hour,
		ProductsTTL: time.Minute,
		Logger:      zerolog.Nop(),
	})
}

func TestProductsKeyIgnoresFilterOrder(t *testing.T) {
	a := []catalog.Filter{
		{Field: "instanceType", Value: "t3.micro"},
		{Type: "TERM_MATCH", Field: "location", Value: "US East (N. Virginia)"},
	}
	b := []catalog.Filter{a[1], a[0]}
	require.Equal(t, catalog.ProductsKey("AmazonEC2", a), catalog.ProductsKey("AmazonEC2", b))
	require.NotEqual(t, catalog.ProductsKey("AmazonEC2", a), catalog.ProductsKey("AmazonRDS", a))
	require.NotEqual(t, catalog.ProductsKey("AmazonEC2", a), catalog.ProductsKey("AmazonEC2", a[:1]))
}

func TestCachedSourceServesRepeatedProductQueries(t *testing.T) {
	client, mr := newRedis(t)
	api := newFakePricingAPI()
	api.products = [][]string{{ec2Document}}
	source := newCachedSource(api, client)
	ctx := context.Background()

	filters := []catalog.Filter{{Field: "instanceType", Value: "t3.micro"}, {Field: "operatingSystem", Value: "Linux"}}
	first, err := source.FindProducts(ctx, "AmazonEC2", filters)
	require.NoError(t, err)
	require.Len(t, first, 1)

	permuted := []catalog.Filter{filters[1], filters[0]}
	second, err := source.FindProducts(ctx, "AmazonEC2", permuted)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, api.callCount("GetProducts"))

	key := catalog.ProductsKey("AmazonEC2", filters)
	require.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)
}

func TestCachedSourceListings(t *testing.T) {
	client, mr := newRedis(t)
	api := newFakePricingAPI()
	api.services = [][]types.Service{{{ServiceCode: aws.String("AmazonEC2"), AttributeNames: []string{"instanceType"}}}}
	api.values = [][]string{{"t3.micro"}}
	source := newCachedSource(api, client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		services, err := source.ListServices(ctx)
		require.NoError(t, err)
		require.Len(t, services, 1)
		attrs, err := source.ListAttributes(ctx, "AmazonEC2")
		require.NoError(t, err)
		require.Equal(t, []string{"instanceType"}, attrs)
		values, err := source.ListAttributeValues(ctx, "AmazonEC2", "instanceType")
		require.NoError(t, err)
		require.Equal(t, []string{"t3.micro"}, values)
	}
	require.Equal(t, 2, api.callCount("DescribeServices"))
	require.Equal(t, 1, api.callCount("GetAttributeValues"))
	require.True(t, mr.Exists(catalog.ServicesKey()))
	require.True(t, mr.Exists(catalog.AttributesKey("AmazonEC2")))
	require.True(t, mr.Exists(catalog.ValuesKey("AmazonEC2", "instanceType")))
}

func TestCachedSourceFallsThroughWhenRedisFails(t *testing.T) {
	client, mr := newRedis(t)
	api := newFakePricingAPI()
	api.products = [][]string{{ec2Document}}
	source := newCachedSource(api, client)
	mr.Close()

	products, err := source.FindProducts(context.Background(), "AmazonEC2", nil)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, 1, api.callCount("GetProducts"))
}

func TestCachedSourceWithoutRedis(t *testing.T) {
	api := newFakePricingAPI()
	api.products = [][]string{{ec2Document}}
	source := newCachedSource(api, nil)

	for i := 0; i < 2; i++ {
		_, err := source.FindProducts(context.Background(), "AmazonEC2", nil)
		require.NoError(t, err)
	}
	require.Equal(t, 2, api.callCount("GetProducts"))
}
