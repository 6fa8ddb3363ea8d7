package catalog_test

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

const ec2Document = `{
  "product": {
    "productFamily": "Compute Instance",
    "sku": "SKU123",
    "attributes": {"instanceType": "t3.micro", "location": "US East (N. Virginia)", "operatingSystem": "Linux"}
  },
  "serviceCode": "AmazonEC2",
  "version": "20240101",
  "publicationDate": "2024-01-01T00:00:00Z",
  "terms": {
    "OnDemand": {
      "SKU123.JRTCKXETXF": {
        "offerTermCode": "JRTCKXETXF",
        "sku": "SKU123",
        "priceDimensions": {
          "SKU123.JRTCKXETXF.6YS6EN2CT7": {
            "unit": "Hrs",
            "description": "$0.0104 per On Demand Linux t3.micro Instance Hour",
            "pricePerUnit": {"USD": "0.0104000000"}
          }
        }
      }
    }
  }
}`

// fakePricingAPI serves canned pages keyed by continuation token and can
// fail a configurable number of calls before answering.
type fakePricingAPI struct {
	mu sync.Mutex

	services    [][]types.Service
	values      [][]string
	products    [][]string
	failures    []error
	calls       map[string]int
	lastFilters []types.Filter
}

func newFakePricingAPI() *fakePricingAPI {
	return &fakePricingAPI{calls: map[string]int{}}
}

func (f *fakePricingAPI) next(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakePricingAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func pageIndex(token *string) int {
	if token == nil {
		return 0
	}
	idx, _ := strconv.Atoi(*token)
	return idx
}

func nextToken(idx, total int) *string {
	if idx+1 >= total {
		return nil
	}
	return aws.String(strconv.Itoa(idx + 1))
}

func (f *fakePricingAPI) DescribeServices(_ context.Context, in *pricing.DescribeServicesInput, _ ...func(*pricing.Options)) (*pricing.DescribeServicesOutput, error) {
	if err := f.next("DescribeServices"); err != nil {
		return nil, err
	}
	if in.ServiceCode != nil {
		for _, page := range f.services {
			for _, svc := range page {
				if aws.ToString(svc.ServiceCode) == *in.ServiceCode {
					return &pricing.DescribeServicesOutput{Services: []types.Service{svc}}, nil
				}
			}
		}
		return &pricing.DescribeServicesOutput{}, nil
	}
	if len(f.services) == 0 {
		return &pricing.DescribeServicesOutput{}, nil
	}
	idx := pageIndex(in.NextToken)
	return &pricing.DescribeServicesOutput{Services: f.services[idx], NextToken: nextToken(idx, len(f.services))}, nil
}

func (f *fakePricingAPI) GetAttributeValues(_ context.Context, in *pricing.GetAttributeValuesInput, _ ...func(*pricing.Options)) (*pricing.GetAttributeValuesOutput, error) {
	if err := f.next("GetAttributeValues"); err != nil {
		return nil, err
	}
	if len(f.values) == 0 {
		return &pricing.GetAttributeValuesOutput{}, nil
	}
	idx := pageIndex(in.NextToken)
	out := &pricing.GetAttributeValuesOutput{NextToken: nextToken(idx, len(f.values))}
	for _, v := range f.values[idx] {
		out.AttributeValues = append(out.AttributeValues, types.AttributeValue{Value: aws.String(v)})
	}
	return out, nil
}

func (f *fakePricingAPI) GetProducts(_ context.Context, in *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	if err := f.next("GetProducts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastFilters = in.Filters
	f.mu.Unlock()
	if len(f.products) == 0 {
		return &pricing.GetProductsOutput{}, nil
	}
	idx := pageIndex(in.NextToken)
	return &pricing.GetProductsOutput{PriceList: f.products[idx], NextToken: nextToken(idx, len(f.products))}, nil
}
