package pricing_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/pricing"
)

func hourlyProduct(price string, attrs map[string]string) catalog.Product {
	return catalog.Product{
		Product: catalog.ProductInfo{Attributes: attrs},
		Terms: catalog.Terms{OnDemand: map[string]catalog.Offer{
			"SKU.JRTCKXETXF": {PriceDimensions: map[string]catalog.PriceDimension{
				"SKU.JRTCKXETXF.6YS6EN2CT7": {
					Unit:         "Hrs",
					Description:  "On Demand Linux Instance Hour",
					PricePerUnit: map[string]string{"USD": price},
				},
			}},
		}},
	}
}

func TestExtractPriceDeterministic(t *testing.T) {
	product := catalog.Product{Terms: catalog.Terms{OnDemand: map[string]catalog.Offer{
		"B.offer": {PriceDimensions: map[string]catalog.PriceDimension{
			"B.dim": {Unit: "Hrs", PricePerUnit: map[string]string{"USD": "9"}},
		}},
		"A.offer": {PriceDimensions: map[string]catalog.PriceDimension{
			"A.dim.2": {Unit: "Hrs", PricePerUnit: map[string]string{"USD": "2"}},
			"A.dim.1": {Unit: "Hrs", Description: "first", PricePerUnit: map[string]string{"USD": "1"}},
		}},
	}}}

	first, ok := pricing.ExtractPrice(product)
	require.True(t, ok)
	require.Equal(t, "first", first.Description)
	require.True(t, first.PricePerUnit.Equal(pricing.MustAmount("1")))
	for i := 0; i < 20; i++ {
		again, ok := pricing.ExtractPrice(product)
		require.True(t, ok)
		require.Equal(t, first, again)
	}
}

func TestExtractPriceWithoutPricing(t *testing.T) {
	_, ok := pricing.ExtractPrice(catalog.Product{})
	require.False(t, ok, "empty OnDemand terms")

	_, ok = pricing.ExtractPrice(catalog.Product{Terms: catalog.Terms{OnDemand: map[string]catalog.Offer{"x": {}}}})
	require.False(t, ok, "offer without dimensions")

	_, ok = pricing.ExtractPrice(hourlyProduct("not-a-number", nil))
	require.False(t, ok, "malformed USD price")
}

func TestExtractPriceMissingUSDIsZero(t *testing.T) {
	product := catalog.Product{Terms: catalog.Terms{OnDemand: map[string]catalog.Offer{
		"o": {PriceDimensions: map[string]catalog.PriceDimension{"d": {Unit: "Hrs", PricePerUnit: map[string]string{"CNY": "1"}}}},
	}}}
	quote, ok := pricing.ExtractPrice(product)
	require.True(t, ok)
	require.True(t, quote.PricePerUnit.IsZero())
	require.Equal(t, pricing.CurrencyUSD, quote.Currency)
}

func TestMergeResourceDetailsFilterWins(t *testing.T) {
	product := hourlyProduct("0.01", map[string]string{"instanceType": "t3.micro", "location": "us-east-1"})
	details := pricing.MergeResourceDetails(product, []catalog.Filter{
		{Field: "instanceType", Value: "t2.micro"},
		{Field: "", Value: "ignored"},
		{Field: "tenancy", Value: ""},
	})
	require.Equal(t, map[string]string{"instanceType": "t2.micro", "location": "us-east-1"}, details)
}

func TestMonthlyCostUnitGating(t *testing.T) {
	hourly := pricing.PriceQuote{Unit: "Hrs", PricePerUnit: pricing.MustAmount("0.0116")}
	require.Equal(t, "8.468", pricing.MonthlyCost(hourly).String())

	lower := pricing.PriceQuote{Unit: "hrs", PricePerUnit: pricing.MustAmount("0.0116")}
	require.Equal(t, "8.468", pricing.MonthlyCost(lower).String())

	storage := pricing.PriceQuote{Unit: "GB-Month", PricePerUnit: pricing.MustAmount("0.023")}
	require.True(t, pricing.MonthlyCost(storage).IsZero())
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(map[string]pricing.Amount{"v": pricing.MustAmount("0.0104000000")})
	require.NoError(t, err)
	require.JSONEq(t, `{"v":0.0104}`, string(data))

	var a pricing.Amount
	require.NoError(t, json.Unmarshal([]byte(`730`), &a))
	require.True(t, a.Equal(pricing.HoursPerMonth))
	require.NoError(t, json.Unmarshal([]byte(`"1.5"`), &a))
	require.Equal(t, 1.5, a.Float64())
}

func TestAmountRejectsNonNumericJSON(t *testing.T) {
	for input, kind := range map[string]string{
		`"abc"`: "string",
		`true`:  "bool",
		`[1]`:   "array",
		`{}`:    "object",
	} {
		var a pricing.Amount
		err := a.UnmarshalJSON([]byte(input))
		var typeErr *json.UnmarshalTypeError
		require.True(t, errors.As(err, &typeErr), input)
		require.Equal(t, kind, typeErr.Value)
		require.Equal(t, "pricing.Amount", typeErr.Type.String())
	}

	var req pricing.ResourceCostRequest
	err := json.Unmarshal([]byte(`{"serviceCode":"AmazonEC2","usageValue":"abc"}`), &req)
	var typeErr *json.UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestAmountNullLeavesZero(t *testing.T) {
	var a pricing.Amount
	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	require.True(t, a.IsZero())
	require.False(t, a.IsNegative())
	require.True(t, pricing.MustAmount("-0.01").IsNegative())
}
