package pricing

import (
	"sort"
	"strings"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
)

const (
	// CurrencyUSD is the only currency priced.
	CurrencyUSD = "USD"
	// TimeUnitMonthly labels aggregated totals.
	TimeUnitMonthly = "monthly"
	// HourlyUnit is the catalog unit for hourly rates.
	HourlyUnit = "Hrs"
	// DefaultUsageType applies when a resource omits its usage type.
	DefaultUsageType = "Hours"
)

// HoursPerMonth is the average number of hours in a month.
var HoursPerMonth = AmountFromInt(730)

// PriceQuote is the representative on-demand price of one product.
type PriceQuote struct {
	Currency     string `json:"currency"`
	PricePerUnit Amount `json:"pricePerUnit"`
	Unit         string `json:"unit"`
	Description  string `json:"description"`
}

// ExtractPrice selects one on-demand offer and one of its price dimensions,
// always the lexicographically first key at each level. It reports false
// when the product has no on-demand dimension or its USD price is malformed.
// A missing USD entry is priced at zero.
func ExtractPrice(p catalog.Product) (PriceQuote, bool) {
	offerKey, ok := firstKey(p.Terms.OnDemand)
	if !ok {
		return PriceQuote{}, false
	}
	dims := p.Terms.OnDemand[offerKey].PriceDimensions
	dimKey, ok := firstKey(dims)
	if !ok {
		return PriceQuote{}, false
	}
	dim := dims[dimKey]

	price := Amount{}
	if raw, ok := dim.PricePerUnit[CurrencyUSD]; ok {
		parsed, err := ParseAmount(strings.TrimSpace(raw))
		if err != nil {
			return PriceQuote{}, false
		}
		price = parsed
	}
	return PriceQuote{
		Currency:     CurrencyUSD,
		PricePerUnit: price,
		Unit:         dim.Unit,
		Description:  dim.Description,
	}, true
}

// MergeResourceDetails flattens the filters and the product attributes into
// one mapping. Filter values take precedence; filters missing a field or a
// value are ignored.
func MergeResourceDetails(p catalog.Product, filters []catalog.Filter) map[string]string {
	details := make(map[string]string, len(filters)+len(p.Product.Attributes))
	for _, f := range filters {
		if f.Field == "" || f.Value == "" {
			continue
		}
		details[f.Field] = f.Value
	}
	for k, v := range p.Product.Attributes {
		if _, ok := details[k]; !ok {
			details[k] = v
		}
	}
	return details
}

// MonthlyCost estimates a month of usage for hourly quotes. Other units have
// no defined monthly conversion and cost zero.
func MonthlyCost(q PriceQuote) Amount {
	if strings.EqualFold(q.Unit, HourlyUnit) {
		return q.PricePerUnit.Mul(HoursPerMonth)
	}
	return Amount{}
}

func firstKey[V any](m map[string]V) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], true
}
