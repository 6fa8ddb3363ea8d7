package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// FilterTypeTermMatch is the only filter type the Price List API evaluates:
// an exact, case-sensitive equality match on a product attribute.
const FilterTypeTermMatch = "TERM_MATCH"

// Service identifies a billable product line in the pricing catalog.
type Service struct {
	ServiceCode string `json:"serviceCode"`
	ServiceName string `json:"serviceName"`
}

// Filter restricts catalog queries to products whose attribute Field equals Value.
type Filter struct {
	Type  string `json:"type,omitempty" validate:"omitempty,oneof=TERM_MATCH"`
	Field string `json:"field" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Normalized returns the filter with surrounding whitespace removed from the
// type and its default applied.
func (f Filter) Normalized() Filter {
	f.Type = strings.TrimSpace(f.Type)
	if f.Type == "" {
		f.Type = FilterTypeTermMatch
	}
	return f
}

// Product is the typed view of one Price List document.
type Product struct {
	Product         ProductInfo `json:"product"`
	ServiceCode     string      `json:"serviceCode,omitempty"`
	Version         string      `json:"version,omitempty"`
	PublicationDate string      `json:"publicationDate,omitempty"`
	Terms           Terms       `json:"terms"`
}

// ProductInfo carries the SKU and its filterable attributes.
type ProductInfo struct {
	ProductFamily string            `json:"productFamily,omitempty"`
	SKU           string            `json:"sku,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Terms groups offers by purchase model, keyed by offer term key.
type Terms struct {
	OnDemand map[string]Offer `json:"OnDemand,omitempty"`
	Reserved map[string]Offer `json:"Reserved,omitempty"`
}

// Offer is a single pricing term for a SKU.
type Offer struct {
	OfferTermCode   string                    `json:"offerTermCode,omitempty"`
	SKU             string                    `json:"sku,omitempty"`
	EffectiveDate   string                    `json:"effectiveDate,omitempty"`
	PriceDimensions map[string]PriceDimension `json:"priceDimensions,omitempty"`
	TermAttributes  map[string]string         `json:"termAttributes,omitempty"`
}

// PriceDimension is a billable unit within an offer. PricePerUnit maps a
// currency code to a decimal string.
type PriceDimension struct {
	RateCode     string            `json:"rateCode,omitempty"`
	Description  string            `json:"description,omitempty"`
	Unit         string            `json:"unit,omitempty"`
	BeginRange   string            `json:"beginRange,omitempty"`
	EndRange     string            `json:"endRange,omitempty"`
	PricePerUnit map[string]string `json:"pricePerUnit,omitempty"`
	AppliesTo    []string          `json:"appliesTo,omitempty"`
}

// Source resolves catalog listings and product queries. An unknown service
// yields empty listings, and a query without matches yields an empty product
// list; neither is an error.
type Source interface {
	ListServices(ctx context.Context) ([]Service, error)
	ListAttributes(ctx context.Context, serviceCode string) ([]string, error)
	ListAttributeValues(ctx context.Context, serviceCode, attributeName string) ([]string, error)
	FindProducts(ctx context.Context, serviceCode string, filters []Filter) ([]Product, error)
}

// CanonicalFilters returns a normalised copy of filters sorted by field, then
// value, then type.
func CanonicalFilters(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.Normalized())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// FiltersDigest hashes the canonical form of filters. Permutations of the same
// filter set produce the same digest.
func FiltersDigest(filters []Filter) string {
	h := sha256.New()
	for _, f := range CanonicalFilters(filters) {
		h.Write([]byte(f.Type))
		h.Write([]byte{0})
		h.Write([]byte(f.Field))
		h.Write([]byte{0})
		h.Write([]byte(f.Value))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
