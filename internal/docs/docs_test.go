package docs_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aws-pricing-api/internal/docs"
)

func TestIndex(t *testing.T) {
	h, err := docs.NewHandler(docs.DefaultIndex(""))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info docs.IndexInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, "AWS Pricing API Server", info.Name)
	require.Equal(t, "1.0.0", info.Version)
	paths := make([]string, 0, len(info.Endpoints))
	for _, e := range info.Endpoints {
		paths = append(paths, e.Path)
	}
	require.Contains(t, paths, "/api/calculate")
	require.Contains(t, paths, "/api/filter-documentation")
}

func TestFilterDocumentation(t *testing.T) {
	h, err := docs.NewHandler(docs.DefaultIndex("1.0.0"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.FilterDocumentation(rec, httptest.NewRequest(http.MethodGet, "/api/filter-documentation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		FilterDocumentation struct {
			General struct {
				FilterType string `json:"filterType"`
			} `json:"general"`
			Services map[string]struct {
				Fields map[string]struct {
					Examples []string `json:"examples"`
				} `json:"fields"`
			} `json:"services"`
			PricingTerms map[string]any `json:"pricingTerms"`
		} `json:"filterDocumentation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	doc := body.FilterDocumentation
	require.Contains(t, doc.General.FilterType, "TERM_MATCH")
	require.Len(t, doc.Services, 7)
	require.Contains(t, doc.Services["AmazonEC2"].Fields["instanceType"].Examples, "t2.micro")
	require.Contains(t, doc.PricingTerms, "leaseContractLength")
}
