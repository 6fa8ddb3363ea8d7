// Package docs serves the API index and the static filter reference.
package docs

import (
	"bytes"
	_ "embed"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/noah-isme/aws-pricing-api/internal/common"
)

//go:embed filter_documentation.json
var filterDocumentation []byte

// Endpoint describes one public route.
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

// IndexInfo is the payload of GET /.
type IndexInfo struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// DefaultIndex lists the public routes of the API server.
func DefaultIndex(version string) IndexInfo {
	if version == "" {
		version = "1.0.0"
	}
	return IndexInfo{
		Name:        "AWS Pricing API Server",
		Version:     version,
		Description: "Calculates the cost of AWS resources from the AWS Price List API",
		Endpoints: []Endpoint{
			{Path: "/api/services", Method: http.MethodGet, Description: "List all services"},
			{Path: "/api/services/{serviceCode}/attributes", Method: http.MethodGet, Description: "List the attributes of a service"},
			{Path: "/api/services/{serviceCode}/attributes/{attributeName}/values", Method: http.MethodGet, Description: "List the possible values of a service attribute"},
			{Path: "/api/pricing", Method: http.MethodPost, Description: "Price a single AWS resource"},
			{Path: "/api/calculate", Method: http.MethodPost, Description: "Calculate the total cost of a combination of AWS resources"},
			{Path: "/api/filter-documentation", Method: http.MethodGet, Description: "Describe the filter fields and values of each AWS service"},
			{Path: "/health/live", Method: http.MethodGet, Description: "Liveness probe"},
			{Path: "/health/ready", Method: http.MethodGet, Description: "Readiness probe"},
		},
	}
}

// Handler serves the documentation routes.
type Handler struct {
	index   IndexInfo
	filters []byte
}

// NewHandler constructs a Handler. It fails when the embedded filter
// reference is not valid JSON.
func NewHandler(index IndexInfo) (*Handler, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, filterDocumentation); err != nil {
		return nil, err
	}
	return &Handler{index: index, filters: compact.Bytes()}, nil
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, h.index)
}

// FilterDocumentation handles GET /api/filter-documentation.
func (h *Handler) FilterDocumentation(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.filters)
}
