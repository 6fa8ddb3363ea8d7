package pricing

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/aws-pricing-api/internal/catalog"
	"github.com/noah-isme/aws-pricing-api/internal/common"
)

// Handler exposes the price and total-cost endpoints.
type Handler struct {
	calculator   *Calculator
	validate     *validator.Validate
	maxResources int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Calculator   *Calculator
	Validator    *validator.Validate
	MaxResources int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = common.NewValidator()
	}
	return &Handler{calculator: cfg.Calculator, validate: v, maxResources: cfg.MaxResources}
}

type priceRequest struct {
	ServiceCode string           `json:"serviceCode"`
	Filters     []catalog.Filter `json:"filters" validate:"dive"`
}

type calculateRequest struct {
	Resources []ResourceCostRequest `json:"resources" validate:"dive"`
}

// ValidateResources applies the struct rules to every resource and rejects
// negative usage values. All violations are returned in one Validation error.
func ValidateResources(v *validator.Validate, resources []ResourceCostRequest) error {
	if err := common.ValidateStruct(v, calculateRequest{Resources: resources}, "Invalid resources"); err != nil {
		return err
	}
	var violations []common.FieldViolation
	for i, res := range resources {
		if res.UsageValue != nil && res.UsageValue.IsNegative() {
			field := fmt.Sprintf("resources[%d].usageValue", i)
			violations = append(violations, common.FieldViolation{
				Field:   field,
				Rule:    "min",
				Message: field + " must be at least 0",
			})
		}
	}
	if len(violations) > 0 {
		return common.Validation("Invalid resources", violations)
	}
	return nil
}

// Price handles POST /api/pricing.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	if h.calculator == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing calculator not configured", nil)
		return
	}
	var req priceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	req.ServiceCode = strings.TrimSpace(req.ServiceCode)
	if req.ServiceCode == "" {
		common.WriteError(w, common.Validation("Service code is required", nil))
		return
	}
	if err := common.ValidateStruct(h.validate, req, "Invalid filters"); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.calculator.CalculatePrice(r.Context(), req.ServiceCode, req.Filters)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Calculate handles POST /api/calculate. The number of resources left out of
// the report is returned in the X-Resources-Skipped header.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.calculator == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing calculator not configured", nil)
		return
	}
	var req calculateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if len(req.Resources) == 0 {
		common.WriteError(w, common.Validation("Resources are required", nil))
		return
	}
	if h.maxResources > 0 && len(req.Resources) > h.maxResources {
		common.WriteError(w, common.Validation(fmt.Sprintf("At most %d resources are allowed per request", h.maxResources), map[string]any{
			"max":      h.maxResources,
			"received": len(req.Resources),
		}))
		return
	}
	if err := ValidateResources(h.validate, req.Resources); err != nil {
		common.WriteError(w, err)
		return
	}
	batch, err := h.calculator.CalculateBatch(r.Context(), req.Resources)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Resources-Skipped", strconv.Itoa(batch.Skipped()))
	common.JSON(w, http.StatusOK, batch.Report)
}
