package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/aws-pricing-api/internal/common"
)

// Handler exposes the catalog browse endpoints.
type Handler struct {
	source Source
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Source Source
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{source: cfg.Source}
}

// Services handles GET /api/services.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog source not configured", nil)
		return
	}
	services, err := h.source.ListServices(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"services": services})
}

// Attributes handles GET /api/services/{serviceCode}/attributes.
func (h *Handler) Attributes(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog source not configured", nil)
		return
	}
	serviceCode := strings.TrimSpace(chi.URLParam(r, "serviceCode"))
	if serviceCode == "" {
		common.WriteError(w, common.Validation("Service code is required", nil))
		return
	}
	attrs, err := h.source.ListAttributes(r.Context(), serviceCode)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"serviceCode": serviceCode,
		"attributes":  attrs,
	})
}

// AttributeValues handles GET /api/services/{serviceCode}/attributes/{attributeName}/values.
func (h *Handler) AttributeValues(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog source not configured", nil)
		return
	}
	serviceCode := strings.TrimSpace(chi.URLParam(r, "serviceCode"))
	attributeName := strings.TrimSpace(chi.URLParam(r, "attributeName"))
	if serviceCode == "" || attributeName == "" {
		common.WriteError(w, common.Validation("Service code and attribute name are required", nil))
		return
	}
	values, err := h.source.ListAttributeValues(r.Context(), serviceCode, attributeName)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"serviceCode":   serviceCode,
		"attributeName": attributeName,
		"values":        values,
	})
}
