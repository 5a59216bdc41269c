package http

import (
	"errors"
	"net/http"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
	"github.com/anderwm/KiCost/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "kicost"
	serviceVersion = "1.0.0"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	costing *usecase.CostingService
}

// NewHandler creates a new HTTP handler. costing may be nil, in which case
// catalog requests answer 503.
func NewHandler(costing *usecase.CostingService) *Handler {
	return &Handler{costing: costing}
}

// CatalogRequest is the body of a catalog consolidation request
type CatalogRequest struct {
	Projects    []usecase.ProjectBOM `json:"projects"`
	Include     []string             `json:"include"`
	Exclude     []string             `json:"exclude"`
	UserFields  []string             `json:"user_fields"`
	GroupFields []string             `json:"group_fields"`
	NoPrice     bool                 `json:"no_price"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ListDistributors returns the static distributor catalog
func (h *Handler) ListDistributors(c *gin.Context) {
	all := domain.DefaultDistributors()
	out := make([]domain.Distributor, 0, len(all))
	for _, d := range all {
		if d.ID == domain.LocalTemplateID {
			continue
		}
		out = append(out, d)
	}
	c.JSON(http.StatusOK, gin.H{"distributors": out})
}

// ConsolidateCatalog groups the posted BOMs and prices the resulting parts
func (h *Handler) ConsolidateCatalog(c *gin.Context) {
	if h.costing == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "costing service not configured",
		})
		return
	}

	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	if len(req.Projects) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "at least one project is required",
		})
		return
	}

	ctx := c.Request.Context()
	catalog, err := h.costing.Consolidate(ctx, usecase.ConsolidationRequest{
		Projects:    req.Projects,
		Include:     req.Include,
		Exclude:     req.Exclude,
		NoPrice:     req.NoPrice,
		UserFields:  req.UserFields,
		GroupFields: req.GroupFields,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCanceled) && catalog != nil:
			c.JSON(http.StatusOK, gin.H{
				"data":    catalog,
				"warning": "price query interrupted - results are partial",
			})
		case errors.Is(err, domain.ErrNoInputFiles), errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logging.FromContext(ctx).Error().Err(err).Msg("catalog consolidation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to build catalog",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": catalog})
}
