package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListGraves(c *gin.Context) {
	var req ListGravesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	entries, err := h.service.ListGraves(c.Request.Context(), availability.GraveFilter{
		Garden: req.Garden,
		Status: catalog.Status(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: newEntryResponses(entries), Total: len(entries)})
}

func (h *Handler) ListColumbarium(c *gin.Context) {
	var req ListColumbariumRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	entries, err := h.service.ListColumbarium(c.Request.Context(), availability.ColumbariumFilter{
		Building: req.Building,
		Status:   catalog.Status(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: newEntryResponses(entries), Total: len(entries)})
}

func (h *Handler) ResourceStatus(c *gin.Context) {
	var uri ResourceStatusRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource"})
		return
	}
	ref, err := catalog.NewRef(uri.Kind, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.service.ResourceStatus(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewStatusResponse(e))
}
