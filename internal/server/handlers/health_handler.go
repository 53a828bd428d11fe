package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/service/health"
)

// HealthHandler exposes the standalone health record endpoints.
type HealthHandler struct {
	svc    *health.Service
	logger *zap.Logger
}

// NewHealthHandler constructs the HTTP handler adapter.
func NewHealthHandler(svc *health.Service, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{svc: svc, logger: logger}
}

func (h *HealthHandler) Create(c *gin.Context) {
	var in health.CreateInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), owner(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *HealthHandler) List(c *gin.Context) {
	var q health.ListQuery
	_ = c.ShouldBindQuery(&q)

	records, err := h.svc.List(c.Request.Context(), owner(c), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListByCattle returns one animal's records, newest first.
func (h *HealthHandler) ListByCattle(c *gin.Context) {
	records, err := h.svc.ListByCattle(c.Request.Context(), owner(c), c.Param("cattleId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *HealthHandler) Get(c *gin.Context) {
	record, err := h.svc.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *HealthHandler) Update(c *gin.Context) {
	var in health.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), owner(c), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *HealthHandler) Delete(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Health record deleted successfully", "deletedRecord": deleted})
}
