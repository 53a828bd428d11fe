package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/service/cattle"
)

// CattleHandler exposes the herd endpoints.
type CattleHandler struct {
	svc    *cattle.Service
	logger *zap.Logger
}

// NewCattleHandler constructs the HTTP handler adapter.
func NewCattleHandler(svc *cattle.Service, logger *zap.Logger) *CattleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CattleHandler{svc: svc, logger: logger}
}

func (h *CattleHandler) Create(c *gin.Context) {
	var in cattle.CreateInput
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

func (h *CattleHandler) List(c *gin.Context) {
	var q cattle.ListQuery
	_ = c.ShouldBindQuery(&q)

	herd, err := h.svc.List(c.Request.Context(), owner(c), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, herd)
}

func (h *CattleHandler) Get(c *gin.Context) {
	animal, err := h.svc.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, animal)
}

func (h *CattleHandler) Update(c *gin.Context) {
	var in cattle.UpdateInput
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

func (h *CattleHandler) Delete(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cattle deleted successfully", "deletedCattle": deleted})
}

// AddHealthNote appends a dated note to the animal's embedded history.
func (h *CattleHandler) AddHealthNote(c *gin.Context) {
	var in struct {
		Notes string `json:"notes"`
	}
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.svc.AddHealthNote(c.Request.Context(), owner(c), c.Param("id"), in.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
