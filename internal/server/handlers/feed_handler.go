package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/service/feed"
)

// FeedHandler exposes the feed inventory endpoints.
type FeedHandler struct {
	svc    *feed.Service
	logger *zap.Logger
}

// NewFeedHandler constructs the HTTP handler adapter.
func NewFeedHandler(svc *feed.Service, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{svc: svc, logger: logger}
}

func (h *FeedHandler) Create(c *gin.Context) {
	var in feed.CreateInput
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

func (h *FeedHandler) List(c *gin.Context) {
	var q feed.ListQuery
	_ = c.ShouldBindQuery(&q)

	items, err := h.svc.List(c.Request.Context(), owner(c), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *FeedHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(c.Request.Context(), owner(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *FeedHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *FeedHandler) Update(c *gin.Context) {
	var in feed.UpdateInput
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

func (h *FeedHandler) Delete(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feed deleted successfully", "deletedFeed": deleted})
}

// AdjustStock adds to or subtracts from the stored quantity in one step.
func (h *FeedHandler) AdjustStock(c *gin.Context) {
	var in feed.AdjustInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.svc.AdjustStock(c.Request.Context(), owner(c), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock adjusted successfully", "feed": updated})
}
