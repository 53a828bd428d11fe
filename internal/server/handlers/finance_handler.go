package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/service/finance"
)

// FinanceHandler exposes the income and expense ledger endpoints.
type FinanceHandler struct {
	svc    *finance.Service
	logger *zap.Logger
}

// NewFinanceHandler constructs the HTTP handler adapter.
func NewFinanceHandler(svc *finance.Service, logger *zap.Logger) *FinanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceHandler{svc: svc, logger: logger}
}

func (h *FinanceHandler) Create(c *gin.Context) {
	var in finance.CreateInput
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

func (h *FinanceHandler) List(c *gin.Context) {
	var q finance.ListQuery
	_ = c.ShouldBindQuery(&q)

	entries, err := h.svc.List(c.Request.Context(), owner(c), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Summary totals income and expense, optionally within ?from=&to=.
func (h *FinanceHandler) Summary(c *gin.Context) {
	from, to, err := periodQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), owner(c), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Export appends the caller's entries to the finance spreadsheet.
func (h *FinanceHandler) Export(c *gin.Context) {
	result, err := h.svc.Export(c.Request.Context(), owner(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Finance records exported successfully", "exported": result.Exported, "skipped": result.Skipped})
}

func (h *FinanceHandler) Get(c *gin.Context) {
	entry, err := h.svc.Get(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *FinanceHandler) Update(c *gin.Context) {
	var in finance.UpdateInput
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

func (h *FinanceHandler) Delete(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Finance record deleted successfully", "deletedFinance": deleted})
}

// periodQuery reads ?from= and ?to= as RFC 3339 timestamps or plain dates.
// A plain "to" date covers the whole day.
func periodQuery(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = parseBound(c.Query("from"), false); err != nil {
		return nil, nil, err
	}
	if to, err = parseBound(c.Query("to"), true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseBound(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, dateOnly, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	if dateOnly && endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
