package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/service/reporting"
	"github.com/mamadbah2/farmhub/internal/service/weather"
)

// ReportHandler serves the dashboard overview.
type ReportHandler struct {
	svc    *reporting.Service
	logger *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc *reporting.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

func (h *ReportHandler) Overview(c *gin.Context) {
	from, to, err := periodQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	overview, err := h.svc.Overview(c.Request.Context(), owner(c), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// WeatherHandler proxies forecast lookups.
type WeatherHandler struct {
	svc    *weather.Service
	logger *zap.Logger
}

// NewWeatherHandler constructs the HTTP handler adapter.
func NewWeatherHandler(svc *weather.Service, logger *zap.Logger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{svc: svc, logger: logger}
}

func (h *WeatherHandler) Forecast(c *gin.Context) {
	forecast, err := h.svc.Forecast(c.Request.Context(), c.Query("city"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}
