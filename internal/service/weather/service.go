package weather

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/pkg/clients/openweather"
)

// Service proxies forecast lookups and reshapes the upstream payload.
type Service struct {
	client openweather.Client
	logger *zap.Logger
}

// NewService wires a new weather service instance.
func NewService(client openweather.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

// Forecast returns the flattened forecast for city.
func (s *Service) Forecast(ctx context.Context, city string) (*models.Forecast, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperr.Validation("City is required")
	}

	resp, err := s.client.Forecast(ctx, city)
	if err != nil {
		return nil, s.translate(city, err)
	}

	out := &models.Forecast{
		City:     resp.City.Name,
		Country:  resp.City.Country,
		Forecast: make([]models.ForecastEntry, 0, len(resp.List)),
	}
	for _, item := range resp.List {
		entry := models.ForecastEntry{
			Date:        item.DtTxt,
			Temperature: item.Main.Temp,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			entry.Weather = item.Weather[0].Description
		}
		out.Forecast = append(out.Forecast, entry)
	}
	return out, nil
}

func (s *Service) translate(city string, err error) error {
	if errors.Is(err, openweather.ErrMissingAPIKey) {
		s.logger.Error("weather lookup without api key")
		return apperr.Config("Weather API key is not configured")
	}

	var apiErr *openweather.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return apperr.NotFound("City not found")
		case http.StatusUnauthorized:
			s.logger.Error("weather api rejected the configured key")
			return apperr.Auth("Invalid API key")
		default:
			s.logger.Warn("weather api error", zap.String("city", city), zap.Int("status", apiErr.StatusCode), zap.Error(err))
			return apperr.Upstream(apiErr.StatusCode, apiErr.Message, err)
		}
	}

	s.logger.Error("weather lookup failed", zap.String("city", city), zap.Error(err))
	return apperr.Upstream(http.StatusInternalServerError, "Failed to fetch weather forecast data", err)
}
