package openweather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/farmhub/internal/config"
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("openweather api key is not configured")

// Client exposes the OpenWeather operations used by the application.
type Client interface {
	Forecast(ctx context.Context, city string) (*ForecastResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	apiKey     string
}

// NewClient builds an OpenWeather client using the provided configuration values.
func NewClient(cfg config.WeatherConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &APIClient{
		httpClient: restyClient,
		apiKey:     cfg.APIKey,
	}
}

// ForecastResponse mirrors the fields of the 5 day / 3 hour forecast payload we consume.
type ForecastResponse struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
}

// APIError is a non-2xx answer from OpenWeather.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweather api error: status=%d, message=%s", e.StatusCode, e.Message)
}

// apiError represents an OpenWeather error payload. cod is a string on
// some endpoints and a number on others.
type apiError struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

func (c *APIClient) Forecast(ctx context.Context, city string) (*ForecastResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	result := new(ForecastResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"appid": c.apiKey,
			"units": "metric",
		}).
		SetResult(result).
		SetError(apiErr).
		Get("/forecast")
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: message}
	}

	return result, nil
}
