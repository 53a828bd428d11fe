package models

// Forecast is the reshaped forecast returned by the weather proxy.
type Forecast struct {
	City     string          `json:"city"`
	Country  string          `json:"country"`
	Forecast []ForecastEntry `json:"forecast"`
}

// ForecastEntry is one forecast slot.
type ForecastEntry struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	Weather     string  `json:"weather"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
}
