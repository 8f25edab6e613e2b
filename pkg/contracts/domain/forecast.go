package domain

import "time"

// ForecastPoint is one day of the per-consumer demand forecast, including the
// confidence interval and the trend component of the fitted model.
type ForecastPoint struct {
	Consumer string    `json:"consumer"`
	Date     time.Time `json:"date"`
	Forecast float64   `json:"forecast"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
	Trend    float64   `json:"trend"`
}

// ConsumerForecast bundles the forecast horizon for a single consumer.
type ConsumerForecast struct {
	Consumer  string          `json:"consumer"`
	Generated time.Time       `json:"generated"`
	Horizon   int             `json:"horizon_days"`
	Points    []ForecastPoint `json:"points"`
}

// ForecastSkip records a consumer that could not be forecast and why,
// typically insufficient history.
type ForecastSkip struct {
	Consumer string `json:"consumer"`
	Reason   string `json:"reason"`
}

// ForecastSet is the output of a full forecasting pass over the dataset.
type ForecastSet struct {
	Generated time.Time          `json:"generated"`
	Horizon   int                `json:"horizon_days"`
	Forecasts []ConsumerForecast `json:"forecasts"`
	Skipped   []ForecastSkip     `json:"skipped,omitempty"`
}

// ForConsumer returns the forecast for the named consumer, or nil.
func (s *ForecastSet) ForConsumer(consumer string) *ConsumerForecast {
	for i := range s.Forecasts {
		if s.Forecasts[i].Consumer == consumer {
			return &s.Forecasts[i]
		}
	}
	return nil
}
