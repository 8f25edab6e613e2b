// Package forecast produces short-horizon daily demand forecasts per
// consumer. The model is additive: an ordinary-least-squares linear trend
// plus day-of-week seasonal indices fitted on detrended daily totals, with
// confidence bounds derived from the spread of the fit residuals.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"energylens/internal/analytics"
	"energylens/internal/config"
	apierrors "energylens/internal/errors"
	"energylens/pkg/contracts/domain"
)

// Forecaster fits per-consumer models over the cleaned dataset.
type Forecaster struct {
	horizon    int
	period     int
	confidence float64
	logger     *slog.Logger
}

// New creates a forecaster from configuration.
func New(cfg config.ForecastConfig, logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		horizon:    cfg.HorizonDays,
		period:     cfg.SeasonalPeriod,
		confidence: cfg.Confidence,
		logger:     logger.With(slog.String("component", "forecast")),
	}
}

// MinHistoryDays returns the minimum number of daily totals a consumer needs
// before a forecast is attempted: two full seasonal periods.
func (f *Forecaster) MinHistoryDays() int {
	return 2 * f.period
}

// ForecastAll forecasts every consumer in the dataset. Consumers with
// insufficient history are recorded as skipped, not errors.
func (f *Forecaster) ForecastAll(ctx context.Context, d *domain.Dataset) (*domain.ForecastSet, error) {
	if d == nil || d.Len() == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	set := &domain.ForecastSet{
		Generated: time.Now(),
		Horizon:   f.horizon,
	}

	for _, consumer := range d.Consumers {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("forecasting cancelled: %w", ctx.Err())
		default:
		}

		fc, err := f.ForecastConsumer(ctx, d, consumer)
		if err != nil {
			f.logger.WarnContext(ctx, "skipping consumer forecast",
				slog.String("consumer", consumer),
				slog.String("reason", err.Error()))
			set.Skipped = append(set.Skipped, domain.ForecastSkip{
				Consumer: consumer,
				Reason:   err.Error(),
			})
			continue
		}
		set.Forecasts = append(set.Forecasts, *fc)
	}

	if len(set.Forecasts) == 0 && len(set.Skipped) > 0 {
		f.logger.WarnContext(ctx, "no consumer had enough history to forecast",
			slog.Int("skipped", len(set.Skipped)))
	}

	f.logger.InfoContext(ctx, "forecasting complete",
		slog.Int("forecasts", len(set.Forecasts)),
		slog.Int("skipped", len(set.Skipped)),
		slog.Int("horizon_days", f.horizon))

	return set, nil
}

// ForecastConsumer fits the additive model for one consumer and projects it
// over the horizon.
func (f *Forecaster) ForecastConsumer(ctx context.Context, d *domain.Dataset, consumer string) (*domain.ConsumerForecast, error) {
	daily := analytics.DailyTotals(d, []string{consumer})
	if len(daily) == 0 {
		return nil, fmt.Errorf("%s: %w", consumer, apierrors.ErrConsumerNotFound)
	}
	if len(daily) < f.MinHistoryDays() {
		return nil, fmt.Errorf("%s has %d days of history, need %d: %w",
			consumer, len(daily), f.MinHistoryDays(), apierrors.ErrInsufficientHistory)
	}

	model := fit(daily, f.period)

	z := zValue(f.confidence)
	margin := z * model.residualStd

	lastDate := daily[len(daily)-1].Date
	lastX := model.dayIndex(lastDate)

	points := make([]domain.ForecastPoint, 0, f.horizon)
	for h := 1; h <= f.horizon; h++ {
		date := lastDate.AddDate(0, 0, h)
		trend := model.alpha + model.beta*(lastX+float64(h))
		yhat := trend + model.seasonal[date.Weekday()]

		point := domain.ForecastPoint{
			Consumer: consumer,
			Date:     date,
			Forecast: yhat,
			Lower:    yhat - margin,
			Upper:    yhat + margin,
			Trend:    trend,
		}
		// Demand cannot be negative.
		if point.Forecast < 0 {
			point.Forecast = 0
		}
		if point.Lower < 0 {
			point.Lower = 0
		}
		points = append(points, point)
	}

	return &domain.ConsumerForecast{
		Consumer:  consumer,
		Generated: time.Now(),
		Horizon:   f.horizon,
		Points:    points,
	}, nil
}

// model holds the fitted components for one consumer.
type model struct {
	origin      time.Time
	alpha, beta float64
	seasonal    map[time.Weekday]float64
	residualStd float64
}

// dayIndex converts a date to the model's x axis: days since the first
// observed day.
func (m *model) dayIndex(date time.Time) float64 {
	return date.Sub(m.origin).Hours() / 24
}

// fit estimates the trend by OLS over day indices, then seasonal indices as
// the mean detrended value per weekday, centered to sum to zero.
func fit(daily []domain.DailyPoint, period int) *model {
	m := &model{
		origin:   daily[0].Date,
		seasonal: make(map[time.Weekday]float64, period),
	}

	xs := make([]float64, len(daily))
	ys := make([]float64, len(daily))
	for i, p := range daily {
		xs[i] = m.dayIndex(p.Date)
		ys[i] = p.Total
	}

	m.alpha, m.beta = stat.LinearRegression(xs, ys, nil, false)

	// Seasonal indices from detrended values.
	sums := make(map[time.Weekday]float64)
	counts := make(map[time.Weekday]int)
	for i, p := range daily {
		detrended := ys[i] - (m.alpha + m.beta*xs[i])
		wd := p.Date.Weekday()
		sums[wd] += detrended
		counts[wd]++
	}

	var indexTotal float64
	for wd, sum := range sums {
		idx := sum / float64(counts[wd])
		m.seasonal[wd] = idx
		indexTotal += idx
	}

	// Center so seasonality does not shift the trend level.
	center := indexTotal / float64(len(sums))
	for wd := range m.seasonal {
		m.seasonal[wd] -= center
	}

	// Residual spread against the full model.
	residuals := make([]float64, len(daily))
	for i, p := range daily {
		fitted := m.alpha + m.beta*xs[i] + m.seasonal[p.Date.Weekday()]
		residuals[i] = ys[i] - fitted
	}
	m.residualStd = stat.StdDev(residuals, nil)
	if math.IsNaN(m.residualStd) {
		m.residualStd = 0
	}

	return m
}

// zValue returns the two-sided standard-normal quantile for the given
// confidence level, e.g. 0.95 -> 1.96.
func zValue(confidence float64) float64 {
	if confidence <= 0 || confidence >= 1 {
		return 0
	}
	return math.Sqrt2 * math.Erfinv(confidence)
}
