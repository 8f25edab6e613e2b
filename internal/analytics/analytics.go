// Package analytics computes the exploratory aggregations shown on the
// dashboard: daily trends, comparative averages, hourly and weekday profiles,
// and per-consumer distribution summaries.
package analytics

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"energylens/pkg/contracts/domain"
)

// weekdayOrder lists weekdays Monday-first, the order charts display them in.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// consumerFilter returns a membership test for the requested consumers.
// An empty request selects everything.
func consumerFilter(consumers []string) func(string) bool {
	if len(consumers) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(consumers))
	for _, c := range consumers {
		set[c] = true
	}
	return func(c string) bool { return set[c] }
}

// DailyTotals sums consumption per consumer per calendar day.
// Results are sorted by date, then consumer.
func DailyTotals(d *domain.Dataset, consumers []string) []domain.DailyPoint {
	include := consumerFilter(consumers)

	type key struct {
		date     time.Time
		consumer string
	}
	totals := make(map[key]float64)

	for _, r := range d.Readings {
		if !include(r.Consumer) {
			continue
		}
		totals[key{r.Date(), r.Consumer}] += r.Consumption
	}

	points := make([]domain.DailyPoint, 0, len(totals))
	for k, total := range totals {
		points = append(points, domain.DailyPoint{Date: k.date, Consumer: k.consumer, Total: total})
	}

	sort.Slice(points, func(i, j int) bool {
		if !points[i].Date.Equal(points[j].Date) {
			return points[i].Date.Before(points[j].Date)
		}
		return points[i].Consumer < points[j].Consumer
	})

	return points
}

// Averages computes each consumer's mean consumption per reading,
// sorted by consumer.
func Averages(d *domain.Dataset, consumers []string) []domain.ConsumerAverage {
	include := consumerFilter(consumers)

	values := make(map[string][]float64)
	for _, r := range d.Readings {
		if !include(r.Consumer) {
			continue
		}
		values[r.Consumer] = append(values[r.Consumer], r.Consumption)
	}

	averages := make([]domain.ConsumerAverage, 0, len(values))
	for consumer, vs := range values {
		averages = append(averages, domain.ConsumerAverage{
			Consumer: consumer,
			Average:  stat.Mean(vs, nil),
		})
	}

	sort.Slice(averages, func(i, j int) bool {
		return averages[i].Consumer < averages[j].Consumer
	})

	return averages
}

// HourlyProfile computes the average consumption per hour of day per
// consumer, sorted by hour then consumer. Hours with no readings are absent.
func HourlyProfile(d *domain.Dataset, consumers []string) []domain.HourlyPoint {
	include := consumerFilter(consumers)

	type key struct {
		hour     int
		consumer string
	}
	values := make(map[key][]float64)

	for _, r := range d.Readings {
		if !include(r.Consumer) {
			continue
		}
		k := key{r.Hour(), r.Consumer}
		values[k] = append(values[k], r.Consumption)
	}

	points := make([]domain.HourlyPoint, 0, len(values))
	for k, vs := range values {
		points = append(points, domain.HourlyPoint{
			Hour:     k.hour,
			Consumer: k.consumer,
			Average:  stat.Mean(vs, nil),
		})
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Hour != points[j].Hour {
			return points[i].Hour < points[j].Hour
		}
		return points[i].Consumer < points[j].Consumer
	})

	return points
}

// WeekdayProfile computes the average consumption per weekday per consumer,
// ordered Monday through Sunday then consumer.
func WeekdayProfile(d *domain.Dataset, consumers []string) []domain.WeekdayPoint {
	include := consumerFilter(consumers)

	type key struct {
		weekday  time.Weekday
		consumer string
	}
	values := make(map[key][]float64)

	for _, r := range d.Readings {
		if !include(r.Consumer) {
			continue
		}
		k := key{r.Weekday(), r.Consumer}
		values[k] = append(values[k], r.Consumption)
	}

	rank := make(map[time.Weekday]int, len(weekdayOrder))
	for i, wd := range weekdayOrder {
		rank[wd] = i
	}

	points := make([]domain.WeekdayPoint, 0, len(values))
	for k, vs := range values {
		points = append(points, domain.WeekdayPoint{
			Weekday:  k.weekday,
			Name:     k.weekday.String(),
			Consumer: k.consumer,
			Average:  stat.Mean(vs, nil),
		})
	}

	sort.Slice(points, func(i, j int) bool {
		if rank[points[i].Weekday] != rank[points[j].Weekday] {
			return rank[points[i].Weekday] < rank[points[j].Weekday]
		}
		return points[i].Consumer < points[j].Consumer
	})

	return points
}

// Distributions computes a boxplot-style summary per consumer,
// sorted by consumer.
func Distributions(d *domain.Dataset, consumers []string) []domain.Distribution {
	include := consumerFilter(consumers)

	values := make(map[string][]float64)
	for _, r := range d.Readings {
		if !include(r.Consumer) {
			continue
		}
		values[r.Consumer] = append(values[r.Consumer], r.Consumption)
	}

	distributions := make([]domain.Distribution, 0, len(values))
	for consumer, vs := range values {
		sort.Float64s(vs)
		distributions = append(distributions, domain.Distribution{
			Consumer: consumer,
			Count:    len(vs),
			Min:      vs[0],
			Q1:       stat.Quantile(0.25, stat.Empirical, vs, nil),
			Median:   stat.Quantile(0.5, stat.Empirical, vs, nil),
			Q3:       stat.Quantile(0.75, stat.Empirical, vs, nil),
			Max:      vs[len(vs)-1],
			Mean:     stat.Mean(vs, nil),
			StdDev:   stat.StdDev(vs, nil),
		})
	}

	sort.Slice(distributions, func(i, j int) bool {
		return distributions[i].Consumer < distributions[j].Consumer
	})

	return distributions
}

// Summarize describes the dataset for the dashboard header.
func Summarize(d *domain.Dataset, interpolated, removed int) domain.DatasetSummary {
	return domain.DatasetSummary{
		Consumers:     d.Consumers,
		TotalReadings: d.Len(),
		Start:         d.Start,
		End:           d.End,
		Interpolated:  interpolated,
		Removed:       removed,
	}
}
