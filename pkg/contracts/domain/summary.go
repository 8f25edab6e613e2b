package domain

import "time"

// DailyPoint is one consumer's total consumption for a calendar day.
type DailyPoint struct {
	Date     time.Time `json:"date"`
	Consumer string    `json:"consumer"`
	Total    float64   `json:"total"`
}

// ConsumerAverage is the mean consumption per reading for a consumer.
type ConsumerAverage struct {
	Consumer string  `json:"consumer"`
	Average  float64 `json:"average"`
}

// HourlyPoint is the average consumption for one hour of day per consumer.
type HourlyPoint struct {
	Hour     int     `json:"hour"`
	Consumer string  `json:"consumer"`
	Average  float64 `json:"average"`
}

// WeekdayPoint is the average consumption per weekday per consumer.
// Weekday uses Go's time.Weekday ordering (Sunday=0).
type WeekdayPoint struct {
	Weekday  time.Weekday `json:"weekday"`
	Name     string       `json:"name"`
	Consumer string       `json:"consumer"`
	Average  float64      `json:"average"`
}

// Distribution is a five-number summary plus moments for one consumer's
// consumption values. Mirrors what a boxplot displays.
type Distribution struct {
	Consumer string  `json:"consumer"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
}

// DatasetSummary describes the cleaned dataset as a whole, shown on the
// dashboard header and returned by the inspect command.
type DatasetSummary struct {
	Consumers     []string  `json:"consumers"`
	TotalReadings int       `json:"total_readings"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Interpolated  int       `json:"interpolated"`
	Removed       int       `json:"removed_outliers"`
}
