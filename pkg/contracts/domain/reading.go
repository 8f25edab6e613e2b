package domain

import (
	"time"
)

// Reading represents a single timestamped consumption observation for a consumer.
// This is the canonical record that flows through ingestion, cleansing and
// analysis; raw spreadsheet rows are normalized into this shape.
type Reading struct {
	Consumer    string    `json:"consumer"`
	Timestamp   time.Time `json:"timestamp"`
	Consumption float64   `json:"consumption"`

	// Missing marks a row whose timestamp was present but whose consumption
	// cell was empty. Such rows are candidates for interpolation.
	Missing bool `json:"missing,omitempty"`

	// Interpolated marks a value that was filled in during cleansing rather
	// than observed.
	Interpolated bool `json:"interpolated,omitempty"`
}

// Date returns the reading's calendar day (midnight, local time).
func (r Reading) Date() time.Time {
	return time.Date(r.Timestamp.Year(), r.Timestamp.Month(), r.Timestamp.Day(), 0, 0, 0, 0, r.Timestamp.Location())
}

// Hour returns the hour of day (0-23) of the reading.
func (r Reading) Hour() int {
	return r.Timestamp.Hour()
}

// Weekday returns the reading's day of week.
func (r Reading) Weekday() time.Weekday {
	return r.Timestamp.Weekday()
}

// IsValid checks whether the reading carries a usable observation.
func (r Reading) IsValid() bool {
	return r.Consumer != "" && !r.Timestamp.IsZero() && !r.Missing
}

// Dataset is a merged collection of readings across consumers, sorted by
// consumer and timestamp after cleansing.
type Dataset struct {
	Readings  []Reading `json:"readings"`
	Consumers []string  `json:"consumers"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// ByConsumer groups the dataset's readings per consumer, preserving order.
func (d *Dataset) ByConsumer() map[string][]Reading {
	grouped := make(map[string][]Reading, len(d.Consumers))
	for _, r := range d.Readings {
		grouped[r.Consumer] = append(grouped[r.Consumer], r)
	}
	return grouped
}

// Len returns the number of readings in the dataset.
func (d *Dataset) Len() int {
	return len(d.Readings)
}
