package cleanse

import (
	"energylens/pkg/contracts/domain"
)

// interpolate fills runs of missing values by linear interpolation in time
// between the surrounding observations. Runs longer than maxGap, or runs at
// either edge of the series, are dropped instead. The series must already be
// sorted by timestamp.
func interpolate(series []domain.Reading, maxGap int) (out []domain.Reading, filled, dropped int) {
	n := len(series)
	i := 0

	for i < n {
		if !series[i].Missing {
			out = append(out, series[i])
			i++
			continue
		}

		// Measure the missing run.
		start := i
		for i < n && series[i].Missing {
			i++
		}
		runLen := i - start

		// A run needs an observation on both sides to interpolate.
		if start == 0 || i == n || (maxGap > 0 && runLen > maxGap) {
			dropped += runLen
			continue
		}

		prev := out[len(out)-1]
		next := series[i]
		span := next.Timestamp.Sub(prev.Timestamp).Seconds()
		if span <= 0 {
			dropped += runLen
			continue
		}

		for j := start; j < start+runLen; j++ {
			frac := series[j].Timestamp.Sub(prev.Timestamp).Seconds() / span
			r := series[j]
			r.Missing = false
			r.Interpolated = true
			r.Consumption = prev.Consumption + frac*(next.Consumption-prev.Consumption)
			out = append(out, r)
			filled++
		}
	}

	return out, filled, dropped
}
