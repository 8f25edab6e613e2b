package cleanse

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"energylens/pkg/contracts/domain"
)

// maxZScorePasses bounds the iterative Z-score sweep; each pass removes at
// least one reading, so this is only a safety net.
const maxZScorePasses = 20

// removeZScoreOutliers drops readings whose value lies more than threshold
// standard deviations from the series mean. The pass repeats with recomputed
// moments until nothing is removed, so the surviving series satisfies the
// threshold against its own mean and deviation.
func removeZScoreOutliers(series []domain.Reading, threshold float64) ([]domain.Reading, int) {
	removed := 0

	for pass := 0; pass < maxZScorePasses; pass++ {
		if len(series) < 3 {
			break
		}

		values := consumptionValues(series)
		mean := stat.Mean(values, nil)
		std := stat.StdDev(values, nil)
		if std == 0 || math.IsNaN(std) {
			break
		}

		kept := series[:0]
		removedThisPass := 0
		for _, r := range series {
			z := (r.Consumption - mean) / std
			if math.Abs(z) > threshold {
				removedThisPass++
				continue
			}
			kept = append(kept, r)
		}
		series = kept
		removed += removedThisPass

		if removedThisPass == 0 {
			break
		}
	}

	return series, removed
}

// removeIQROutliers drops readings outside [Q1 - k*IQR, Q3 + k*IQR].
func removeIQROutliers(series []domain.Reading, multiplier float64) ([]domain.Reading, int) {
	if len(series) < 4 {
		return series, 0
	}

	values := consumptionValues(series)
	sort.Float64s(values)

	q1 := stat.Quantile(0.25, stat.Empirical, values, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, values, nil)
	iqr := q3 - q1
	if iqr == 0 {
		return series, 0
	}

	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	kept := series[:0]
	removed := 0
	for _, r := range series {
		if r.Consumption < lower || r.Consumption > upper {
			removed++
			continue
		}
		kept = append(kept, r)
	}

	return kept, removed
}

// consumptionValues extracts the consumption column as a float slice.
func consumptionValues(series []domain.Reading) []float64 {
	values := make([]float64, len(series))
	for i, r := range series {
		values[i] = r.Consumption
	}
	return values
}
