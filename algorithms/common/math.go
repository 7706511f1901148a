package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopVariance calculates the population variance (divides by N).
func PopVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	_, variance := stat.PopMeanVariance(data, nil)
	return variance
}

// PopStdDev calculates the population standard deviation.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// Sum returns the sum of data.
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// SortedCopy returns an ascending copy of data.
func SortedCopy(data []float64) []float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return sorted
}

// OrderStatistic returns sorted[floor(p*(n-1))] for an ascending slice.
// p is clamped to [0, 1].
func OrderStatistic(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0.0
	}
	p = Clamp(p, 0, 1)
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	return sorted[idx]
}

// Percentile returns the rank-based p-th percentile (p between 0 and 1)
// of unsorted data.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return OrderStatistic(SortedCopy(data), p)
}

// Median returns the median, averaging the middle pair for even lengths.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sorted := SortedCopy(data)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// PrefixSums returns p with p[0]=0 and p[i+1]=p[i]+data[i].
func PrefixSums(data []float64) []float64 {
	prefix := make([]float64, len(data)+1)
	for i, v := range data {
		prefix[i+1] = prefix[i] + v
	}
	return prefix
}

// TrailingMean computes a boxcar moving average ending at each index. The
// window is truncated at the start of the series.
func TrailingMean(data []float64, window int) []float64 {
	if len(data) == 0 {
		return []float64{}
	}
	window = max(window, 1)

	prefix := PrefixSums(data)
	result := make([]float64, len(data))
	for i := range data {
		lo := max(0, i-window+1)
		result[i] = (prefix[i+1] - prefix[lo]) / float64(i+1-lo)
	}
	return result
}

// Round rounds x to the given number of decimals.
func Round(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}

// Float returns a pointer to v. Report fields use pointers for nullable numbers.
func Float(v float64) *float64 {
	return &v
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
