package report

import (
	"math"
	"slices"

	"github.com/garnizeh/ats/pkg/repository"
)

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Rate returns part/total as a percentage rounded to two decimals, or 0 when
// total is zero.
func Rate(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// topByCount ranks groups by count, descending. The sort is stable, so ties
// keep the natural collection order the store returned them in.
func topByCount(groups []repository.Group, n int) []repository.Group {
	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b repository.Group) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return 0
	})
	return capped(out, n)
}

// topBySum is topByCount over summed values.
func topBySum(groups []repository.Group, n int) []repository.Group {
	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b repository.Group) int {
		switch {
		case a.Sum > b.Sum:
			return -1
		case a.Sum < b.Sum:
			return 1
		}
		return 0
	})
	return capped(out, n)
}

func capped[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func countOf(groups []repository.Group) int64 {
	var n int64
	for _, g := range groups {
		n += g.Count
	}
	return n
}
