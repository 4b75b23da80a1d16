package scoring

import "sort"

// Standing is the position of one closed attempt within its exam.
type Standing struct {
	Rank       int
	Percentile float64
}

// Standings ranks percentages with dense ranking, highest first.
// Percentile is the share of attempts that scored strictly lower.
// The Postgres store computes the same values with window functions.
func Standings(percentages []float64) []Standing {
	n := len(percentages)
	out := make([]Standing, n)
	if n == 0 {
		return out
	}

	sorted := append([]float64(nil), percentages...)
	sort.Float64s(sorted)

	// distinct values, descending, for dense rank
	var distinct []float64
	for i := n - 1; i >= 0; i-- {
		if len(distinct) == 0 || distinct[len(distinct)-1] != sorted[i] {
			distinct = append(distinct, sorted[i])
		}
	}

	for i, p := range percentages {
		lower := sort.SearchFloat64s(sorted, p)
		rank := sort.Search(len(distinct), func(j int) bool { return distinct[j] <= p }) + 1
		out[i] = Standing{
			Rank:       rank,
			Percentile: float64(lower) / float64(n) * 100,
		}
	}
	return out
}
