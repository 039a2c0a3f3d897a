package audit

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lox/beaconmixer/beacon"
)

// TierSpread is the chi-square goodness-of-fit of one tier against an even
// spread over contiguous token-ID buckets.
type TierSpread struct {
	Tier      beacon.Tier
	Count     int
	ChiSquare float64
	DF        int
	PValue    float64
}

// Uniformity splits tokens into buckets of (nearly) equal size and tests
// whether each tier is spread evenly across them. A very small p-value
// means the tier clusters in part of the ID range.
func Uniformity(tokens beacon.Tokens, buckets int) ([]TierSpread, error) {
	n := len(tokens)
	if buckets < 2 {
		return nil, fmt.Errorf("need at least 2 buckets, got %d", buckets)
	}
	if buckets > n {
		return nil, fmt.Errorf("%d buckets for %d tokens", buckets, n)
	}

	sizes := make([]float64, buckets)
	observed := make([][]float64, len(beacon.Tiers)+1)
	for i := range observed {
		observed[i] = make([]float64, buckets)
	}
	for i, tier := range tokens {
		b := i * buckets / n
		sizes[b]++
		observed[tier][b]++
	}

	counts := tokens.Counts()
	var spreads []TierSpread
	for _, tier := range beacon.Tiers {
		total := counts[tier]
		if total == 0 {
			continue
		}

		expected := make([]float64, buckets)
		for b, size := range sizes {
			expected[b] = float64(total) * size / float64(n)
		}

		chi := stat.ChiSquare(observed[tier], expected)
		df := buckets - 1
		spreads = append(spreads, TierSpread{
			Tier:      tier,
			Count:     total,
			ChiSquare: chi,
			DF:        df,
			PValue:    distuv.ChiSquared{K: float64(df)}.Survival(chi),
		})
	}
	return spreads, nil
}
