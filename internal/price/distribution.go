package price

import (
	"sort"

	"github.com/refill-spot/enrich-cli/internal/model"
)

// Distribution summarizes normalized prices across a batch. Records without
// a usable minimum price are excluded.
type Distribution struct {
	Count   int            `json:"count"`
	Min     int            `json:"min"`
	Max     int            `json:"max"`
	Median  int            `json:"median"`
	Average int            `json:"average"`
	Buckets map[string]int `json:"buckets"`
}

// Bucket labels, in ascending price order.
const (
	BucketUnder10k = "under_10k"
	Bucket10to20k  = "10k_to_20k"
	Bucket20to30k  = "20k_to_30k"
	BucketOver30k  = "over_30k"
)

func bucketFor(v int) string {
	switch {
	case v < 10000:
		return BucketUnder10k
	case v < 20000:
		return Bucket10to20k
	case v < 30000:
		return Bucket20to30k
	default:
		return BucketOver30k
	}
}

// Distribute computes price distribution statistics over the records'
// normalized minimum prices.
func Distribute(records []*model.StoreRecord) Distribution {
	var values []int
	for _, r := range records {
		if r == nil || r.NormalizedPrice == nil || r.NormalizedPrice.MinPrice == nil {
			continue
		}
		values = append(values, *r.NormalizedPrice.MinPrice)
	}

	d := Distribution{Buckets: map[string]int{}}
	if len(values) == 0 {
		return d
	}
	sort.Ints(values)

	sum := 0
	for _, v := range values {
		sum += v
		d.Buckets[bucketFor(v)]++
	}
	d.Count = len(values)
	d.Min = values[0]
	d.Max = values[len(values)-1]
	d.Median = values[len(values)/2]
	d.Average = sum / len(values)
	return d
}
