package mocktarget

import (
	"github.com/cespare/xxhash/v2"
)

// bucketEntity returns a deterministic bucket (0-99) for the given entity and flag.
// The same entityID + flagKey + salt combination always returns the same bucket.
func bucketEntity(entityID, flagKey, salt string) int {
	if entityID == "" {
		return -1 // no entity context
	}
	key := entityID + ":" + flagKey + ":" + salt
	hash := xxhash.Sum64String(key)
	return int(hash % 100)
}

// Variant is one weighted arm of the mock flag.
type Variant struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Weight int    `json:"weight"` // percentage, all weights sum to 100
}

// DefaultVariants splits traffic evenly between control and treatment.
var DefaultVariants = []Variant{
	{ID: 1, Key: "control", Weight: 50},
	{ID: 2, Key: "treatment", Weight: 50},
}

// pickVariant walks the cumulative weights; bucket -1 gets no variant.
func pickVariant(variants []Variant, bucket int) (Variant, bool) {
	if bucket < 0 {
		return Variant{}, false
	}
	cumulative := 0
	for _, v := range variants {
		cumulative += v.Weight
		if bucket < cumulative {
			return v, true
		}
	}
	return Variant{}, false
}
