// Package dedupe finds and merges duplicate store records within a batch.
package dedupe

import (
	"math"
	"regexp"
	"strings"

	"github.com/refill-spot/enrich-cli/internal/geo"
	"github.com/refill-spot/enrich-cli/internal/model"
)

// Config holds duplicate detection thresholds.
type Config struct {
	// NameSimilarityHigh pairs with DistanceHighMeters: very similar names
	// within a short radius.
	NameSimilarityHigh float64 `yaml:"name_similarity_high" mapstructure:"name_similarity_high"`
	DistanceHighMeters float64 `yaml:"distance_high_meters" mapstructure:"distance_high_meters"`
	// NameSimilarityMid pairs with DistanceMidMeters: similar names within
	// a wider radius.
	NameSimilarityMid float64 `yaml:"name_similarity_mid" mapstructure:"name_similarity_mid"`
	DistanceMidMeters float64 `yaml:"distance_mid_meters" mapstructure:"distance_mid_meters"`
	// MinPhoneDigits is the minimum digit count for a phone number to count
	// as an identity signal.
	MinPhoneDigits int `yaml:"min_phone_digits" mapstructure:"min_phone_digits"`
}

// DefaultConfig returns the detection defaults.
func DefaultConfig() Config {
	return Config{
		NameSimilarityHigh: 0.9,
		DistanceHighMeters: 50,
		NameSimilarityMid:  0.85,
		DistanceMidMeters:  200,
		MinPhoneDigits:     8,
	}
}

// nameNoise strips everything but Korean, Latin, and digit characters
// before name comparison.
var nameNoise = regexp.MustCompile(`[^가-힣a-z0-9]`)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// Detector applies pairwise duplicate criteria and groups records.
// Stateless and safe for concurrent use.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector, filling zero config fields with defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.NameSimilarityHigh <= 0 {
		cfg.NameSimilarityHigh = def.NameSimilarityHigh
	}
	if cfg.DistanceHighMeters <= 0 {
		cfg.DistanceHighMeters = def.DistanceHighMeters
	}
	if cfg.NameSimilarityMid <= 0 {
		cfg.NameSimilarityMid = def.NameSimilarityMid
	}
	if cfg.DistanceMidMeters <= 0 {
		cfg.DistanceMidMeters = def.DistanceMidMeters
	}
	if cfg.MinPhoneDigits <= 0 {
		cfg.MinPhoneDigits = def.MinPhoneDigits
	}
	return &Detector{cfg: cfg}
}

// IsDuplicate reports whether two records refer to the same store. The
// criteria are symmetric: phone identity first, then name similarity
// combined with proximity at two threshold tiers.
func (d *Detector) IsDuplicate(a, b *model.StoreRecord) bool {
	if a == nil || b == nil {
		return false
	}

	pa, pb := d.normalizePhone(a.PhoneNumber), d.normalizePhone(b.PhoneNumber)
	if pa != "" && pa == pb {
		return true
	}

	sim := NameSimilarity(a.Name, b.Name)
	dist := distanceMeters(a, b)
	if sim > d.cfg.NameSimilarityHigh && dist < d.cfg.DistanceHighMeters {
		return true
	}
	if sim > d.cfg.NameSimilarityMid && dist < d.cfg.DistanceMidMeters {
		return true
	}
	return false
}

// FindDuplicates partitions the batch into duplicate groups of record
// indices. Duplication is treated as transitive: if a~b and b~c, all three
// land in one group even when a and c do not pair directly. Only groups
// with two or more members are returned, ordered by their first member.
func (d *Detector) FindDuplicates(records []*model.StoreRecord) [][]int {
	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if d.IsDuplicate(records[i], records[j]) {
				union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	for i := range records {
		root := find(i)
		members[root] = append(members[root], i)
	}

	var groups [][]int
	for i := range records {
		if g := members[find(i)]; len(g) >= 2 && g[0] == i {
			groups = append(groups, g)
		}
	}
	return groups
}

func (d *Detector) normalizePhone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) < d.cfg.MinPhoneDigits {
		return ""
	}
	return digits
}

// NameSimilarity is the Jaccard similarity of the character sets of two
// store names, after stripping non Korean/Latin/digit characters and
// lowercasing. Exported for threshold tuning tests.
func NameSimilarity(a, b string) float64 {
	sa := nameCharSet(a)
	sb := nameCharSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	intersection := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}

func nameCharSet(name string) map[rune]struct{} {
	cleaned := nameNoise.ReplaceAllString(strings.ToLower(name), "")
	set := make(map[rune]struct{}, len(cleaned))
	for _, r := range cleaned {
		set[r] = struct{}{}
	}
	return set
}

// distanceMeters treats records missing either coordinate as infinitely
// far apart, so proximity criteria never match them.
func distanceMeters(a, b *model.StoreRecord) float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return math.Inf(1)
	}
	return geo.DistanceMeters(*a.PositionLat, *a.PositionLng, *b.PositionLat, *b.PositionLng)
}
