// Package address normalizes and decomposes free-text Korean addresses.
package address

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/refill-spot/enrich-cli/internal/model"
)

// DefaultRegion is prepended to addresses that carry no region of their own
// and have no sibling to borrow one from. Nearly all source listings are in
// the Seoul metro area.
const DefaultRegion = "서울"

// removePatterns strip parenthetical asides, floor/unit suffixes and filler
// words before geocoding. Matched text is dropped wholesale.
var removePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\([^)]*\)`),
	regexp.MustCompile(`[0-9]+층`),
	regexp.MustCompile(`[0-9]+호`),
	regexp.MustCompile(`근처`),
	regexp.MustCompile(`앞`),
	regexp.MustCompile(`옆`),
	regexp.MustCompile(`건물`),
	regexp.MustCompile(`상가`),
}

var multiSpace = regexp.MustCompile(`\s+`)

// Component extraction patterns. Any component may be absent; values are not
// validated against a gazetteer.
var (
	regionPattern   = regexp.MustCompile(`(서울|부산|대구|인천|광주|대전|울산|세종|경기|강원|충북|충남|전북|전남|경북|경남|제주)`)
	districtPattern = regexp.MustCompile(`([가-힣]+시|[가-힣]+군|[가-힣]+구)`)
	dongPattern     = regexp.MustCompile(`([가-힣]+동|[가-힣]+읍|[가-힣]+면)`)
	roadPattern     = regexp.MustCompile(`([가-힣]+로|[가-힣]+길)`)
	numberPattern   = regexp.MustCompile(`([0-9]+(-[0-9]+)?)`)
)

// Components holds the decomposed parts of an address. Empty string means
// the component was not found.
type Components struct {
	Region         string
	District       string
	Neighborhood   string
	Road           string
	BuildingNumber string
}

// Normalize cleans an address for geocoding: strips asides, floor/unit
// suffixes and filler words, and collapses whitespace. Empty input yields
// an empty string, not an error.
func Normalize(addr string) string {
	normalized := strings.TrimSpace(addr)
	if normalized == "" {
		return ""
	}
	for _, p := range removePatterns {
		normalized = p.ReplaceAllString(normalized, "")
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(normalized, " "))
}

// Extract decomposes an address into its components via regex lookup.
func Extract(addr string) Components {
	return Components{
		Region:         firstGroup(regionPattern, addr),
		District:       firstGroup(districtPattern, addr),
		Neighborhood:   firstGroup(dongPattern, addr),
		Road:           firstGroup(roadPattern, addr),
		BuildingNumber: firstGroup(numberPattern, addr),
	}
}

// EnhanceIncomplete backfills a missing region segment. If the address has
// no region, it borrows one from the first sibling record that does, and
// otherwise falls back to DefaultRegion. This is a heuristic; downstream
// coordinate validation re-checks the result.
func EnhanceIncomplete(addr string, siblings []*model.StoreRecord) string {
	if Extract(addr).Region != "" {
		return addr
	}
	for _, s := range siblings {
		if s == nil || s.Address == "" {
			continue
		}
		if region := Extract(s.Address).Region; region != "" {
			return fmt.Sprintf("%s %s", region, addr)
		}
	}
	return fmt.Sprintf("%s %s", DefaultRegion, addr)
}

// Similarity computes character-set Jaccard similarity between two addresses
// over their Korean and digit characters. Used to rank sibling candidates.
func Similarity(a, b string) float64 {
	return jaccardChars(stripNonKoreanDigit(a), stripNonKoreanDigit(b))
}

// HasComparableChars reports whether the string contains any of the Korean
// and digit characters Similarity compares over.
func HasComparableChars(s string) bool {
	return stripNonKoreanDigit(s) != ""
}

var nonKoreanDigit = regexp.MustCompile(`[^가-힣0-9]`)

func stripNonKoreanDigit(s string) string {
	return nonKoreanDigit.ReplaceAllString(s, "")
}

func jaccardChars(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func firstGroup(p *regexp.Regexp, s string) string {
	if m := p.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
