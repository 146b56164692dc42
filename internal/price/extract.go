package price

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/refill-spot/enrich-cli/internal/model"
)

// Config holds price extraction tunables.
type Config struct {
	// MinPriceToken is the smallest standalone number treated as a price,
	// filtering out party sizes and similar small numbers.
	MinPriceToken int `yaml:"min_price_token" mapstructure:"min_price_token"`
	// MaxMenuItems caps how many menu strings are appended to the price
	// text to widen the token search.
	MaxMenuItems int `yaml:"max_menu_items" mapstructure:"max_menu_items"`
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{MinPriceToken: 1000, MaxMenuItems: 3}
}

// priceToken matches a run of price-expression characters (digits, commas,
// and the 만/천/원 magnitude words).
const priceToken = `([0-9,만천원]+)`

var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`가격\s*문의`),
	regexp.MustCompile(`시세`),
	regexp.MustCompile(`별도`),
	regexp.MustCompile(`추가\s*요금`),
	regexp.MustCompile(`서비스\s*요금`),
}

var rangePatterns = []*regexp.Regexp{
	regexp.MustCompile(priceToken + `\s*[~-]\s*` + priceToken),
	regexp.MustCompile(priceToken + `\s*부터\s*` + priceToken),
	regexp.MustCompile(priceToken + `\s*에서\s*` + priceToken),
}

var rangeBracketPattern = regexp.MustCompile(`([0-9]+)만?원?대`)

// timeSlotPattern pairs a time-slot keyword with its normalized slot name.
type timeSlotPattern struct {
	re   *regexp.Regexp
	slot string
}

var timeSlotPatterns = []timeSlotPattern{
	{regexp.MustCompile(`런치\s*` + priceToken), "lunch"},
	{regexp.MustCompile(`점심\s*` + priceToken), "lunch"},
	{regexp.MustCompile(`디너\s*` + priceToken), "dinner"},
	{regexp.MustCompile(`저녁\s*` + priceToken), "dinner"},
	{regexp.MustCompile(`평일\s*` + priceToken), "weekday"},
	{regexp.MustCompile(`주말\s*` + priceToken), "weekend"},
}

var conditionalPatterns = []*regexp.Regexp{
	regexp.MustCompile(priceToken + `\s*\(([^)]+)\)`),
	regexp.MustCompile(priceToken + `\s*([0-9]+인\s*이상)`),
}

var singleTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(priceToken),
	regexp.MustCompile(`가격\s*` + priceToken),
}

// Extractor classifies a free-text price string and extracts bounds.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor, filling zero config fields with defaults.
func NewExtractor(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.MinPriceToken <= 0 {
		cfg.MinPriceToken = def.MinPriceToken
	}
	if cfg.MaxMenuItems <= 0 {
		cfg.MaxMenuItems = def.MaxMenuItems
	}
	return &Extractor{cfg: cfg}
}

// Extract classifies text into a PriceInfo. Pattern categories are tried in
// fixed precedence: exclusion, range, time-based, conditional, standalone
// tokens. Extraction is deterministic; the same text always yields the same
// result.
func (e *Extractor) Extract(text string) model.PriceInfo {
	if strings.TrimSpace(text) == "" {
		return unknownPrice(text)
	}

	for _, p := range exclusionPatterns {
		if p.MatchString(text) {
			return model.PriceInfo{
				Type:         model.PriceInquiry,
				Currency:     "KRW",
				OriginalText: text,
				Confidence:   0.9,
			}
		}
	}

	if info := e.extractRange(text); info != nil {
		return *info
	}
	if info := e.extractTimeBased(text); info != nil {
		return *info
	}
	if info := e.extractConditional(text); info != nil {
		return *info
	}
	if info := e.extractStandalone(text); info != nil {
		return *info
	}

	return unknownPrice(text)
}

// extractRange handles two-sided ranges ("A~B", "A부터 B", "A에서 B") and
// the bracket form ("2만원대" meaning [20000, 29999]).
func (e *Extractor) extractRange(text string) *model.PriceInfo {
	for _, p := range rangePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		minP := ConvertKoreanNumber(m[1])
		maxP := ConvertKoreanNumber(m[2])
		if minP == nil || maxP == nil {
			continue
		}
		lo, hi := ordered(*minP, *maxP)
		return rangePrice(text, lo, hi, 0.9)
	}

	if m := rangeBracketPattern.FindStringSubmatch(text); m != nil {
		base, _ := strconv.Atoi(m[1])
		unit := 1000
		if strings.Contains(m[0], "만") {
			unit = 10000
		}
		return rangePrice(text, base*unit, (base+1)*unit-1, 0.8)
	}

	return nil
}

// extractTimeBased collects every (time-slot, price) pair; the overall
// min/max spans all slots.
func (e *Extractor) extractTimeBased(text string) *model.PriceInfo {
	slots := make(map[string]model.PriceBand)
	for _, tp := range timeSlotPatterns {
		for _, m := range tp.re.FindAllStringSubmatch(text, -1) {
			if v := ConvertKoreanNumber(m[1]); v != nil {
				slots[tp.slot] = model.PriceBand{Min: *v, Max: *v}
			}
		}
	}
	if len(slots) == 0 {
		return nil
	}

	lo, hi := 0, 0
	first := true
	for _, band := range slots {
		if first {
			lo, hi = band.Min, band.Max
			first = false
			continue
		}
		if band.Min < lo {
			lo = band.Min
		}
		if band.Max > hi {
			hi = band.Max
		}
	}

	info := rangePrice(text, lo, hi, 0.85)
	info.Type = model.PriceTimeBased
	info.TimeBased = slots
	return info
}

// extractConditional handles "price (condition)" and "price N인 이상".
func (e *Extractor) extractConditional(text string) *model.PriceInfo {
	for _, p := range conditionalPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := ConvertKoreanNumber(m[1])
		if v == nil {
			continue
		}
		info := rangePrice(text, *v, *v, 0.8)
		info.Type = model.PriceConditional
		info.Conditions = strings.TrimSpace(m[2])
		return info
	}
	return nil
}

// extractStandalone collects every distinct price token at or above the
// minimum. One distinct value is a single price; several become a range with
// lower confidence, since unrelated numbers in one string are ambiguous.
func (e *Extractor) extractStandalone(text string) *model.PriceInfo {
	seen := make(map[int]struct{})
	for _, p := range singleTokenPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			v := ConvertKoreanNumber(m[1])
			if v == nil || *v < e.cfg.MinPriceToken {
				continue
			}
			seen[*v] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Ints(values)

	if len(values) == 1 {
		info := rangePrice(text, values[0], values[0], 0.9)
		info.Type = model.PriceSingle
		return info
	}
	return rangePrice(text, values[0], values[len(values)-1], 0.7)
}

func rangePrice(text string, lo, hi int, confidence float64) *model.PriceInfo {
	return &model.PriceInfo{
		Type:         model.PriceRange,
		MinPrice:     &lo,
		MaxPrice:     &hi,
		Currency:     "KRW",
		OriginalText: text,
		Confidence:   confidence,
	}
}

func unknownPrice(text string) model.PriceInfo {
	return model.PriceInfo{
		Type:         model.PriceUnknown,
		Currency:     "KRW",
		OriginalText: text,
		Confidence:   0,
	}
}

func ordered(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
