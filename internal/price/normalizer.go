package price

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/width"

	"github.com/refill-spot/enrich-cli/internal/model"
)

var labelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`가격\s*:`),
	regexp.MustCompile(`요금\s*:`),
	regexp.MustCompile(`비용\s*:`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SessionStats are per-run price normalization counters.
type SessionStats struct {
	TotalProcessed int `json:"total_processed"`
	Single         int `json:"single"`
	Range          int `json:"range"`
	TimeBased      int `json:"time_based"`
	Conditional    int `json:"conditional"`
	Inquiry        int `json:"inquiry"`
	Unknown        int `json:"unknown"`
}

// SuccessRate returns the fraction of inputs classified as anything other
// than unknown.
func (s SessionStats) SuccessRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.TotalProcessed-s.Unknown) / float64(s.TotalProcessed)
}

// Session collects normalization statistics for a single run. Safe for
// concurrent use.
type Session struct {
	mu    sync.Mutex
	stats SessionStats
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) record(t model.PriceType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalProcessed++
	switch t {
	case model.PriceSingle:
		s.stats.Single++
	case model.PriceRange:
		s.stats.Range++
	case model.PriceTimeBased:
		s.stats.TimeBased++
	case model.PriceConditional:
		s.stats.Conditional++
	case model.PriceInquiry:
		s.stats.Inquiry++
	default:
		s.stats.Unknown++
	}
}

// Normalizer wraps pattern extraction with text cleanup and menu-text
// augmentation. Normalizers are stateless; counters live on the Session.
type Normalizer struct {
	extractor *Extractor
	cfg       Config
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	n := &Normalizer{extractor: NewExtractor(cfg)}
	n.cfg = n.extractor.cfg
	return n
}

// Normalize cleans the price text, optionally widens the search space with
// a few menu-item strings, and extracts a structured price. Unparseable
// input yields an unknown-type result, never an error.
func (n *Normalizer) Normalize(text string, menuItems []string, sess *Session) model.PriceInfo {
	cleaned := n.clean(text)

	// Menu text widens the token search even when the price field itself is
	// empty; listings often carry the price only in a menu line.
	if len(menuItems) > 0 {
		extra := menuItems
		if len(extra) > n.cfg.MaxMenuItems {
			extra = extra[:n.cfg.MaxMenuItems]
		}
		cleaned = strings.TrimSpace(cleaned + " " + strings.Join(extra, " "))
	}

	info := n.extractor.Extract(cleaned)
	info.OriginalText = text
	if sess != nil {
		sess.record(info.Type)
	}
	return info
}

// NormalizeBatch normalizes the price field of each record in place,
// augmenting with menu and refill items the way the enhancer does.
func (n *Normalizer) NormalizeBatch(records []*model.StoreRecord, sess *Session) {
	for _, r := range records {
		if r == nil {
			continue
		}
		extra := append(append([]string(nil), r.MenuItems...), r.RefillItems...)
		info := n.Normalize(r.PriceText(), extra, sess)
		r.NormalizedPrice = &info
	}
}

// clean strips price labels, folds full-width digits to ASCII, and
// collapses whitespace.
func (n *Normalizer) clean(text string) string {
	cleaned := width.Narrow.String(strings.TrimSpace(text))
	for _, p := range labelPatterns {
		cleaned = p.ReplaceAllString(cleaned, " ")
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
}
