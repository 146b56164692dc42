// Package category maps noisy source tags and menu text onto a small fixed
// cuisine taxonomy.
package category

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules is the injected mapping configuration: a closed taxonomy, a
// keyword substring table, exclusion patterns for non-cuisine noise tags,
// and the fallback category for stores nothing matches.
type Rules struct {
	Taxonomy   []string            `yaml:"taxonomy"`
	Default    string              `yaml:"default"`
	Exclusions []string            `yaml:"exclusions"`
	Keywords   map[string][]string `yaml:"keywords"`
}

// DefaultRules returns the curated built-in rule table.
func DefaultRules() Rules {
	var r Rules
	// The embedded table is validated by tests; a decode failure here is a
	// build defect, not a runtime condition.
	if err := yaml.Unmarshal(defaultRulesYAML, &r); err != nil {
		panic(err)
	}
	return r
}

// ParseRules decodes a rule table from YAML.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, eris.Wrap(err, "category: parse rules")
	}
	return r, nil
}

// maxMenuItems caps how many menu strings are scanned per store.
const maxMenuItems = 5

// Mapper applies a Rules table. Safe for concurrent use once built.
type Mapper struct {
	rules      Rules
	taxonomy   map[string]struct{}
	exclusions []*regexp.Regexp
}

// NewMapper validates and compiles the rule table. Every keyword target
// must belong to the taxonomy, and the default category must too.
func NewMapper(rules Rules) (*Mapper, error) {
	if len(rules.Taxonomy) == 0 {
		return nil, eris.New("category: empty taxonomy")
	}
	taxonomy := make(map[string]struct{}, len(rules.Taxonomy))
	for _, c := range rules.Taxonomy {
		taxonomy[c] = struct{}{}
	}
	if _, ok := taxonomy[rules.Default]; !ok {
		return nil, eris.Errorf("category: default %q not in taxonomy", rules.Default)
	}
	for kw, targets := range rules.Keywords {
		for _, t := range targets {
			if _, ok := taxonomy[t]; !ok {
				return nil, eris.Errorf("category: keyword %q targets unknown category %q", kw, t)
			}
		}
	}

	exclusions := make([]*regexp.Regexp, 0, len(rules.Exclusions))
	for _, pat := range rules.Exclusions {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, eris.Wrapf(err, "category: compile exclusion %q", pat)
		}
		exclusions = append(exclusions, re)
	}

	return &Mapper{rules: rules, taxonomy: taxonomy, exclusions: exclusions}, nil
}

// Map resolves raw tags, the store name, and the leading menu items to a
// sorted, non-empty set of taxonomy categories. When nothing matches, the
// default category is returned so every store carries at least one.
func (m *Mapper) Map(rawTags []string, name string, menuItems []string) []string {
	matched := make(map[string]struct{})

	for _, tag := range rawTags {
		cleaned := m.cleanTag(tag)
		if cleaned == "" || m.excluded(cleaned) {
			continue
		}
		m.matchKeywords(cleaned, matched)
	}
	if name != "" {
		m.matchKeywords(name, matched)
	}
	items := menuItems
	if len(items) > maxMenuItems {
		items = items[:maxMenuItems]
	}
	for _, item := range items {
		m.matchKeywords(item, matched)
	}

	if len(matched) == 0 {
		return []string{m.rules.Default}
	}
	out := make([]string, 0, len(matched))
	for c := range matched {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (m *Mapper) matchKeywords(text string, matched map[string]struct{}) {
	for kw, targets := range m.rules.Keywords {
		if strings.Contains(text, kw) {
			for _, t := range targets {
				matched[t] = struct{}{}
			}
		}
	}
}

func (m *Mapper) cleanTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(tag, "#", "")))
}

func (m *Mapper) excluded(tag string) bool {
	for _, re := range m.exclusions {
		if re.MatchString(tag) {
			return true
		}
	}
	return false
}

// Taxonomy returns the taxonomy in rule-table order.
func (m *Mapper) Taxonomy() []string {
	return append([]string(nil), m.rules.Taxonomy...)
}

// Rules returns the rule table the mapper was built from.
func (m *Mapper) Rules() Rules {
	return m.rules
}
