// Package price parses free-text Korean price expressions into structured
// price records.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

// Korean numeral place values.
var koreanNumerals = map[rune]int{
	'영': 0, '일': 1, '이': 2, '삼': 3, '사': 4, '오': 5,
	'육': 6, '칠': 7, '팔': 8, '구': 9,
	'십': 10, '백': 100, '천': 1000, '만': 10000, '억': 100000000,
}

var (
	// "1만5천원", "2만원": Arabic digits with Korean magnitude units.
	mixedManPattern = regexp.MustCompile(`([0-9]+)만(?:([0-9]+)천)?원?`)
	// "8천원": thousands-only mixed form.
	mixedCheonPattern = regexp.MustCompile(`([0-9]+)천원?`)
	// "이만원", "십만원": pure Korean numeral spelling.
	pureKoreanPattern = regexp.MustCompile(`([일이삼사오육칠팔구십백천만억]+)원?`)
	// "10,000원", "15000원".
	arabicPattern = regexp.MustCompile(`([0-9][0-9,]*)원?`)
	// "2만원대", "5천원대": a price bracket, not a point value.
	bracketPattern = regexp.MustCompile(`([0-9]+)만?원?대`)
	// "천원", "만원": bare unit words with implicit multiplier 1.
	unitOnlyPattern = regexp.MustCompile(`(천|만|십만|백만)원`)
)

var unitValues = map[string]int{
	"천원":  1000,
	"만원":  10000,
	"십만원": 100000,
	"백만원": 1000000,
}

// ConvertKoreanNumber parses a mixed Korean/Arabic numeral amount into an
// integer KRW value. Bracket forms ("2만원대") denote a range, not a point,
// and yield nil here; the pattern extractor expands them one level up.
// Returns nil when no numeral pattern matches.
func ConvertKoreanNumber(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// A bracket form is deliberately not a point value.
	if bracketPattern.MatchString(text) {
		return nil
	}

	if m := mixedManPattern.FindStringSubmatch(text); m != nil {
		man, _ := strconv.Atoi(m[1])
		total := man * 10000
		if m[2] != "" {
			cheon, _ := strconv.Atoi(m[2])
			total += cheon * 1000
		}
		return &total
	}

	if m := mixedCheonPattern.FindStringSubmatch(text); m != nil {
		cheon, _ := strconv.Atoi(m[1])
		total := cheon * 1000
		return &total
	}

	if m := pureKoreanPattern.FindStringSubmatch(text); m != nil {
		if v := parsePureKorean(m[1]); v != nil {
			return v
		}
	}

	if m := arabicPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			return &v
		}
	}

	if m := unitOnlyPattern.FindStringSubmatch(text); m != nil {
		if v, ok := unitValues[m[1]+"원"]; ok {
			return &v
		}
	}

	return nil
}

// parsePureKorean evaluates a pure Korean numeral string by positional
// place-value accumulation: digit words combine additively within a
// magnitude and multiplicatively across magnitudes ("이만" = 2 x 10000).
func parsePureKorean(text string) *int {
	result := 0
	current := 0

	for _, r := range text {
		num, ok := koreanNumerals[r]
		if !ok {
			return nil
		}
		switch {
		case num < 10:
			current = current*10 + num
		case num == 10 || num == 100:
			if current == 0 {
				current = num
			} else {
				current *= num
			}
		default: // 천, 만, 억
			if current == 0 {
				current = num
			} else {
				result += current * num
				current = 0
			}
		}
	}

	total := result + current
	return &total
}
