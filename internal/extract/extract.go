// Package extract pulls cadastral numbers, areas and usage classes out of
// free-text lot descriptions.
//
// Descriptions come in two dialects: a strict "Label: value" block and loose
// inline prose. Each field has an ordered list of independent patterns and the
// first one that yields a usable value wins. A miss is never an error.
package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// dialect names the text form a pattern targets.
type dialect string

const (
	dialectStrict  dialect = "strict"
	dialectLoose   dialect = "loose"
	dialectBareQty dialect = "bare_quantity"
)

type pattern struct {
	dialect dialect
	re      *regexp.Regexp
}

// number matches a quantity with a decimal point or comma. Space separators
// are only taken between groups of three digits.
const number = `((?:\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+|\d+)(?:[.,]\d+)?)`

var cadastralRe = regexp.MustCompile(`\d+:\d+:\d+:\d+`)

var areaPatterns = []pattern{
	{dialectStrict, regexp.MustCompile(`(?i)площадь[^:;\d\n]*:\s*` + number)},
	{dialectLoose, regexp.MustCompile(`(?i)площад(?:ью|ь|и)[^\d:;\n]{0,40}?` + number + `\s*(?:кв\.?\s*м|м²|м2|м)`)},
	{dialectBareQty, regexp.MustCompile(`(?i)` + number + `\s*(?:кв\.?\s*м|м²)`)},
}

var usagePatterns = []pattern{
	{dialectStrict, regexp.MustCompile(`(?i)вид\s+разреш[её]нного\s+использования[^:;\n]*:\s*([^;\n]+)`)},
	{dialectLoose, regexp.MustCompile(`(?i)использовани[еяю][^\p{L}\p{N}]+([\p{L}\p{N}_\s\-]+?)\s*(?:[.;,\n(]|вид\s|$)`)},
}

// Features bundles everything extracted from one description.
type Features struct {
	CadastralNumbers []string
	Area             *float64
	UsageClass       string
}

// Cadastral returns the first cadastral number, or "" when none was found.
func (f Features) Cadastral() string {
	if len(f.CadastralNumbers) == 0 {
		return ""
	}
	return f.CadastralNumbers[0]
}

// Extract runs every field extractor over text.
func Extract(text string) Features {
	return Features{
		CadastralNumbers: CadastralNumbers(text),
		Area:             Area(text),
		UsageClass:       UsageClass(text),
	}
}

// CadastralNumbers returns every region:district:section:parcel number in
// text, left to right, duplicates included.
func CadastralNumbers(text string) []string {
	found := cadastralRe.FindAllString(text, -1)
	if found == nil {
		return []string{}
	}
	return found
}

// Area returns the parcel area in square meters, or nil when no pattern
// yields a positive number.
func Area(text string) *float64 {
	if text == "" {
		return nil
	}
	for _, p := range areaPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if v, ok := ParseNumber(m[1]); ok && v > 0 {
				zap.L().Debug("area extracted", zap.String("dialect", string(p.dialect)), zap.Float64("area", v))
				return &v
			}
		}
	}
	return nil
}

// UsageClass returns the permitted-use clause, trimmed, or "" when absent.
func UsageClass(text string) string {
	if text == "" {
		return ""
	}
	for _, p := range usagePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := cleanClause(m[1]); v != "" {
			zap.L().Debug("usage class extracted", zap.String("dialect", string(p.dialect)))
			return v
		}
	}
	return ""
}

func cleanClause(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,")
	return strings.TrimSpace(s)
}
