package geocode

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// abbreviations maps administrative shorthand found in lot addresses to the
// full words Nominatim indexes. Keys match whole tokens only.
var abbreviations = map[string]string{
	"Респ":    "Республика",
	"Респ.":   "Республика",
	"респ.":   "Республика",
	"обл":     "область",
	"обл.":    "область",
	"м.р-н":   "район",
	"мун.р-н": "район",
	"р-н":     "район",
	"р-н.":    "район",
	"с.п.":    "сельское поселение",
	"с/п":     "сельское поселение",
	"г.п.":    "городское поселение",
	"г.о.":    "городской округ",
	"пгт":     "посёлок городского типа",
	"пгт.":    "посёлок городского типа",
}

// token is a run of characters between whitespace and commas.
var tokenRe = regexp.MustCompile(`[^\s,]+`)

// NormalizeAddress expands known abbreviations, applies Unicode NFC and
// collapses whitespace. The output is both the geocoder query and the address
// cache key.
func NormalizeAddress(addr string) string {
	addr = norm.NFC.String(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	addr = tokenRe.ReplaceAllStringFunc(addr, func(tok string) string {
		if full, ok := abbreviations[tok]; ok {
			return full
		}
		return tok
	})
	addr = strings.Join(strings.Fields(addr), " ")
	return strings.Trim(addr, ", ")
}
