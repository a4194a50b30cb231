package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agenthands/resolve/internal/core/model"
)

// Normalizer canonicalizes raw field values into comparable forms. All
// methods are total and idempotent: unparseable input falls back to its own
// lowercased, trimmed form instead of failing.
type Normalizer struct {
	fold transform.Transformer
}

func New() *Normalizer {
	return &Normalizer{
		// NFD decomposition, strip combining marks, recompose.
		fold: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
}

// honorifics stripped from the front of names.
var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true,
	"dr": true, "prof": true, "sir": true, "madam": true,
}

// streetAbbrevs maps common street-type abbreviations to their long forms.
var streetAbbrevs = map[string]string{
	"st":   "street",
	"str":  "street",
	"ave":  "avenue",
	"av":   "avenue",
	"rd":   "road",
	"blvd": "boulevard",
	"dr":   "drive",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"hwy":  "highway",
	"apt":  "apartment",
	"ste":  "suite",
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
}

// Normalize cleans a single raw value according to its field type.
func (n *Normalizer) Normalize(field model.FieldType, value string) string {
	switch field {
	case model.FieldName:
		return n.name(value)
	case model.FieldEmail:
		return n.email(value)
	case model.FieldPhone:
		return n.phone(value)
	case model.FieldAddress:
		return n.address(value)
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

// Apply normalizes every schema field of a record.
func (n *Normalizer) Apply(rec model.Record) model.NormalizedRecord {
	out := model.NormalizedRecord{
		ID:   rec.ID,
		Raw:  make(map[model.FieldType]string, len(rec.Fields)),
		Norm: make(map[model.FieldType]string, len(rec.Fields)),
	}
	for _, f := range model.FieldTypes() {
		v, ok := rec.Fields[f]
		if !ok {
			continue
		}
		out.Raw[f] = v
		out.Norm[f] = n.Normalize(f, v)
	}
	return out
}

func (n *Normalizer) name(v string) string {
	v = n.foldDiacritics(strings.ToLower(strings.TrimSpace(v)))
	words := strings.FieldsFunc(v, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for len(words) > 1 && honorifics[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func (n *Normalizer) email(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (n *Normalizer) phone(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	// NANP country prefix on an 11-digit number.
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

func (n *Normalizer) address(v string) string {
	v = n.foldDiacritics(strings.ToLower(strings.TrimSpace(v)))
	words := strings.FieldsFunc(v, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		if long, ok := streetAbbrevs[w]; ok {
			words[i] = long
		}
	}
	return strings.Join(words, " ")
}

func (n *Normalizer) foldDiacritics(v string) string {
	folded, _, err := transform.String(n.fold, v)
	if err != nil {
		return v
	}
	return folded
}
