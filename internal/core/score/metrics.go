package score

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Metric is a symmetric string similarity in [0, 1].
type Metric func(a, b string) float64

// Metric names accepted in the scoring configuration.
const (
	MetricJaroWinkler  = "jaro_winkler"
	MetricExact        = "exact"
	MetricTokenJaccard = "token_jaccard"
	MetricTrigram      = "trigram"
)

var metrics = map[string]Metric{
	MetricJaroWinkler:  JaroWinkler,
	MetricExact:        Exact,
	MetricTokenJaccard: TokenJaccard,
	MetricTrigram:      Trigram,
}

// Lookup resolves a configured metric name.
func Lookup(name string) (Metric, bool) {
	m, ok := metrics[name]
	return m, ok
}

// MetricNames returns the registered metric names, sorted.
func MetricNames() []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exact is 1 for identical non-empty strings, 0 otherwise. Intended for
// deterministic fields like normalized email and phone.
func Exact(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return 0
}

// Jaro computes Jaro similarity over runes.
func Jaro(a, b string) float64 {
	if a == b {
		return 1
	}
	r1, r2 := []rune(a), []rune(b)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	window := max(len1, len2)/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len1)
	matched2 := make([]bool, len2)
	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-window)
		end := min(len2, i+window+1)
		for j := start; j < end; j++ {
			if matched2[j] || r1[i] != r2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions)/2)/m) / 3
}

// JaroWinkler boosts Jaro similarity for strings sharing a common prefix
// (up to 4 runes, scaling factor 0.1).
func JaroWinkler(a, b string) float64 {
	jaro := Jaro(a, b)
	if jaro < 0.7 {
		return jaro
	}

	r1, r2 := []rune(a), []rune(b)
	prefix := 0
	for i := 0; i < min(min(len(r1), len(r2)), 4); i++ {
		if r1[i] != r2[i] {
			break
		}
		prefix++
	}
	return math.Min(jaro+float64(prefix)*0.1*(1-jaro), 1)
}

// TokenJaccard is the Jaccard index over whitespace/punctuation-delimited
// tokens. Intended for addresses.
func TokenJaccard(a, b string) float64 {
	set1, set2 := tokens(a), tokens(b)
	if len(set1) == 0 && len(set2) == 0 {
		return 1
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for tok := range set1 {
		if set2[tok] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// Trigram is the Jaccard index over character 3-grams.
func Trigram(a, b string) float64 {
	if a == b {
		return 1
	}
	set1, set2 := ngrams(a, 3), ngrams(b, 3)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for g := range set1 {
		if set2[g] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[tok] = true
	}
	return out
}

func ngrams(s string, n int) map[string]bool {
	out := make(map[string]bool)
	runes := []rune(s)
	if len(runes) == 0 {
		return out
	}
	if len(runes) < n {
		out[string(runes)] = true
		return out
	}
	for i := 0; i+n <= len(runes); i++ {
		out[string(runes[i:i+n])] = true
	}
	return out
}
