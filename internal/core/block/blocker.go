package block

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agenthands/resolve/internal/core/model"
)

// CatchAllKey is the reserved block for records that derive no other key.
// Records landing here still participate in comparison, at reduced recall.
const CatchAllKey = "catchall"

// Recipe names accepted in the blocking configuration.
const (
	KeyNamePrefixPostal = "name_prefix_postal"
	KeyNamePrefix       = "name_prefix"
	KeyPhonePrefix      = "phone_prefix"
	KeyEmailExact       = "email_exact"
)

// Warning reports a block that exceeded the configured size ceiling and was
// truncated to bound pairwise comparison cost.
type Warning struct {
	Key  string
	Size int
	Cap  int
}

func (w Warning) String() string {
	return fmt.Sprintf("block %q has %d members, capped at %d", w.Key, w.Size, w.Cap)
}

// Blocker derives coarse candidate-reduction keys from normalized records.
type Blocker struct {
	Recipes        []string
	NamePrefixLen  int
	PhonePrefixLen int
	// MaxBlockSize caps members per block; 0 disables the cap.
	MaxBlockSize int
}

func New(recipes []string, namePrefixLen, phonePrefixLen, maxBlockSize int) (*Blocker, error) {
	if len(recipes) == 0 {
		return nil, fmt.Errorf("blocking: at least one key recipe is required")
	}
	for _, r := range recipes {
		switch r {
		case KeyNamePrefixPostal, KeyNamePrefix, KeyPhonePrefix, KeyEmailExact:
		default:
			return nil, fmt.Errorf("blocking: unknown key recipe %q", r)
		}
	}
	if namePrefixLen <= 0 {
		namePrefixLen = 3
	}
	if phonePrefixLen <= 0 {
		phonePrefixLen = 6
	}
	return &Blocker{
		Recipes:        recipes,
		NamePrefixLen:  namePrefixLen,
		PhonePrefixLen: phonePrefixLen,
		MaxBlockSize:   maxBlockSize,
	}, nil
}

var postalRe = regexp.MustCompile(`\b\d{5}\b`)

// Keys derives the block keys for one record. Never empty: a record with no
// derivable key falls into the catch-all block.
func (b *Blocker) Keys(rec model.NormalizedRecord) []string {
	var keys []string
	for _, recipe := range b.Recipes {
		switch recipe {
		case KeyNamePrefixPostal:
			prefix := runePrefix(rec.Value(model.FieldName), b.NamePrefixLen)
			postal := lastPostal(rec.Value(model.FieldAddress))
			if prefix != "" && postal != "" {
				keys = append(keys, "np:"+prefix+"|"+postal)
			}
		case KeyNamePrefix:
			if prefix := runePrefix(rec.Value(model.FieldName), b.NamePrefixLen); prefix != "" {
				keys = append(keys, "n:"+prefix)
			}
		case KeyPhonePrefix:
			if prefix := runePrefix(rec.Value(model.FieldPhone), b.PhonePrefixLen); prefix != "" {
				keys = append(keys, "p:"+prefix)
			}
		case KeyEmailExact:
			if email := rec.Value(model.FieldEmail); email != "" {
				keys = append(keys, "e:"+email)
			}
		}
	}
	if len(keys) == 0 {
		keys = append(keys, CatchAllKey)
	}
	return keys
}

// Blocks groups records by block key. Blocks above MaxBlockSize are truncated
// deterministically (members sorted by id) and reported as warnings.
func (b *Blocker) Blocks(records []model.NormalizedRecord) (map[string][]string, []Warning) {
	blocks := make(map[string][]string)
	for _, rec := range records {
		for _, key := range b.Keys(rec) {
			blocks[key] = append(blocks[key], rec.ID)
		}
	}

	var warnings []Warning
	for key, members := range blocks {
		sort.Strings(members)
		if b.MaxBlockSize > 0 && len(members) > b.MaxBlockSize {
			warnings = append(warnings, Warning{Key: key, Size: len(members), Cap: b.MaxBlockSize})
			blocks[key] = members[:b.MaxBlockSize]
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Key < warnings[j].Key })
	return blocks, warnings
}

func runePrefix(s string, n int) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// lastPostal extracts the last 5-digit token from a normalized address,
// which is where US-shaped data carries the zip code.
func lastPostal(addr string) string {
	matches := postalRe.FindAllString(addr, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}
