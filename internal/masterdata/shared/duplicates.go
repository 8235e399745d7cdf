package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Named is the projection of an entity used by the duplicate-name guard.
type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// NormalizeName folds s for comparison: diacritics stripped, spaces, dots and
// hyphens removed, lower-cased.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) || r == '.' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// FindDuplicates returns the names of existing entries whose normalized name
// equals the candidate's, or whose normalized code does when includesCode is
// set. The entry with the candidate's own ID is skipped so updates do not
// collide with themselves.
func FindDuplicates(existing []Named, candidate Named, includesCode bool) []string {
	name := NormalizeName(candidate.Name)
	code := NormalizeName(candidate.Code)
	out := []string{}
	for _, e := range existing {
		if candidate.ID != 0 && e.ID == candidate.ID {
			continue
		}
		switch {
		case name != "" && NormalizeName(e.Name) == name:
			out = append(out, e.Name)
		case includesCode && code != "" && NormalizeName(e.Code) == code:
			out = append(out, e.Name)
		}
	}
	return out
}

// CheckDuplicates wraps FindDuplicates into a *DuplicateError.
func CheckDuplicates(existing []Named, candidate Named, includesCode bool) error {
	if names := FindDuplicates(existing, candidate, includesCode); len(names) > 0 {
		return &DuplicateError{Names: names}
	}
	return nil
}
