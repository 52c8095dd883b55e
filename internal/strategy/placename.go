package strategy

import (
	"strings"
	"unicode"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/refdata"
)

// maxPlaceNameWords caps suffix phrase extraction; US place names rarely
// exceed four words ("City of Lake Elsinore" style prefixes are not gazetteer
// names).
const maxPlaceNameWords = 5

// PlaceName refines the baseline candidate set to postal codes whose gazetteer
// place name appears in the alert's free text.
type PlaceName struct {
	places *refdata.PlaceNameIndex
}

// NewPlaceName creates the place-name refinement strategy.
func NewPlaceName(places *refdata.PlaceNameIndex) *PlaceName {
	return &PlaceName{places: places}
}

// ResolveState resolves the alert's state abbreviation from its region codes
// via the gazetteer, or "" when none resolves.
func (p *PlaceName) ResolveState(regionCodes []string) string {
	return p.places.ResolveState(regionCodes)
}

// Apply keeps the candidates whose gazetteer place name occurs in text and,
// when state is non-empty, whose gazetteer state matches it. With no resolvable
// state the match is on name alone.
func (p *PlaceName) Apply(candidates []string, text, state string) []string {
	names := extractPlaceNames(text)
	if len(names) == 0 {
		return nil
	}
	state = strings.ToUpper(strings.TrimSpace(state))

	out := make([]string, 0, len(candidates))
	for _, zip := range candidates {
		place, ok := p.places.Lookup(zip)
		if !ok {
			continue
		}
		if _, hit := names[place.Name]; !hit {
			continue
		}
		if state != "" && place.State != "" && place.State != state {
			continue
		}
		out = append(out, zip)
	}
	return out
}

// extractPlaceNames pulls candidate place names out of alert prose with a
// lightweight heuristic rather than a language pipeline: the source text
// follows a handful of recurring patterns ("...Warning for Los Angeles and
// Pasadena", "...moving into Kern County"). Text is lowercased, punctuation
// stripped, and split on list/sentence delimiters; because place names sit at
// the end of a clause, every word-suffix of each clause (up to
// maxPlaceNameWords) becomes a candidate, so "warning for los angeles" yields
// "los angeles".
func extractPlaceNames(text string) map[string]struct{} {
	t := strings.ToLower(text)
	for _, delim := range []string{" and ", " into "} {
		t = strings.ReplaceAll(t, delim, ";")
	}
	t = strings.Map(func(r rune) rune {
		switch {
		case r == ';' || r == ',' || r == '.' || r == '\n':
			return ';'
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ':
			return r
		default:
			return ' '
		}
	}, t)

	names := make(map[string]struct{})
	for _, clause := range strings.Split(t, ";") {
		words := strings.Fields(clause)
		start := len(words) - maxPlaceNameWords
		if start < 0 {
			start = 0
		}
		for i := start; i < len(words); i++ {
			names[strings.Join(words[i:], " ")] = struct{}{}
		}
	}
	delete(names, "")
	return names
}
