// Package match normalizes free-text exercise names and scores them against
// catalog entries with a token-overlap heuristic.
package match

import (
	"strings"
	"unicode"

	"github.com/claude/liftlog/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Threshold is the score a candidate must strictly exceed to be accepted.
const Threshold = 0.5

// minTokenLen is the length a query token must exceed to count toward a score.
// Short tokens ("of", "db") match too much by substring.
const minTokenLen = 2

// Normalize lowercases name, folds accents, drops everything that is not an
// ASCII letter, digit or whitespace, and collapses whitespace.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Score returns the token-overlap similarity of an already normalized query
// and candidate name: matching query tokens divided by the larger token count.
func Score(query, candidate string) float64 {
	qTokens := strings.Fields(query)
	cTokens := strings.Fields(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}

	matches := 0
	for _, qt := range qTokens {
		if len(qt) <= minTokenLen {
			continue
		}
		for _, ct := range cTokens {
			if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(max(len(qTokens), len(cTokens)))
}

// FindFuzzyMatch returns the candidate with the strictly highest score above
// Threshold. Ties keep the earliest candidate, so callers should pass the
// catalog in a stable order.
func FindFuzzyMatch(normalizedName string, candidates []models.Exercise) (models.Exercise, bool) {
	var best models.Exercise
	bestScore := 0.0
	found := false
	for _, c := range candidates {
		s := Score(normalizedName, Normalize(c.Name))
		if s > bestScore {
			best, bestScore, found = c, s, true
		}
	}
	if !found || bestScore <= Threshold {
		return models.Exercise{}, false
	}
	return best, true
}

// FindExact returns the first candidate whose normalized name equals normalizedName.
func FindExact(normalizedName string, candidates []models.Exercise) (models.Exercise, bool) {
	for _, c := range candidates {
		if Normalize(c.Name) == normalizedName {
			return c, true
		}
	}
	return models.Exercise{}, false
}
