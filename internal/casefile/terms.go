package casefile

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// entityScanLimit bounds how much document text the entity scan reads.
	entityScanLimit = 15000

	// entityMinLength drops short matches (abbreviation noise).
	entityMinLength = 3

	// mergeMinLength drops near-empty terms after the merge.
	mergeMinLength = 2

	// maxSpanWords drops capitalized runs that are headings, not entities.
	maxSpanWords = 7
)

// citationPatterns match statute and case references regardless of
// capitalization context.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[Ss]ection\s+\d+[A-Za-z]?(?:\(\d+\))?`),
	regexp.MustCompile(`\b[Aa]rticle\s+\d+[A-Za-z]?`),
	regexp.MustCompile(`\b[A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*\s+Act(?:,?\s+\d{4})?\b`),
	regexp.MustCompile(`\b[A-Z][a-z]+\s+vs?\.?\s+[A-Z][a-z]+\b`),
}

// connectorWords may appear inside a capitalized span without breaking it,
// but never at its edges.
var connectorWords = map[string]bool{
	"of": true, "the": true, "and": true, "for": true,
	"in": true, "on": true, "to": true, "a": true, "an": true,
}

// scanEntities finds legal entities in the first entityScanLimit characters
// of the document: capitalized multi-word spans plus statute and case
// citations. Matches are deduplicated preserving first occurrence.
func scanEntities(text string) []string {
	sample := truncateRunes(text, entityScanLimit)

	candidates := capitalizedSpans(sample)
	for _, re := range citationPatterns {
		candidates = append(candidates, re.FindAllString(sample, -1)...)
	}

	seen := map[string]struct{}{}
	entities := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) <= entityMinLength {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		entities = append(entities, c)
	}
	return entities
}

// capitalizedSpans collects runs of two or more capitalized words, allowing
// connector words inside a run. Edge connectors are trimmed so sentence
// leads like "The" do not stick to entities.
func capitalizedSpans(text string) []string {
	var spans []string
	var run []string

	flush := func() {
		for len(run) > 0 && connectorWords[strings.ToLower(run[0])] {
			run = run[1:]
		}
		for len(run) > 0 && connectorWords[strings.ToLower(run[len(run)-1])] {
			run = run[:len(run)-1]
		}
		if len(run) >= 2 && len(run) <= maxSpanWords {
			spans = append(spans, strings.Join(run, " "))
		}
		run = nil
	}

	for _, word := range strings.Fields(text) {
		clean := strings.Trim(word, `.,;:!?()[]{}"'`)
		switch {
		case isCapitalizedWord(clean):
			run = append(run, clean)
		case len(run) > 0 && connectorWords[strings.ToLower(clean)]:
			run = append(run, clean)
		default:
			flush()
		}
		// Sentence punctuation ends a run even after a capitalized word.
		if strings.ContainsAny(word, ".!?;") {
			flush()
		}
	}
	flush()

	return spans
}

func isCapitalizedWord(w string) bool {
	runes := []rune(w)
	if len(runes) < 2 {
		return false
	}
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

// mergeTerms combines entity and concept lists into the final search terms:
// case-insensitive deduplication keeping the first occurrence, dropping
// terms of mergeMinLength characters or fewer.
func mergeTerms(entities, concepts []string) []string {
	seen := map[string]struct{}{}
	merged := make([]string, 0, len(entities)+len(concepts))

	appendTerms := func(terms []string) {
		for _, t := range terms {
			t = strings.TrimSpace(t)
			if len(t) <= mergeMinLength {
				continue
			}
			key := strings.ToLower(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, t)
		}
	}
	appendTerms(entities)
	appendTerms(concepts)

	return merged
}

// parseConceptList splits a comma-separated model response into clean
// concept strings, capped at maxConcepts.
func parseConceptList(response string, maxConcepts int) []string {
	parts := strings.Split(response, ",")
	concepts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), `"'`))
		if p == "" {
			continue
		}
		concepts = append(concepts, p)
		if len(concepts) >= maxConcepts {
			break
		}
	}
	return concepts
}

func truncateRunes(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
