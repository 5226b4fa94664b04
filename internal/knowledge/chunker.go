package knowledge

import "strings"

// Default chunking parameters for case file indexing.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators is the cascade tried from coarsest to finest. The empty string
// is a hard rune cut and always succeeds.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks text into overlapping chunks, preferring to cut at
// paragraph, line, sentence and word boundaries in that order.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. Sizes are in runes. Non-positive or
// inconsistent values fall back to the defaults.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into chunks of at most chunkSize runes with overlap runes
// carried between consecutive chunks. Whitespace-only pieces are dropped.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	raw := s.split(text, separators)
	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// split recursively divides text using the first separator of seps that
// occurs in it, merging the pieces back into chunks near chunkSize. Pieces
// still too large descend to the next separator.
func (s *Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, cand := range seps {
		if cand == "" {
			sep = cand
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		parts = cutRunes(text, s.chunkSize)
	} else {
		parts = splitKeep(text, sep)
	}

	var final []string
	var pending []string
	for _, part := range parts {
		if runeLen(part) < s.chunkSize {
			pending = append(pending, part)
			continue
		}
		if len(pending) > 0 {
			final = append(final, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			final = append(final, part)
		} else {
			final = append(final, s.split(part, rest)...)
		}
	}
	if len(pending) > 0 {
		final = append(final, s.merge(pending)...)
	}
	return final
}

// merge greedily joins pieces into chunks of at most chunkSize runes and
// carries roughly overlap runes of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		if joined := strings.TrimSpace(strings.Join(window, "")); joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.chunkSize && len(window) > 0 {
			flush()
			// Retain trailing pieces as overlap for the next chunk.
			for total > s.overlap && len(window) > 0 {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	flush()
	return chunks
}

// splitKeep splits text by sep, keeping the separator attached to the
// preceding piece so merged chunks read naturally.
func splitKeep(text, sep string) []string {
	split := strings.Split(text, sep)
	parts := make([]string, 0, len(split))
	for i, p := range split {
		if i < len(split)-1 {
			p += sep
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// cutRunes hard-cuts text into size-rune slices.
func cutRunes(text string, size int) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

func runeLen(s string) int {
	return len([]rune(s))
}
