package ingestion_engine

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators are tried in priority order: paragraph, line, sentence, word.
var defaultSeparators = []string{"\n\n", "\n", ".", " "}

// TextSplitter cuts text into chunks of at most ChunkSize characters,
// preferring paragraph boundaries and falling back to smaller units only
// inside segments that are still too large.
//
// ChunkSize:    maximum characters per chunk.
// ChunkOverlap: maximum characters carried from the end of one chunk into the next.
type TextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string
}

// NewTextSplitter returns a splitter using the default separator ladder.
// Callers are expected to have validated size > overlap >= 0.
func NewTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	return &TextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split returns the chunks of text in order. The same input always yields
// the same output. A token with no separator in it that is longer than
// ChunkSize is returned whole.
func (s *TextSplitter) Split(text string) []string {
	var out []string
	for _, c := range s.splitText(text, s.separators) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *TextSplitter) splitText(text string, separators []string) []string {
	sep, rest, ok := pickSeparator(text, separators)
	if !ok {
		return []string{text}
	}

	// SplitAfter keeps the separator on the left piece so merged chunks are
	// exact substrings of the input.
	var (
		final []string
		small []string
	)
	flush := func() {
		if len(small) == 0 {
			return
		}
		prev := ""
		if len(final) > 0 {
			prev = final[len(final)-1]
		}
		final = append(final, s.merge(small, prev)...)
		small = nil
	}
	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		if runeLen(piece) <= s.ChunkSize {
			small = append(small, piece)
			continue
		}
		flush()
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, rest)...)
		}
	}
	flush()
	return final
}

// merge packs consecutive pieces into chunks. prev is the chunk that ends
// right before pieces[0], or "". When a chunk is emitted, the pieces at its
// tail that fit in ChunkOverlap seed the next one; when none fit, the seed
// is cut from the tail of the emitted chunk at a finer separator.
func (s *TextSplitter) merge(pieces []string, prev string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.ChunkSize && len(current) > 0 {
			prev = strings.Join(current, "")
			out = append(out, prev)
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		if len(current) == 0 && prev != "" {
			if seed := s.tail(prev, s.separators, min(s.ChunkOverlap, s.ChunkSize-n)); seed != "" {
				current = append(current, seed)
				total += runeLen(seed)
			}
		}
		current = append(current, p)
		total += n
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, ""))
	}
	return out
}

// tail returns the longest suffix of text made of whole separator-delimited
// pieces that fits in budget runes, descending to finer separators while
// only whitespace has been collected.
func (s *TextSplitter) tail(text string, separators []string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if runeLen(text) <= budget {
		return text
	}
	sep, rest, ok := pickSeparator(text, separators)
	if !ok {
		return ""
	}

	pieces := strings.SplitAfter(text, sep)
	out, used := "", 0
	for j := len(pieces) - 1; j >= 0; j-- {
		n := runeLen(pieces[j])
		if used+n <= budget {
			out = pieces[j] + out
			used += n
			continue
		}
		if strings.TrimSpace(out) == "" {
			out = s.tail(pieces[j], rest, budget-used) + out
		}
		break
	}
	return out
}

// pickSeparator returns the first separator present in text and the
// lower-priority separators after it.
func pickSeparator(text string, separators []string) (string, []string, bool) {
	for i, sep := range separators {
		if strings.Contains(text, sep) {
			return sep, separators[i+1:], true
		}
	}
	return "", nil, false
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
