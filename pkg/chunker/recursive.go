package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/chatrag/chatrag/pkg/models"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter splits text on the first separator present, recursing into
// pieces that are still too long with the remaining separators, then merges
// neighbouring pieces back up to ChunkSize runes with ChunkOverlap runes of
// trailing context carried into the next chunk.
//
// Every chunk is at most ChunkSize runes, except a piece that cannot be split
// further because no separators remain. The empty separator splits into single
// runes, so with DefaultSeparators that never happens.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewRecursiveSplitter validates the sizes. A nil separators slice selects DefaultSeparators.
func NewRecursiveSplitter(chunkSize, chunkOverlap int, separators []string) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, models.NewPreconditionError("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, models.NewPreconditionError(
			"chunk overlap (%d) must be at least 0 and smaller than chunk size (%d)",
			chunkOverlap, chunkSize,
		)
	}
	if separators == nil {
		separators = DefaultSeparators
	}
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   separators,
	}, nil
}

func (s *RecursiveSplitter) Split(text string) []models.Chunk {
	return toChunks(s.SplitText(text))
}

// SplitText returns the chunk texts in document order.
func (s *RecursiveSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := ""
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			remaining = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
		// no separator matched yet; keep the last one in case none match
		separator = sep
		remaining = separators[i+1:]
	}

	pieces := splitOn(text, separator)

	final := make([]string, 0)
	good := make([]string, 0)
	for _, p := range pieces {
		if runeLen(p) < s.ChunkSize {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = good[:0]
		}
		if len(remaining) == 0 {
			if strings.TrimSpace(p) != "" {
				final = append(final, p)
			}
			continue
		}
		final = append(final, s.split(p, remaining)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}

	return final
}

// merge packs pieces into chunks no longer than ChunkSize, dropping pieces from the
// front of the window until at most ChunkOverlap runes remain before starting the next.
func (s *RecursiveSplitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	docs := make([]string, 0)
	window := make([]string, 0)
	total := 0

	joinLen := func() int {
		if len(window) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		pLen := runeLen(p)
		if total+pLen+joinLen() > s.ChunkSize {
			if len(window) > 0 {
				if doc := joinTrimmed(window, separator); doc != "" {
					docs = append(docs, doc)
				}
				for total > s.ChunkOverlap || (total > 0 && total+pLen+joinLen() > s.ChunkSize) {
					drop := runeLen(window[0])
					if len(window) > 1 {
						drop += sepLen
					}
					total -= drop
					window = window[1:]
				}
			}
		}
		window = append(window, p)
		total += pLen
		if len(window) > 1 {
			total += sepLen
		}
	}

	if doc := joinTrimmed(window, separator); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

func splitOn(text, separator string) []string {
	var raw []string
	if separator == "" {
		raw = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			raw = append(raw, string(r))
		}
	} else {
		raw = strings.Split(text, separator)
	}

	pieces := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func joinTrimmed(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
