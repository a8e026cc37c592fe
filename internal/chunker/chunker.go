// Package chunker splits document text into ordered, size-bounded segments that
// are safe to hand to a speech engine one at a time.
//
// Splitting prefers natural boundaries: blank-line paragraph breaks first, then
// sentence boundaries, and only as a last resort fixed-size slices of a single
// oversized sentence.
package chunker

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// DefaultMaxChars keeps each segment under the speech engine's documented
	// per-request character ceiling.
	DefaultMaxChars = 3000

	// flushMargin leaves headroom below the hard limit so a buffer close to
	// full is flushed before the next unit is considered.
	flushMargin = 200

	paragraphSeparator = "\n\n"
	sentenceSeparator  = " "
)

// ErrLimitNotPositive indicates that the segment size limit is zero or negative.
var ErrLimitNotPositive = errors.New("segment size limit must be positive")

var paragraphBreakPattern = regexp.MustCompile(`\n{2,}`)

// Segment is one ordered, size-bounded piece of a document's text. Index is
// 1-based and contiguous across the returned sequence.
type Segment struct {
	Index int
	Text  string
}

// Split divides text into segments of at most maxChars characters each.
//
// Paragraphs are accumulated greedily; a paragraph that cannot fit is split at
// sentence boundaries, and a single sentence longer than maxChars is sliced
// into pieces of exactly maxChars. The result never contains empty segments
// and is never empty itself: an input that yields no natural segments produces
// one segment holding at most maxChars characters of the raw input.
func Split(text string, maxChars int) ([]Segment, error) {
	if maxChars <= 0 {
		return nil, ErrLimitNotPositive
	}

	var parts []string

	buffer := ""

	flush := func() {
		trimmed := strings.TrimSpace(buffer)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}

		buffer = ""
	}

	for _, paragraph := range paragraphBreakPattern.Split(text, -1) {
		if len(buffer)+len(paragraphSeparator)+len(paragraph) <= maxChars {
			buffer = appendUnit(buffer, paragraphSeparator, paragraph)
		} else {
			for _, sentence := range splitSentences(paragraph) {
				if len(buffer)+len(sentenceSeparator)+len(sentence) <= maxChars {
					buffer = appendUnit(buffer, sentenceSeparator, sentence)

					continue
				}

				flush()

				if len(sentence) > maxChars {
					parts = append(parts, sliceFixed(sentence, maxChars)...)
				} else {
					buffer = sentence
				}
			}
		}

		// Flush early once the buffer is within the safety margin of the
		// limit, leaving headroom for later concatenation.
		if len(buffer) >= maxChars-flushMargin {
			flush()
		}
	}

	flush()

	if len(parts) == 0 {
		fallback := text
		if len(fallback) > maxChars {
			fallback = fallback[:maxChars]
		}

		parts = append(parts, fallback)
	}

	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		segments = append(segments, Segment{Index: i + 1, Text: part})
	}

	return segments, nil
}

// appendUnit joins the next text unit onto the buffer with the given separator,
// omitting the separator when the buffer is still empty.
func appendUnit(buffer, separator, unit string) string {
	if buffer == "" {
		return unit
	}

	return buffer + separator + unit
}

// splitSentences splits a paragraph after each sentence-ending punctuation mark
// that is followed by whitespace. The punctuation stays attached to its
// sentence and the separating whitespace is consumed.
func splitSentences(paragraph string) []string {
	var sentences []string

	start := 0
	position := 0

	for position < len(paragraph) {
		if isSentenceEnd(paragraph[position]) &&
			position+1 < len(paragraph) &&
			isWhitespace(paragraph[position+1]) {
			sentences = append(sentences, paragraph[start:position+1])

			next := position + 1
			for next < len(paragraph) && isWhitespace(paragraph[next]) {
				next++
			}

			start = next
			position = next

			continue
		}

		position++
	}

	if start < len(paragraph) {
		sentences = append(sentences, paragraph[start:])
	}

	return sentences
}

// sliceFixed cuts an indivisible run of text into pieces of exactly size
// characters, except possibly the last.
func sliceFixed(text string, size int) []string {
	pieces := make([]string, 0, (len(text)+size-1)/size)

	for offset := 0; offset < len(text); offset += size {
		end := offset + size
		if end > len(text) {
			end = len(text)
		}

		pieces = append(pieces, text[offset:end])
	}

	return pieces
}

func isSentenceEnd(character byte) bool {
	return character == '.' || character == '!' || character == '?'
}

func isWhitespace(character byte) bool {
	switch character {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}
