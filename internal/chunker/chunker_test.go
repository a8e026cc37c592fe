// Package chunker_test tests the document text segmenter.
package chunker_test

import (
	"strings"
	"testing"

	"github.com/book-expert/doc-speech-service/internal/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_RejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	_, err := chunker.Split("some text", 0)
	require.ErrorIs(t, err, chunker.ErrLimitNotPositive)

	_, err = chunker.Split("some text", -1)
	require.ErrorIs(t, err, chunker.ErrLimitNotPositive)
}

func TestSplit_SmallDocumentYieldsOneSegment(t *testing.T) {
	t.Parallel()

	segments, err := chunker.Split("A short document.", 3000)
	require.NoError(t, err)

	require.Len(t, segments, 1)
	assert.Equal(t, 1, segments[0].Index)
	assert.Equal(t, "A short document.", segments[0].Text)
}

func TestSplit_AccumulatesParagraphsUpToLimit(t *testing.T) {
	t.Parallel()

	document := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."

	segments, err := chunker.Split(document, 3000)
	require.NoError(t, err)

	require.Len(t, segments, 1)
	assert.Equal(
		t,
		"First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
		segments[0].Text,
	)
}

func TestSplit_FlushesEarlyWithinSafetyMargin(t *testing.T) {
	t.Parallel()

	// Each paragraph fits alongside the other within the limit, but the
	// buffer crosses the early-flush threshold (limit minus 200) after the
	// first one.
	first := strings.Repeat("a", 120)
	second := strings.Repeat("b", 120)

	segments, err := chunker.Split(first+"\n\n"+second, 300)
	require.NoError(t, err)

	require.Len(t, segments, 2)
	assert.Equal(t, first, segments[0].Text)
	assert.Equal(t, second, segments[1].Text)
}

func TestSplit_FallsBackToSentenceBoundaries(t *testing.T) {
	t.Parallel()

	// One paragraph over the limit, made of sentences that fit individually.
	sentence := "This sentence fills some of the available room in a segment."
	paragraph := strings.TrimSpace(strings.Repeat(sentence+" ", 10))

	limit := 200

	segments, err := chunker.Split(paragraph, limit)
	require.NoError(t, err)

	require.Greater(t, len(segments), 1)

	for _, segment := range segments {
		assert.LessOrEqual(t, len(segment.Text), limit)
		assert.NotEmpty(t, segment.Text)
	}
}

func TestSplit_HardSplitsOversizedSentence(t *testing.T) {
	t.Parallel()

	// No internal sentence boundary and no whitespace: must be sliced into
	// pieces of exactly the limit, except possibly the last.
	sentence := strings.Repeat("x", 10)

	segments, err := chunker.Split(sentence, 4)
	require.NoError(t, err)

	require.Len(t, segments, 3)
	assert.Equal(t, "xxxx", segments[0].Text)
	assert.Equal(t, "xxxx", segments[1].Text)
	assert.Equal(t, "xx", segments[2].Text)
}

func TestSplit_EmptyDocumentStillYieldsOneSegment(t *testing.T) {
	t.Parallel()

	segments, err := chunker.Split("", 3000)
	require.NoError(t, err)

	require.Len(t, segments, 1)
	assert.Equal(t, 1, segments[0].Index)
	assert.Empty(t, segments[0].Text)
}

func TestSplit_WhitespaceOnlyDocumentYieldsOneSegment(t *testing.T) {
	t.Parallel()

	segments, err := chunker.Split("   \n\n   ", 3000)
	require.NoError(t, err)

	require.Len(t, segments, 1)
}

func TestSplit_IndicesAreContiguousAndOneBased(t *testing.T) {
	t.Parallel()

	document := strings.TrimSpace(strings.Repeat("Hello world. ", 500))

	segments, err := chunker.Split(document, 3000)
	require.NoError(t, err)

	require.NotEmpty(t, segments)

	for position, segment := range segments {
		assert.Equal(t, position+1, segment.Index)
		assert.LessOrEqual(t, len(segment.Text), 3000)
	}
}

func TestSplit_ReconstructsContentModuloWhitespace(t *testing.T) {
	t.Parallel()

	document := "One two three.\n\nFour five six! Seven eight.\n\n" +
		strings.TrimSpace(strings.Repeat("Nine ten. ", 100))

	segments, err := chunker.Split(document, 120)
	require.NoError(t, err)

	var joined strings.Builder

	for _, segment := range segments {
		joined.WriteString(segment.Text)
		joined.WriteString(" ")
	}

	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}

	assert.Equal(t, normalize(document), normalize(joined.String()))
}
