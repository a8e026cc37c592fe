// Package ssml turns plain text segments into synthesis-ready SSML payloads.
package ssml

import (
	"fmt"
	"regexp"
	"strings"
)

// PayloadTypeSSML identifies a payload as structured speech markup.
const PayloadTypeSSML = "ssml"

// speakTagPattern detects input that already carries a speak root tag. Such
// input is assumed to be complete, self-contained SSML supplied by the caller.
var speakTagPattern = regexp.MustCompile(`(?i)<\s*speak[\s>]`)

// markupEscaper escapes the three characters that are significant to the
// markup parser.
var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// Wrap returns a synthesis-ready payload and its payload type.
//
// Text that already contains a speak tag is passed through unchanged, which
// makes Wrap idempotent: re-wrapping wrapped output is a no-op. Anything else
// is escaped and wrapped in a prosody element carrying rate and pitch.
func Wrap(text, rate, pitch string) (string, string) {
	if speakTagPattern.MatchString(text) {
		return text, PayloadTypeSSML
	}

	payload := fmt.Sprintf(
		`<speak><prosody rate="%s" pitch="%s">%s</prosody></speak>`,
		rate,
		pitch,
		markupEscaper.Replace(text),
	)

	return payload, PayloadTypeSSML
}
