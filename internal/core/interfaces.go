// Package core defines the interfaces and shared types for the document-to-speech
// pipeline.
package core

import (
	"context"
	"time"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Metadata(ctx context.Context, key string) (map[string]string, error)
	Upload(ctx context.Context, key string, data []byte, metadata map[string]string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Bucket() string
}

// SynthesisInput describes one synthesis-ready payload for the speech capability.
type SynthesisInput struct {
	Text         string
	TextType     string
	VoiceID      string
	OutputFormat string
}

// SpeechEngine is the raw synthesis capability at a single engine tier.
type SpeechEngine interface {
	Synthesize(ctx context.Context, input SynthesisInput, engine string) ([]byte, error)
}

// Synthesizer produces audio for one payload, handling engine tier selection
// and fallback internally.
type Synthesizer interface {
	Synthesize(ctx context.Context, input SynthesisInput, tierPreference string) ([]byte, error)
}

// URLSigner issues short-lived read references for stored objects.
type URLSigner interface {
	SignGet(key string, ttl time.Duration) (string, error)
}

// Prosody holds the per-document voice parameters applied uniformly to every
// segment of one document.
type Prosody struct {
	Voice string
	Rate  string
	Pitch string
}
