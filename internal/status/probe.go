package status

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/book-expert/doc-speech-service/internal/core"
)

const (
	audioPrefixFormat = "audio/%s/"
	suffixMP3         = ".mp3"
	suffixManifest    = ".manifest.json"

	// DefaultURLTTL is how long signed references stay valid.
	DefaultURLTTL = time.Hour
)

// SignedObject is one stored object exposed through a short-lived signed
// reference.
type SignedObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// PrefixProbe records one candidate prefix listing for debug output.
type PrefixProbe struct {
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// DebugInfo lists the candidate prefixes tried and their object counts.
type DebugInfo struct {
	Tried []PrefixProbe `json:"tried"`
}

// Result is the outcome of a status query. A not-ready result carries only the
// Ready flag (and debug information when requested); it is the expected state
// for an in-progress or not-yet-started job, not an error.
type Result struct {
	Ready    bool           `json:"ready"`
	Base     string         `json:"base,omitempty"`
	MP3      []SignedObject `json:"mp3,omitempty"`
	Manifest *string        `json:"manifest,omitempty"`
	Region   string         `json:"region,omitempty"`
	Debug    *DebugInfo     `json:"debug,omitempty"`
}

// Probe answers status queries by listing candidate output prefixes in order
// and signing references to whatever the pipeline has written so far.
type Probe struct {
	audio  core.ObjectStore
	signer core.URLSigner
	region string
	urlTTL time.Duration
}

// NewProbe creates a status probe over the audio output store. A zero urlTTL
// falls back to DefaultURLTTL.
func NewProbe(
	audio core.ObjectStore,
	signer core.URLSigner,
	region string,
	urlTTL time.Duration,
) *Probe {
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}

	return &Probe{
		audio:  audio,
		signer: signer,
		region: region,
		urlTTL: urlTTL,
	}
}

// Resolve probes each candidate base name in order and returns the first one
// whose prefix holds any audio part or manifest. A partially populated prefix
// still counts as a match: callers decide full readiness from the returned
// part list and manifest reference.
func (p *Probe) Resolve(
	ctx context.Context,
	candidates []string,
	includeDebug bool,
) (*Result, error) {
	var tried []PrefixProbe

	for _, base := range candidates {
		prefix := fmt.Sprintf(audioPrefixFormat, base)

		keys, err := p.audio.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list prefix '%s': %w", prefix, err)
		}

		tried = append(tried, PrefixProbe{Prefix: prefix, Count: len(keys)})

		mp3Keys, manifestKey := classifyKeys(keys)
		if len(mp3Keys) == 0 && manifestKey == "" {
			continue
		}

		result, err := p.signResult(base, mp3Keys, manifestKey)
		if err != nil {
			return nil, err
		}

		if includeDebug {
			result.Debug = &DebugInfo{Tried: tried}
		}

		return result, nil
	}

	result := &Result{Ready: false}
	if includeDebug {
		result.Debug = &DebugInfo{Tried: tried}
	}

	return result, nil
}

// classifyKeys separates a prefix listing into sorted audio part keys and the
// manifest key, if present. The zero-padded part index makes the lexicographic
// sort equivalent to numeric part order.
func classifyKeys(keys []string) ([]string, string) {
	var mp3Keys []string

	manifestKey := ""

	for _, key := range keys {
		switch {
		case strings.HasSuffix(key, suffixManifest):
			if manifestKey == "" {
				manifestKey = key
			}
		case strings.HasSuffix(key, suffixMP3):
			mp3Keys = append(mp3Keys, key)
		}
	}

	sort.Strings(mp3Keys)

	return mp3Keys, manifestKey
}

func (p *Probe) signResult(base string, mp3Keys []string, manifestKey string) (*Result, error) {
	signed := make([]SignedObject, 0, len(mp3Keys))

	for _, key := range mp3Keys {
		url, err := p.signer.SignGet(key, p.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to sign reference for '%s': %w", key, err)
		}

		signed = append(signed, SignedObject{Key: key, URL: url})
	}

	var manifest *string

	if manifestKey != "" {
		url, err := p.signer.SignGet(manifestKey, p.urlTTL)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to sign manifest reference for '%s': %w",
				manifestKey,
				err,
			)
		}

		manifest = &url
	}

	return &Result{
		Ready:    true,
		Base:     base,
		MP3:      signed,
		Manifest: manifest,
		Region:   p.region,
	}, nil
}
