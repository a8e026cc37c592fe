package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/book-expert/doc-speech-service/internal/core"
)

// engineAuto records that the manifest's parts were produced through automatic
// tier fallback; the tier that actually succeeded is not tracked per part.
const engineAuto = "auto"

// ManifestPart describes one audio part in synthesis order.
type ManifestPart struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
}

// Manifest is the terminal artifact of a successful document run. It is built
// once, after every segment has been synthesized and written, and lists the
// parts in strictly increasing index order.
type Manifest struct {
	SourceBucket string         `json:"source_bucket"`
	SourceKey    string         `json:"source_key"`
	Voice        string         `json:"voice"`
	Rate         string         `json:"rate"`
	Pitch        string         `json:"pitch"`
	Engine       string         `json:"engine"`
	Parts        []ManifestPart `json:"parts"`
}

// BuildManifest folds the ordered per-segment results into one manifest
// document.
func BuildManifest(
	sourceBucket, sourceKey string,
	prosody core.Prosody,
	parts []ManifestPart,
) Manifest {
	return Manifest{
		SourceBucket: sourceBucket,
		SourceKey:    sourceKey,
		Voice:        prosody.Voice,
		Rate:         prosody.Rate,
		Pitch:        prosody.Pitch,
		Engine:       engineAuto,
		Parts:        parts,
	}
}

// Encode renders the manifest as indented JSON.
func (m Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	return data, nil
}
