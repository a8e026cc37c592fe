// Package pipeline drives one document through chunking, per-segment synthesis
// and upload, and manifest writing.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/book-expert/doc-speech-service/internal/chunker"
	"github.com/book-expert/doc-speech-service/internal/core"
	"github.com/book-expert/doc-speech-service/internal/ssml"
	"github.com/book-expert/doc-speech-service/internal/status"
	"github.com/book-expert/logger"
)

// Output naming scheme. Part keys are deterministic given the base name and
// the 1-based segment index, so a replayed run overwrites identical keys with
// identical content.
const (
	partKeyFormat     = "audio/%s/%s_%03d.mp3"
	manifestKeyFormat = "audio/%s/%s.manifest.json"
)

// Per-document prosody defaults, applied when the upload carried no metadata.
const (
	defaultVoice = "Joanna"
	defaultRate  = "medium"
	defaultPitch = "medium"
)

// Upload metadata keys. Lookup is case-insensitive.
const (
	metadataKeyVoice  = "voice"
	metadataKeyRate   = "rate"
	metadataKeyPitch  = "pitch"
	metadataKeyEngine = "engine"

	metadataKeyContentType = "content-type"
	contentTypeMPEG        = "audio/mpeg"
	contentTypeJSON        = "application/json"
	outputFormatMP3        = "mp3"
)

// Config holds the orchestrator's construction-time settings.
type Config struct {
	MaxSegmentChars int
	DefaultVoice    string
	DefaultRate     string
	DefaultPitch    string
}

// Orchestrator owns the full lifecycle of one document run: segments, audio
// parts and manifest. Runs for different documents share no mutable state.
type Orchestrator struct {
	documents   core.ObjectStore
	audio       core.ObjectStore
	synthesizer core.Synthesizer
	cfg         Config
	log         *logger.Logger
}

// NewOrchestrator creates a pipeline orchestrator. Zero config fields fall
// back to the fixed chunk limit and the standard prosody defaults.
func NewOrchestrator(
	documents core.ObjectStore,
	audio core.ObjectStore,
	synthesizer core.Synthesizer,
	cfg Config,
	log *logger.Logger,
) *Orchestrator {
	if cfg.MaxSegmentChars <= 0 {
		cfg.MaxSegmentChars = chunker.DefaultMaxChars
	}

	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = defaultVoice
	}

	if cfg.DefaultRate == "" {
		cfg.DefaultRate = defaultRate
	}

	if cfg.DefaultPitch == "" {
		cfg.DefaultPitch = defaultPitch
	}

	return &Orchestrator{
		documents:   documents,
		audio:       audio,
		synthesizer: synthesizer,
		cfg:         cfg,
		log:         log,
	}
}

// ProcessDocument converts one uploaded document into ordered audio parts plus
// a manifest.
//
// Keys without a supported extension are ignored without error. Segments are
// processed strictly sequentially: segment i+1 is synthesized only after part
// i has been written, which guarantees deterministic part ordering and avoids
// bursting the speech engine. The manifest is written only after every part
// succeeds; on failure the run is abandoned with the parts written so far left
// in place.
func (o *Orchestrator) ProcessDocument(ctx context.Context, key string) error {
	if !hasSupportedExtension(key) {
		o.log.Info("Ignoring object with unsupported extension: %s", key)

		return nil
	}

	text, prosody, tierPreference, err := o.fetchDocument(ctx, key)
	if err != nil {
		return err
	}

	segments, err := chunker.Split(text, o.cfg.MaxSegmentChars)
	if err != nil {
		return fmt.Errorf("failed to chunk document '%s': %w", key, err)
	}

	base := status.DeriveBase(key)

	parts, err := o.synthesizeSegments(ctx, key, base, segments, prosody, tierPreference)
	if err != nil {
		return err
	}

	err = o.writeManifest(ctx, key, base, prosody, parts)
	if err != nil {
		return err
	}

	o.log.Info("Converted %s into %d audio parts", key, len(parts))

	return nil
}

// fetchDocument downloads the source object and resolves its prosody
// parameters from the upload-time metadata.
func (o *Orchestrator) fetchDocument(
	ctx context.Context,
	key string,
) (string, core.Prosody, string, error) {
	data, err := o.documents.Download(ctx, key)
	if err != nil {
		return "", core.Prosody{}, "", fmt.Errorf(
			"failed to download document '%s': %w", key, err,
		)
	}

	metadata, err := o.documents.Metadata(ctx, key)
	if err != nil {
		return "", core.Prosody{}, "", fmt.Errorf(
			"failed to read metadata for '%s': %w", key, err,
		)
	}

	normalized := normalizeMetadata(metadata)

	prosody := core.Prosody{
		Voice: valueOrDefault(normalized, metadataKeyVoice, o.cfg.DefaultVoice),
		Rate:  valueOrDefault(normalized, metadataKeyRate, o.cfg.DefaultRate),
		Pitch: valueOrDefault(normalized, metadataKeyPitch, o.cfg.DefaultPitch),
	}

	tierPreference := strings.ToLower(normalized[metadataKeyEngine])

	return string(data), prosody, tierPreference, nil
}

// synthesizeSegments runs the strictly sequential wrap -> synthesize -> write
// loop and returns the ordered manifest parts.
func (o *Orchestrator) synthesizeSegments(
	ctx context.Context,
	key, base string,
	segments []chunker.Segment,
	prosody core.Prosody,
	tierPreference string,
) ([]ManifestPart, error) {
	parts := make([]ManifestPart, 0, len(segments))

	for _, segment := range segments {
		payload, payloadType := ssml.Wrap(segment.Text, prosody.Rate, prosody.Pitch)

		input := core.SynthesisInput{
			Text:         payload,
			TextType:     payloadType,
			VoiceID:      prosody.Voice,
			OutputFormat: outputFormatMP3,
		}

		audioData, err := o.synthesizer.Synthesize(ctx, input, tierPreference)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to synthesize segment %d of '%s': %w",
				segment.Index,
				key,
				err,
			)
		}

		partKey := fmt.Sprintf(partKeyFormat, base, base, segment.Index)

		err = o.audio.Upload(ctx, partKey, audioData, map[string]string{
			metadataKeyContentType: contentTypeMPEG,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"failed to upload part '%s': %w", partKey, err,
			)
		}

		parts = append(parts, ManifestPart{Index: segment.Index, Key: partKey})
	}

	return parts, nil
}

// writeManifest builds and uploads the terminal manifest artifact.
func (o *Orchestrator) writeManifest(
	ctx context.Context,
	key, base string,
	prosody core.Prosody,
	parts []ManifestPart,
) error {
	manifest := BuildManifest(o.documents.Bucket(), key, prosody, parts)

	encoded, err := manifest.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode manifest for '%s': %w", key, err)
	}

	manifestKey := fmt.Sprintf(manifestKeyFormat, base, base)

	err = o.audio.Upload(ctx, manifestKey, encoded, map[string]string{
		metadataKeyContentType: contentTypeJSON,
	})
	if err != nil {
		return fmt.Errorf("failed to upload manifest '%s': %w", manifestKey, err)
	}

	return nil
}

// hasSupportedExtension reports whether the key names a processable document.
func hasSupportedExtension(key string) bool {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

// normalizeMetadata lowercases metadata keys so lookup is case-insensitive.
func normalizeMetadata(metadata map[string]string) map[string]string {
	normalized := make(map[string]string, len(metadata))

	for key, value := range metadata {
		normalized[strings.ToLower(key)] = value
	}

	return normalized
}

func valueOrDefault(metadata map[string]string, key, fallback string) string {
	if value := metadata[key]; value != "" {
		return value
	}

	return fallback
}
