// Package pipeline_test tests the document orchestrator and manifest builder.
package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/book-expert/doc-speech-service/internal/core"
	"github.com/book-expert/doc-speech-service/internal/pipeline"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errMockSynthesis = errors.New("mock synthesis error")
	errMockUpload    = errors.New("mock upload error")
)

// mockStore is an in-memory object store that records uploads in order.
type mockStore struct {
	bucket      string
	objects     map[string][]byte
	metadata    map[string]map[string]string
	uploadOrder []string
	failUploads bool
}

func newMockStore(bucket string) *mockStore {
	return &mockStore{
		bucket:      bucket,
		objects:     make(map[string][]byte),
		metadata:    make(map[string]map[string]string),
		uploadOrder: nil,
		failUploads: false,
	}
}

func (m *mockStore) Download(_ context.Context, key string) ([]byte, error) {
	data, found := m.objects[key]
	if !found {
		return nil, fmt.Errorf("object not found: %s", key)
	}

	return data, nil
}

func (m *mockStore) Metadata(_ context.Context, key string) (map[string]string, error) {
	if _, found := m.objects[key]; !found {
		return nil, fmt.Errorf("object not found: %s", key)
	}

	return m.metadata[key], nil
}

func (m *mockStore) Upload(
	_ context.Context,
	key string,
	data []byte,
	metadata map[string]string,
) error {
	if m.failUploads {
		return errMockUpload
	}

	m.objects[key] = data
	m.metadata[key] = metadata
	m.uploadOrder = append(m.uploadOrder, key)

	return nil
}

func (m *mockStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (m *mockStore) Bucket() string {
	return m.bucket
}

// mockSynthesizer records inputs and can fail on a chosen call number.
type mockSynthesizer struct {
	inputs      []core.SynthesisInput
	preferences []string
	failOnCall  int
}

func (m *mockSynthesizer) Synthesize(
	_ context.Context,
	input core.SynthesisInput,
	tierPreference string,
) ([]byte, error) {
	m.inputs = append(m.inputs, input)
	m.preferences = append(m.preferences, tierPreference)

	if m.failOnCall > 0 && len(m.inputs) == m.failOnCall {
		return nil, errMockSynthesis
	}

	return []byte(fmt.Sprintf("audio-%03d", len(m.inputs))), nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "pipeline-test.log")
	require.NoError(t, err)

	return log
}

func setupOrchestrator(t *testing.T) (*pipeline.Orchestrator, *mockStore, *mockStore, *mockSynthesizer) {
	t.Helper()

	documents := newMockStore("documents")
	audio := newMockStore("audio-output")
	synthesizer := &mockSynthesizer{inputs: nil, preferences: nil, failOnCall: 0}

	orchestrator := pipeline.NewOrchestrator(
		documents,
		audio,
		synthesizer,
		pipeline.Config{
			MaxSegmentChars: 0,
			DefaultVoice:    "",
			DefaultRate:     "",
			DefaultPitch:    "",
		},
		newTestLogger(t),
	)

	return orchestrator, documents, audio, synthesizer
}

func TestProcessDocument_IgnoresUnsupportedExtensions(t *testing.T) {
	t.Parallel()

	orchestrator, _, audio, synthesizer := setupOrchestrator(t)

	err := orchestrator.ProcessDocument(context.Background(), "incoming/archive.zip")
	require.NoError(t, err)

	assert.Empty(t, synthesizer.inputs)
	assert.Empty(t, audio.uploadOrder)
}

func TestProcessDocument_ProducesOrderedPartsAndManifest(t *testing.T) {
	t.Parallel()

	orchestrator, documents, audio, _ := setupOrchestrator(t)

	key := "incoming/1699999999-report.txt"
	documents.objects[key] = []byte(strings.Repeat("Hello world. ", 500))
	documents.metadata[key] = map[string]string{"Voice": "Matthew", "RATE": "slow"}

	err := orchestrator.ProcessDocument(context.Background(), key)
	require.NoError(t, err)

	manifestKey := "audio/1699999999-report/1699999999-report.manifest.json"
	manifestData, found := audio.objects[manifestKey]
	require.True(t, found, "manifest should be written")

	var manifest pipeline.Manifest

	require.NoError(t, json.Unmarshal(manifestData, &manifest))

	assert.Equal(t, "documents", manifest.SourceBucket)
	assert.Equal(t, key, manifest.SourceKey)
	assert.Equal(t, "Matthew", manifest.Voice)
	assert.Equal(t, "slow", manifest.Rate)
	assert.Equal(t, "medium", manifest.Pitch)
	assert.Equal(t, "auto", manifest.Engine)

	require.NotEmpty(t, manifest.Parts)

	for position, part := range manifest.Parts {
		assert.Equal(t, position+1, part.Index)

		expectedKey := fmt.Sprintf(
			"audio/1699999999-report/1699999999-report_%03d.mp3",
			part.Index,
		)
		assert.Equal(t, expectedKey, part.Key)

		_, written := audio.objects[part.Key]
		assert.True(t, written, "part %s should be written", part.Key)
	}

	// The manifest is the terminal artifact: every part upload precedes it.
	require.NotEmpty(t, audio.uploadOrder)
	assert.Equal(t, manifestKey, audio.uploadOrder[len(audio.uploadOrder)-1])
	assert.Len(t, audio.uploadOrder, len(manifest.Parts)+1)
}

func TestProcessDocument_WrapsSegmentsBeforeSynthesis(t *testing.T) {
	t.Parallel()

	orchestrator, documents, _, synthesizer := setupOrchestrator(t)

	key := "incoming/short.txt"
	documents.objects[key] = []byte("Just one short sentence.")
	documents.metadata[key] = nil

	err := orchestrator.ProcessDocument(context.Background(), key)
	require.NoError(t, err)

	require.Len(t, synthesizer.inputs, 1)
	assert.Equal(t, "ssml", synthesizer.inputs[0].TextType)
	assert.Contains(t, synthesizer.inputs[0].Text, "<speak>")
	assert.Contains(t, synthesizer.inputs[0].Text, "Just one short sentence.")
	assert.Equal(t, "Joanna", synthesizer.inputs[0].VoiceID)
	assert.Equal(t, "mp3", synthesizer.inputs[0].OutputFormat)
}

func TestProcessDocument_MetadataLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	orchestrator, documents, _, synthesizer := setupOrchestrator(t)

	key := "incoming/notes.md"
	documents.objects[key] = []byte("Some notes.")
	documents.metadata[key] = map[string]string{
		"VOICE":  "Amy",
		"Engine": "Standard",
	}

	err := orchestrator.ProcessDocument(context.Background(), key)
	require.NoError(t, err)

	require.Len(t, synthesizer.inputs, 1)
	assert.Equal(t, "Amy", synthesizer.inputs[0].VoiceID)
	assert.Equal(t, "standard", synthesizer.preferences[0])
}

func TestProcessDocument_SynthesisFailureAbandonsRunWithoutManifest(t *testing.T) {
	t.Parallel()

	orchestrator, documents, audio, synthesizer := setupOrchestrator(t)
	synthesizer.failOnCall = 2

	key := "incoming/big.txt"
	documents.objects[key] = []byte(strings.Repeat("Hello world. ", 500))
	documents.metadata[key] = nil

	err := orchestrator.ProcessDocument(context.Background(), key)
	require.ErrorIs(t, err, errMockSynthesis)

	// The first part stays in storage; no manifest is ever written.
	_, firstWritten := audio.objects["audio/big/big_001.mp3"]
	assert.True(t, firstWritten)

	_, manifestWritten := audio.objects["audio/big/big.manifest.json"]
	assert.False(t, manifestWritten)
}

func TestProcessDocument_UploadFailureIsSurfaced(t *testing.T) {
	t.Parallel()

	orchestrator, documents, audio, _ := setupOrchestrator(t)
	audio.failUploads = true

	key := "incoming/doc.txt"
	documents.objects[key] = []byte("Content.")
	documents.metadata[key] = nil

	err := orchestrator.ProcessDocument(context.Background(), key)
	require.ErrorIs(t, err, errMockUpload)
}

func TestProcessDocument_MissingDocumentIsAnError(t *testing.T) {
	t.Parallel()

	orchestrator, _, _, _ := setupOrchestrator(t)

	err := orchestrator.ProcessDocument(context.Background(), "incoming/absent.txt")
	require.Error(t, err)
}

func TestProcessDocument_EmptyDocumentStillProducesOnePart(t *testing.T) {
	t.Parallel()

	orchestrator, documents, audio, synthesizer := setupOrchestrator(t)

	key := "incoming/empty.txt"
	documents.objects[key] = []byte("")
	documents.metadata[key] = nil

	err := orchestrator.ProcessDocument(context.Background(), key)
	require.NoError(t, err)

	require.Len(t, synthesizer.inputs, 1)

	_, partWritten := audio.objects["audio/empty/empty_001.mp3"]
	assert.True(t, partWritten)
}

func TestBuildManifest_Shape(t *testing.T) {
	t.Parallel()

	manifest := pipeline.BuildManifest(
		"documents",
		"incoming/x.txt",
		core.Prosody{Voice: "Joanna", Rate: "medium", Pitch: "medium"},
		[]pipeline.ManifestPart{{Index: 1, Key: "audio/x/x_001.mp3"}},
	)

	encoded, err := manifest.Encode()
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, "documents", decoded["source_bucket"])
	assert.Equal(t, "incoming/x.txt", decoded["source_key"])
	assert.Equal(t, "auto", decoded["engine"])
	assert.Contains(t, decoded, "parts")
}
