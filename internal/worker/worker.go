// Package worker provides the NATS worker that drives the document-to-speech
// pipeline and answers status and one-shot synthesis requests.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/doc-speech-service/internal/core"
	"github.com/book-expert/doc-speech-service/internal/pipeline"
	"github.com/book-expert/doc-speech-service/internal/ssml"
	"github.com/book-expert/doc-speech-service/internal/status"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// processDocumentTimeout bounds one full document run, including every
	// sequential synthesis and upload call.
	processDocumentTimeout = 10 * time.Minute

	// requestTimeout bounds one status or one-shot synthesis request.
	requestTimeout = 30 * time.Second

	oneShotKeyFormat = "web/%d-%s.mp3"
	shortIDLength    = 8

	outputFormatMP3        = "mp3"
	metadataKeyContentType = "content-type"
	contentTypeMPEG        = "audio/mpeg"

	msgTextRequired = "Please provide non-empty 'text'."
)

// Subjects names the NATS subjects the worker listens on.
type Subjects struct {
	DocUploaded string
	Status      string
	Speech      string
}

// Options bundles the collaborators and settings for a worker.
type Options struct {
	Conn         *nats.Conn
	Subjects     Subjects
	Orchestrator *pipeline.Orchestrator
	Probe        *status.Probe
	Synthesizer  core.Synthesizer
	Audio        core.ObjectStore
	Signer       core.URLSigner
	Defaults     core.Prosody
	Region       string
	URLTTL       time.Duration
	Log          *logger.Logger
}

// Worker subscribes to the service's NATS subjects and dispatches messages to
// the pipeline, the status probe, and the one-shot synthesizer. Failures are
// isolated per message: a failed document run never affects its siblings.
type Worker struct {
	conn         *nats.Conn
	subjects     Subjects
	orchestrator *pipeline.Orchestrator
	probe        *status.Probe
	synthesizer  core.Synthesizer
	audio        core.ObjectStore
	signer       core.URLSigner
	defaults     core.Prosody
	region       string
	urlTTL       time.Duration
	log          *logger.Logger
}

// New creates a worker from the given options.
func New(opts Options) (*Worker, error) {
	if opts.URLTTL <= 0 {
		opts.URLTTL = status.DefaultURLTTL
	}

	return &Worker{
		conn:         opts.Conn,
		subjects:     opts.Subjects,
		orchestrator: opts.Orchestrator,
		probe:        opts.Probe,
		synthesizer:  opts.Synthesizer,
		audio:        opts.Audio,
		signer:       opts.Signer,
		defaults:     opts.Defaults,
		region:       opts.Region,
		urlTTL:       opts.URLTTL,
		log:          opts.Log,
	}, nil
}

// Run subscribes to all subjects and blocks until the context is cancelled,
// then drains the subscriptions.
func (w *Worker) Run(ctx context.Context) error {
	subscriptions := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{w.subjects.DocUploaded, w.handleDocumentUploaded},
		{w.subjects.Status, w.handleStatusRequest},
		{w.subjects.Speech, w.handleSpeechRequest},
	}

	active := make([]*nats.Subscription, 0, len(subscriptions))

	for _, subscription := range subscriptions {
		sub, err := w.conn.Subscribe(subscription.subject, subscription.handler)
		if err != nil {
			return fmt.Errorf(
				"failed to subscribe to subject %s: %w",
				subscription.subject,
				err,
			)
		}

		active = append(active, sub)
	}

	<-ctx.Done()

	for _, sub := range active {
		drainErr := sub.Drain()
		if drainErr != nil {
			return fmt.Errorf("failed to drain subscription: %w", drainErr)
		}
	}

	return nil
}

// handleDocumentUploaded runs the pipeline for one uploaded document. Errors
// are logged and swallowed so a failing document cannot poison the
// subscription or sibling documents.
func (w *Worker) handleDocumentUploaded(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), processDocumentTimeout)
	defer cancel()

	var event DocumentUploadedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal document uploaded event: %v", err)

		return
	}

	if event.Key == "" {
		w.log.Error("Document uploaded event %s carries no key", event.Header.EventID)

		return
	}

	err = w.orchestrator.ProcessDocument(ctx, event.Key)
	if err != nil {
		w.log.Error("Failed to process document '%s': %v", event.Key, err)
	}
}

// handleStatusRequest resolves job readiness from the storage listing and
// replies with the result.
func (w *Worker) handleStatusRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var request StatusRequest

	err := json.Unmarshal(msg.Data, &request)
	if err != nil {
		w.respondError(msg, fmt.Sprintf("invalid status request: %v", err))

		return
	}

	candidates := status.Candidates(request.Key, request.Base)

	result, err := w.probe.Resolve(ctx, candidates, request.Debug)
	if err != nil {
		w.log.Error("Status check failed for key '%s': %v", request.Key, err)
		w.respondError(msg, "Status check failed")

		return
	}

	w.respond(msg, result)
}

// handleSpeechRequest synthesizes a single ad hoc payload, uploads it under
// the web/ prefix, and replies with a signed reference.
func (w *Worker) handleSpeechRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var request SpeechRequest

	err := json.Unmarshal(msg.Data, &request)
	if err != nil {
		w.respondError(msg, fmt.Sprintf("invalid speech request: %v", err))

		return
	}

	text := strings.TrimSpace(request.Text)
	if text == "" {
		w.respondError(msg, msgTextRequired)

		return
	}

	response, err := w.synthesizeOneShot(ctx, text, request)
	if err != nil {
		w.log.Error(
			"Failed to synthesize speech request %s: %v",
			request.Header.EventID,
			err,
		)
		w.respondError(msg, "Failed to synthesize")

		return
	}

	w.respond(msg, response)
}

func (w *Worker) synthesizeOneShot(
	ctx context.Context,
	text string,
	request SpeechRequest,
) (*SpeechResponse, error) {
	voice := request.VoiceID
	if voice == "" {
		voice = w.defaults.Voice
	}

	rate := request.Rate
	if rate == "" {
		rate = w.defaults.Rate
	}

	pitch := request.Pitch
	if pitch == "" {
		pitch = w.defaults.Pitch
	}

	payload, payloadType := ssml.Wrap(text, rate, pitch)

	input := core.SynthesisInput{
		Text:         payload,
		TextType:     payloadType,
		VoiceID:      voice,
		OutputFormat: outputFormatMP3,
	}

	audioData, err := w.synthesizer.Synthesize(
		ctx,
		input,
		strings.ToLower(request.Engine),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize one-shot payload: %w", err)
	}

	key := fmt.Sprintf(
		oneShotKeyFormat,
		time.Now().UnixMilli(),
		uuid.NewString()[:shortIDLength],
	)

	err = w.audio.Upload(ctx, key, audioData, map[string]string{
		metadataKeyContentType: contentTypeMPEG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload one-shot audio '%s': %w", key, err)
	}

	url, err := w.signer.SignGet(key, w.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign reference for '%s': %w", key, err)
	}

	return &SpeechResponse{
		URL:     url,
		Key:     key,
		VoiceID: voice,
		Region:  w.region,
	}, nil
}

func (w *Worker) respond(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error("Failed to marshal reply: %v", err)

		return
	}

	err = msg.Respond(data)
	if err != nil {
		w.log.Error("Failed to publish reply: %v", err)
	}
}

func (w *Worker) respondError(msg *nats.Msg, message string) {
	w.respond(msg, ErrorResponse{Message: message})
}
