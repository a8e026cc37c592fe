// doc-speech-cli submits documents to the pipeline and polls job status over
// NATS. It is an operator tool: it uploads a local .txt/.md file into the
// document bucket, announces it on the upload subject, and can later query the
// status subject with the returned key.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/doc-speech-service/internal/config"
	"github.com/book-expert/doc-speech-service/internal/objectstore"
	"github.com/book-expert/doc-speech-service/internal/worker"
	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Flag names and descriptions.
const (
	flagFile       = "file"
	flagVoice      = "voice"
	flagRate       = "rate"
	flagPitch      = "pitch"
	flagStatusKey  = "status"
	flagBase       = "base"
	flagDebug      = "debug"
	flagFileDesc   = "Path to a .txt or .md document to submit"
	flagVoiceDesc  = "Voice for synthesis"
	flagRateDesc   = "Prosody rate (e.g. medium, +10%)"
	flagPitchDesc  = "Prosody pitch (e.g. medium, +2st)"
	flagStatusDesc = "Input object key to query status for"
	flagBaseDesc   = "Explicit base name override for the status query"
	flagDebugDesc  = "Include probed prefixes in the status reply"
)

// Error and log messages.
const (
	errEitherFileOrStatus = "either --file or --status must be provided"
	errCannotSpecifyBoth  = "cannot specify both --file and --status"

	requestTimeout = 10 * time.Second
)

var errUsage = errors.New(errEitherFileOrStatus)

var errBothModes = errors.New(errCannotSpecifyBoth)

type appFlags struct {
	file   string
	voice  string
	rate   string
	pitch  string
	status string
	base   string
	debug  bool
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	err := validateFlags(flags)
	if err != nil {
		return err
	}

	bootstrapLog, err := logger.New(os.TempDir(), "doc-speech-cli.log")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer bootstrapLog.Close()

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	if flags.file != "" {
		return submitDocument(natsConnection, cfg, flags)
	}

	return queryStatus(natsConnection, cfg, flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.rate, flagRate, "", flagRateDesc)
	flag.StringVar(&flags.pitch, flagPitch, "", flagPitchDesc)
	flag.StringVar(&flags.status, flagStatusKey, "", flagStatusDesc)
	flag.StringVar(&flags.base, flagBase, "", flagBaseDesc)
	flag.BoolVar(&flags.debug, flagDebug, false, flagDebugDesc)
	flag.Parse()

	return flags
}

func validateFlags(flags appFlags) error {
	if flags.file == "" && flags.status == "" {
		return errUsage
	}

	if flags.file != "" && flags.status != "" {
		return errBothModes
	}

	return nil
}

// submitDocument uploads the file into the document bucket under the
// incoming/ prefix and announces it on the upload subject.
func submitDocument(natsConnection *nats.Conn, cfg *config.Config, flags appFlags) error {
	content, err := os.ReadFile(flags.file)
	if err != nil {
		return fmt.Errorf("failed to read document '%s': %w", flags.file, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	documents, err := objectstore.New(jetstreamContext, cfg.NATS.DocumentBucket)
	if err != nil {
		return fmt.Errorf("failed to open document bucket: %w", err)
	}

	key := fmt.Sprintf(
		"incoming/%d-%s",
		time.Now().UnixMilli(),
		filepath.Base(flags.file),
	)

	metadata := map[string]string{}
	if flags.voice != "" {
		metadata["voice"] = flags.voice
	}

	if flags.rate != "" {
		metadata["rate"] = flags.rate
	}

	if flags.pitch != "" {
		metadata["pitch"] = flags.pitch
	}

	err = documents.Upload(context.Background(), key, content, metadata)
	if err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}

	event := worker.DocumentUploadedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		Bucket: cfg.NATS.DocumentBucket,
		Key:    key,
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal upload event: %w", err)
	}

	err = natsConnection.Publish(cfg.NATS.DocUploadedSubject, eventData)
	if err != nil {
		return fmt.Errorf("failed to publish upload event: %w", err)
	}

	fmt.Printf("Submitted %s as %s\n", flags.file, key)

	return nil
}

// queryStatus sends one status request and prints the raw JSON reply.
func queryStatus(natsConnection *nats.Conn, cfg *config.Config, flags appFlags) error {
	request := worker.StatusRequest{
		Key:   flags.status,
		Base:  flags.base,
		Debug: flags.debug,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal status request: %w", err)
	}

	reply, err := natsConnection.Request(
		cfg.NATS.StatusSubject,
		requestData,
		requestTimeout,
	)
	if err != nil {
		return fmt.Errorf("status request failed: %w", err)
	}

	fmt.Println(string(reply.Data))

	return nil
}
