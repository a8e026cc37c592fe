// main package for the doc-speech-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/doc-speech-service/internal/config"
	"github.com/book-expert/doc-speech-service/internal/core"
	"github.com/book-expert/doc-speech-service/internal/objectstore"
	"github.com/book-expert/doc-speech-service/internal/pipeline"
	"github.com/book-expert/doc-speech-service/internal/signer"
	"github.com/book-expert/doc-speech-service/internal/status"
	"github.com/book-expert/doc-speech-service/internal/synth"
	"github.com/book-expert/doc-speech-service/internal/worker"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "doc-speech-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If the bootstrap logger fails, we can only print to stderr.
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator.
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Initialize the final logger based on the loaded configuration.
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	serviceWorker, err := buildWorker(cfg, natsConnection, jetstreamContext, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	log.System(
		"doc-speech-service initialized. Listening for uploads on subject: %s",
		cfg.NATS.DocUploadedSubject,
	)

	err = serviceWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker exited with error: %w", err)
	}

	return nil
}

func buildWorker(
	cfg *config.Config,
	natsConnection *nats.Conn,
	jetstreamContext nats.JetStreamContext,
	log *logger.Logger,
) (*worker.Worker, error) {
	documents, err := objectstore.New(jetstreamContext, cfg.NATS.DocumentBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open document bucket: %w", err)
	}

	audio, err := objectstore.New(jetstreamContext, cfg.NATS.AudioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio bucket: %w", err)
	}

	engine := synth.NewHTTPEngine(
		cfg.Synthesis.ServiceURL,
		time.Duration(cfg.Synthesis.TimeoutSeconds)*time.Second,
	)
	synthesizer := synth.NewTiered(engine, log)

	urlSigner, err := signer.New(cfg.Signing.Secret, cfg.Signing.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create URL signer: %w", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		documents,
		audio,
		synthesizer,
		pipeline.Config{
			MaxSegmentChars: 0,
			DefaultVoice:    cfg.Synthesis.DefaultVoice,
			DefaultRate:     cfg.Synthesis.DefaultRate,
			DefaultPitch:    cfg.Synthesis.DefaultPitch,
		},
		log,
	)

	urlTTL := time.Duration(cfg.Signing.URLTTLSeconds) * time.Second
	probe := status.NewProbe(audio, urlSigner, cfg.Service.Region, urlTTL)

	serviceWorker, err := worker.New(worker.Options{
		Conn: natsConnection,
		Subjects: worker.Subjects{
			DocUploaded: cfg.NATS.DocUploadedSubject,
			Status:      cfg.NATS.StatusSubject,
			Speech:      cfg.NATS.SpeechSubject,
		},
		Orchestrator: orchestrator,
		Probe:        probe,
		Synthesizer:  synthesizer,
		Audio:        audio,
		Signer:       urlSigner,
		Defaults: core.Prosody{
			Voice: cfg.Synthesis.DefaultVoice,
			Rate:  cfg.Synthesis.DefaultRate,
			Pitch: cfg.Synthesis.DefaultPitch,
		},
		Region: cfg.Service.Region,
		URLTTL: urlTTL,
		Log:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	return serviceWorker, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
