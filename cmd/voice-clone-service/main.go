// main package for the voice-clone-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-clone-service/internal/cloudstorage"
	"github.com/book-expert/voice-clone-service/internal/config"
	"github.com/book-expert/voice-clone-service/internal/credential"
	"github.com/book-expert/voice-clone-service/internal/objectstore"
	"github.com/book-expert/voice-clone-service/internal/server"
	"github.com/book-expert/voice-clone-service/internal/speaker"
	"github.com/book-expert/voice-clone-service/internal/speech"
	"github.com/book-expert/voice-clone-service/internal/tts"
	"github.com/book-expert/voice-clone-service/internal/worker"
)

const (
	envFile               = ".env"
	bootstrapLogFile      = "voice-clone-service-bootstrap.log"
	serviceLogFile        = "voice-clone-service.log"
	remoteDelimiter       = "/"
	dirPermissions        = 0o750
	credentialHTTPTimeout = 30 * time.Second
	healthCheckTimeout    = 10 * time.Second
	shutdownTimeout       = 30 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	mkdirErr := os.MkdirAll(logPath, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", mkdirErr)
	}

	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() {
		_ = bootstrapLog.Close()
	}()

	// 2. Configuration and secrets
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	secrets, err := config.LoadSecrets(envFile)
	if err != nil {
		bootstrapLog.Error("Failed to load secrets: %v", err)

		return err
	}

	// 3. Final logger
	log, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, closeStorage, err := buildHandler(ctx, cfg, secrets, log)
	if err != nil {
		log.Error("Startup failed: %v", err)

		return err
	}
	defer closeStorage()

	return serve(ctx, cfg, secrets, handler, log)
}

// buildHandler prepares directories, credentials, storage, the speaker catalog and the synthesis client.
func buildHandler(
	ctx context.Context,
	cfg *config.Config,
	secrets config.Secrets,
	log *logger.Logger,
) (*speech.Handler, func(), error) {
	for _, dir := range cfg.Directories() {
		mkdirErr := os.MkdirAll(dir, dirPermissions)
		if mkdirErr != nil {
			return nil, nil, fmt.Errorf("failed to create directory %s: %w", dir, mkdirErr)
		}
	}

	acquirer := credential.NewAcquirer(
		cfg.Storage.CredentialDir,
		secrets.CredentialURL,
		&http.Client{Timeout: credentialHTTPTimeout},
	)

	credentialPath, err := acquirer.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	bucket, err := cloudstorage.NewBucket(ctx, credentialPath, cfg.Storage.Bucket, cfg.Storage.UploadPrefix)
	if err != nil {
		return nil, nil, err
	}

	closeStorage := func() {
		closeErr := bucket.Close()
		if closeErr != nil {
			log.Warn("Failed to close storage client: %v", closeErr)
		}
	}

	if !cfg.Speakers.SkipRemoteSync {
		report, syncErr := cloudstorage.Sync(ctx, bucket, cfg.Speakers.RemotePrefix, remoteDelimiter, cfg.Speakers.Dir, log)
		if syncErr != nil {
			closeStorage()

			return nil, nil, fmt.Errorf("failed to sync speakers: %w", syncErr)
		}

		log.Info("Speaker sync: %d downloaded, %d already present", len(report.Downloaded), len(report.Skipped))
	}

	catalog, err := speaker.NewCatalog(cfg.Speakers.Dir, cfg.Speakers.Extension)
	if err != nil {
		closeStorage()

		return nil, nil, err
	}

	log.Info("Loaded %d speakers, using default speaker: %s", catalog.Len(), catalog.Default().Name)

	ttsClient := tts.NewClient(cfg.TTS.URL, cfg.TTSTimeout(), cfg.TTS.Temperature)

	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	healthErr := ttsClient.HealthCheck(healthCtx)
	if healthErr != nil {
		log.Warn("TTS service is not healthy yet: %v", healthErr)
	}

	handler := speech.NewHandler(
		speaker.NewResolver(catalog, speaker.Policy{
			UseFuzzyMatchOnlyIfMissing: cfg.Speakers.UseFuzzyMatchOnlyIfMissing,
		}),
		ttsClient,
		bucket,
		speech.NewNameGenerator(cfg.Output.Extension, nil),
		speech.Options{
			OutputDir:       cfg.Output.Dir,
			DefaultLanguage: cfg.Speakers.DefaultLanguage,
			KeepLocalFiles:  cfg.Output.KeepLocalFiles,
		},
		log,
	)

	return handler, closeStorage, nil
}

// serve runs the HTTP server and, when configured, the NATS worker until ctx is cancelled.
func serve(
	ctx context.Context,
	cfg *config.Config,
	secrets config.Secrets,
	handler *speech.Handler,
	log *logger.Logger,
) error {
	httpServer := server.New(handler, secrets.BearerToken, log).NewHTTPServer(
		cfg.Server.Address,
		time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second,
		time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second,
	)

	errChan := make(chan error, 2)

	if cfg.NATS.URL != "" {
		natsConnection, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		defer natsConnection.Close()

		textStore, err := objectstore.New(ctx, natsConnection, cfg.NATS.TextObjectStoreBucket)
		if err != nil {
			return err
		}

		natsWorker := worker.NewNatsWorker(natsConnection, cfg.NATS.Subject, textStore, handler, log)

		go func() {
			errChan <- natsWorker.Run(ctx)
		}()
	}

	go func() {
		log.System("Voice-Clone-Service listening on %s", cfg.Server.Address)

		listenErr := httpServer.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server failed: %w", listenErr)
		}
	}()

	select {
	case <-ctx.Done():
		log.System("Shutting down")
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("failed to shut down http server: %w", shutdownErr)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
