package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"speech-dictation-service/internal/app"
	"speech-dictation-service/internal/config"
	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/docstore/firestore"
	"speech-dictation-service/internal/docstore/memory"
	"speech-dictation-service/internal/docstore/sqlite"
	"speech-dictation-service/internal/events"
	httpapi "speech-dictation-service/internal/http"
	"speech-dictation-service/internal/observability"
	"speech-dictation-service/internal/service/persist"
	"speech-dictation-service/internal/service/recognition"
	"speech-dictation-service/internal/service/recognition/google"
	"speech-dictation-service/internal/service/recognition/mock"
	"speech-dictation-service/internal/service/results"
	"speech-dictation-service/internal/service/session"
	"speech-dictation-service/internal/service/synthesis"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	logger := application.Logger

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("application start failed")
	}
	defer application.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka publisher with separate topics for partial transcripts, final
	// transcripts, and record lifecycle events
	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		TopicRecord:  cfg.Kafka.TopicRecord,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	engine := buildEngine(ctx, cfg, logger)
	synth := buildSynthesizer(cfg, logger)

	res := results.New()
	syncer := persist.New(buildOpener(cfg), res)

	controller := session.New(session.Options{
		Engine:      engine,
		Synthesizer: synth,
		Syncer:      syncer,
		Results:     res,
		Publisher:   publisher,
		Locale:      cfg.Synthesis.LanguageCode,
		SpeakRate:   cfg.Synthesis.Rate,
	})
	controller.Startup(ctx)

	metricsServer := observability.NewServer(":"+cfg.Service.MetricsPort, syncer.Ready)
	metricsServer.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      httpapi.NewRouter(ctx, controller),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("speech dictation service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown")
	}
}

// buildEngine selects the recognition provider. A broken provider yields a
// nil engine; the controller reports the absent capability instead of the
// process failing startup.
func buildEngine(ctx context.Context, cfg *config.Configuration, logger zerolog.Logger) recognition.Engine {
	switch cfg.Recognition.Provider {
	case "google":
		engine, err := google.New(ctx, google.Config{
			LanguageCode:    cfg.Recognition.LanguageCode,
			MaxAlternatives: cfg.Recognition.MaxAlternatives,
			SampleRateHz:    cfg.Recognition.SampleRateHz,
			InterimResults:  cfg.Recognition.InterimResults,
			CredentialsFile: cfg.Recognition.CredentialsFile,
		})
		if err != nil {
			logger.Error().Err(err).Msg("google speech engine unavailable")
			return nil
		}
		return engine
	case "mock":
		return mock.New()
	case "none":
		return nil
	default:
		logger.Warn().Str("provider", cfg.Recognition.Provider).Msg("unknown recognition provider, speech capability disabled")
		return nil
	}
}

// buildSynthesizer selects the speech-output provider, falling back to the
// log provider when the exec command cannot be parsed.
func buildSynthesizer(cfg *config.Configuration, logger zerolog.Logger) synthesis.Synthesizer {
	if cfg.Synthesis.Provider == "exec" {
		synth, err := synthesis.NewExecSynth(cfg.Synthesis.Command)
		if err != nil {
			logger.Error().Err(err).Msg("exec synthesizer unavailable, falling back to log provider")
			return synthesis.NewLogSynth()
		}
		return synth
	}
	return synthesis.NewLogSynth()
}

// buildOpener returns the document-store bring-up for the configured
// provider. The opener runs inside the synchronizer's Connect so a store
// outage surfaces as connection state, not a startup failure.
func buildOpener(cfg *config.Configuration) docstore.Opener {
	switch cfg.Store.Provider {
	case "firestore":
		return func(ctx context.Context) (docstore.Store, error) {
			return firestore.Open(ctx, firestore.Config{
				ProjectID:       cfg.Store.ProjectID,
				Collection:      cfg.Store.Collection,
				CredentialsFile: cfg.Store.CredentialsFile,
			})
		}
	case "sqlite":
		return func(ctx context.Context) (docstore.Store, error) {
			return sqlite.Open(ctx, cfg.Store.SQLitePath, cfg.Store.Collection)
		}
	default:
		return func(ctx context.Context) (docstore.Store, error) {
			return memory.New(), nil
		}
	}
}
