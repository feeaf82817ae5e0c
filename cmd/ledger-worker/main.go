// Package main provides the ledger worker entry point for reasonledger.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/reasonledger/internal/analysis/consistency"
	"github.com/thebtf/reasonledger/internal/config"
	"github.com/thebtf/reasonledger/internal/ledger"
	"github.com/thebtf/reasonledger/internal/watcher"
	"github.com/thebtf/reasonledger/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Parse flags
	host := flag.String("host", "", "Listen host (default: LEDGER_WORKER_HOST or 127.0.0.1)")
	port := flag.Int("port", 0, "Listen port (default: LEDGER_WORKER_PORT or 37820)")
	vocabulary := flag.String("vocabulary", "", "YAML file with extra contradiction pairs")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *host != "" {
		cfg.WorkerHost = *host
	}
	if *port > 0 {
		cfg.WorkerPort = *port
	}
	if *vocabulary != "" {
		cfg.VocabularyPath = *vocabulary
	}

	zerolog.SetGlobalLevel(cfg.Level())
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	vocab, err := consistency.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.VocabularyPath).Msg("Failed to load contradiction vocabulary")
	}
	checker, err := consistency.NewChecker(vocab)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build consistency checker")
	}

	store := ledger.New(ledger.Options{
		TTL:             cfg.TTL(),
		CleanupInterval: cfg.CleanupInterval(),
		MaxSessions:     cfg.MaxSessions,
		MaxRecords:      cfg.MaxRecords,
	})
	defer store.Destroy()

	svc := worker.NewService(Version, cfg, store, checker)
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr()).Msg("Failed to start worker")
	}

	watchers := startWatchers(cfg, svc)
	defer func() {
		for _, w := range watchers {
			_ = w.Stop()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("Shutting down ledger worker")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Worker shutdown error")
	}
}

// startWatchers reloads the vocabulary on change and exits on settings
// change so a supervisor restarts the worker with the new values.
func startWatchers(cfg *config.Config, svc *worker.Service) []*watcher.Watcher {
	var started []*watcher.Watcher

	if cfg.VocabularyPath != "" {
		path := cfg.VocabularyPath
		vocabWatcher, err := watcher.New(path, func(string) {
			if err := svc.ReloadVocabulary(path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Vocabulary reload failed, keeping previous")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create vocabulary watcher")
		} else if err := vocabWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start vocabulary watcher")
		} else {
			log.Info().Str("path", path).Msg("Vocabulary file watcher started")
			started = append(started, vocabWatcher)
		}
	}

	configPath := config.SettingsPath()
	configWatcher, err := watcher.New(configPath, func(string) {
		log.Warn().Str("path", configPath).Msg("Config file changed, exiting for restart...")
		time.Sleep(100 * time.Millisecond) // Give logs time to flush
		os.Exit(0)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
	} else if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
	} else {
		log.Info().Str("path", configPath).Msg("Config file watcher started")
		started = append(started, configWatcher)
	}

	return started
}
