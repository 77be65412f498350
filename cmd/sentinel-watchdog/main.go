package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/config"
	"github.com/safesentinel/sentinel/internal/connectors/onchain"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
	"github.com/safesentinel/sentinel/internal/registry"
	"github.com/safesentinel/sentinel/internal/watchdog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	setupLogging(cfg.General)

	log.Info().Msg("=============================================")
	log.Info().Msg("SafeSentinel Watchdog - Starting")
	log.Info().Msg("=============================================")

	if !cfg.Watchdog.Enabled {
		log.Fatal().Msg("Watchdog is disabled in configuration")
	}
	if len(cfg.Watchdog.Wallets) == 0 {
		log.Fatal().Msg("No wallets configured for monitoring")
	}

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Int("wallets", len(cfg.Watchdog.Wallets)).
		Int("interval_s", cfg.Watchdog.IntervalSeconds).
		Str("network", cfg.Watchdog.Network).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Registries + hot reload so a blacklist update lands without restart.
	regStore, err := registry.NewStore(cfg.Registry.WalletsPath, cfg.Registry.BlacklistPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load registries")
	}
	if cfg.Registry.HotReload {
		reloader, err := registry.NewReloader(regStore)
		if err != nil {
			log.Warn().Err(err).Msg("Hot reload unavailable, registries are static")
		} else {
			go func() {
				if err := reloader.Run(ctx); err != nil {
					log.Error().Err(err).Msg("Registry reloader exited")
				}
			}()
		}
	}

	var producer bus.Producer
	if cfg.Kafka.Enabled {
		kp, err := bus.NewProducer(cfg.Kafka.Brokers, cfg.General.InstanceID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka producer")
		}
		defer kp.Close()
		producer = kp
	} else {
		log.Info().Msg("Kafka disabled, alerts are log-only")
	}

	verifier := onchain.NewVerifier(cfg.Connectors.RPCEndpoints)
	defer verifier.Close()

	wallets := make([]watchdog.MonitoredWallet, 0, len(cfg.Watchdog.Wallets))
	for _, addr := range cfg.Watchdog.Wallets {
		wallets = append(wallets, watchdog.MonitoredWallet{
			Address: addr,
			Network: cfg.Watchdog.Network,
		})
	}

	w := watchdog.New(
		gatekeeper.New(regStore),
		verifier,
		producer,
		wallets,
		time.Duration(cfg.Watchdog.IntervalSeconds)*time.Second,
		cfg.General.InstanceID,
		cfg.Kafka.SchemaVersion,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	w.Start(ctx)

	if producer != nil {
		producer.Flush(5 * time.Second)
	}
	scans, alerts := w.Stats()
	log.Info().
		Int64("scans", scans).
		Int64("alerts", alerts).
		Msg("SafeSentinel Watchdog - Shutdown complete")
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "sentinel-watchdog").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "sentinel-watchdog").
			Str("instance", general.InstanceID).Logger()
	}
}
