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

	"github.com/safesentinel/sentinel/internal/api"
	"github.com/safesentinel/sentinel/internal/audit"
	"github.com/safesentinel/sentinel/internal/bus"
	"github.com/safesentinel/sentinel/internal/cache"
	"github.com/safesentinel/sentinel/internal/config"
	"github.com/safesentinel/sentinel/internal/connectors/binance"
	"github.com/safesentinel/sentinel/internal/connectors/cmc"
	"github.com/safesentinel/sentinel/internal/connectors/goplus"
	"github.com/safesentinel/sentinel/internal/connectors/onchain"
	"github.com/safesentinel/sentinel/internal/gatekeeper"
	"github.com/safesentinel/sentinel/internal/humanizer"
	"github.com/safesentinel/sentinel/internal/observability"
	"github.com/safesentinel/sentinel/internal/registry"
	"github.com/safesentinel/sentinel/internal/simulator"
	"github.com/safesentinel/sentinel/internal/sourcing"
	"github.com/safesentinel/sentinel/internal/store"
	"github.com/safesentinel/sentinel/internal/trust"
)

const auditBufferSize = 256

func main() {
	// 1. Parse flags.
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// 2. Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// 3. Setup logging.
	setupLogging(cfg.General, "sentinel-api")

	log.Info().Msg("=============================================")
	log.Info().Msg("SafeSentinel Command Center - Starting")
	log.Info().Msg("VERIFY BEFORE YOU TRANSFER")
	log.Info().Msg("=============================================")

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Str("environment", cfg.General.Environment).
		Str("listen_addr", cfg.API.ListenAddr).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("clickhouse", cfg.ClickHouse.Enabled).
		Bool("redis", cfg.Redis.Enabled).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Registries + optional hot reload.
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

	// 5. Core pipeline.
	gk := gatekeeper.New(regStore)
	calc := trust.NewCalculator()

	// 6. Humanizer cascade. Ollama is always registered; cloud providers
	// join only when keys are configured.
	hmn := humanizer.New(humanizer.NewOllamaProvider(cfg.Humanizer.OllamaURL, cfg.Humanizer.OllamaModel))
	if cfg.Humanizer.GeminiAPIKey != "" {
		hmn.RegisterProvider(humanizer.NewGeminiProvider(cfg.Humanizer.GeminiAPIKey))
	}
	if cfg.Humanizer.GroqAPIKey != "" {
		hmn.RegisterProvider(humanizer.NewGroqProvider(cfg.Humanizer.GroqAPIKey))
	}

	// 7. Event bus.
	var producer bus.Producer
	if cfg.Kafka.Enabled {
		kp, err := bus.NewProducer(cfg.Kafka.Brokers, cfg.General.InstanceID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka producer")
		}
		defer kp.Close()
		producer = kp
	} else {
		producer = bus.NewStubProducer()
		log.Info().Msg("Kafka disabled, events buffered in memory")
	}
	trail := audit.NewTrail(producer, auditBufferSize)

	// 8. Optional Redis cache.
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).
				Msg("Redis unreachable, continuing without cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
		pingCancel()
	}

	// 9. Optional ClickHouse event sink.
	var sink api.EventSink
	if cfg.ClickHouse.Enabled {
		chClient, err := store.NewClient(cfg.ClickHouse.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create ClickHouse client")
		}
		defer chClient.Close()

		writer := store.NewVerificationWriter(chClient,
			cfg.ClickHouse.BatchSize,
			time.Duration(cfg.ClickHouse.FlushSeconds)*time.Second)
		go writer.Start(ctx)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := writer.Close(closeCtx); err != nil {
				log.Error().Err(err).Msg("ClickHouse writer close failed")
			}
			closeCancel()
		}()
		sink = writer
	}

	// 10. Upstream connectors, each optional on its credentials.
	deps := api.Deps{
		Gatekeeper: gk,
		Trust:      calc,
		Humanizer:  hmn,
		Trail:      trail,
		Sink:       sink,
		Cache:      redisCache,
	}
	if cfg.Connectors.Binance.APIKey != "" {
		deps.Networks = binance.NewClient(cfg.Connectors.Binance.APIKey, cfg.Connectors.Binance.APISecret)
	}
	if cfg.Connectors.CMC.APIKey != "" {
		deps.Market = cmc.NewClient(cfg.Connectors.CMC.APIKey)
	}
	deps.Auditor = goplus.NewClient()

	verifier := onchain.NewVerifier(cfg.Connectors.RPCEndpoints)
	defer verifier.Close()
	deps.OnChain = verifier

	if cfg.Connectors.Perplexity.APIKey != "" {
		deps.Routes = sourcing.NewAgent(cfg.Connectors.Perplexity.APIKey, redisCache)
	}
	if cfg.Connectors.Alchemy.APIKey != "" {
		deps.Simulator = simulator.New(cfg.Connectors.Alchemy.APIKey)
	}

	// 11. Observability.
	metrics := observability.SentinelMetrics()
	deps.Metrics = metrics

	snap := regStore.Current()
	metrics.GetGauge("sentinel_blacklist_entries").Set(float64(snap.Threats.BlacklistSize()))
	metrics.GetGauge("sentinel_known_wallets").Set(float64(snap.Venues.WalletCount()))

	health := observability.NewHealthMonitor(30 * time.Second)
	health.Register("registry", func(ctx context.Context) observability.ComponentHealth {
		if regStore.Current() == nil {
			return observability.ComponentHealth{Status: observability.StatusUnhealthy, Message: "no snapshot loaded"}
		}
		return observability.ComponentHealth{Status: observability.StatusHealthy}
	})
	if redisCache != nil {
		rc := redisCache
		health.Register("redis", func(ctx context.Context) observability.ComponentHealth {
			if err := rc.Ping(ctx); err != nil {
				return observability.ComponentHealth{Status: observability.StatusDegraded, Message: err.Error()}
			}
			return observability.ComponentHealth{Status: observability.StatusHealthy}
		})
	}
	go health.Start(ctx)
	defer health.Stop()
	deps.Health = health

	// 12. HTTP server.
	server := api.NewServer(cfg.API.ListenAddr, cfg.General.InstanceID, cfg.Kafka.SchemaVersion, deps)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// 13. Wait for shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	producer.Flush(5 * time.Second)

	log.Info().Msg("SafeSentinel Command Center - Shutdown complete")
}

func setupLogging(general config.GeneralConfig, service string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", service).
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", service).
			Str("instance", general.InstanceID).Logger()
	}
}
