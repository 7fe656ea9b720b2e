// Command engine runs the automated equities trading engine: it
// evaluates the configured strategies against daily market data and
// rebalances the brokerage account toward the consolidated target.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/alerts"
	"github.com/ajitpratap0/equityfunk/internal/broker"
	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/db"
	"github.com/ajitpratap0/equityfunk/internal/engine"
	"github.com/ajitpratap0/equityfunk/internal/events"
	"github.com/ajitpratap0/equityfunk/internal/executor"
	"github.com/ajitpratap0/equityfunk/internal/journal"
	"github.com/ajitpratap0/equityfunk/internal/marketdata"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
	"github.com/ajitpratap0/equityfunk/internal/strategy"
	"github.com/ajitpratap0/equityfunk/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	once := flag.Bool("once", false, "Run a single tick and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		log.Fatal().Err(err).Msg("Engine exited with error")
	}
}

func run(configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Bool("paper_trading", cfg.Broker.PaperTrading).
		Msg("Starting EquityFunk engine")

	// Vault is optional; when VAULT_ADDR is set it fills in credentials
	// the config left empty.
	vaultClient, err := vault.NewClientFromEnv()
	if err != nil {
		return fmt.Errorf("vault client: %w", err)
	}
	vaultClient.Hydrate(ctx, cfg)

	if err := config.LoadBrokerCredentials(cfg); err != nil {
		return err
	}

	alpacaBroker := broker.NewAlpacaBroker(&cfg.Broker)
	tradingBroker := broker.NewBreakerBroker(alpacaBroker)

	provider := buildProvider(cfg, alpacaBroker)

	manager, err := strategy.NewManager(cfg, provider,
		strategy.NewNuclearEngine(&cfg.Strategy),
		strategy.NewTECLEngine(),
	)
	if err != nil {
		return fmt.Errorf("strategy manager: %w", err)
	}

	store, err := db.New(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("database migration: %w", err)
	}

	publisher, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("event publisher: %w", err)
	}
	defer publisher.Close()

	alertManager, err := buildAlerts(cfg)
	if err != nil {
		return fmt.Errorf("alerts: %w", err)
	}

	var execLog *journal.ExecutionLog
	if cfg.Alerts.ExecutionLogPath != "" {
		execLog = journal.NewExecutionLog(cfg.Alerts.ExecutionLogPath)
	}
	var dashboard *journal.DashboardWriter
	if cfg.Alerts.DashboardPath != "" {
		dashboard = journal.NewDashboardWriter(cfg.Alerts.DashboardPath)
	}

	if cfg.Monitoring.EnableMetrics {
		server := metrics.NewServer(cfg.Monitoring.PrometheusPort, log.Logger)
		if err := server.Start(); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Stop(shutdownCtx)
		}()
	}

	eng := engine.New(engine.Deps{
		Config:       cfg,
		Broker:       tradingBroker,
		Evaluator:    manager,
		Rebalancer:   executor.New(tradingBroker, &cfg.Execution),
		Alerts:       alertManager,
		ExecutionLog: execLog,
		Dashboard:    dashboard,
		Publisher:    publisher,
		Store:        store,
	})

	if once {
		tick := eng.RunTick(ctx)
		if !tick.Success {
			return fmt.Errorf("tick failed at %s", tick.AbortedAt)
		}
		return nil
	}
	return eng.RunContinuous(ctx)
}

// buildProvider layers the market data cache over the broker's data API
func buildProvider(cfg *config.Config, fetcher marketdata.Fetcher) marketdata.Provider {
	inner := marketdata.NewFetchProvider(fetcher, cfg.Data.RateLimitPerSecond)
	ttl := time.Duration(cfg.Data.CacheTTL) * time.Second

	if cfg.Data.RedisEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return marketdata.NewRedisCachedProvider(inner, rdb, ttl)
	}
	return marketdata.NewCachedProvider(inner, ttl)
}

func buildAlerts(cfg *config.Config) (*alerts.Manager, error) {
	sinks := []alerts.Alerter{alerts.NewLogAlerter()}

	if cfg.Alerts.LogPath != "" {
		sinks = append(sinks, alerts.NewFileAlerter(cfg.Alerts.LogPath))
	}
	if cfg.Alerts.TelegramToken != "" {
		telegram, err := alerts.NewTelegramAlerter(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, telegram)
	}
	return alerts.NewManager(sinks...), nil
}
