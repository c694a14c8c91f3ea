package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/common/database"
	"github.com/mehedi-exx/Hr/common/logger"
	"github.com/mehedi-exx/Hr/common/mqtt"
	commonredis "github.com/mehedi-exx/Hr/common/redis"
	"github.com/mehedi-exx/Hr/internal/bot"
	"github.com/mehedi-exx/Hr/internal/config"
	"github.com/mehedi-exx/Hr/internal/domain"
	httpapi "github.com/mehedi-exx/Hr/internal/http"
	"github.com/mehedi-exx/Hr/internal/notify"
	"github.com/mehedi-exx/Hr/internal/repository"
	"github.com/mehedi-exx/Hr/internal/service"
	"github.com/mehedi-exx/Hr/internal/store"
	"github.com/mehedi-exx/Hr/internal/telegram"
)

func main() {
	flags := pflag.NewFlagSet("hr-bot", pflag.ContinueOnError)
	envFiles := flags.StringSlice("env-file", []string{"bot.env", ".env"}, "KEY=VALUE files loaded before reading the environment")
	configPath := flags.String("config", "", "optional YAML configuration file")
	migrate := flags.Bool("migrate", false, "apply the database schema on startup")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := config.LoadEnvFiles(*envFiles...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "hr-bot")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *migrate, log); err != nil {
		log.Error("hr-bot stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, migrate bool, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence
	var (
		db    *sql.DB
		repos *repository.Repositories
	)
	if cfg.DBEnabled {
		d, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return err
		}
		db = d
		defer database.Close(db)
		if migrate {
			if err := repository.ApplySchema(ctx, db); err != nil {
				return err
			}
			log.Info("Database schema applied")
		}
		repos = repository.NewPostgresRepositories(db)
		log.Info("Using Postgres repositories", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
	} else {
		repos = repository.NewMemoryRepositories()
		log.Warn("DB disabled, records live in memory only")
	}

	// Redis backs the session store and the event stream
	var redisClient *redis.Client
	if cfg.Bot.SessionBackend == "redis" || cfg.Events.Stream != "" {
		c, err := commonredis.Connect(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		redisClient = c
		defer redisClient.Close()
	}
	var kv store.KV = store.NewMemoryKV()
	if cfg.Bot.SessionBackend == "redis" {
		kv = store.NewRedisKV(redisClient)
	}
	sessions := bot.NewSessionStore(kv, cfg.Bot.SessionTTL)

	pricing, err := defaultPricing(cfg)
	if err != nil {
		return err
	}

	tg := telegram.NewClient(cfg.Bot.APIURL, cfg.Bot.Token, cfg.Bot.PollTimeout, log)

	notifiers := notify.Multi{notify.NewChatNotifier(tg, log)}
	if cfg.MQTT.Enabled {
		mq, err := mqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			return err
		}
		defer mq.Disconnect()
		notifiers = append(notifiers, notify.NewMQTTNotifier(mq, cfg.MQTT.TopicPrefix))
		log.Info("Publishing events to MQTT", zap.String("broker", cfg.MQTT.Broker), zap.String("prefix", cfg.MQTT.TopicPrefix))
	}
	if cfg.Events.Stream != "" {
		notifiers = append(notifiers, notify.NewStreamNotifier(redisClient, cfg.Events.Stream, cfg.Events.MaxLen))
		log.Info("Publishing events to Redis stream", zap.String("stream", cfg.Events.Stream))
	}

	var gateway service.Gateway
	switch cfg.Payment.Gateway {
	case "rest":
		gateway = service.NewRestGateway(cfg.Payment.GatewayURL, cfg.Payment.APIKey, cfg.WebhookURL(), log)
	default:
		gateway = service.NewMockGateway(cfg.Payment.GatewayURL)
	}

	auditor := service.NewAuditor(repos.Audit, log)
	ledger := service.NewLedger(repos.Tenants, repos.Settings, auditor, pricing, log)
	directory := service.NewDirectory(repos.Tenants, repos.Employees, cfg.Bot.AdminIDs, log)
	employees := service.NewEmployees(repos.Employees, repos.Settings, log)
	payments := service.NewPayments(repos.Payments, repos.Tenants, ledger, gateway, directory, notifiers, cfg.Payment.WebhookSecret, log)
	admin := service.NewAdmin(repos.Stats, repos.Tenants, repos.Settings, ledger)
	support := service.NewSupport(repos.Audit, log)

	controller := bot.NewController(bot.Deps{
		Directory: directory,
		Ledger:    ledger,
		Employees: employees,
		Payments:  payments,
		Admin:     admin,
		Support:   support,
		Auditor:   auditor,
		Notifier:  notifiers,
		Sessions:  sessions,
		Logger:    log,
	})

	router := httpapi.NewRouter(log)
	router.RegisterPaymentRoutes(httpapi.NewPaymentWebhookHandler(payments, log))
	router.RegisterEmployeeRoutes(httpapi.NewEmployeesHandler(ledger, employees, log))
	var pinger httpapi.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterOpsRoutes(httpapi.NewHealthHandler(sessions, pinger, cfg.Version, log), promhttp.Handler())
	if cfg.Payment.WebhookSecret == "" {
		log.Warn("PAYMENT_WEBHOOK_SECRET not set, payment callbacks will be refused")
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	runner := telegram.NewRunner(tg, controller, cfg.Bot.PollTimeout, log)
	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner.Run(ctx)
	}()

	log.Info("hr-bot started",
		zap.String("version", cfg.Version),
		zap.String("session_backend", cfg.Bot.SessionBackend),
		zap.String("gateway", cfg.Payment.Gateway),
		zap.Int("admins", len(cfg.Bot.AdminIDs)))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errCh:
		stop()
	}
	if err := <-runnerDone; err != nil && runErr == nil {
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	return runErr
}

// defaultPricing seeds the built-in prices with the configured overrides.
// Prices stored in system_settings still take precedence at runtime.
func defaultPricing(cfg *config.Config) (domain.Pricing, error) {
	pricing := service.DefaultPricing(cfg.Payment.Currency)
	for plan, raw := range cfg.Payment.Prices {
		tag := domain.PlanTag(plan)
		if !tag.Valid() {
			return pricing, fmt.Errorf("unknown plan %q in price configuration", plan)
		}
		amount, err := domain.ParsePrice(raw)
		if err != nil {
			return pricing, fmt.Errorf("invalid price for plan %s: %w", plan, err)
		}
		pricing.Prices[tag] = amount
	}
	return pricing, nil
}
