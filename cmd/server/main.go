package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"stoop/internal/audit"
	"stoop/internal/geo"
	onboardinghandler "stoop/internal/onboarding/handler"
	onboardingmetrics "stoop/internal/onboarding/metrics"
	"stoop/internal/onboarding/service"
	"stoop/internal/onboarding/store/account"
	"stoop/internal/onboarding/token"
	"stoop/internal/otp"
	"stoop/internal/platform/config"
	"stoop/internal/platform/httpserver"
	"stoop/internal/platform/kafka"
	"stoop/internal/platform/logger"
	"stoop/internal/platform/metrics"
	"stoop/internal/platform/postgres"
	"stoop/internal/platform/redis"
	"stoop/internal/ratelimit"
	httptransport "stoop/internal/transport/http"
	"stoop/pkg/platform/circuit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires dependencies and serves until SIGINT or SIGTERM. Each backing
// service is optional outside production; an empty address selects the
// in-memory or log implementation.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	reg := prometheus.DefaultRegisterer
	if deps.redis != nil {
		deps.redis.RegisterPoolMetrics(reg)
	}

	auditSinks := audit.Multi{audit.NewLogPublisher(log)}
	var otpSender otp.Sender = otp.NewLogSender(log)
	if deps.kafka != nil {
		auditSinks = append(auditSinks, audit.NewKafkaPublisher(deps.kafka, cfg.Kafka.AuditTopic))
		otpSender = otp.NewKafkaSender(deps.kafka, cfg.Kafka.OTPTopic)
	}
	auditor := audit.NewEmitter(auditSinks, 1024, log)

	var otpStore otp.Store = otp.NewMemoryStore()
	if deps.redis != nil {
		otpStore = otp.NewRedisStore(deps.redis.Client)
	}
	otpService := otp.NewService(otpStore, otpSender,
		otp.WithTTL(cfg.Onboarding.OTPTTL),
		otp.WithMaxAttempts(cfg.Onboarding.OTPMaxAttempts),
		otp.WithLogger(log),
		otp.WithMetrics(otp.NewMetrics(reg)),
	)

	geoOpts := []geo.Option{
		geo.WithBreaker(circuit.New("geocoder",
			circuit.WithFailureThreshold(cfg.Geocoder.BreakerFailure),
			circuit.WithCooldown(cfg.Geocoder.BreakerCool),
		)),
		geo.WithSuggestLimit(cfg.Geocoder.SuggestLimit),
		geo.WithTimeout(cfg.Geocoder.Timeout),
		geo.WithLogger(log),
		geo.WithMetrics(geo.NewMetrics(reg)),
	}
	if deps.redis != nil {
		geoOpts = append(geoOpts, geo.WithCache(geo.NewRedisCache(deps.redis.Client, cfg.Geocoder.CacheTTL)))
	}
	resolver := geo.NewResolver(
		geo.NewNominatimClient(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, geo.WithCountryCodes(cfg.Geocoder.CountryCodes)),
		geoOpts...,
	)

	var limitStore ratelimit.Store = ratelimit.NewInMemory()
	if deps.redis != nil {
		limitStore = ratelimit.NewRedis(deps.redis.Client)
	}
	sendLimiter := ratelimit.NewLimiter("send-otp",
		ratelimit.Rule{Limit: cfg.Onboarding.OTPSendLimit, Window: cfg.Onboarding.OTPSendWindow},
		limitStore,
		ratelimit.WithLogger(log),
		ratelimit.WithRegisterer(reg),
	)

	tokens, err := token.New(cfg.Onboarding.TokenSecret, token.WithTTL(cfg.Onboarding.TokenTTL))
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	var accounts service.AccountStore = account.NewInMemory()
	if deps.db != nil {
		if err := account.Migrate(ctx, deps.db); err != nil {
			return fmt.Errorf("migrate accounts: %w", err)
		}
		accounts = account.NewPostgres(deps.db)
	}

	onboarding := service.New(accounts, otpService, resolver,
		service.NewBcryptHasher(cfg.Onboarding.BcryptCost), tokens,
		service.WithLogger(log),
		service.WithAuditor(auditor),
		service.WithSendLimiter(sendLimiter),
		service.WithMetrics(onboardingmetrics.New(reg)),
		service.WithMaxDistance(cfg.Onboarding.MaxDistanceMeters),
		service.WithCaptureWindow(cfg.Onboarding.CaptureMaxAge, cfg.Onboarding.CaptureFutureSkew),
		service.WithTimeouts(cfg.Onboarding.StepTimeout, cfg.Onboarding.VerifyTimeout),
	)

	router := httptransport.NewRouter(httptransport.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
		Metrics:        metrics.NewHTTP(reg),
		HealthChecks:   deps.healthChecks(),
	},
		onboardinghandler.New(onboarding, tokens, log),
		geo.NewHandler(resolver, log),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting stoop onboarding",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"postgres", deps.db != nil,
		"redis", deps.redis != nil,
		"kafka", deps.kafka != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditor.Run(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	return g.Wait()
}

type backends struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kafka.Producer
}

func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, error) {
	i := &backends{}
	var err error

	if i.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		return nil, err
	}
	if i.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		i.close()
		return nil, err
	}
	if i.kafka, err = kafka.NewProducer(ctx, cfg.Kafka); err != nil {
		i.close()
		return nil, err
	}
	if i.kafka != nil {
		if err := i.kafka.EnsureTopics(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication,
			cfg.Kafka.OTPTopic, cfg.Kafka.AuditTopic); err != nil {
			log.Warn("kafka topic setup failed", "error", err)
		}
	}
	return i, nil
}

func (i *backends) healthChecks() map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Health
	}
	return checks
}

func (i *backends) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}
