package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/order-api/internal/auth"
	"github.com/vladislavdragonenkov/order-api/internal/domain"
	"github.com/vladislavdragonenkov/order-api/internal/health"
	"github.com/vladislavdragonenkov/order-api/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/order-api/internal/metrics"
	"github.com/vladislavdragonenkov/order-api/internal/service/order"
	"github.com/vladislavdragonenkov/order-api/internal/service/outbox"
	"github.com/vladislavdragonenkov/order-api/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/order-api/internal/version"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Run поднимает API, сервер метрик и outbox worker и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	authSvc, err := newAuthService(cfg)
	if err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	producer, err := initKafkaProducer(cfg.KafkaBrokerList(), cfg.KafkaClientID, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without events")
	}
	defer closeKafkaProducer(producer, logger)

	orderSvc := order.NewService(deps.store,
		order.WithLogger(logger.WithField("layer", "service")),
		order.WithMetrics(metrics.NewOrderMetrics()),
		order.WithEvents(producer != nil),
	)

	healthHandler := health.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if producer != nil {
		healthHandler.RegisterChecker("outbox", outboxBacklogChecker(deps.store.Outbox(), cfg.OutboxMaxPending))
	}

	apiSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Config{
			Orders:         orderSvc,
			Authenticator:  authSvc,
			Validator:      authSvc,
			Logger:         logger.WithField("layer", "http"),
			Metrics:        metrics.NewHTTPMetrics(),
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	metricsSrv := startMetricsServer(gctx, cfg.MetricsAddr, logger, healthHandler)

	g.Go(func() error {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return nil
	})

	if producer != nil {
		worker := outbox.NewWorker(deps.store.Outbox(),
			kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)),
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithMetrics(metrics.NewOutboxMetrics()),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	logger.WithField("build", version.String()).Info("order api started")

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func newAuthService(cfg Config) (*auth.Service, error) {
	hash := []byte(cfg.AuthPasswordHash)
	if len(hash) == 0 {
		var err error
		if hash, err = auth.HashPassword(cfg.AuthPassword); err != nil {
			return nil, fmt.Errorf("hash auth password: %w", err)
		}
	}

	return auth.NewService(auth.Config{
		Secret:       []byte(cfg.JWTSecret),
		TTL:          cfg.JWTTTL,
		Username:     cfg.AuthUsername,
		PasswordHash: hash,
	})
}

// outboxBacklogChecker переводит сервис в degraded, когда backlog превышает maxPending.
func outboxBacklogChecker(repo domain.OutboxRepository, maxPending int64) health.Checker {
	return health.NewOptionalChecker("outbox", func(ctx context.Context) error {
		stats, err := repo.Stats(ctx)
		if err != nil {
			return err
		}
		if maxPending > 0 && int64(stats.PendingCount) > maxPending {
			return fmt.Errorf("outbox backlog %d exceeds %d", stats.PendingCount, maxPending)
		}
		return nil
	})
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-проверки.
// Сервер останавливается сам при отмене ctx.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
