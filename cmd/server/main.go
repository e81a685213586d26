package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"rekam/internal/identity"
	identitycache "rekam/internal/identity/cache"
	identitystore "rekam/internal/identity/store"
	jwttoken "rekam/internal/jwt_token"
	"rekam/internal/platform/config"
	"rekam/internal/platform/httpserver"
	"rekam/internal/platform/logger"
	"rekam/internal/platform/metrics"
	"rekam/internal/platform/postgres"
	platformredis "rekam/internal/platform/redis"
	submissionhandler "rekam/internal/submission/handler"
	submissionmetrics "rekam/internal/submission/metrics"
	"rekam/internal/submission/service"
	submissionstore "rekam/internal/submission/store"
	"rekam/pkg/platform/audit/publisher"
	kafkasink "rekam/pkg/platform/audit/sink/kafka"
	auditmemory "rekam/pkg/platform/audit/store/memory"
	auditpostgres "rekam/pkg/platform/audit/store/postgres"
	"rekam/pkg/platform/circuit"
	"rekam/pkg/platform/httputil"
)

const auditQueueSize = 1024

// main wires config, stores and transport, then serves until SIGINT/SIGTERM.
// Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	db     *sql.DB
	redis  *platformredis.Client
	kafka  *kgo.Client
	audit  *publisher.Publisher
	health []func(context.Context) error
}

func (i *infra) close(log *slog.Logger) {
	if i.audit != nil {
		if err := i.audit.Close(); err != nil {
			log.Warn("audit publisher did not drain", "error", err)
		}
	}
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

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	deps := &infra{}
	defer deps.close(log)

	var (
		submissions service.Store
		profiles    identity.ProfileStore
		auditStore  publisher.Store
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		deps.db = db
		deps.health = append(deps.health, db.PingContext)
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
		}
		submissions = submissionstore.NewPostgres(db)
		profiles = identitystore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		submissions = submissionstore.NewInMemoryStore()
		profiles = identitystore.NewInMemoryProfileStore()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	resolverOpts := []identity.Option{identity.WithLogger(log)}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		deps.redis = redisClient
		deps.health = append(deps.health, redisClient.Health)
		resolverOpts = append(resolverOpts,
			identity.WithCache(identitycache.NewRedisProfileCache(redisClient.Client, cfg.Identity.ProfileCacheTTL)))
	}
	resolver := identity.NewResolver(profiles, resolverOpts...)

	publisherOpts := []publisher.Option{publisher.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafkasink.NewClient(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		deps.kafka = client
		publisherOpts = append(publisherOpts,
			publisher.WithSink(kafkasink.NewSink(client, cfg.Kafka.AuditTopic,
				kafkasink.WithBreaker(circuit.New("kafka-audit")))),
			publisher.WithAsyncBuffer(auditQueueSize),
		)
	}
	deps.audit = publisher.NewPublisher(auditStore, publisherOpts...)

	svc, err := service.New(submissions,
		service.WithLogger(log),
		service.WithMetrics(submissionmetrics.New()),
		service.WithAuditPublisher(deps.audit),
	)
	if err != nil {
		return err
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	handler := submissionhandler.New(svc, deps.audit, resolver, log,
		metrics.New(),
		jwttoken.NewJWTServiceAdapter(tokens),
		cfg.RequestTimeout,
	)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(deps.health))
	handler.Register(router)

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting rekam", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthz(checks []func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
