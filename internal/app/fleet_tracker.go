package app

import (
	"context"
	"errors"
	"fleet-tracker/internal/config"
	"fleet-tracker/internal/fleet"
	"fleet-tracker/internal/liveness"
	"fleet-tracker/internal/metrics"
	"fleet-tracker/internal/rabbitmq"
	"fleet-tracker/internal/rabbitmq/listener"
	"fleet-tracker/internal/rabbitmq/notifier"
	"fleet-tracker/internal/repository"
	"fleet-tracker/internal/service"
	"fmt"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"net"
	"net/http"
	"time"
)

const healthInterval = 10 * time.Second

func Run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) {
	repo, err := newRepository(ctx, cfg)
	if err != nil {
		logger.Fatalw("failed to create repository", "error", err)
	}
	logger.Infow("using repository", "storage", cfg.Storage)

	// NOTE: We can share a RabbitMQ connection, but it is not recommended to share a channel
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQ)
	if err != nil {
		logger.Fatalw("failed to create rabbitmq connection", "error", err)
	}
	defer rabbitConn.Close()

	publisher, err := notifier.NewRabbitMQPublisher(logger, rabbitConn)
	if err != nil {
		logger.Fatalw("failed to create rabbitmq publisher", "error", err)
	}
	defer publisher.Close()

	policy := liveness.NewPolicy(cfg.TTL)
	live := fleet.NewLiveness(repo, policy)
	gate := fleet.NewAdmissionGate(logger, repo, policy)
	kpis := fleet.NewKPIs(repo, policy)
	registration := fleet.NewRegistration(logger, repo, policy)
	fleetNotifier := fleet.NewNotifier(logger, publisher)

	err = listener.NewRabbitMQListener(ctx, logger, registration, gate, rabbitConn)
	if err != nil {
		logger.Fatalw("failed to create rabbitmq listener", "error", err)
	}
	logger.Infow("connected to RabbitMQ", "host", cfg.RabbitMQ.Host)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Fatalw("failed to listen", "error", err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_zap.UnaryServerInterceptor(logger.Desugar(), grpc_zap.WithLevels(func(code codes.Code) zapcore.Level {
				if code == codes.OK {
					return zapcore.DebugLevel
				}
				return zapcore.InfoLevel
			})),
			grpc_prometheus.UnaryServerInterceptor,
		),
	)
	service.RegisterFleetTrackerServer(s, service.NewFleetTrackerService(live, gate, kpis, registration, fleetNotifier))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	grpc_prometheus.Register(s)

	registry := prometheus.NewRegistry()
	registry.MustRegister(grpc_prometheus.DefaultServerMetrics, metrics.NewKPICollector(logger, kpis))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("listening on port", "port", cfg.Port)
		return s.Serve(lis)
	})
	g.Go(func() error {
		logger.Infow("serving metrics", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watchHealth(ctx, logger, repo, healthServer)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Infow("shutting down")
		s.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalw("failed to serve", "error", err)
	}
}

func newRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	if cfg.Storage == config.StorageMemory {
		return repository.NewMemoryRepository(), nil
	}
	return repository.NewMongoRepository(ctx, cfg.MongoDB)
}

// watchHealth reports NOT_SERVING while the repository is unreachable.
func watchHealth(ctx context.Context, logger *zap.SugaredLogger, repo repository.Repository, hs *health.Server) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	serving := true
	for {
		pingCtx, cancel := context.WithTimeout(ctx, healthInterval/2)
		err := repo.HealthPing(pingCtx)
		cancel()

		if err != nil && serving {
			logger.Errorw("repository unhealthy", "error", err)
		} else if err == nil && !serving {
			logger.Infow("repository healthy again")
		}
		serving = err == nil

		st := healthpb.HealthCheckResponse_SERVING
		if !serving {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(service.ServiceName, st)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
