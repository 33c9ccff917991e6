// Package bootstrap assembles the decision-support service from configuration:
// artifact storage, the model lifecycle, optional Redis coordination, optional
// Kafka events, Prometheus metrics and the HTTP API.
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/database/redis"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/storage/localfs"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/storage/minio"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/common"
	httpserver "github.com/turtacn/ForestRights-DSS/internal/interfaces/http"
	"github.com/turtacn/ForestRights-DSS/internal/interfaces/http/handlers"
	"github.com/turtacn/ForestRights-DSS/internal/interfaces/http/middleware"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// EventSource is stamped on every published event envelope.
const EventSource = "fradss"

const (
	trainingLockName       = "train"
	trainingLockRetryDelay = 250 * time.Millisecond
	topicSetupTimeout      = 10 * time.Second
)

// Options tune New beyond what the configuration carries.
type Options struct {
	// Version is reported by the liveness probe.
	Version string
	// Blobs overrides the configured artifact backend.
	Blobs claim_dss.BlobStore
}

// App is a fully wired service.
type App struct {
	cfg    *config.Config
	logger logging.Logger

	models   *claim_dss.ModelService
	analyzer *analysis.Service

	collector  prometheus.MetricsCollector
	appMetrics *prometheus.AppMetrics
	checkers   []handlers.HealthChecker
	router     http.Handler
	server     *httpserver.Server

	redisClient *redis.Client
	broadcaster *redis.GenerationBroadcaster
	minioClient *minio.Client
	producer    *kafka.Producer

	closeOnce sync.Once
}

// New wires every component described by cfg. Network dependencies are
// contacted here, so an unreachable Redis or MinIO fails fast.
func New(ctx context.Context, cfg *config.Config, log logging.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	a := &App{cfg: cfg, logger: log}

	if err := a.initMetrics(); err != nil {
		return nil, err
	}
	im, err := a.intelligenceMetrics()
	if err != nil {
		return nil, err
	}

	blobs := opts.Blobs
	if blobs == nil {
		if blobs, err = a.openBlobStore(); err != nil {
			a.Close()
			return nil, err
		}
	}

	serviceOpts := []claim_dss.ServiceOption{
		claim_dss.WithLogger(log.Named("models")),
		claim_dss.WithMetrics(im),
	}
	if cfg.Redis.Enabled {
		lock, err := a.initRedis()
		if err != nil {
			a.Close()
			return nil, err
		}
		serviceOpts = append(serviceOpts,
			claim_dss.WithTrainingLock(lock),
			claim_dss.WithGenerationPublisher(a.broadcaster))
	}

	trainer := claim_dss.NewTrainer(claim_dss.TrainerOptions{
		Seed:        cfg.Models.TrainingSeed,
		MaxFeatures: cfg.Models.MaxFeatures,
	}, log.Named("trainer"))

	a.models = claim_dss.NewModelService(
		claim_dss.NewArtifactStore(blobs, cfg.Models.Prefix, log.Named("artifacts")),
		trainer,
		claim_dss.ServiceOptions{
			CorpusSize: cfg.Models.CorpusSize,
			Reference: claim_dss.ReferenceOptions{
				Size: cfg.Models.ReferenceSize,
				Seed: cfg.Models.ReferenceSeed,
			},
		},
		serviceOpts...,
	)

	analysisOpts := []analysis.Option{
		analysis.WithLogger(log.Named("analysis")),
		analysis.WithMetrics(im),
		analysis.WithTopK(cfg.Models.TopK),
	}
	if cfg.Kafka.Enabled {
		pub, err := a.initKafka(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		analysisOpts = append(analysisOpts, analysis.WithEventPublisher(pub))
	}
	a.analyzer = analysis.NewService(a.models, analysisOpts)

	a.checkers = append([]handlers.HealthChecker{handlers.NewModelChecker(a.models.Status)}, a.checkers...)
	a.router = a.buildRouter(opts.Version)
	a.server = httpserver.NewServer(cfg.Server, a.router, log.Named("http"))
	return a, nil
}

func (a *App) initMetrics() error {
	if !a.cfg.Metrics.Enabled {
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            a.cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, a.logger)
	if err != nil {
		return err
	}
	a.collector = collector
	a.appMetrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (a *App) intelligenceMetrics() (common.IntelligenceMetrics, error) {
	if a.collector == nil {
		return common.NewNoopIntelligenceMetrics(), nil
	}
	return common.NewPrometheusIntelligenceMetrics(a.cfg.Metrics.Namespace, a.collector.Registerer())
}

func (a *App) openBlobStore() (claim_dss.BlobStore, error) {
	switch a.cfg.Models.Backend {
	case config.BackendMinIO:
		client, err := minio.NewClient(a.cfg.MinIO, a.logger.Named("minio"))
		if err != nil {
			return nil, err
		}
		a.minioClient = client
		a.checkers = append(a.checkers, handlers.NewChecker("minio", func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		}))
		return minio.NewObjectStore(client, a.logger.Named("minio")), nil
	default:
		return localfs.New(a.cfg.Models.Dir, a.logger.Named("localfs"))
	}
}

func (a *App) initRedis() (claim_dss.TrainingLock, error) {
	client, err := redis.NewClient(a.cfg.Redis, a.logger.Named("redis"))
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	a.broadcaster = redis.NewGenerationBroadcaster(client, a.logger.Named("redis"))
	a.checkers = append(a.checkers, handlers.NewChecker("redis", client.Ping))

	ttl := a.cfg.Models.TrainingLockTTL
	return redis.NewLockFactory(client, a.logger.Named("redis")).NewMutex(trainingLockName,
		redis.WithLockTTL(ttl),
		redis.WithRetryDelay(trainingLockRetryDelay),
		redis.WithRetryCount(lockRetryCount(ttl, trainingLockRetryDelay)),
		redis.WithWatchdog(true),
	), nil
}

// lockRetryCount returns enough attempts, delay apart, to outwait a holder
// that stops renewing: the lock expires at most ttl after its last renewal.
func lockRetryCount(ttl, delay time.Duration) int {
	if delay <= 0 || ttl <= 0 {
		return 1
	}
	n := int(ttl / delay)
	if ttl%delay != 0 {
		n++
	}
	return n + 1
}

func (a *App) initKafka(ctx context.Context) (analysis.EventPublisher, error) {
	producer, err := kafka.NewProducer(a.cfg.Kafka, a.logger.Named("kafka"))
	if err != nil {
		return nil, err
	}
	a.producer = producer

	// Topic creation is best effort; brokers with auto-create or a
	// pre-provisioned topic make it unnecessary.
	setupCtx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()
	if tm, err := kafka.NewTopicManager(setupCtx, a.cfg.Kafka.Brokers, a.logger.Named("kafka")); err != nil {
		a.logger.Warn("kafka topic manager unavailable", logging.Err(err))
	} else {
		if err := tm.EnsureTopic(setupCtx, kafka.DefaultTopicConfig(a.cfg.Kafka.Topic)); err != nil {
			a.logger.Warn("failed to ensure kafka topic", logging.String("topic", a.cfg.Kafka.Topic), logging.Err(err))
		}
		if err := tm.Close(); err != nil {
			a.logger.Warn("failed to close kafka topic manager", logging.Err(err))
		}
	}

	pub := kafka.NewEventPublisher(producer, a.cfg.Kafka.Topic, EventSource, a.logger.Named("events"))
	return countingPublisher{next: pub, metrics: a.appMetrics}, nil
}

func (a *App) buildRouter(version string) http.Handler {
	if a.cfg.Server.Mode != "" {
		gin.SetMode(a.cfg.Server.Mode)
	}

	health := handlers.NewHealthHandler(version, a.checkers...)
	rc := httpserver.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(a.analyzer, a.logger.Named("api")),
		ModelHandler:    handlers.NewModelHandler(a.models, a.logger.Named("api")),
		HealthHandler:   health,
		Logger:          a.logger.Named("http"),
		Logging:         middleware.DefaultLoggingConfig(),
		MaxBodySize:     a.cfg.Server.MaxBodySize,
	}
	if len(a.cfg.Server.AllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = a.cfg.Server.AllowedOrigins
		rc.CORS = &cors
	}
	if a.collector != nil {
		rc.Metrics = a.appMetrics
		rc.MetricsPath = a.cfg.Metrics.Path
		rc.MetricsHandler = a.collector.Handler()
		health.WithRecorder(a.appMetrics.SetHealth)
	}
	return httpserver.NewRouter(rc)
}

// Analyzer is the claim analysis entry point.
func (a *App) Analyzer() analysis.Analyzer { return a.analyzer }

// Models is the model lifecycle service.
func (a *App) Models() *claim_dss.ModelService { return a.models }

// Handler is the HTTP API.
func (a *App) Handler() http.Handler { return a.router }

// InitReport summarises Initialize.
type InitReport struct {
	Status    claim_dss.ModelStatus    `json:"status"`
	Loaded    bool                     `json:"loaded_from_store"`
	SmokeTest *analysis.AnalysisResult `json:"smoke_test"`
}

// Initialize loads the persisted generation or trains one, then runs a
// smoke-test analysis of the default claim.
func (a *App) Initialize(ctx context.Context) (*InitReport, error) {
	loaded, err := a.models.Load(ctx)
	if err != nil {
		a.logger.Warn("persisted models unusable, retraining", logging.Err(err))
	}
	if !loaded {
		if _, err := a.models.TrainAll(ctx, 0); err != nil {
			return nil, err
		}
	}

	res, err := a.analyzer.Analyze(ctx, claim.Input{}, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnalysisFailed, "smoke test analysis failed")
	}
	a.logger.Info("system initialised",
		logging.Bool("loaded_from_store", loaded),
		logging.String("generation", res.ModelGeneration),
		logging.String("smoke_test_action", string(res.RecommendedAction)))
	return &InitReport{Status: a.models.Status(), Loaded: loaded, SmokeTest: res}, nil
}

// Run serves the API on the configured address until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to bind http listener").WithDetail(a.server.Addr())
	}
	return a.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.broadcaster != nil {
		if err := a.broadcaster.Subscribe(ctx, a.onGeneration); err != nil {
			a.logger.Warn("generation broadcasts unavailable", logging.Err(err))
		}
	}
	if a.cfg.Models.WarmUp {
		go a.warmUp(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *App) warmUp(ctx context.Context) {
	start := time.Now()
	g, err := a.models.Acquire(ctx)
	if err != nil {
		a.logger.Error("model warm-up failed", logging.Err(err))
		return
	}
	a.logger.Info("model warm-up complete",
		logging.String("generation", g.Meta.ID),
		logging.Duration("elapsed", time.Since(start)))
}

func (a *App) onGeneration(ctx context.Context, id string) {
	if err := a.models.Refresh(ctx, id); err != nil {
		a.logger.Error("failed to refresh announced generation", logging.String("generation", id), logging.Err(err))
	}
}

// Close releases external clients. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", logging.Err(err))
			}
		}
		if a.redisClient != nil {
			if err := a.redisClient.Close(); err != nil {
				a.logger.Warn("failed to close redis client", logging.Err(err))
			}
		}
		if a.minioClient != nil {
			_ = a.minioClient.Close()
		}
	})
}
