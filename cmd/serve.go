package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/ujenzipro/config"
	"example.com/ujenzipro/internal/api"
	"example.com/ujenzipro/internal/cache"
	"example.com/ujenzipro/internal/metrics"
	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/realtime"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/search"
	"example.com/ujenzipro/internal/services"
	"example.com/ujenzipro/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for deliveries, projects, documents and the public tracking lookup`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	deps, err := initInfra(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	deliveryService, projectService, documentService, providerService := initServices(db, deps)

	server := api.NewServer(
		cfg,
		deliveryService,
		projectService,
		documentService,
		providerService,
		repository.NewUserRepository(db),
		deps.metrics,
		deps.tracer,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

// infra bundles the shared infrastructure clients the commands wire up
type infra struct {
	cache   cache.CacheClient
	broker  realtime.Broker
	elastic *search.ElasticClient
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

func (d *infra) close() {
	if err := d.broker.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close change feed broker")
	}
	if err := d.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close cache client")
	}
}

func initDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access underlying connection pool")
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return db, nil
}

func initInfra(cfg config.Config) (*infra, error) {
	redisCache, cacheErr := cache.NewRedisClient(cfg.Redis)
	if cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = cache.Disabled()
	}

	// The change feed rides the same Redis instance as the cache. When
	// Redis is down or disabled the feed degrades to in-process only.
	broker, brokerErr := realtime.NewBroker(cfg.Redis)
	if brokerErr != nil {
		log.Warn().Err(brokerErr).Msg("Failed to initialize Redis change feed, falling back to in-process broker")
		broker = realtime.NewMemoryBroker()
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth(metrics.HealthDatabase, true)
	metricsCollector.SetHealth(metrics.HealthCache, cacheErr == nil)
	metricsCollector.SetHealth(metrics.HealthSearch, err == nil && elasticClient != nil)

	return &infra{
		cache:   redisCache,
		broker:  broker,
		elastic: elasticClient,
		metrics: metricsCollector,
		tracer:  tracer,
	}, nil
}

func initServices(db *gorm.DB, deps *infra) (*services.DeliveryService, *services.ProjectService, *services.DocumentService, *services.ProviderService) {
	deliveryService := services.NewDeliveryService(
		repository.NewDeliveryRepository(db),
		repository.NewTrackingRepository(db),
		deps.cache,
		deps.broker,
		deps.elastic,
		deps.metrics,
		deps.tracer,
	)

	projectService := services.NewProjectService(repository.NewProjectRepository(db))

	documentService := services.NewDocumentService(
		repository.NewDocumentRepository[models.PurchaseOrder](db),
		repository.NewDocumentRepository[models.DeliveryNote](db),
		repository.NewDocumentRepository[models.GoodsReceivedNote](db),
		repository.NewDocumentRepository[models.Quotation](db),
	)

	providerService := services.NewProviderService(repository.NewProviderRepository(db))

	return deliveryService, projectService, documentService, providerService
}
