package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/sbilibin2017/gw-payment-webhooks/docs"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/facades"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/handlers"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/middlewares"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/queue"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/repositories"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/services"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/workers"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

const (
	backendPostgres = "postgres"
	backendKafka    = "kafka"
	backendMemory   = "memory"
)

// config holds every setting read from the environment.
type config struct {
	AppHost   string
	AppPort   string
	LogLevel  string
	LogFormat string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisEnabled      bool
	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisCacheTTL     time.Duration

	KafkaBrokers       []string
	QueueBackend       string
	QueueTopic         string
	QueueDLQTopic      string
	QueueGroupID       string
	QueueMaxDeliveries int
	QueueRetryBackoff  time.Duration
	QueueBufferSize    int

	StoreBackend string
	WorkerCount  int

	SettlementDelay       time.Duration
	SettlementTimeout     time.Duration
	SettlementFailPattern string

	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	ReconcileBatch      int

	AckOnStorageFailure bool
}

// @title gw-payment-webhooks API
// @version 1.0.0
// @description Idempotent payment webhook ingestion with asynchronous settlement
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s\nCommit: %s\nBuild: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application, storage, cache, queue, worker and settlement configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}
	getDuration := func(key, defaultValue string) (time.Duration, error) {
		v, err := time.ParseDuration(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}
	getBool := func(key, defaultValue string) (bool, error) {
		v, err := strconv.ParseBool(getEnv(key, defaultValue))
		if err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("APP_LOG_FORMAT", "json")
	if cfg.AckOnStorageFailure, err = getBool("WEBHOOK_ACK_ON_STORAGE_FAILURE", "true"); err != nil {
		return
	}

	// PostgreSQL config
	cfg.StoreBackend = getEnv("STORE_BACKEND", backendPostgres)
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Redis config
	if cfg.RedisEnabled, err = getBool("REDIS_ENABLED", "true"); err != nil {
		return
	}
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}
	if cfg.RedisCacheTTL, err = getDuration("REDIS_CACHE_TTL", "10m"); err != nil {
		return
	}

	// Queue config
	cfg.KafkaBrokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	cfg.QueueBackend = getEnv("QUEUE_BACKEND", backendKafka)
	cfg.QueueTopic = getEnv("QUEUE_TOPIC", "transactions.process")
	cfg.QueueDLQTopic = getEnv("QUEUE_DLQ_TOPIC", "transactions.process.dlq")
	cfg.QueueGroupID = getEnv("QUEUE_GROUP_ID", "gw-payment-webhooks-workers")
	if cfg.QueueMaxDeliveries, err = getInt("QUEUE_MAX_DELIVERIES", "5"); err != nil {
		return
	}
	if cfg.QueueRetryBackoff, err = getDuration("QUEUE_RETRY_BACKOFF", "1s"); err != nil {
		return
	}
	if cfg.QueueBufferSize, err = getInt("QUEUE_BUFFER_SIZE", "1000"); err != nil {
		return
	}

	// Worker config
	if cfg.WorkerCount, err = getInt("WORKER_COUNT", "4"); err != nil {
		return
	}
	if cfg.SettlementDelay, err = getDuration("SETTLEMENT_DELAY", "30s"); err != nil {
		return
	}
	if cfg.SettlementTimeout, err = getDuration("SETTLEMENT_TIMEOUT", "60s"); err != nil {
		return
	}
	cfg.SettlementFailPattern = getEnv("SETTLEMENT_FAIL_PATTERN", "")

	// Reconciler config
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", "1m"); err != nil {
		return
	}
	if cfg.ReconcileStaleAfter, err = getDuration("RECONCILE_STALE_AFTER", "5m"); err != nil {
		return
	}
	if cfg.ReconcileBatch, err = getInt("RECONCILE_BATCH", "100"); err != nil {
		return
	}

	err = cfg.validate()
	return
}

func (c config) validate() error {
	switch c.StoreBackend {
	case backendPostgres, backendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend)
	}
	switch c.QueueBackend {
	case backendKafka, backendMemory:
	default:
		return fmt.Errorf("QUEUE_BACKEND: unknown backend %q", c.QueueBackend)
	}
	if c.WorkerCount < 1 {
		return errors.New("WORKER_COUNT must be at least 1")
	}
	if c.ReconcileInterval > 0 && c.ReconcileStaleAfter <= c.SettlementTimeout {
		return errors.New("RECONCILE_STALE_AFTER must exceed SETTLEMENT_TIMEOUT")
	}
	return nil
}

// store groups the transaction store roles used by the services.
type store struct {
	writer  services.TransactionWriter
	reader  services.TransactionReader
	txm     services.TxManager
	locker  services.TransactionLocker
	claimer workers.StaleClaimer
	close   func() error
}

func newStore(ctx context.Context, cfg config) (*store, error) {
	if cfg.StoreBackend == backendMemory {
		logger.Log.Warnw("using in-memory transaction store, data is lost on restart")
		mem := repositories.NewMemoryTransactionStore()
		return &store{writer: mem, reader: mem, txm: mem, locker: mem, claimer: mem, close: func() error { return nil }}, nil
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infow("connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if err := repositories.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	writeRepo := repositories.NewTransactionWriteRepository(db, repositories.GetTxFromContext)
	return &store{
		writer:  writeRepo,
		reader:  repositories.NewTransactionReadRepository(db),
		txm:     repositories.NewTxManager(db),
		locker:  writeRepo,
		claimer: writeRepo,
		close:   db.Close,
	}, nil
}

// newCache returns nil when the cache is disabled.
func newCache(ctx context.Context, cfg config) (services.TransactionCache, func() error, error) {
	if !cfg.RedisEnabled {
		return nil, func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("Redis connection error: %w", err)
	}
	return repositories.NewTransactionCacheRepository(rdb, cfg.RedisCacheTTL), rdb.Close, nil
}

// newQueue returns the job publisher and one consumer per worker.
func newQueue(cfg config) (services.JobPublisher, []workers.Consumer, func() error) {
	consumers := make([]workers.Consumer, 0, cfg.WorkerCount)

	if cfg.QueueBackend == backendMemory {
		q := queue.NewMemoryQueue(cfg.QueueBufferSize, cfg.QueueMaxDeliveries, cfg.QueueRetryBackoff)
		for i := 0; i < cfg.WorkerCount; i++ {
			consumers = append(consumers, q)
		}
		return q, consumers, func() error { return nil }
	}

	publisher := queue.NewKafkaPublisher(queue.NewKafkaWriter(cfg.KafkaBrokers, cfg.QueueTopic, true))
	closers := []func() error{publisher.Close}
	for i := 0; i < cfg.WorkerCount; i++ {
		c := queue.NewKafkaConsumer(
			queue.NewKafkaReader(cfg.KafkaBrokers, cfg.QueueTopic, cfg.QueueGroupID),
			queue.NewKafkaWriter(cfg.KafkaBrokers, cfg.QueueDLQTopic, false),
			cfg.QueueMaxDeliveries,
			cfg.QueueRetryBackoff,
		)
		consumers = append(consumers, c)
		closers = append(closers, c.Close)
	}

	return publisher, consumers, func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
}

// newRouter builds the HTTP routes.
func newRouter(cfg config, ingestion handlers.TransactionIngester, status handlers.TransactionStatusReader) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	r.Get("/", handlers.NewHealthHandler())
	r.Post("/v1/webhooks/transactions", handlers.NewTransactionWebhookHandler(ingestion, cfg.AckOnStorageFailure))
	r.Get("/v1/transactions/{transaction_id}", handlers.NewGetTransactionHandler(status))

	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	return r
}

// run initializes the logger, store, cache, queue, workers and HTTP server.
// Everything runs under one errgroup; the first failure or a shutdown signal
// stops the rest.
func run(ctx context.Context, cfg config) error {
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infow("logger initialized", "level", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	cache, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher, consumers, closeQueue := newQueue(cfg)
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Log.Errorw("failed to close queue", "error", err)
		}
	}()

	settlement, err := facades.NewSettlementFacade(cfg.SettlementDelay, cfg.SettlementFailPattern)
	if err != nil {
		return err
	}

	alerter := services.NewLogAlerter()
	ingestion := services.NewIngestionService(st.writer, st.reader, publisher, alerter)
	processing := services.NewProcessingService(st.txm, st.locker, settlement, alerter, cfg.SettlementTimeout)
	status := services.NewStatusService(st.reader, cache)

	pool := workers.NewPool(processing.Handle, consumers...)
	reconciler := workers.NewReconciler(st.claimer, publisher, cfg.ReconcileInterval, cfg.ReconcileStaleAfter, cfg.ReconcileBatch)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler:           newRouter(cfg, ingestion, status),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		return reconciler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Infow("shutdown signal received, stopping HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorw("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Log.Infow("service stopped")
	return err
}
