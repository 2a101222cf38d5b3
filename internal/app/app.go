package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/blackticket/reservation-service/internal/repository"
	"github.com/blackticket/reservation-service/internal/storage"
	appvalidator "github.com/blackticket/reservation-service/internal/validator"
	"github.com/blackticket/reservation-service/internal/vcs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	metrics   metrics

	reservationRepo domain.ReservationRepository
	catalogRepo     domain.CatalogRepository
	userRepo        domain.UserRepository
	attachmentStore domain.AttachmentStore

	sweeperCancel context.CancelFunc
	sweeperDone   chan struct{}
}

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string

	DB          DBConfig
	Redis       RedisConfig
	ObjectStore ObjectStoreConfig
	Hold        HoldConfig
	Sweeper     SweeperConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type HoldConfig struct {
	// Duration is the hold lifetime; hold_expires_at = now + Duration.
	Duration time.Duration

	// RequireOwner rejects anonymous holds when set.
	RequireOwner bool

	MaxAttachments     int
	MaxAttachmentBytes int64
}

type SweeperConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

func Run() error {
	// Missing .env is fine, flags and real env vars still apply.
	_ = godotenv.Load()

	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", os.Getenv("RESERVATIONS_DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", os.Getenv("RESERVATIONS_REDIS_URL"), "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.ObjectStore.Endpoint, "object-store-endpoint", os.Getenv("OBJECT_STORE_ENDPOINT"), "S3-compatible object store endpoint")
	flag.StringVar(&cfg.ObjectStore.AccessKey, "object-store-access-key", os.Getenv("OBJECT_STORE_ACCESS_KEY"), "Object store access key")
	flag.StringVar(&cfg.ObjectStore.SecretKey, "object-store-secret-key", os.Getenv("OBJECT_STORE_SECRET_KEY"), "Object store secret key")
	flag.StringVar(&cfg.ObjectStore.Bucket, "object-store-bucket", "payment-proofs", "Object store bucket for payment proofs")
	flag.BoolVar(&cfg.ObjectStore.UseSSL, "object-store-ssl", true, "Use TLS for object store connections")

	flag.DurationVar(&cfg.Hold.Duration, "hold-duration", 600*time.Second, "Seat hold lifetime")
	flag.BoolVar(&cfg.Hold.RequireOwner, "require-owner", false, "Reject anonymous holds")
	flag.IntVar(&cfg.Hold.MaxAttachments, "max-attachments", 5, "Max payment proof attachments per hold")
	flag.Int64Var(&cfg.Hold.MaxAttachmentBytes, "max-attachment-bytes", 5*1024*1024, "Max size of a single attachment")

	flag.BoolVar(&cfg.Sweeper.Enabled, "sweeper-enabled", true, "Reclaim lapsed holds in the background")
	flag.DurationVar(&cfg.Sweeper.Interval, "sweeper-interval", time.Minute, "Interval between reclamation sweeps")
	flag.IntVar(&cfg.Sweeper.BatchSize, "sweeper-batch-size", 100, "Max holds reclaimed per sweep")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", os.Getenv("OTEL_COLLECTOR_URL"), "OTLP collector endpoint")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	app.StartSweeper()

	return app.Serve()
}

// New wires the application from explicit dependencies. Store and object
// store clients are injected into the components here; handlers hold no
// process-global state.
func New(cfg Config, logger *slog.Logger) (*Application, error) {
	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Warn("failed to instrument redis client", "error", err)
	}

	var attachmentStore domain.AttachmentStore

	if cfg.ObjectStore.Endpoint != "" {
		attachmentStore, err = storage.NewMinioStore(
			cfg.ObjectStore.Endpoint,
			cfg.ObjectStore.AccessKey,
			cfg.ObjectStore.SecretKey,
			cfg.ObjectStore.Bucket,
			cfg.ObjectStore.UseSSL,
		)
		if err != nil {
			db.Close()
			redisClient.Close()
			return nil, err
		}
	}

	app := &Application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       appvalidator.NewValidator(),
		metrics:         newMetrics(),
		reservationRepo: repository.NewPostgresReservationRepository(db),
		catalogRepo:     repository.NewPostgresCatalogRepository(db),
		userRepo:        repository.NewPostgresUserRepository(db),
		attachmentStore: attachmentStore,
	}

	return app, nil
}

func (app *Application) Close() {
	if app.sweeperCancel != nil {
		app.sweeperCancel()
		<-app.sweeperDone
	}

	app.redis.Close()
	app.db.Close()
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) Serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.attachRequestLogger)
	r.Use(app.recoverPanic)

	r.Get("/health", app.GetHealth)

	r.Route("/movies/{movieID}", func(r chi.Router) {
		r.Get("/schedule", app.GetMovieScheduleHandler)
		r.Post("/holds", app.CreateHoldHandler)
	})

	r.Route("/reservations/{reservationID}", func(r chi.Router) {
		r.Get("/", app.GetReservationHandler)
		r.Post("/confirm", app.ConfirmReservationHandler)
		r.Post("/cancel", app.CancelReservationHandler)
	})

	return r
}
