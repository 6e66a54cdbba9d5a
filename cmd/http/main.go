package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/compiler"
	"github.com/hilthontt/collaby/internal/infrastructure/configs"
	"github.com/hilthontt/collaby/internal/infrastructure/events"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/messaging"
	"github.com/hilthontt/collaby/internal/infrastructure/metrics"
	"github.com/hilthontt/collaby/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/collaby/internal/infrastructure/tracing"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
	"github.com/hilthontt/collaby/internal/persistence/db"
	"github.com/hilthontt/collaby/internal/persistence/repository"
	"github.com/hilthontt/collaby/internal/presentation/api"
	"github.com/hilthontt/collaby/internal/presentation/handler/compile"
	"github.com/hilthontt/collaby/internal/presentation/handler/health"
	"github.com/hilthontt/collaby/internal/presentation/handler/rooms"
	"github.com/joho/godotenv"
)

const (
	serviceName = "collaby-registry"
)

// @title			Collaby API
// @version		1.0
// @description	Room registry for collaborative code editing.
// @BasePath		/
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer := tracing.NoopShutdown
	if cfg.Tracing.Enabled {
		shutdownTracer, err = tracing.InitTracer(tracing.NewConfig(serviceName, cfg))
		if err != nil {
			logger.Fatal(logging.General, logging.Startup, "failed to initialize the tracer", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}
	defer shutdownTracer(context.Background())

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Environment,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Error(logging.General, logging.Startup, "failed to initialize sentry", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer sentry.Flush(2 * time.Second)
	}

	m := metrics.New()

	var auditRepository domain.RoomAuditRepository
	if cfg.Audit.Enabled {
		mongoCfg := db.NewMongoConfig(cfg.Audit)
		mongoClient, err := db.NewMongoClient(ctx, mongoCfg, logger)
		if err != nil {
			logger.Fatal(logging.MongoDB, logging.Startup, "failed to connect to MongoDB", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer db.DisconnectMongo(context.Background(), mongoClient)

		auditRepository = repository.NewRoomAuditLogRepository(db.GetDatabase(mongoClient, mongoCfg))
		if err := auditRepository.EnsureIndexes(ctx); err != nil {
			logger.Warn(logging.MongoDB, logging.Startup, "failed to ensure audit indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	var publisher domain.RoomEventPublisher
	switch {
	case cfg.Messaging.Enabled:
		rabbitmq, err := messaging.NewRabbitMQ(cfg.Messaging.URI, cfg.Messaging.Exchange, logger)
		if err != nil {
			logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to RabbitMQ", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer rabbitmq.Close()

		publisher = events.NewRoomPublisher(rabbitmq)

		if auditRepository != nil {
			roomConsumer := events.NewRoomConsumer(rabbitmq, auditRepository, logger)
			go func() {
				if err := roomConsumer.Listen(ctx); err != nil {
					logger.Error(logging.RabbitMQ, logging.Consume, "room consumer stopped", map[logging.ExtraKey]any{
						logging.ErrorMessage: err.Error(),
					})
				}
			}()
		}
	case auditRepository != nil:
		publisher = events.NewAuditRecorder(auditRepository)
	}

	roomManager := ws.NewRoomManager(logger, m)
	wsCore := ws.NewCore(roomManager, publisher, logger, m)
	go wsCore.Run(ctx)

	var limits ratelimiter.Store
	switch cfg.RateLimiter.Backend {
	case "redis":
		redisClient := ratelimiter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal(logging.Redis, logging.Startup, "failed to connect to Redis", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		limits = ratelimiter.NewRedisStore(redisClient, serviceName+":rl:")
	default:
		limits = ratelimiter.NewMemoryStore(time.Minute)
	}
	defer limits.Close()

	rl := ratelimiter.New(limits, ratelimiter.Policy{
		Scope:        "api",
		Limit:        cfg.RateLimiter.Requests,
		Window:       cfg.RateLimiter.Window,
		SourceHeader: cfg.RateLimiter.SourceHeader,
	})
	compileQuota := ratelimiter.New(limits, ratelimiter.Policy{
		Scope:        "compile",
		Limit:        cfg.Compiler.MaxPerMinute,
		Window:       time.Minute,
		SourceHeader: cfg.RateLimiter.SourceHeader,
	})

	compileClient := compiler.NewClient(cfg.Compiler.URL, cfg.Compiler.Timeout, logger)

	roomHandler := rooms.NewHandler(wsCore, auditRepository, ws.NewClientOptions(cfg.WebSocket), logger)
	healthHandler := health.NewHandler(roomManager.Stats)
	compileHandler := compile.NewHandler(compileClient, compileQuota, logger)

	app := api.NewApplication(*cfg, roomHandler, healthHandler, compileHandler, logger, rl, m)
	app.OnShutdown(wsCore.Shutdown)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil && err != http.ErrServerClosed {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
