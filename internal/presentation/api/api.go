package api

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/collaby/docs"
	"github.com/hilthontt/collaby/internal/infrastructure/configs"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/metrics"
	"github.com/hilthontt/collaby/internal/infrastructure/ratelimiter"
	compileHandler "github.com/hilthontt/collaby/internal/presentation/handler/compile"
	healthHandler "github.com/hilthontt/collaby/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/collaby/internal/presentation/handler/rooms"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 5 * time.Second

type Application struct {
	config         configs.Config
	roomHandler    *roomHandler.Handler
	healthHandler  *healthHandler.Handler
	compileHandler *compileHandler.Handler
	logger         logging.Logger
	ratelimiter    *ratelimiter.Limiter
	metrics        *metrics.Metrics
	onShutdown     []func()
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	compileHandler *compileHandler.Handler,
	logger logging.Logger,
	ratelimiter *ratelimiter.Limiter,
	metrics *metrics.Metrics,
) *Application {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Application{
		config:         config,
		roomHandler:    roomHandler,
		healthHandler:  healthHandler,
		compileHandler: compileHandler,
		logger:         logger,
		ratelimiter:    ratelimiter,
		metrics:        metrics,
	}
}

// OnShutdown registers f to run when the server starts draining. Hijacked
// websocket connections are not closed by http.Server, so the registry goes here.
func (app *Application) OnShutdown(f func()) {
	app.onShutdown = append(app.onShutdown, f)
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)

	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)

	r.Get("/ws", app.roomHandler.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", app.roomHandler.CreateRoomHandler)
			r.Get("/{roomId}", app.roomHandler.GetRoomHandler)
			r.Get("/{roomId}/audit", app.roomHandler.GetRoomAuditHandler)
		})

		r.Post("/compile", app.compileHandler.CompileHandler)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Handle("/metrics", app.metrics.Handler())
	r.Handle("/debug/vars", expvar.Handler())

	docs.SwaggerInfo.Host = app.config.HTTP.Addr()
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return otelhttp.NewHandler(r, "collaby-http")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.HTTP.Addr(),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}
	for _, f := range app.onShutdown {
		srv.RegisterOnShutdown(f)
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.healthHandler.MarkUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
