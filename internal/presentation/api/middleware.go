package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/collaby/internal/infrastructure/json"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
)

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := app.ratelimiter.Source(r)
		decision, err := app.ratelimiter.Take(r.Context(), source)
		if err != nil {
			app.logger.Error(logging.Redis, logging.RateLimiting, "rate limit store unavailable", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		if !decision.Allowed {
			app.logger.Warn(logging.RequestResponse, logging.RateLimiting, "request rate limited", map[logging.ExtraKey]any{
				logging.ClientIp: source,
				logging.Path:     r.URL.Path,
			})
			json.WriteRateLimitError(w, decision.RetryAfterSeconds())
			return
		}
		if decision.Remaining >= 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(app.ratelimiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) enableCors(next http.Handler) http.Handler {
	allowedHeaders := "Content-Type, Authorization"
	if len(app.config.HTTP.AllowedHeaders) > 0 {
		allowedHeaders = strings.Join(app.config.HTTP.AllowedHeaders, ", ")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := app.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Add("Vary", "Origin")
		}

		// allow preflight requests from the browser API
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) allowedOrigin(origin string) string {
	allowed := app.config.HTTP.AllowedOrigins
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(allowed, origin) {
		return origin
	}
	return ""
}

func (app *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			// Hijacked for a websocket upgrade.
			status = http.StatusSwitchingProtocols
		}

		elapsed := time.Since(start)
		app.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		app.logger.Info(logging.RequestResponse, logging.Api, "request served", map[logging.ExtraKey]any{
			logging.Method:     r.Method,
			logging.Path:       route,
			logging.StatusCode: status,
			logging.Latency:    elapsed.Milliseconds(),
			logging.ClientIp:   r.RemoteAddr,
			logging.RequestId:  middleware.GetReqID(r.Context()),
		})
	})
}
