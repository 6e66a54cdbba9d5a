package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/configs"
	"github.com/hilthontt/collaby/internal/infrastructure/metrics"
	"github.com/hilthontt/collaby/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
	compileHandler "github.com/hilthontt/collaby/internal/presentation/handler/compile"
	healthHandler "github.com/hilthontt/collaby/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/collaby/internal/presentation/handler/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCompiler struct{}

func (staticCompiler) Compile(context.Context, domain.CompileRequest) (*domain.CompileResult, error) {
	return &domain.CompileResult{Output: "ok"}, nil
}

func newApp(t *testing.T, cfg configs.Config, limit int) http.Handler {
	t.Helper()

	core := ws.NewCore(ws.NewRoomManager(nil, nil), nil, nil, nil)
	m := metrics.New()
	store := ratelimiter.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	limiter := ratelimiter.New(store, ratelimiter.Policy{Scope: "api", Limit: limit, Window: time.Minute})

	app := NewApplication(
		cfg,
		roomHandler.NewHandler(core, nil, ws.DefaultClientOptions(), nil),
		healthHandler.NewHandler(core.Rooms().Stats),
		compileHandler.NewHandler(staticCompiler{}, nil, nil),
		nil,
		limiter,
		m,
	)
	return app.Mount()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMount_Routes(t *testing.T) {
	h := newApp(t, configs.Config{}, 100)

	for _, path := range []string{"/api/health", "/api/healthz", "/api/ready", "/api/live", "/debug/vars", "/swagger/doc.json"} {
		assert.Equal(t, http.StatusOK, get(h, path).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, get(h, "/api/rooms/missing").Code)
}

func TestMount_MetricsRecordRequests(t *testing.T) {
	h := newApp(t, configs.Config{}, 100)

	get(h, "/api/health")
	rec := get(h, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `collaby_http_request_duration_seconds_count{method="GET",route="/api/health",status="200"} 1`)
}

func TestMount_RateLimited(t *testing.T) {
	h := newApp(t, configs.Config{}, 2)

	rec := get(h, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, get(h, "/api/health").Code)

	rec = get(h, "/api/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestMount_CorsPreflight(t *testing.T) {
	cfg := configs.Config{HTTP: configs.HTTPConfig{AllowedOrigins: []string{"http://localhost:3000"}}}
	h := newApp(t, cfg, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/compile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
