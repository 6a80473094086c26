package debug

import (
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meta556-debug/bid2buy-try/internal/container"
	"github.com/meta556-debug/bid2buy-try/internal/interface/middleware"
	"github.com/meta556-debug/bid2buy-try/pkg/response"
)

// Module exposes /api/health plus expvar metrics for local debugging.
// Metrics are only registered when DEBUG_METRICS_ENABLED is set and are
// restricted to private networks.

type Module struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

func New(pool *pgxpool.Pool, rdb *redis.Client) *Module {
	return &Module{Pool: pool, Redis: rdb}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.health)

	if container.GetConfig().DebugMetricsEnabled {
		rg.GET("/debug/vars", middleware.PrivateOnly(), gin.WrapH(expvar.Handler()))
	}
}

func (m *Module) health(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{"postgres": "ok", "redis": "ok"}
	status := http.StatusOK

	if m.Pool == nil {
		checks["postgres"] = "not configured"
		status = http.StatusServiceUnavailable
	} else if err := m.Pool.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if m.Redis == nil {
		checks["redis"] = "not configured"
	} else if err := m.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusOK {
		response.Success(c, status, checks, "healthy", nil)
		return
	}
	response.Fail(c, status, "unhealthy", checks)
}
