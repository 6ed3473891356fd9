package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hamsalma/finance-site/internal/infra/database/postgres"
	"github.com/hamsalma/finance-site/internal/service/marketdata"
)

// StatsReporter is the market data provider seen by the health route
type StatsReporter interface {
	GetStats() marketdata.Stats
}

// Pinger is a durable cache store that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolReporter is a store behind a connection pool (postgres); its health
// carries the pool counters
type PoolReporter interface {
	Health(ctx context.Context) *postgres.HealthStatus
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	provider  StatsReporter
	store     Pinger // nil with the memory-only cache
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(provider StatsReporter, store Pinger, version string) *HealthHandler {
	return &HealthHandler{
		provider:  provider,
		store:     store,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string           `json:"status"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Timestamp     time.Time        `json:"timestamp"`
	MarketData    marketdata.Stats `json:"market_data"`
	Store         *StoreHealth     `json:"store,omitempty"`
}

// StoreHealth represents the durable cache store check
type StoreHealth struct {
	Status       string         `json:"status"`
	ResponseTime string         `json:"response_time"`
	Details      map[string]any `json:"details,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Health handles GET /api/health. A failing store degrades the service
// without making it unavailable: the memory cache and the vendor still
// answer.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now(),
		MarketData:    h.provider.GetStats(),
	}

	if h.store != nil {
		resp.Store = h.checkStore(c.Request.Context())
		if resp.Store.Status != postgres.StatusHealthy {
			resp.Status = "degraded"
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) checkStore(ctx context.Context) *StoreHealth {
	if pool, ok := h.store.(PoolReporter); ok {
		health := pool.Health(ctx)
		return &StoreHealth{
			Status:       health.Status,
			ResponseTime: health.ResponseTime.String(),
			Details: map[string]any{
				"active_conns": health.ActiveConns,
				"idle_conns":   health.IdleConns,
				"total_conns":  health.TotalConns,
				"max_conns":    health.MaxConns,
			},
			Error: health.Error,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	store := &StoreHealth{Status: postgres.StatusHealthy, ResponseTime: time.Since(start).String()}
	if err != nil {
		store.Status = postgres.StatusUnhealthy
		store.Error = err.Error()
	}
	return store
}
