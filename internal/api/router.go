package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/api/handlers"
	"github.com/hamsalma/finance-site/internal/api/middleware"
	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/pkg/config"
	"github.com/hamsalma/finance-site/internal/pkg/logger"
)

// Deps are the services the routes call
type Deps struct {
	Simulation handlers.SimulationService
	Provider   handlers.StatsReporter
	Store      handlers.Pinger // nil with the memory-only cache
	Universe   *market.Universe
}

// Router holds all dependencies for API routing
type Router struct {
	engine            *gin.Engine
	config            *config.Config
	healthHandler     *handlers.HealthHandler
	simulationHandler *handlers.SimulationHandler
	universeHandler   *handlers.UniverseHandler
}

// NewRouter creates a new API router with all dependencies
func NewRouter(cfg *config.Config, deps Deps, version string) *Router {
	gin.SetMode(cfg.Server.Mode)

	// amounts are numbers on the wire, like every other figure
	decimal.MarshalJSONWithoutQuotes = true

	router := &Router{
		engine:            gin.New(),
		config:            cfg,
		healthHandler:     handlers.NewHealthHandler(deps.Provider, deps.Store, version),
		simulationHandler: handlers.NewSimulationHandler(deps.Simulation, deps.Universe),
		universeHandler:   handlers.NewUniverseHandler(deps.Universe),
	}

	router.setupMiddlewares()
	router.setupRoutes()

	return router
}

// setupMiddlewares configures all global middlewares
func (r *Router) setupMiddlewares() {
	// Recovery needs the request ID, so RequestID goes first
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery())

	accessLogger := log.Logger
	if r.config.Logging.FileEnabled {
		accessLogger = logger.NewAccessLogger(
			r.config.Logging.FilePath,
			r.config.Logging.RotationSize,
			r.config.Logging.RetentionDays,
		)
	}
	r.engine.Use(middleware.Logging(middleware.LoggingConfig{
		AccessLogger: &accessLogger,
		SkipPaths:    []string{"/api/health"},
	}))

	r.engine.Use(middleware.CORS(r.config.Server.AllowedOrigins))
	r.engine.Use(gzip.Gzip(gzip.DefaultCompression))
	r.engine.Use(middleware.Timeout(r.config.Server.RequestTimeout))
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Computation endpoints (no /api prefix, the front-end posts to the root)
	r.engine.POST("/simulate", r.simulationHandler.Simulate)
	r.engine.POST("/compare_acwi", r.simulationHandler.CompareACWI)
	r.engine.POST("/predict_returns", r.simulationHandler.PredictReturns)
	r.engine.POST("/compare_strategies", r.simulationHandler.CompareStrategies)

	api := r.engine.Group("/api")
	{
		api.GET("/health", r.healthHandler.Health)
		api.GET("/universe", r.universeHandler.List)
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
