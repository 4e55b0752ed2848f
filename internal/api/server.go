package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/api/handlers"
	"github.com/farmline/backend/internal/api/middleware/auth"
	"github.com/farmline/backend/internal/config"
	"github.com/farmline/backend/internal/game/manager"
	"github.com/farmline/backend/internal/game/websocket"
)

// CustomValidator is the request validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// RequestMetrics tracks metrics for API requests
type RequestMetrics struct {
	RequestCount map[string]int
	DurationSum  map[string]float64
	mutex        sync.RWMutex
}

// Server represents the API server
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	gameManager *manager.GameManager
	wsHub       *websocket.Hub
	logger      *zap.SugaredLogger
	metrics     *RequestMetrics
	mongoClient *mongo.Client
	redisClient *redis.Client
	transcripts handlers.TranscriptSource
}

// NewServer creates a new API server. The hub and manager are wired to
// each other by the caller before the server starts.
func NewServer(cfg *config.Config, gameManager *manager.GameManager, wsHub *websocket.Hub, mongoClient *mongo.Client, redisClient *redis.Client, transcripts handlers.TranscriptSource, logger *zap.SugaredLogger) *Server {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	server := &Server{
		echo:        e,
		cfg:         cfg,
		gameManager: gameManager,
		wsHub:       wsHub,
		logger:      logger,
		metrics: &RequestMetrics{
			RequestCount: make(map[string]int),
			DurationSum:  make(map[string]float64),
		},
		mongoClient: mongoClient,
		redisClient: redisClient,
		transcripts: transcripts,
	}

	server.configureMiddleware()
	server.configureRoutes()

	return server
}

// configureMiddleware sets up Echo middleware
func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(s.metricsMiddleware)

	// Attach a request-scoped logger carrying the request ID.
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			c.Set("requestID", requestID)

			requestLogger := s.logger.With(
				"requestID", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"clientIP", c.RealIP(),
			)
			c.Set("logger", requestLogger)

			return next(c)
		}
	})
}

// metricsMiddleware records metrics for each request
func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		duration := time.Since(start).Seconds()
		key := c.Request().Method + ":" + c.Request().URL.Path + ":" + strconv.Itoa(c.Response().Status)

		s.metrics.mutex.Lock()
		s.metrics.RequestCount[key]++
		s.metrics.DurationSum[key] += duration
		s.metrics.mutex.Unlock()

		return err
	}
}

// configureRoutes sets up API routes
func (s *Server) configureRoutes() {
	gameHandler := handlers.NewGameHandler(s.gameManager, s.cfg, s.transcripts, s.logger)
	wsHandler := handlers.NewWebSocketHandler(s.wsHub, s.logger)
	healthHandler := handlers.NewHealthHandler(s.mongoClient, s.redisClient, s.logger)

	apiV1 := s.echo.Group("/api/v1")

	jwtMiddleware := auth.JWTMiddleware(s.cfg.JWT.Secret)

	// Game creation and the lobby listing need no player token; everything
	// scoped to a player does.
	gameGroup := apiV1.Group("/games")
	gameGroup.POST("", gameHandler.CreateGame)
	gameGroup.GET("", gameHandler.ListGames)
	gameGroup.GET("/:gameId/state", gameHandler.GetGameState, jwtMiddleware)
	gameGroup.GET("/:gameId/transcript", gameHandler.GetTranscript, jwtMiddleware)
	gameGroup.GET("/:gameId/legal-actions", gameHandler.LegalActions, jwtMiddleware)
	gameGroup.POST("/:gameId/actions", gameHandler.SubmitAction, jwtMiddleware)
	gameGroup.POST("/:gameId/skip", gameHandler.SkipTurn, jwtMiddleware)

	// WebSocket routes
	s.echo.GET("/ws/:gameId", wsHandler.HandleConnection, jwtMiddleware)
	s.echo.GET("/ws/lobby", wsHandler.HandleLobbyConnection)

	// Health check endpoint (no auth required)
	s.echo.GET("/health", healthHandler.Check)

	// Metrics endpoint - returns the in-process request counters
	s.echo.GET("/metrics", func(c echo.Context) error {
		s.metrics.mutex.RLock()
		defer s.metrics.mutex.RUnlock()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"requestCount": s.metrics.RequestCount,
			"durationSum":  s.metrics.DurationSum,
		})
	})
}

// Start starts the API server
func (s *Server) Start() error {
	address := s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
