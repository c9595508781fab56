package server

import (
	"encoding/json"

	"backend-strideup/internal/auth"
	"backend-strideup/internal/config"
	"backend-strideup/internal/draft"
	"backend-strideup/internal/logger"
	"backend-strideup/internal/metrics"
	"backend-strideup/internal/stream"
	"backend-strideup/internal/tracking"
	"backend-strideup/internal/waypoint"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Metrics  *metrics.Collector
	Log      logger.Logger
	Tracking *tracking.Service
	Routes   *waypoint.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, m *metrics.Collector, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	app := fiber.New()
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	hub := stream.NewHub(redisClient, log)
	trackingSvc := tracking.NewService(db, hub, m, log)
	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   hub,
		Metrics:  m,
		Log:      log,
		Tracking: trackingSvc,
		Routes:   waypoint.NewService(db, trackingSvc, draft.NewStore(redisClient, cfg.DraftTTL), hub, m, log),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(s.Metrics.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	waypoint.RegisterRoutes(s.App.Group("/routes"), s.Routes, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.snapshot)
}

// snapshot gives a new live viewer the session's current distance.
func (s *Server) snapshot(sessionID string) ([]byte, bool) {
	total, ok := s.Tracking.LiveDistance(sessionID)
	if !ok {
		return nil, false
	}
	payload, err := json.Marshal(stream.Event{
		Type:      "snapshot",
		SessionID: sessionID,
		Payload:   tracking.DistanceUpdate{TotalDistanceM: total},
	})
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Close stops the live update fan-out.
func (s *Server) Close() {
	s.Stream.Close()
}
