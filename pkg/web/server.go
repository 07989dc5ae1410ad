// Package web serves cone estimates over HTTP and WebSocket.
package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/hub"
	"github.com/teslashibe/go-conepose/pkg/protocol"
	"github.com/teslashibe/go-conepose/pkg/session"
	"github.com/teslashibe/go-conepose/pkg/sink"
)

// recentLimit is how many results /api/results keeps.
const recentLimit = 100

// Options configures a Server.
type Options struct {
	Port      string
	Version   string
	Camera    camera.Config
	Geometry  cone.Geometry
	Publisher sink.Publisher // Optional
	Debug     bool
}

// Server is the cone estimate service.
type Server struct {
	app     *fiber.App
	port    string
	version string
	started time.Time

	cameras  *camera.Manager
	geometry cone.Geometry

	locatorMu sync.RWMutex
	locator   *cone.Locator

	results   *hub.Hub
	sessions  *session.Manager
	publisher sink.Publisher

	recentMu sync.RWMutex
	recent   []protocol.ResultData

	stats *counters

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer builds the service and its routes. It does not listen yet.
func NewServer(opts Options) (*Server, error) {
	locator, err := cone.NewLocator(opts.Camera, opts.Geometry)
	if err != nil {
		return nil, err
	}

	s := &Server{
		port:      opts.Port,
		version:   opts.Version,
		started:   time.Now(),
		cameras:   camera.NewManager(opts.Camera),
		geometry:  opts.Geometry,
		locator:   locator,
		results:   hub.New("results"),
		publisher: opts.Publisher,
		recent:    make([]protocol.ResultData, 0, recentLimit),
		stats:     newCounters(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cameras.OnConfigChange = s.applyCamera

	s.sessions = session.NewManager(s)
	s.sessions.OnResult(func(sessionID string, result protocol.ResultData) {
		s.record(s.ctx, result)
	})

	app := fiber.New(fiber.Config{
		AppName:               "conepose",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if opts.Debug {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/config", s.handleConfig)
	api.Put("/camera", s.handleUpdateCamera)
	api.Get("/presets", s.handlePresets)
	api.Get("/estimate", s.handleEstimateQuery)
	api.Post("/estimate", s.handleEstimate)
	api.Get("/results", s.handleRecent)
	api.Get("/sessions", s.handleSessions)
	api.Get("/plan", s.handlePlan)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/results", websocket.New(s.handleResultsWS))
	s.sessions.RegisterRoutes(app)

	s.app = app
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Locator returns the locator for the active camera.
func (s *Server) Locator() *cone.Locator {
	s.locatorMu.RLock()
	defer s.locatorMu.RUnlock()
	return s.locator
}

// applyCamera rebuilds the locator for a new camera model.
func (s *Server) applyCamera(cfg camera.Config) error {
	locator, err := cone.NewLocator(cfg, s.geometry)
	if err != nil {
		return err
	}
	s.locatorMu.Lock()
	s.locator = locator
	s.locatorMu.Unlock()
	log.Info("camera changed", "name", cfg.Name, "fov", cfg.FOV, "width", cfg.Width)
	return nil
}

// EstimateTargetPosition solves with the active camera.
func (s *Server) EstimateTargetPosition(left, right int, headingDegrees float64) (cone.Estimate, error) {
	return s.Locator().EstimateTargetPosition(left, right, headingDegrees)
}

// Process estimates one request and records the result.
func (s *Server) Process(ctx context.Context, req protocol.EstimateRequest) protocol.ResultData {
	req = req.WithID()
	est, err := s.EstimateTargetPosition(req.Left, req.Right, req.Heading)
	result := protocol.NewResult(req, est, err)
	s.record(ctx, result)
	return result
}

// record keeps, counts, broadcasts and publishes a result.
func (s *Server) record(ctx context.Context, result protocol.ResultData) {
	s.recentMu.Lock()
	if len(s.recent) == recentLimit {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:recentLimit-1]
	}
	s.recent = append(s.recent, result)
	s.recentMu.Unlock()

	s.stats.add(result)

	if msg, err := protocol.NewResultMessage(result); err == nil {
		if data, err := msg.Bytes(); err == nil {
			s.results.Broadcast(data)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, result); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("publish result failed", "id", result.ID, "error", err)
		}
	}
}

// Recent returns the most recent results, oldest first.
func (s *Server) Recent() []protocol.ResultData {
	s.recentMu.RLock()
	defer s.recentMu.RUnlock()
	return append([]protocol.ResultData(nil), s.recent...)
}

// Start runs the broadcast hub and listens until the server is shut down.
func (s *Server) Start() error {
	go s.results.Run(s.ctx)

	log.Info("conepose listening",
		"port", s.port,
		"camera", s.cameras.GetConfig().Name,
		"results_ws", "/ws/results",
		"estimate_ws", "/ws/estimate")
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the hub and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.app.ShutdownWithContext(ctx)
}
