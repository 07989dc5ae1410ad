package web

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/hub"
	"github.com/teslashibe/go-conepose/pkg/plan"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"version":    s.version,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"camera":     s.cameras.GetConfig().Name,
		"sessions":   s.sessions.Count(),
		"dashboards": s.results.ClientCount(),
	})
}

// ConfigResponse describes the active models.
type ConfigResponse struct {
	Camera   camera.Config `json:"camera"`
	Geometry cone.Geometry `json:"geometry"`
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	l := s.Locator()
	return c.JSON(ConfigResponse{Camera: l.Camera(), Geometry: l.Geometry()})
}

// handleUpdateCamera switches presets or overrides fov/width at runtime.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.cameras.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.cameras.GetConfig())
}

func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets": camera.Presets(),
		"names":   camera.PresetNames(),
		"active":  s.cameras.GetConfig().Name,
	})
}

// statusFor maps a result to its HTTP status code.
func statusFor(result protocol.ResultData) int {
	switch {
	case result.Found:
		return fiber.StatusOK
	case result.Reason == protocol.ReasonInvalidInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func (s *Server) handleEstimate(c *fiber.Ctx) error {
	var req protocol.EstimateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	result := s.Process(c.UserContext(), req)
	return c.Status(statusFor(result)).JSON(result)
}

func (s *Server) handleEstimateQuery(c *fiber.Ctx) error {
	req, err := parseQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	result := s.Process(c.UserContext(), req)
	return c.Status(statusFor(result)).JSON(result)
}

// parseQuery reads left, right and heading from the query string.
// All three are required.
func parseQuery(c *fiber.Ctx) (protocol.EstimateRequest, error) {
	req := protocol.EstimateRequest{ID: c.Query("id")}

	var err error
	if req.Left, err = strconv.Atoi(c.Query("left")); err != nil {
		return req, fmt.Errorf("left: %w", err)
	}
	if req.Right, err = strconv.Atoi(c.Query("right")); err != nil {
		return req, fmt.Errorf("right: %w", err)
	}
	if req.Heading, err = strconv.ParseFloat(c.Query("heading"), 64); err != nil {
		return req, fmt.Errorf("heading: %w", err)
	}
	return req, nil
}

func (s *Server) handleRecent(c *fiber.Ctx) error {
	return c.JSON(s.Recent())
}

func (s *Server) handleSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sessions": s.sessions.Infos(),
		"stats":    s.sessions.GetStats(),
	})
}

// handlePlan renders a top-down view without recording a result.
// Unsolvable scenes still render; X-Cone-Found tells the caller.
func (s *Server) handlePlan(c *fiber.Ctx) error {
	req, err := parseQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	format, err := plan.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	size := c.QueryInt("size", plan.DefaultSize)
	renderer, err := plan.NewRenderer(size, size)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	l := s.Locator()
	est, estErr := l.EstimateTargetPosition(req.Left, req.Right, req.Heading)
	if errors.Is(estErr, cone.ErrInvalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": estErr.Error()})
	}

	data, err := renderer.Encode(plan.Scene{
		Camera:   l.Camera(),
		Geometry: l.Geometry(),
		Left:     req.Left,
		Right:    req.Right,
		Heading:  req.Heading,
		Estimate: est,
		Err:      estErr,
	}, format)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set("X-Cone-Found", strconv.FormatBool(estErr == nil))
	return c.Send(data)
}

// handleResultsWS streams every recorded result to a dashboard.
func (s *Server) handleResultsWS(c *websocket.Conn) {
	hub.NewClient(s.results, c).Run()
}
