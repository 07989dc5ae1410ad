// Package session serves request/response cone estimates over WebSocket.
// Each connection is a session; every estimate message gets exactly one
// result message back.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

// Estimator solves one bounding box and heading.
type Estimator interface {
	EstimateTargetPosition(left, right int, headingDegrees float64) (cone.Estimate, error)
}

// Session is one connected estimate client.
type Session struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the session.
func (s *Session) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.LastSeen = time.Now()
	s.mu.Unlock()
}

// Manager tracks sessions and answers their messages.
type Manager struct {
	estimator Estimator

	mu       sync.RWMutex
	sessions map[string]*Session
	onResult func(sessionID string, result protocol.ResultData)

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	estimates        atomic.Uint64
	failures         atomic.Uint64
}

// NewManager creates a session manager backed by est.
func NewManager(est Estimator) *Manager {
	return &Manager{
		estimator: est,
		sessions:  make(map[string]*Session),
	}
}

// OnResult sets the callback run after every estimate, found or not.
func (m *Manager) OnResult(callback func(sessionID string, result protocol.ResultData)) {
	m.mu.Lock()
	m.onResult = callback
	m.mu.Unlock()
}

// RegisterRoutes mounts the estimate endpoint. The caller is expected to
// gate /ws on websocket.IsWebSocketUpgrade.
func (m *Manager) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/estimate", websocket.New(m.handle))
	router.Get("/ws/estimate/:id", websocket.New(m.handle))
}

func (m *Manager) handle(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	s := &Session{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()
	log.Info("estimate session opened", "session", id, "total", count)

	defer func() {
		m.mu.Lock()
		delete(m.sessions, id)
		count := len(m.sessions)
		m.mu.Unlock()
		log.Info("estimate session closed", "session", id, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("estimate session read ended", "session", id, "error", err)
			return
		}
		s.touch()
		m.messagesReceived.Add(1)

		reply := m.Reply(id, data)
		if reply == nil {
			continue
		}
		if err := s.Send(reply); err != nil {
			log.Warn("estimate session write failed", "session", id, "error", err)
			return
		}
		m.messagesSent.Add(1)
	}
}

// Reply handles one raw message from a session and returns the answer,
// or nil when none is owed.
func (m *Manager) Reply(sessionID string, data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Debug("unparseable session message", "session", sessionID, "error", err)
		return errorMessage(err.Error())
	}

	switch msg.Type {
	case protocol.TypeEstimate:
		req, err := msg.GetEstimateRequest()
		if err != nil {
			return errorMessage("invalid estimate request: " + err.Error())
		}
		result := m.Estimate(sessionID, *req)
		reply, err := protocol.NewResultMessage(result)
		if err != nil {
			return errorMessage(err.Error())
		}
		return reply

	case protocol.TypePing:
		var id string
		if ping, err := msg.GetPingData(); err == nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return errorMessage(err.Error())
		}
		return pong

	case protocol.TypePong:
		return nil

	default:
		return errorMessage("unsupported message type " + string(msg.Type))
	}
}

// Estimate runs one request through the estimator and reports the result.
func (m *Manager) Estimate(sessionID string, req protocol.EstimateRequest) protocol.ResultData {
	req = req.WithID()
	est, err := m.estimator.EstimateTargetPosition(req.Left, req.Right, req.Heading)
	result := protocol.NewResult(req, est, err)

	m.estimates.Add(1)
	if !result.Found {
		m.failures.Add(1)
	}

	m.mu.RLock()
	cb := m.onResult
	m.mu.RUnlock()
	if cb != nil {
		cb(sessionID, result)
	}
	return result
}

func errorMessage(text string) *protocol.Message {
	msg, err := protocol.NewErrorMessage(text)
	if err != nil {
		return nil
	}
	return msg
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Get returns a session by ID, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Stats contains session statistics
type Stats struct {
	Sessions         int    `json:"sessions"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	Estimates        uint64 `json:"estimates"`
	Failures         uint64 `json:"failures"`
}

// GetStats returns session statistics
func (m *Manager) GetStats() Stats {
	return Stats{
		Sessions:         m.Count(),
		MessagesReceived: m.messagesReceived.Load(),
		MessagesSent:     m.messagesSent.Load(),
		Estimates:        m.estimates.Load(),
		Failures:         m.failures.Load(),
	}
}

// Info describes an open session.
type Info struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Infos lists the open sessions.
func (m *Manager) Infos() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.mu.Lock()
		infos = append(infos, Info{ID: s.ID, Connected: s.Connected, LastSeen: s.LastSeen})
		s.mu.Unlock()
	}
	return infos
}
