package session

import (
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	fws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

func TestNewManager(t *testing.T) {
	m := NewManager(cone.Reference())

	if m.Count() != 0 {
		t.Error("Count should be 0 initially")
	}
	if m.Get("nonexistent") != nil {
		t.Error("Get should return nil for an unknown session")
	}
	if len(m.Infos()) != 0 {
		t.Error("Infos should be empty initially")
	}
	if stats := m.GetStats(); stats != (Stats{}) {
		t.Errorf("GetStats() = %+v, want zero", stats)
	}
}

func TestReply(t *testing.T) {
	m := NewManager(cone.Reference())

	estimate, _ := protocol.NewEstimateMessage(140, 180, -77)
	estimateBytes, _ := estimate.Bytes()
	ping, _ := protocol.NewPingMessage("p1")
	pingBytes, _ := ping.Bytes()
	pong, _ := protocol.NewPongMessage("p1", 1, 2)
	pongBytes, _ := pong.Bytes()

	tests := []struct {
		name     string
		input    []byte
		wantType protocol.MessageType
		wantNil  bool
	}{
		{"estimate", estimateBytes, protocol.TypeResult, false},
		{"ping", pingBytes, protocol.TypePong, false},
		{"pong needs no answer", pongBytes, "", true},
		{"garbage", []byte("not json"), protocol.TypeError, false},
		{"unknown type", []byte(`{"type":"frame"}`), protocol.TypeError, false},
		{"bad estimate body", []byte(`{"type":"estimate","data":{"left":"x"}}`), protocol.TypeError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := m.Reply("s1", tt.input)
			if tt.wantNil {
				if reply != nil {
					t.Errorf("Reply() = %+v, want nil", reply)
				}
				return
			}
			if reply == nil {
				t.Fatal("Reply() = nil")
			}
			if reply.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", reply.Type, tt.wantType)
			}
		})
	}
}

func TestEstimate_ReportsResults(t *testing.T) {
	m := NewManager(cone.Reference())

	var got []protocol.ResultData
	m.OnResult(func(sessionID string, result protocol.ResultData) {
		if sessionID != "s1" {
			t.Errorf("sessionID = %q", sessionID)
		}
		got = append(got, result)
	})

	ok := m.Estimate("s1", protocol.EstimateRequest{Left: 140, Right: 180, Heading: -77})
	bad := m.Estimate("s1", protocol.EstimateRequest{ID: "zero", Left: 160, Right: 160})

	if !ok.Found || ok.ID == "" || ok.Orientation != "tip_left_and_away" {
		t.Errorf("found result = %+v", ok)
	}
	if bad.Found || bad.ID != "zero" || bad.Reason != protocol.ReasonDegenerate {
		t.Errorf("failed result = %+v", bad)
	}
	if len(got) != 2 {
		t.Fatalf("callback ran %d times, want 2", len(got))
	}

	stats := m.GetStats()
	if stats.Estimates != 2 || stats.Failures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func newTestApp(m *Manager) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.RegisterRoutes(app)
	return app
}

func TestWebSocketSession(t *testing.T) {
	m := NewManager(cone.Reference())

	var callbacks atomic.Int32
	m.OnResult(func(string, protocol.ResultData) { callbacks.Add(1) })

	app := newTestApp(m)
	go app.Listen(":18180")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18180/ws/estimate/bench-cam", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)
	if m.Count() != 1 || m.Get("bench-cam") == nil {
		t.Fatalf("session not registered: count = %d", m.Count())
	}

	msg, _ := protocol.NewEstimateMessage(140, 180, 0)
	data, _ := msg.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, respData, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	resp, err := protocol.ParseMessage(respData)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Type != protocol.TypeResult {
		t.Fatalf("Type = %s, want result", resp.Type)
	}
	result, err := resp.GetResultData()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Found || result.Orientation != "tip_directly_away" {
		t.Errorf("result = %+v", result)
	}
	if callbacks.Load() != 1 {
		t.Errorf("callbacks = %d, want 1", callbacks.Load())
	}

	ws.Close()
	time.Sleep(100 * time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0 after disconnect", m.Count())
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(NewManager(cone.Reference()))

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/estimate", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("Status = %d, want %d", resp.StatusCode, fiber.StatusUpgradeRequired)
	}
}
