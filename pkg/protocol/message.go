// Package protocol defines the JSON messages exchanged with cone estimate
// clients over WebSocket, HTTP and the result sink.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server
	TypeEstimate MessageType = "estimate" // Estimate request

	// Server → Client
	TypeResult MessageType = "result" // Estimate result
	TypeError  MessageType = "error"  // Malformed or unsupported message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// EstimateRequest asks for the position of one detected cone.
type EstimateRequest struct {
	ID      string  `json:"id,omitempty"`
	Left    int     `json:"left"`    // Left edge of the bounding box, pixels
	Right   int     `json:"right"`   // Right edge of the bounding box, pixels
	Heading float64 `json:"heading"` // Degrees, 0 = tip pointing away
}

// Point is a camera-frame position in target length units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResultData is the outcome of one estimate.
// X and Y are -1 whenever Found is false.
type ResultData struct {
	ID          string  `json:"id"`
	Found       bool    `json:"found"`
	Orientation string  `json:"orientation"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Angle       float64 `json:"angle"` // Bearing to the center, degrees
	Range       float64 `json:"range"`
	Corners     []Point `json:"corners,omitempty"` // Left then right base corner

	Left    int     `json:"left"`
	Right   int     `json:"right"`
	Heading float64 `json:"heading"`

	Reason string `json:"reason,omitempty"` // invalid_input, no_match, degenerate
	Error  string `json:"error,omitempty"`
}

// ErrorData reports a message the server could not handle.
type ErrorData struct {
	Message string `json:"message"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
