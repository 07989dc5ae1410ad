package protocol

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-conepose/pkg/cone"
)

// Failure reasons carried in ResultData.Reason.
const (
	ReasonInvalidInput = "invalid_input"
	ReasonNoMatch      = "no_match"
	ReasonDegenerate   = "degenerate"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewEstimateMessage creates an estimate request with a fresh ID
func NewEstimateMessage(left, right int, heading float64) (*Message, error) {
	return NewMessage(TypeEstimate, EstimateRequest{
		ID:      uuid.NewString(),
		Left:    left,
		Right:   right,
		Heading: heading,
	})
}

// NewResultMessage wraps a result
func NewResultMessage(result ResultData) (*Message, error) {
	return NewMessage(TypeResult, result)
}

// NewErrorMessage creates an error message
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: text})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// WithID returns the request with an ID, generating one if it was empty.
func (r EstimateRequest) WithID() EstimateRequest {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return r
}

// NewResult converts a locator outcome into a result for req.
func NewResult(req EstimateRequest, est cone.Estimate, err error) ResultData {
	res := ResultData{
		ID:          req.ID,
		Found:       err == nil,
		Orientation: est.Orientation.String(),
		X:           est.Center.X,
		Y:           est.Center.Y,
		Left:        req.Left,
		Right:       req.Right,
		Heading:     req.Heading,
	}

	if err != nil {
		res.Reason = Reason(err)
		res.Error = err.Error()
		return res
	}

	res.Angle = est.Bearing().Degrees()
	res.Range = est.Range()
	res.Corners = []Point{
		{X: est.LeftCorner.X, Y: est.LeftCorner.Y},
		{X: est.RightCorner.X, Y: est.RightCorner.Y},
	}
	return res
}

// Reason classifies a locator error. It returns "" for nil.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, cone.ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, cone.ErrNoMatch):
		return ReasonNoMatch
	default:
		return ReasonDegenerate
	}
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetEstimateRequest extracts an estimate request from a message
func (m *Message) GetEstimateRequest() (*EstimateRequest, error) {
	var data EstimateRequest
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResultData extracts a result from a message
func (m *Message) GetResultData() (*ResultData, error) {
	var data ResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
