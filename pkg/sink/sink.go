// Package sink publishes estimate results to downstream consumers.
package sink

import (
	"context"
	"sync/atomic"

	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

// Publisher delivers results somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, result protocol.ResultData) error
	Close() error
}

// Metrics counts publisher traffic.
type Metrics struct {
	Sent   int64 `json:"sent"`
	Acked  int64 `json:"acked"`
	Failed int64 `json:"failed"`
}

// Pending is the number of sent messages with no delivery report yet.
func (m Metrics) Pending() int64 {
	return m.Sent - m.Acked - m.Failed
}

// LogPublisher writes each result to the structured log. It is the fallback
// when no broker is configured.
type LogPublisher struct {
	published atomic.Int64
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the result. It fails only when ctx is already done.
func (p *LogPublisher) Publish(ctx context.Context, result protocol.ResultData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info("cone estimate",
		"id", result.ID,
		"found", result.Found,
		"orientation", result.Orientation,
		"x", result.X,
		"y", result.Y,
		"reason", result.Reason)
	p.published.Add(1)
	return nil
}

// Metrics reports how many results were logged. Logging is synchronous, so
// everything sent counts as acked.
func (p *LogPublisher) Metrics() Metrics {
	n := p.published.Load()
	return Metrics{Sent: n, Acked: n}
}

// Close is a no-op.
func (p *LogPublisher) Close() error {
	return nil
}
