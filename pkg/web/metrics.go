package web

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

// counters tally results by outcome.
type counters struct {
	total atomic.Uint64
	found atomic.Uint64

	mu            sync.Mutex
	byOrientation map[string]uint64
	byReason      map[string]uint64
}

func newCounters() *counters {
	return &counters{
		byOrientation: make(map[string]uint64),
		byReason:      make(map[string]uint64),
	}
}

func (c *counters) add(r protocol.ResultData) {
	c.total.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Found {
		c.found.Add(1)
		c.byOrientation[r.Orientation]++
		return
	}
	c.byReason[r.Reason]++
}

// Snapshot is a copy of the result counters.
type Snapshot struct {
	Total         uint64            `json:"total"`
	Found         uint64            `json:"found"`
	ByOrientation map[string]uint64 `json:"by_orientation"`
	ByReason      map[string]uint64 `json:"by_reason"`
}

func (c *counters) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Total:         c.total.Load(),
		Found:         c.found.Load(),
		ByOrientation: make(map[string]uint64, len(c.byOrientation)),
		ByReason:      make(map[string]uint64, len(c.byReason)),
	}
	for k, v := range c.byOrientation {
		snap.ByOrientation[k] = v
	}
	for k, v := range c.byReason {
		snap.ByReason[k] = v
	}
	return snap
}

// Stats returns the result counters.
func (s *Server) Stats() Snapshot {
	return s.stats.snapshot()
}

func writeLabelled(b *strings.Builder, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

// handleMetrics renders Prometheus text exposition.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	snap := s.Stats()
	sessions := s.sessions.GetStats()
	dash := s.results.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, `# HELP conepose_estimates_total Estimates processed
# TYPE conepose_estimates_total counter
conepose_estimates_total %d

# HELP conepose_found_total Estimates that produced a position
# TYPE conepose_found_total counter
conepose_found_total %d

# HELP conepose_orientation_total Solved estimates by orientation case
# TYPE conepose_orientation_total counter
`, snap.Total, snap.Found)
	writeLabelled(&b, "conepose_orientation_total", "orientation", snap.ByOrientation)

	b.WriteString(`
# HELP conepose_failures_total Unsolved estimates by reason
# TYPE conepose_failures_total counter
`)
	writeLabelled(&b, "conepose_failures_total", "reason", snap.ByReason)

	fmt.Fprintf(&b, `
# HELP conepose_sessions Open estimate sessions
# TYPE conepose_sessions gauge
conepose_sessions %d

# HELP conepose_session_messages_received Total session messages received
# TYPE conepose_session_messages_received counter
conepose_session_messages_received %d

# HELP conepose_dashboard_clients Connected result dashboards
# TYPE conepose_dashboard_clients gauge
conepose_dashboard_clients %d

# HELP conepose_broadcast_dropped Results dropped by a full broadcast queue
# TYPE conepose_broadcast_dropped counter
conepose_broadcast_dropped %d
`, sessions.Sessions, sessions.MessagesReceived, dash.Clients, dash.Dropped)

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(b.String())
}
