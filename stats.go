package discord

import (
	"encoding/json"
	"sync"
)

// Stats tracks message counters and gateway connectivity for telemetry
// display. It carries no correctness weight.
type Stats struct {
	mu               sync.Mutex
	sent             uint64
	received         uint64
	gatewayConnected bool
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Sent             uint64 `json:"sent"`
	Received         uint64 `json:"received"`
	GatewayConnected bool   `json:"gateway_connected"`
}

func (s *Stats) recordSent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
}

func (s *Stats) recordReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received++
}

func (s *Stats) setGatewayConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gatewayConnected = connected
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Sent:             s.sent,
		Received:         s.received,
		GatewayConnected: s.gatewayConnected,
	}
}

// widgetState renders the host's status-widget payload.
func (s *Stats) widgetState() string {
	snapshot := s.Snapshot()
	status := "disconnected"
	if snapshot.GatewayConnected {
		status = "connected"
	}
	payload := map[string]any{
		"status": status,
		"messages": map[string]uint64{
			"sent":     snapshot.Sent,
			"received": snapshot.Received,
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}
