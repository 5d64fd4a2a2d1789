package discord

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// defaultHeartbeatInterval applies when a Hello frame omits the interval.
const defaultHeartbeatInterval = 45 * time.Second

// gatewayPayload is one gateway frame. S is a pointer so an absent sequence
// number is distinguishable from zero.
type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    discordgo.Intent   `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

// GatewaySession owns the persistent gateway socket and its protocol state.
// It is caller-driven: the host advances it by calling Poll on its own
// cadence, and nothing runs between polls. All state is guarded by one lock;
// any protocol invalidation (reconnect request, invalid session, transport
// failure, missed heartbeat ack) resolves as a full reset, never a partial
// repair, and the next poll reconnects and re-identifies from scratch.
type GatewaySession struct {
	config    *Config
	dialer    Dialer
	stats     *Stats
	clock     func() time.Time
	normalize func(ctx context.Context, eventType string, data json.RawMessage) []InboundMessage

	mu                sync.Mutex
	socket            Socket
	heartbeatInterval time.Duration
	lastHeartbeat     time.Time
	heartbeatAcked    bool
	sequence          *int64
	connected         bool
}

func newGatewaySession(config *Config, dialer Dialer, stats *Stats, clock func() time.Time,
	normalize func(ctx context.Context, eventType string, data json.RawMessage) []InboundMessage) *GatewaySession {
	return &GatewaySession{
		config:    config,
		dialer:    dialer,
		stats:     stats,
		clock:     clock,
		normalize: normalize,
	}
}

// Connected reports whether the session has reached READY.
func (g *GatewaySession) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// Poll advances the session by one cycle: connect if disconnected, drain up
// to PollBudget queued frames, then run the heartbeat check. Dispatch events
// are normalized into inbound messages. Connect failures are logged and
// retried on the next poll; there is no backoff beyond the host's cadence.
func (g *GatewaySession) Poll(ctx context.Context, botToken string) []InboundMessage {
	if botToken == "" {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.socket == nil {
		socket, err := g.dialer.Dial(ctx, g.config.GatewayURL)
		if err != nil {
			logger.Errorf("Failed to connect to Discord gateway: %+v", err)
			return nil
		}
		g.socket = socket
		g.connected = false
		g.stats.setGatewayConnected(false)
	}

	var messages []InboundMessage
	for i := 0; i < g.config.PollBudget; i++ {
		data, ok, err := g.socket.Receive(0)
		if err != nil {
			logger.Warnf("Gateway receive failed, resetting session: %+v", err)
			g.reset()
			break
		}
		if !ok {
			break
		}

		var payload gatewayPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			logger.Debugf("Skipping malformed gateway frame: %+v", err)
			continue
		}
		messages = append(messages, g.handlePayload(ctx, &payload, botToken)...)
		if g.socket == nil {
			// The payload invalidated the session.
			break
		}
	}

	g.checkHeartbeat()
	return messages
}

// handlePayload applies one gateway frame to the session state. The caller
// holds the lock.
func (g *GatewaySession) handlePayload(ctx context.Context, payload *gatewayPayload, botToken string) []InboundMessage {
	// Every frame carrying a sequence number updates the stored one,
	// regardless of opcode; it rides back on the next heartbeat.
	if payload.S != nil {
		seq := *payload.S
		g.sequence = &seq
	}

	switch payload.Op {
	case opHello:
		var hello helloData
		_ = json.Unmarshal(payload.D, &hello)
		g.heartbeatInterval = defaultHeartbeatInterval
		if hello.HeartbeatInterval > 0 {
			g.heartbeatInterval = time.Duration(hello.HeartbeatInterval) * time.Millisecond
		}
		g.lastHeartbeat = g.clock()
		g.heartbeatAcked = true
		g.identify(botToken)

	case opHeartbeatAck:
		g.heartbeatAcked = true

	case opReconnect, opInvalidSession:
		logger.Infof("Gateway requested reconnect (op %d), resetting session", payload.Op)
		g.reset()

	case opDispatch:
		if payload.T == "READY" {
			g.connected = true
			g.stats.setGatewayConnected(true)
			logger.Infof("Discord gateway session ready")
			return nil
		}
		return g.normalize(ctx, payload.T, payload.D)
	}

	return nil
}

// identify answers Hello with an Identify frame carrying the bot token and
// the configured intents. The caller holds the lock.
func (g *GatewaySession) identify(botToken string) {
	identify := identifyData{
		Token:   botToken,
		Intents: g.config.Intents,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "tark",
			Device:  "tark",
		},
	}
	if err := g.send(opIdentify, identify); err != nil {
		logger.Errorf("Failed to send identify, resetting session: %+v", err)
		g.reset()
	}
}

// checkHeartbeat sends a heartbeat when the interval has elapsed. A missed
// ack from the previous beat means the connection is dead and forces a full
// reset. The caller holds the lock.
func (g *GatewaySession) checkHeartbeat() {
	if g.socket == nil || g.heartbeatInterval == 0 || g.lastHeartbeat.IsZero() {
		return
	}
	if g.clock().Sub(g.lastHeartbeat) < g.heartbeatInterval {
		return
	}

	if !g.heartbeatAcked {
		logger.Warnf("Heartbeat was never acknowledged, resetting session")
		g.reset()
		return
	}

	if err := g.send(opHeartbeat, g.sequence); err != nil {
		logger.Warnf("Heartbeat send failed, resetting session: %+v", err)
		g.reset()
		return
	}
	g.lastHeartbeat = g.clock()
	g.heartbeatAcked = false
}

// send marshals and transmits one frame. The caller holds the lock.
func (g *GatewaySession) send(op int, d any) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(gatewayPayload{Op: op, D: data})
	if err != nil {
		return err
	}
	return g.socket.Send(frame)
}

// reset closes the socket and clears all protocol state. The next poll
// reconnects and re-identifies; session resume is deliberately not attempted.
// The caller holds the lock.
func (g *GatewaySession) reset() {
	if g.socket != nil {
		if err := g.socket.Close(); err != nil {
			logger.Debugf("Failed to close gateway socket: %+v", err)
		}
		g.socket = nil
	}
	g.heartbeatInterval = 0
	g.lastHeartbeat = time.Time{}
	g.heartbeatAcked = true
	g.sequence = nil
	g.connected = false
	g.stats.setGatewayConnected(false)
}
