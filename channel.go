package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	gocache "github.com/patrickmn/go-cache"
)

// ChannelInfo describes the channel to the hosting application.
type ChannelInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	Description       string `json:"description"`
	SupportsStreaming bool   `json:"supports_streaming"`
	SupportsEdits     bool   `json:"supports_edits"`
}

// Channel ties the webhook handler, the gateway session, and the send router
// together over host-provided storage, environment, and HTTP capabilities.
type Channel struct {
	config      *Config
	store       Store
	env         func(string) string
	credentials *gocache.Cache
	httpClient  HTTPClient
	dialer      Dialer
	gateway     *GatewaySession
	stats       *Stats
	clock       func() time.Time
}

// ChannelOption defines a function signature for Channel's functional options.
type ChannelOption func(*Channel)

// WithStore substitutes the persistent key-value store. The default is an
// in-process MemoryStore; multi-process hosts should pass a RedisStore.
func WithStore(store Store) ChannelOption {
	return func(c *Channel) {
		c.store = store
	}
}

// WithHTTPClient substitutes the HTTP client used for Discord REST calls.
func WithHTTPClient(client HTTPClient) ChannelOption {
	return func(c *Channel) {
		c.httpClient = client
	}
}

// WithDialer substitutes the gateway socket dialer.
func WithDialer(dialer Dialer) ChannelOption {
	return func(c *Channel) {
		c.dialer = dialer
	}
}

// WithEnv substitutes the environment lookup, which defaults to os.Getenv.
func WithEnv(env func(string) string) ChannelOption {
	return func(c *Channel) {
		c.env = env
	}
}

// NewChannel creates a Channel with the given Config and options. Credential
// values present on the Config seed the in-memory cache the same way an
// AuthInit config payload would.
func NewChannel(config *Config, options ...ChannelOption) (*Channel, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	c := &Channel{
		config:      config,
		env:         os.Getenv,
		credentials: gocache.New(gocache.NoExpiration, 0),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		stats:       &Stats{},
		clock:       time.Now,
	}

	for _, opt := range options {
		opt(c)
	}

	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.dialer == nil {
		c.dialer = wsDialer{}
	}

	if config.ApplicationID != "" && config.PublicKey != "" {
		c.credentials.SetDefault(credKeyConfig, &credentialConfig{
			ApplicationID: config.ApplicationID,
			PublicKey:     config.PublicKey,
			BotToken:      config.BotToken,
		})
	}

	c.gateway = newGatewaySession(config, c.dialer, c.stats, func() time.Time { return c.clock() }, c.normalizeDispatch)
	return c, nil
}

// Info describes the channel to the host.
func (c *Channel) Info() ChannelInfo {
	return ChannelInfo{
		ID:          "discord",
		DisplayName: "Discord",
		Description: "Discord interactions channel",
	}
}

// Start marks the channel started. The gateway session is not dialed here;
// it connects lazily on the first poll.
func (c *Channel) Start() {
	logger.Infof("Discord channel started")
}

// Stop resets the gateway session and releases its socket.
func (c *Channel) Stop() {
	c.gateway.mu.Lock()
	c.gateway.reset()
	c.gateway.mu.Unlock()
	logger.Infof("Discord channel stopped")
}

// Poll advances the gateway session by one cycle and returns any inbound
// messages decoded from dispatch events. Without a resolvable bot token the
// gateway stays idle and Poll returns nothing.
func (c *Channel) Poll(ctx context.Context) []InboundMessage {
	botToken, _ := c.botToken(ctx)
	return c.gateway.Poll(ctx, botToken)
}

// HandleGatewayEvent ingests one externally received gateway frame, for hosts
// that own the socket themselves. Only dispatch event payloads are consulted;
// protocol state is untouched.
func (c *Channel) HandleGatewayEvent(ctx context.Context, frame []byte) []InboundMessage {
	var payload gatewayPayload
	if err := json.Unmarshal(frame, &payload); err != nil {
		return nil
	}
	return c.normalizeDispatch(ctx, payload.T, payload.D)
}

// GatewayConnected reports whether the gateway session has reached READY.
func (c *Channel) GatewayConnected() bool {
	return c.gateway.Connected()
}

// Stats returns a snapshot of the channel's counters.
func (c *Channel) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// WidgetState renders the host's status-widget JSON payload.
func (c *Channel) WidgetState() string {
	return c.stats.widgetState()
}
