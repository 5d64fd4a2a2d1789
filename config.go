package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultGatewayURL is the Discord gateway endpoint the session dials when no
// override is configured.
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Config contains configuration variables for the Discord channel.
//
// ApplicationID, PublicKey, and BotToken seed the in-memory credential cache.
// Each may be left empty, in which case the channel falls back to persisted
// storage and then to the DISCORD_APPLICATION_ID / DISCORD_CLIENT_ID,
// DISCORD_PUBLIC_KEY, and DISCORD_BOT_TOKEN environment variables.
type Config struct {
	// ApplicationID is the Discord application ID used to build webhook URLs.
	ApplicationID string `json:"application_id" yaml:"application_id"`

	// PublicKey is the hex-encoded ed25519 public key used to verify
	// interaction webhook signatures.
	PublicKey string `json:"public_key" yaml:"public_key"`

	// BotToken is the Discord bot token used for the gateway and REST calls.
	BotToken string `json:"bot_token" yaml:"bot_token"`

	// GatewayURL is the websocket endpoint the gateway session dials.
	GatewayURL string `json:"gateway_url" yaml:"gateway_url"`

	// Intents declares the Gateway Intents sent with the identify payload.
	// The default omits guild message content: guild messages are not
	// observed over the gateway in DM-only operation.
	Intents discordgo.Intent `json:"intents" yaml:"intents"`

	// DMOnly rejects all guild-originated interactions and messages,
	// answering guild interactions with an ephemeral refusal.
	DMOnly bool `json:"dm_only" yaml:"dm_only"`

	// MaxBodyBytes is the largest webhook request body accepted before the
	// handler answers 413.
	MaxBodyBytes int `json:"max_body_bytes" yaml:"max_body_bytes"`

	// PollBudget bounds how many queued gateway frames a single Poll call
	// drains; the remaining backlog is picked up on the next poll.
	PollBudget int `json:"poll_budget" yaml:"poll_budget"`

	// InteractionTokenTTL is how long a cached interaction token is usable.
	// Discord invalidates interaction webhooks after 15 minutes.
	InteractionTokenTTL time.Duration `json:"interaction_token_ttl" yaml:"interaction_token_ttl"`

	// PollInterval is the cadence at which the sarah adapter advances the
	// gateway session.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// WebhookAddr, when set, makes the sarah adapter serve the interaction
	// webhook endpoint on this address.
	WebhookAddr string `json:"webhook_addr" yaml:"webhook_addr"`

	// WebhookPath is the path the interaction webhook endpoint is served on.
	WebhookPath string `json:"webhook_path" yaml:"webhook_path"`
}

// NewConfig creates and returns a new Config instance with default settings.
// Credential values are empty and resolve through storage and the environment
// unless set before use.
func NewConfig() *Config {
	return &Config{
		GatewayURL:          DefaultGatewayURL,
		Intents:             discordgo.IntentsGuilds | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent,
		DMOnly:              true,
		MaxBodyBytes:        512 * 1024,
		PollBudget:          25,
		InteractionTokenTTL: 15 * time.Minute,
		PollInterval:        time.Second,
		WebhookPath:         "/interactions",
	}
}
