package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
)

const (
	// DISCORD is a designated sarah.BotType for Discord integration.
	DISCORD sarah.BotType = "discord"
)

// channel is an internal interface that abstracts the Channel methods used by
// the Adapter. This allows mocking the channel in tests. *Channel satisfies
// this interface.
type channel interface {
	Poll(ctx context.Context) []InboundMessage
	HandleWebhook(ctx context.Context, req WebhookRequest) WebhookResponse
	WebhookHandler(emit func([]InboundMessage)) http.Handler
	Send(ctx context.Context, req SendRequest) SendResult
	Stop()
}

// ConversationID represents a Discord conversation as sarah.OutputDestination.
type ConversationID string

var _ sarah.OutputDestination = ConversationID("")

// AdapterOption defines a function signature for Adapter's functional options.
type AdapterOption func(adapter *Adapter)

// WithChannel creates an AdapterOption with the given *Channel.
// Use this to inject a pre-configured channel.
// If this option is not given, NewAdapter creates a new channel from the Config.
func WithChannel(c *Channel) AdapterOption {
	return func(adapter *Adapter) {
		adapter.channel = c
	}
}

// Adapter is a sarah.Adapter implementation for Discord. It drives both
// inbound paths the channel supports: the gateway session, advanced on a poll
// ticker, and the interaction webhook endpoint when Config.WebhookAddr is set.
type Adapter struct {
	config  *Config
	channel channel
}

var _ sarah.Adapter = (*Adapter)(nil)

// NewAdapter creates a new Adapter with the given Config and options.
func NewAdapter(config *Config, options ...AdapterOption) (*Adapter, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	adapter := &Adapter{
		config: config,
	}

	for _, opt := range options {
		opt(adapter)
	}

	if adapter.channel == nil {
		c, err := NewChannel(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord channel: %w", err)
		}
		adapter.channel = c
	}

	return adapter, nil
}

// BotType returns a designated BotType for Discord integration.
func (a *Adapter) BotType() sarah.BotType {
	return DISCORD
}

// Run starts the webhook endpoint when one is configured, then advances the
// gateway session on the configured poll cadence until the context is
// canceled. Inbound messages from either path are routed to enqueueInput.
func (a *Adapter) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	enqueue := func(messages []InboundMessage) {
		for _, m := range messages {
			if err := enqueueInput(NewInput(m)); err != nil {
				logger.Errorf("Failed to enqueue input: %+v", err)
			}
		}
	}

	var server *http.Server
	if a.config.WebhookAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(a.config.WebhookPath, a.channel.WebhookHandler(enqueue))
		server = &http.Server{Addr: a.config.WebhookAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				notifyErr(sarah.NewBotNonContinuableError(fmt.Sprintf("failed to serve webhook endpoint: %s", err.Error())))
			}
		}()
	}

	interval := a.config.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Failed to shut down webhook endpoint: %+v", err)
				}
				cancel()
			}
			a.channel.Stop()
			return

		case <-ticker.C:
			enqueue(a.channel.Poll(ctx))
		}
	}
}

// SendMessage sends the given message to Discord through the channel's send
// router.
func (a *Adapter) SendMessage(ctx context.Context, output sarah.Output) {
	destination, ok := output.Destination().(ConversationID)
	if !ok {
		logger.Errorf("Destination is not instance of ConversationID. %#v.", output.Destination())
		return
	}

	req := SendRequest{ConversationID: string(destination)}

	switch content := output.Content().(type) {
	case string:
		req.Text = content
	case SendRequest:
		req = content
		req.ConversationID = string(destination)
	default:
		logger.Warnf("Unexpected output %#v", output)
		return
	}

	result := a.channel.Send(ctx, req)
	if !result.Success {
		logger.Errorf("Failed to send message to %s: %s", destination, result.Error)
	}
}

// Input is a sarah.Input implementation that represents a received Discord
// message or slash command.
type Input struct {
	Inbound    InboundMessage
	receivedAt time.Time
}

var _ sarah.Input = (*Input)(nil)

// NewInput wraps an InboundMessage as sarah.Input.
func NewInput(m InboundMessage) *Input {
	return &Input{
		Inbound:    m,
		receivedAt: time.Now(),
	}
}

// SenderKey returns a unique key representing the sender in the conversation.
func (i *Input) SenderKey() string {
	return fmt.Sprintf("%s_%s", i.Inbound.ConversationID, i.Inbound.UserID)
}

// Message returns the received text.
func (i *Input) Message() string {
	return i.Inbound.Text
}

// SentAt returns when the message was received.
func (i *Input) SentAt() time.Time {
	return i.receivedAt
}

// ReplyTo returns the Discord conversation where the message was received.
func (i *Input) ReplyTo() sarah.OutputDestination {
	return ConversationID(i.Inbound.ConversationID)
}

// NewResponse creates a *sarah.CommandResponse with the given message.
func NewResponse(input sarah.Input, message string, options ...RespOption) (*sarah.CommandResponse, error) {
	if _, ok := input.(*Input); !ok {
		return nil, fmt.Errorf("%T is not a *discord.Input", input)
	}

	stash := &respOptions{}
	for _, opt := range options {
		opt(stash)
	}

	return &sarah.CommandResponse{
		Content:     message,
		UserContext: stash.userContext,
	}, nil
}

// RespOption defines a function signature that NewResponse's functional options must satisfy.
type RespOption func(*respOptions)

type respOptions struct {
	userContext *sarah.UserContext
}

// RespWithNext sets a given function as part of the response's *sarah.UserContext.
// The next input from the same user is passed to this function.
func RespWithNext(fnc sarah.ContextualFunc) RespOption {
	return func(options *respOptions) {
		options.userContext = &sarah.UserContext{
			Next: fnc,
		}
	}
}
