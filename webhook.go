package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// WebhookRequest is the inbound HTTP envelope the host passes for one
// interaction webhook call. Headers are ordered name/value pairs.
type WebhookRequest struct {
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Query   string      `json:"query,omitempty"`
	Headers [][2]string `json:"headers"`
	Body    string      `json:"body"`
}

// WebhookResponse is the synchronous answer to one webhook call plus any
// inbound messages the call produced.
type WebhookResponse struct {
	Status   int              `json:"status"`
	Headers  [][2]string      `json:"headers"`
	Body     string           `json:"body"`
	Messages []InboundMessage `json:"messages"`
}

// Interaction response bodies, answered synchronously. The deferred ack tells
// Discord a followup arrives later through the interaction webhook.
const (
	bodyPong        = `{"type":1}`
	bodyDeferredAck = `{"type":5}`
	bodyUnsupported = `{"type":4,"data":{"content":"Unsupported interaction"}}`
	bodyDMRefusal   = `{"type":4,"data":{"content":"Please DM the bot to use Tark privately.","flags":64}}`
)

func errorResponse(status int, body string) WebhookResponse {
	return WebhookResponse{Status: status, Headers: [][2]string{}, Body: body, Messages: []InboundMessage{}}
}

func jsonResponse(body string, messages []InboundMessage) WebhookResponse {
	if messages == nil {
		messages = []InboundMessage{}
	}
	return WebhookResponse{
		Status:   http.StatusOK,
		Headers:  [][2]string{{"Content-Type", "application/json"}},
		Body:     body,
		Messages: messages,
	}
}

// HandleWebhook processes one interaction webhook call: method and size
// checks, signature verification, then the interaction-type branch. Failures
// short-circuit with an HTTP-shaped error; nothing here is fatal. An
// unverified request reaches no further processing and mutates no state.
func (c *Channel) HandleWebhook(ctx context.Context, req WebhookRequest) WebhookResponse {
	if !strings.EqualFold(req.Method, http.MethodPost) {
		resp := errorResponse(http.StatusMethodNotAllowed, "method not allowed")
		resp.Headers = [][2]string{{"Allow", http.MethodPost}}
		return resp
	}

	if len(req.Body) > c.config.MaxBodyBytes {
		return errorResponse(http.StatusRequestEntityTooLarge, "payload too large")
	}

	publicKey, _ := c.publicKey(ctx)
	if publicKey == "" || !VerifySignature(publicKey, req.Headers, []byte(req.Body)) {
		return errorResponse(http.StatusUnauthorized, "invalid signature")
	}

	// Only the type discriminator is decoded before branching: a ping must
	// be answered even when the rest of the payload is malformed.
	var envelope struct {
		Type discordgo.InteractionType `json:"type"`
	}
	if err := json.Unmarshal([]byte(req.Body), &envelope); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid json")
	}

	switch envelope.Type {
	case discordgo.InteractionPing:
		return jsonResponse(bodyPong, nil)
	case discordgo.InteractionApplicationCommand:
		interaction := decodeInteraction([]byte(req.Body))
		if interaction == nil {
			return errorResponse(http.StatusBadRequest, "invalid json")
		}
		return c.handleCommandInteraction(ctx, interaction)
	default:
		return jsonResponse(bodyUnsupported, nil)
	}
}

// handleCommandInteraction turns a verified application-command interaction
// into a deferred ack plus one inbound message, caching the interaction token
// for the reply. In DM-only operation a guild-sourced command is refused
// before any token is cached or message normalized.
func (c *Channel) handleCommandInteraction(ctx context.Context, interaction *interactionPayload) WebhookResponse {
	channelID := interaction.ChannelID
	if channelID == "" {
		channelID = "unknown"
	}

	// The application ID is seeded even from interactions that end up
	// refused, so later sends can build webhook URLs.
	if interaction.ApplicationID != "" {
		if err := c.store.Set(ctx, storageKeyApplicationID, interaction.ApplicationID); err != nil {
			logger.Warnf("Failed to persist application ID: %+v", err)
		}
	}

	if c.config.DMOnly && interaction.GuildID != "" {
		return jsonResponse(bodyDMRefusal, nil)
	}

	userID, roles := interaction.user()
	text, command := interaction.commandText()

	conversationID := channelID
	if interaction.GuildID != "" {
		conversationID = channelID + ":" + userID
	}
	if interaction.Token != "" {
		c.storeInteractionToken(ctx, conversationID, interaction.Token)
	}

	if roles == nil {
		roles = []string{}
	}
	metadata := Metadata{
		Discord: DiscordMetadata{
			UserID:           userID,
			ChannelID:        channelID,
			GuildID:          interaction.GuildID,
			Roles:            roles,
			InteractionToken: interaction.Token,
		},
		Command: command,
	}

	c.stats.recordReceived()
	inbound := InboundMessage{
		ConversationID: conversationID,
		UserID:         userID,
		Text:           text,
		MetadataJSON:   metadata.encode(),
	}
	return jsonResponse(bodyDeferredAck, []InboundMessage{inbound})
}

// WebhookHandler adapts HandleWebhook to net/http for hosts that terminate
// HTTP themselves. Emitted inbound messages are forwarded to emit, which may
// be nil.
func (c *Channel) WebhookHandler(emit func([]InboundMessage)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Read one byte past the limit so oversized bodies surface as 413
		// rather than a silent truncation.
		body, err := io.ReadAll(io.LimitReader(r.Body, int64(c.config.MaxBodyBytes)+1))
		if err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		headers := make([][2]string, 0, len(r.Header))
		for name, values := range r.Header {
			for _, value := range values {
				headers = append(headers, [2]string{name, value})
			}
		}

		resp := c.HandleWebhook(r.Context(), WebhookRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: headers,
			Body:    string(body),
		})

		for _, h := range resp.Headers {
			w.Header().Set(h[0], h[1])
		}
		w.WriteHeader(resp.Status)
		if _, err := io.WriteString(w, resp.Body); err != nil {
			logger.Debugf("Failed to write webhook response: %+v", err)
		}

		if emit != nil && len(resp.Messages) > 0 {
			emit(resp.Messages)
		}
	})
}
