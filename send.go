package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// HTTPClient is the outbound HTTP capability used for Discord REST calls.
// *http.Client satisfies this interface; tests substitute a mock.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SendRequest asks the channel to deliver reply text to a conversation.
// MessageID, when set, edits an earlier reply instead of creating a new one.
// MetadataJSON may carry `{"discord":{"channel_id":...,"ephemeral":...}}`.
type SendRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	MessageID      string `json:"message_id,omitempty"`
	MetadataJSON   string `json:"metadata_json,omitempty"`
}

// SendResult reports the outcome of one send attempt.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func sendFailure(err error) SendResult {
	return SendResult{Error: err.Error()}
}

// Send delivers reply text through the first usable credential, in priority
// order: the conversation's unexpired interaction token, the bot token, and
// the cached user OAuth token. Each is a progressively heavier-weight
// credential; an ephemeral reply is only deliverable through the interaction
// token and never falls through. A transport-level failure on one path falls
// through to the next; a Discord-level rejection is surfaced as-is.
func (c *Channel) Send(ctx context.Context, req SendRequest) SendResult {
	appID, ok := c.applicationID(ctx)
	if !ok {
		return sendFailure(ErrMissingApplicationID)
	}

	channelOverride, ephemeral := parseSendMetadata(req.MetadataJSON)

	if token, ok := c.loadInteractionToken(ctx, req.ConversationID); ok {
		var url, method string
		if req.MessageID != "" {
			url = discordgo.EndpointWebhookMessage(appID, token, req.MessageID)
			method = http.MethodPatch
		} else {
			url = discordgo.EndpointWebhookToken(appID, token) + "?wait=true"
			method = http.MethodPost
		}

		body := map[string]any{"content": req.Text}
		if ephemeral {
			body["flags"] = int(discordgo.MessageFlagsEphemeral)
		}

		result, delivered := c.deliver(ctx, method, url, body, "")
		if delivered {
			return result
		}
	}

	if ephemeral {
		return sendFailure(ErrEphemeralRequiresToken)
	}

	channelID := channelOverride
	if channelID == "" {
		channelID = req.ConversationID
	}
	var url, method string
	if req.MessageID != "" {
		url = discordgo.EndpointChannelMessage(channelID, req.MessageID)
		method = http.MethodPatch
	} else {
		url = discordgo.EndpointChannelMessages(channelID)
		method = http.MethodPost
	}
	body := map[string]any{"content": req.Text}

	if botToken, ok := c.botToken(ctx); ok {
		result, delivered := c.deliver(ctx, method, url, body, "Bot "+botToken)
		if delivered {
			return result
		}
	}

	if token, expired, ok := c.oauthToken(ctx); ok {
		if expired {
			return sendFailure(ErrOAuthTokenExpired)
		}
		result, delivered := c.deliver(ctx, method, url, body, token.TokenType+" "+token.AccessToken)
		if delivered {
			return result
		}
	}

	return sendFailure(ErrNoSendToken)
}

// deliver executes one REST call. delivered=false means the transport failed
// before Discord answered, and the router should try the next credential; a
// Discord response of any status is final.
func (c *Channel) deliver(ctx context.Context, method, url string, body map[string]any, authorization string) (SendResult, bool) {
	payload, err := json.Marshal(body)
	if err != nil {
		return sendFailure(err), true
	}

	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(string(payload)))
	if err != nil {
		return sendFailure(err), true
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warnf("Discord REST call failed: %+v", err)
		return SendResult{}, false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warnf("Failed to read Discord REST response: %+v", err)
		return SendResult{}, false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{Error: fmt.Sprintf("discord returned %d: %s", resp.StatusCode, respBody)}, true
	}

	c.stats.recordSent()
	return SendResult{Success: true, MessageID: extractMessageID(respBody)}, true
}

// extractMessageID pulls the created or edited message's ID from a Discord
// REST response body.
func extractMessageID(body []byte) string {
	var msg struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return ""
	}
	return msg.ID
}
