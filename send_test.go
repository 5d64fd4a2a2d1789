package discord

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

// capturedRequest records the parts of an outbound REST call tests assert on.
type capturedRequest struct {
	Method        string
	URL           string
	Authorization string
	Body          string
}

// fakeHTTPResult is one queued response or transport error.
type fakeHTTPResult struct {
	status int
	body   string
	err    error
}

// fakeHTTPClient captures requests and replays queued results. An empty queue
// answers 200 with a fixed message ID.
type fakeHTTPClient struct {
	requests []capturedRequest
	queue    []fakeHTTPResult
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	f.requests = append(f.requests, capturedRequest{
		Method:        req.Method,
		URL:           req.URL.String(),
		Authorization: req.Header.Get("Authorization"),
		Body:          string(body),
	})

	result := fakeHTTPResult{status: http.StatusOK, body: `{"id":"m1"}`}
	if len(f.queue) > 0 {
		result = f.queue[0]
		f.queue = f.queue[1:]
	}
	if result.err != nil {
		return nil, result.err
	}
	return &http.Response{
		StatusCode: result.status,
		Body:       io.NopCloser(strings.NewReader(result.body)),
	}, nil
}

// newSendTestChannel creates a channel with a known application ID and the
// given fake HTTP client.
func newSendTestChannel(t *testing.T, client *fakeHTTPClient, options ...ChannelOption) *Channel {
	t.Helper()

	config := NewConfig()
	config.ApplicationID = "app-1"
	config.PublicKey = "pubkey"
	opts := append([]ChannelOption{WithEnv(noEnv), WithHTTPClient(client)}, options...)
	c, err := NewChannel(config, opts...)
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	return c
}

func TestChannel_Send_MissingApplicationID(t *testing.T) {
	client := &fakeHTTPClient{}
	c := newTestChannel(t, WithHTTPClient(client))

	result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
	if result.Success {
		t.Error("Expected failure without an application ID")
	}
	if result.Error != ErrMissingApplicationID.Error() {
		t.Errorf("Expected %q, got %q", ErrMissingApplicationID.Error(), result.Error)
	}
	if len(client.requests) != 0 {
		t.Errorf("Expected no HTTP call, got %d", len(client.requests))
	}
}

func TestChannel_Send_InteractionToken(t *testing.T) {
	t.Run("new message via followup webhook", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))
		c.storeInteractionToken(context.Background(), "c1", "itoken")

		result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
		if !result.Success {
			t.Fatalf("Expected success, got error %q", result.Error)
		}
		if result.MessageID != "m1" {
			t.Errorf("Expected message ID %q, got %q", "m1", result.MessageID)
		}

		if len(client.requests) != 1 {
			t.Fatalf("Expected one HTTP call, got %d", len(client.requests))
		}
		req := client.requests[0]
		expectedURL := discordgo.EndpointWebhookToken("app-1", "itoken") + "?wait=true"
		if req.URL != expectedURL {
			t.Errorf("Expected URL %q, got %q", expectedURL, req.URL)
		}
		if req.Method != http.MethodPost {
			t.Errorf("Expected method POST, got %q", req.Method)
		}
		if req.Authorization != "" {
			t.Errorf("Expected no Authorization header on the webhook path, got %q", req.Authorization)
		}
	})

	t.Run("edit via webhook message endpoint", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client)
		c.storeInteractionToken(context.Background(), "c1", "itoken")

		c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "edited", MessageID: "m1"})

		req := client.requests[0]
		if req.URL != discordgo.EndpointWebhookMessage("app-1", "itoken", "m1") {
			t.Errorf("Unexpected URL %q", req.URL)
		}
		if req.Method != http.MethodPatch {
			t.Errorf("Expected method PATCH, got %q", req.Method)
		}
	})

	t.Run("ephemeral flag rides in the body", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client)
		c.storeInteractionToken(context.Background(), "c1", "itoken")

		c.Send(context.Background(), SendRequest{
			ConversationID: "c1",
			Text:           "secret",
			MetadataJSON:   `{"discord":{"ephemeral":true}}`,
		})

		if !strings.Contains(client.requests[0].Body, `"flags":64`) {
			t.Errorf("Expected ephemeral flag in body, got %s", client.requests[0].Body)
		}
	})

	t.Run("discord rejection is final", func(t *testing.T) {
		client := &fakeHTTPClient{queue: []fakeHTTPResult{{status: 500, body: "boom"}}}
		c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))
		c.storeInteractionToken(context.Background(), "c1", "itoken")

		result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
		if result.Success {
			t.Error("Expected failure on a Discord rejection")
		}
		if result.Error != "discord returned 500: boom" {
			t.Errorf("Unexpected error %q", result.Error)
		}
		if len(client.requests) != 1 {
			t.Errorf("Expected no fallthrough after a Discord answer, got %d calls", len(client.requests))
		}
	})

	t.Run("transport failure falls through to the bot token", func(t *testing.T) {
		client := &fakeHTTPClient{queue: []fakeHTTPResult{{err: errors.New("connection refused")}}}
		c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))
		c.storeInteractionToken(context.Background(), "c1", "itoken")

		result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
		if !result.Success {
			t.Fatalf("Expected success via the bot token, got error %q", result.Error)
		}
		if len(client.requests) != 2 {
			t.Fatalf("Expected two HTTP calls, got %d", len(client.requests))
		}
		if client.requests[1].Authorization != "Bot bot-token" {
			t.Errorf("Expected bot authorization, got %q", client.requests[1].Authorization)
		}
	})
}

func TestChannel_Send_EphemeralRequiresToken(t *testing.T) {
	client := &fakeHTTPClient{}
	c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))

	result := c.Send(context.Background(), SendRequest{
		ConversationID: "c1",
		Text:           "secret",
		MetadataJSON:   `{"discord":{"ephemeral":true}}`,
	})
	if result.Success {
		t.Error("Expected failure for an ephemeral send without an interaction token")
	}
	if result.Error != ErrEphemeralRequiresToken.Error() {
		t.Errorf("Expected %q, got %q", ErrEphemeralRequiresToken.Error(), result.Error)
	}
	if len(client.requests) != 0 {
		t.Errorf("Expected no HTTP call, got %d", len(client.requests))
	}
}

func TestChannel_Send_BotToken(t *testing.T) {
	t.Run("new message", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))

		result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
		if !result.Success {
			t.Fatalf("Expected success, got error %q", result.Error)
		}

		req := client.requests[0]
		if req.URL != discordgo.EndpointChannelMessages("c1") {
			t.Errorf("Unexpected URL %q", req.URL)
		}
		if req.Method != http.MethodPost {
			t.Errorf("Expected method POST, got %q", req.Method)
		}
		if req.Authorization != "Bot bot-token" {
			t.Errorf("Expected bot authorization, got %q", req.Authorization)
		}
	})

	t.Run("edit", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))

		c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "edited", MessageID: "m9"})

		req := client.requests[0]
		if req.URL != discordgo.EndpointChannelMessage("c1", "m9") {
			t.Errorf("Unexpected URL %q", req.URL)
		}
		if req.Method != http.MethodPatch {
			t.Errorf("Expected method PATCH, got %q", req.Method)
		}
	})

	t.Run("metadata channel override", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client, withBotTokenInStore(t, "bot-token"))

		c.Send(context.Background(), SendRequest{
			ConversationID: "c1:u1",
			Text:           "hi",
			MetadataJSON:   `{"discord":{"channel_id":"c1"}}`,
		})

		if client.requests[0].URL != discordgo.EndpointChannelMessages("c1") {
			t.Errorf("Expected the metadata channel to win, got %q", client.requests[0].URL)
		}
	})
}

func TestChannel_Send_OAuthToken(t *testing.T) {
	t.Run("live token", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client)
		if err := c.AuthInit(context.Background(), []byte(`{"tokens":{"access_token":"utoken"}}`)); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
		if !result.Success {
			t.Fatalf("Expected success, got error %q", result.Error)
		}
		if client.requests[0].Authorization != "Bearer utoken" {
			t.Errorf("Expected bearer authorization, got %q", client.requests[0].Authorization)
		}
	})

	t.Run("expired token fails hard", func(t *testing.T) {
		client := &fakeHTTPClient{}
		c := newSendTestChannel(t, client)
		clock := &fixedClock{now: time.Unix(1700000000, 0)}
		c.clock = clock.Now
		payload := []byte(`{"tokens":{"access_token":"utoken","expires_at":1699999999}}`)
		if err := c.AuthInit(context.Background(), payload); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
		if result.Success {
			t.Error("Expected failure for an expired OAuth token")
		}
		if result.Error != ErrOAuthTokenExpired.Error() {
			t.Errorf("Expected %q, got %q", ErrOAuthTokenExpired.Error(), result.Error)
		}
		if len(client.requests) != 0 {
			t.Errorf("Expected no HTTP call, got %d", len(client.requests))
		}
	})
}

func TestChannel_Send_NoCredentials(t *testing.T) {
	client := &fakeHTTPClient{}
	c := newSendTestChannel(t, client)

	result := c.Send(context.Background(), SendRequest{ConversationID: "c1", Text: "hi"})
	if result.Success {
		t.Error("Expected failure without any send credential")
	}
	if result.Error != ErrNoSendToken.Error() {
		t.Errorf("Expected %q, got %q", ErrNoSendToken.Error(), result.Error)
	}
}
