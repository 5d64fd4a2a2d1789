package discord

import (
	"context"
	"encoding/json"
	"fmt"
)

// Environment variables consulted when neither the in-memory cache nor
// persisted storage carries a credential.
const (
	envApplicationID = "DISCORD_APPLICATION_ID"
	envClientID      = "DISCORD_CLIENT_ID"
	envPublicKey     = "DISCORD_PUBLIC_KEY"
	envBotToken      = "DISCORD_BOT_TOKEN"
)

// In-memory credential cache keys.
const (
	credKeyConfig = "config"
	credKeyOAuth  = "oauth"
)

// credentialConfig is the cached application credential triple set by
// AuthInit or seeded from Config.
type credentialConfig struct {
	ApplicationID string
	PublicKey     string
	BotToken      string
}

// OAuthToken is a user OAuth credential loaded from the init payload or from
// persisted storage. Expiry is derived from ExpiresAt at read time; a zero
// ExpiresAt never expires.
type OAuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// AuthStatus is the channel's authentication state as reported to the host.
type AuthStatus int

const (
	AuthStatusNotRequired      AuthStatus = 0
	AuthStatusAuthenticated    AuthStatus = 1
	AuthStatusNotAuthenticated AuthStatus = 2
	AuthStatusExpired          AuthStatus = 3
)

func (c *Channel) envValue(name string) (string, bool) {
	value := c.env(name)
	if value == "" {
		return "", false
	}
	return value, true
}

func (c *Channel) storeValue(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return "", false
	}
	return value, true
}

// applicationID resolves the Discord application ID: in-memory cache, then
// persisted storage, then environment.
func (c *Channel) applicationID(ctx context.Context) (string, bool) {
	if v, ok := c.credentials.Get(credKeyConfig); ok {
		return v.(*credentialConfig).ApplicationID, true
	}
	if id, ok := c.storeValue(ctx, storageKeyApplicationID); ok {
		return id, true
	}
	if id, ok := c.envValue(envApplicationID); ok {
		return id, true
	}
	return c.envValue(envClientID)
}

// publicKey resolves the hex-encoded signing key with the same fallback order.
func (c *Channel) publicKey(ctx context.Context) (string, bool) {
	if v, ok := c.credentials.Get(credKeyConfig); ok {
		return v.(*credentialConfig).PublicKey, true
	}
	if key, ok := c.storeValue(ctx, storageKeyPublicKey); ok {
		return key, true
	}
	return c.envValue(envPublicKey)
}

// botToken resolves the bot token. A cached config without a bot token falls
// through to storage and environment.
func (c *Channel) botToken(ctx context.Context) (string, bool) {
	if v, ok := c.credentials.Get(credKeyConfig); ok {
		if token := v.(*credentialConfig).BotToken; token != "" {
			return token, true
		}
	}
	if token, ok := c.storeValue(ctx, storageKeyBotToken); ok {
		return token, true
	}
	return c.envValue(envBotToken)
}

// oauthToken resolves the cached user OAuth token and reports whether it has
// expired. The in-memory cache wins over persisted storage.
func (c *Channel) oauthToken(ctx context.Context) (token OAuthToken, expired bool, ok bool) {
	if v, cached := c.credentials.Get(credKeyOAuth); cached {
		token = *v.(*OAuthToken)
	} else {
		payload, found := c.storeValue(ctx, storageKeyOAuthTokens)
		if !found {
			return OAuthToken{}, false, false
		}
		if err := json.Unmarshal([]byte(payload), &token); err != nil {
			return OAuthToken{}, false, false
		}
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	expired = token.ExpiresAt > 0 && c.clock().Unix() >= token.ExpiresAt
	return token, expired, true
}

// authInitPayload is the init/config call envelope: a config block and/or a
// tokens object, or a bare OAuth token object.
type authInitPayload struct {
	Config *struct {
		ApplicationID string `json:"application_id"`
		PublicKey     string `json:"public_key"`
		BotToken      string `json:"bot_token"`
	} `json:"config"`
	Tokens      *OAuthToken `json:"tokens"`
	AccessToken string      `json:"access_token"`
}

// AuthInit applies an init/config payload: `{"config":{...}}` populates the
// application credential cache, `{"tokens":{...}}` or a bare token object
// populates the OAuth token cache.
func (c *Channel) AuthInit(_ context.Context, payload []byte) error {
	var init authInitPayload
	if err := json.Unmarshal(payload, &init); err != nil {
		return fmt.Errorf("failed to parse auth payload: %w", err)
	}

	configSet := false
	if init.Config != nil && init.Config.ApplicationID != "" && init.Config.PublicKey != "" {
		c.credentials.SetDefault(credKeyConfig, &credentialConfig{
			ApplicationID: init.Config.ApplicationID,
			PublicKey:     init.Config.PublicKey,
			BotToken:      init.Config.BotToken,
		})
		configSet = true
	}

	if init.Tokens != nil {
		token := *init.Tokens
		c.credentials.SetDefault(credKeyOAuth, &token)
		return nil
	}

	if init.AccessToken != "" {
		var token OAuthToken
		if err := json.Unmarshal(payload, &token); err == nil {
			c.credentials.SetDefault(credKeyOAuth, &token)
		}
		return nil
	}

	if configSet {
		return nil
	}
	return ErrAuthPayload
}

// AuthState reports the channel's authentication status: authenticated when a
// bot token or a live OAuth token is available, expired when only a stale
// OAuth token remains, not-authenticated otherwise. A missing public key is
// always not-authenticated since webhooks cannot be verified without it.
func (c *Channel) AuthState(ctx context.Context) AuthStatus {
	if _, ok := c.publicKey(ctx); !ok {
		return AuthStatusNotAuthenticated
	}
	if _, ok := c.botToken(ctx); ok {
		return AuthStatusAuthenticated
	}
	if _, expired, ok := c.oauthToken(ctx); ok {
		if expired {
			return AuthStatusExpired
		}
		return AuthStatusAuthenticated
	}
	return AuthStatusNotAuthenticated
}

// AuthLogout discards the cached and persisted user OAuth token.
func (c *Channel) AuthLogout(ctx context.Context) error {
	c.credentials.Delete(credKeyOAuth)
	return c.store.Delete(ctx, storageKeyOAuthTokens)
}
